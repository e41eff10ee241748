package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcode-github/property_rentals/backend/client"
	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/routes"
	"github.com/dcode-github/property_rentals/backend/state"
	"github.com/dcode-github/property_rentals/backend/store"
	"github.com/dcode-github/property_rentals/backend/utils"
)

func TestRootCommands(t *testing.T) {
	root := rootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["token"])
	assert.True(t, names["browse"])

	browse, _, err := root.Find([]string{"browse"})
	require.NoError(t, err)
	var subs []string
	for _, c := range browse.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "search", "mine", "show", "create", "update", "delete", "toggle", "role", "dashboard"}, subs)
}

func TestFiltersFromFlags(t *testing.T) {
	cmd := listCmd(&browseOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--min-price", "100", "--type", "condo", "--pets=false"}))

	f, err := filtersFromFlags(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 100.0, *f.MinPrice)
	assert.Nil(t, f.MaxPrice)
	assert.Equal(t, models.PropertyTypeCondo, *f.PropertyType)
	assert.False(t, *f.PetsAllowed)
	assert.Nil(t, f.Parking)

	cmd = listCmd(&browseOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--type", "castle"}))
	_, err = filtersFromFlags(cmd.Flags())
	assert.Error(t, err)
}

func TestUpdateFromFlagsOnlySendsChanged(t *testing.T) {
	cmd := updateCmd(&browseOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--title", "Loft", "--rooms", "3", "--amenities", "WiFi,Gym", "--furnished"}))

	data, err := updateFromFlags(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "Loft", *data.Title)
	assert.Equal(t, 3, *data.Rooms)
	assert.Equal(t, []string{"WiFi", "Gym"}, *data.Amenities)
	assert.True(t, *data.Furnished)
	assert.Nil(t, data.Price)
	assert.Nil(t, data.PropertyType)
	assert.Len(t, data.Fields(), 4)
}

func TestLoadDashboardAndPrint(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SaveUserRole(ctx, "r1", models.RoleRealtor))
	_, err := mem.CreateProperty(ctx, models.CreatePropertyData{
		Title: "Shown", Description: "d", Price: 1, Area: 1, Rooms: 1, Location: "x", PropertyType: models.PropertyTypeStudio,
	}, "r1", "r1@example.com")
	require.NoError(t, err)
	hiddenID, err := mem.CreateProperty(ctx, models.CreatePropertyData{
		Title: "Hidden", Description: "d", Price: 1, Area: 1, Rooms: 1, Location: "x", PropertyType: models.PropertyTypeStudio,
	}, "r1", "r1@example.com")
	require.NoError(t, err)
	require.NoError(t, mem.TogglePropertyAvailability(ctx, hiddenID, false))

	issuer := utils.NewTokenIssuer("secret", time.Hour)
	router := mux.NewRouter()
	routes.Routes(router, routes.Dependencies{
		Properties: mem,
		Roles:      middleware.NewRoleResolver(mem, time.Minute, nil),
		Verifier:   middleware.NewJWTVerifier(issuer),
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	token, err := issuer.GenerateJWT("r1", "r1@example.com")
	require.NoError(t, err)
	c := state.New(client.New(ts.URL, token))

	require.NoError(t, loadDashboard(ctx, c, client.Me{UID: "r1", Role: models.RoleRealtor}))
	s := c.Snapshot()
	assert.Len(t, s.Properties, 1)
	assert.Len(t, s.MyProperties, 2)
	assert.Equal(t, 1, s.HiddenCount())

	var out bytes.Buffer
	printProperties(&out, s.DisplayList(models.RoleRealtor))
	assert.Contains(t, out.String(), "Hidden")
	assert.Contains(t, out.String(), "AVAILABLE")
}
