package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/routes"
	"github.com/dcode-github/property_rentals/backend/state"
	"github.com/dcode-github/property_rentals/backend/store"
	"github.com/dcode-github/property_rentals/backend/utils"
)

type server struct {
	url    string
	mem    *store.MemoryStore
	issuer *utils.TokenIssuer
}

func newServer(t *testing.T) *server {
	t.Helper()
	mem := store.NewMemoryStore()
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	router := mux.NewRouter()
	routes.Routes(router, routes.Dependencies{
		Properties: mem,
		Roles:      middleware.NewRoleResolver(mem, time.Minute, nil),
		Verifier:   middleware.NewJWTVerifier(issuer),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return &server{url: ts.URL, mem: mem, issuer: issuer}
}

func (s *server) clientFor(t *testing.T, uid string, role models.Role) *Client {
	t.Helper()
	if role != "" {
		require.NoError(t, s.mem.SaveUserRole(context.Background(), uid, role))
	}
	token, err := s.issuer.GenerateJWT(uid, uid+"@example.com")
	require.NoError(t, err)
	return New(s.url, token)
}

func listing(title string) models.CreatePropertyData {
	return models.CreatePropertyData{
		Title:        title,
		Description:  "Close to the park",
		Price:        1100,
		Area:         52,
		Rooms:        2,
		Location:     "Northside",
		PropertyType: models.PropertyTypeHouse,
		Amenities:    []string{"Balcony"},
	}
}

func TestClientImplementsPropertyStore(t *testing.T) {
	var _ store.PropertyStore = (*Client)(nil)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	realtor := srv.clientFor(t, "r1", models.RoleRealtor)

	id, err := realtor.CreateProperty(ctx, listing("Park house"), "ignored", "ignored")
	require.NoError(t, err)

	p, err := realtor.GetPropertyByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "r1", p.RealtorID)
	assert.True(t, p.IsAvailable)

	missing, err := realtor.GetPropertyByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	title := "Park house, renovated"
	require.NoError(t, realtor.UpdateProperty(ctx, id, models.UpdatePropertyData{Title: &title}))
	assert.ErrorIs(t, realtor.UpdateProperty(ctx, "nope", models.UpdatePropertyData{Title: &title}), models.ErrNotFound)

	require.NoError(t, realtor.TogglePropertyAvailability(ctx, id, false))
	all, err := realtor.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	mine, err := realtor.GetPropertiesByRealtor(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, title, mine[0].Title)

	require.NoError(t, realtor.TogglePropertyAvailability(ctx, id, true))
	found, err := realtor.SearchProperties(ctx, "RENOVATED")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	filtered, err := realtor.GetProperties(ctx, &models.PropertyFilters{MinPrice: ptr(2000.0)})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	require.NoError(t, realtor.DeleteProperty(ctx, id))
	require.NoError(t, realtor.DeleteProperty(ctx, id))
}

func ptr[T any](v T) *T { return &v }

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	realtor := srv.clientFor(t, "r1", models.RoleRealtor)
	buyer := srv.clientFor(t, "b1", models.RoleBuyer)

	_, err := buyer.CreateProperty(ctx, listing("Nope"), "", "")
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.True(t, models.IsStoreError(err))

	bad := listing("")
	_, err = realtor.CreateProperty(ctx, bad, "", "")
	assert.True(t, models.IsValidationError(err))

	anonymous := New(srv.url, "")
	_, err = anonymous.GetProperties(ctx, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	down := New("http://127.0.0.1:1", "token")
	_, err = down.GetProperties(ctx, nil)
	assert.True(t, models.IsStoreError(err))
}

func TestUnroutedPathIsNotMissingProperty(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	realtor := srv.clientFor(t, "r1", models.RoleRealtor)
	id, err := realtor.CreateProperty(ctx, listing("Park house"), "", "")
	require.NoError(t, err)

	token, err := srv.issuer.GenerateJWT("r1", "r1@example.com")
	require.NoError(t, err)
	misrouted := New(srv.url+"/v2", token)

	p, err := misrouted.GetPropertyByID(ctx, id)
	assert.Nil(t, p)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	c := state.New(misrouted)
	created, err := c.Create(ctx, listing("Lost"), "r1", "r1@example.com")
	assert.Error(t, err)
	assert.Nil(t, created)
	assert.NotEmpty(t, c.Snapshot().Error)

	missing, err := realtor.GetPropertyByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := srv.clientFor(t, "u1", "")

	me, err := c.GetMe(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Role(""), me.Role)

	me, err = c.SetRole(ctx, models.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, me.Role)
	assert.Equal(t, "u1@example.com", me.Email)
}

// The container behaves the same over the API as over a local store.
func TestContainerOverAPI(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	realtor := srv.clientFor(t, "r1", models.RoleRealtor)
	c := state.New(realtor)

	first, err := c.Create(ctx, listing("First"), "r1", "r1@example.com")
	require.NoError(t, err)
	second, err := c.Create(ctx, listing("Second"), "r1", "r1@example.com")
	require.NoError(t, err)

	s := c.Snapshot()
	assert.Equal(t, []string{second.ID, first.ID}, ids(s.MyProperties))

	_, err = c.ToggleAvailability(ctx, first.ID, false)
	require.NoError(t, err)
	_, err = c.FetchAll(ctx, nil)
	require.NoError(t, err)
	_, err = c.FetchMine(ctx, "r1")
	require.NoError(t, err)

	s = c.Snapshot()
	assert.Equal(t, []string{second.ID}, ids(s.Properties))
	assert.Equal(t, 1, s.AvailableCount())
	assert.Equal(t, 1, s.HiddenCount())
	assert.NotNil(t, s.LastFetched)

	require.NoError(t, c.Delete(ctx, second.ID))
	s = c.Snapshot()
	assert.Empty(t, s.Properties)
	assert.Equal(t, []string{first.ID}, ids(s.MyProperties))

	buyer := state.New(srv.clientFor(t, "b1", models.RoleBuyer))
	_, err = buyer.Create(ctx, listing("Nope"), "b1", "")
	require.Error(t, err)
	assert.Contains(t, buyer.Snapshot().Error, "403")
	assert.False(t, buyer.Snapshot().Loading)
}

func ids(props []models.Property) []string {
	out := make([]string, 0, len(props))
	for _, p := range props {
		out = append(out, p.ID)
	}
	return out
}
