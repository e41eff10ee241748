package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dcode-github/property_rentals/backend/client"
	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/state"
)

type browseOptions struct {
	server string
	token  string
}

func (o *browseOptions) container() (*state.Container, *client.Client) {
	c := client.New(o.server, o.token)
	return state.New(c), c
}

func browseCmd(root *rootOptions) *cobra.Command {
	opts := &browseOptions{}
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and manage listings through a running server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if root.logLevel != "" {
				if err := level.UnmarshalText([]byte(root.logLevel)); err != nil {
					return fmt.Errorf("invalid log level %q", root.logLevel)
				}
			}
			newLogger(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("RENTALS_SERVER", "http://localhost:8080"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("RENTALS_TOKEN"), "Bearer token")

	cmd.AddCommand(
		listCmd(opts),
		searchCmd(opts),
		mineCmd(opts),
		showCmd(opts),
		createCmd(opts),
		updateCmd(opts),
		deleteCmd(opts),
		toggleCmd(opts),
		roleCmd(opts),
		dashboardCmd(opts),
	)
	return cmd
}

func listCmd(opts *browseOptions) *cobra.Command {
	var minSize, maxSize float64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := filtersFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			c, _ := opts.container()
			if _, err := c.FetchAll(cmd.Context(), filters); err != nil {
				return err
			}
			var cf state.ClientFilter
			if cmd.Flags().Changed("min-size") {
				cf.MinSize = &minSize
			}
			if cmd.Flags().Changed("max-size") {
				cf.MaxSize = &maxSize
			}
			printProperties(cmd.OutOrStdout(), c.Snapshot().VisibleList(models.RoleBuyer, cf))
			return nil
		},
	}
	addFilterFlags(cmd.Flags())
	cmd.Flags().Float64Var(&minSize, "min-size", 0, "Client-side minimum size")
	cmd.Flags().Float64Var(&maxSize, "max-size", 0, "Client-side maximum size")
	return cmd
}

func searchCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search [term]",
		Short: "Search available properties by title, description or location",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			c, _ := opts.container()
			c.SetSearchTerm(term)
			if _, err := c.Search(cmd.Context(), term); err != nil {
				return err
			}
			printProperties(cmd.OutOrStdout(), c.Snapshot().Properties)
			return nil
		},
	}
}

func mineCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the caller's own listings, hidden ones included",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, api := opts.container()
			me, err := api.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := c.FetchMine(cmd.Context(), me.UID); err != nil {
				return err
			}
			s := c.Snapshot()
			printProperties(cmd.OutOrStdout(), s.MyProperties)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d available, %d hidden\n", s.AvailableCount(), s.HiddenCount())
			return nil
		},
	}
}

func showCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api := opts.container()
			p, err := api.GetPropertyByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return models.ErrNotFound
			}
			printDetail(cmd.OutOrStdout(), *p)
			return nil
		},
	}
}

func createCmd(opts *browseOptions) *cobra.Command {
	var data models.CreatePropertyData
	var propertyType string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a listing as the calling realtor",
		RunE: func(cmd *cobra.Command, args []string) error {
			data.PropertyType = models.PropertyType(propertyType)
			if err := data.Validate(); err != nil {
				return err
			}
			c, api := opts.container()
			me, err := api.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Create(cmd.Context(), data, me.UID, me.Email)
			if err != nil {
				return err
			}
			if p == nil {
				return models.ErrNotFound
			}
			printDetail(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&data.Title, "title", "", "Title")
	f.StringVar(&data.Description, "description", "", "Description")
	f.Float64Var(&data.Price, "price", 0, "Monthly price")
	f.Float64Var(&data.Area, "area", 0, "Area")
	f.IntVar(&data.Rooms, "rooms", 0, "Number of rooms")
	f.StringVar(&data.Location, "location", "", "Location")
	f.StringVar(&data.ImageURL, "image-url", "", "Image URL")
	f.StringVar(&propertyType, "type", string(models.PropertyTypeApartment), "apartment, house, condo or studio")
	f.StringSliceVar(&data.Amenities, "amenities", nil, "Amenities, e.g. "+strings.Join(models.AmenityPresets, ","))
	f.BoolVar(&data.Parking, "parking", false, "Parking available")
	f.BoolVar(&data.Furnished, "furnished", false, "Furnished")
	f.BoolVar(&data.PetsAllowed, "pets", false, "Pets allowed")
	return cmd
}

func updateCmd(opts *browseOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a listing; only flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := updateFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			if err := data.Validate(); err != nil {
				return err
			}
			c, _ := opts.container()
			p, err := c.Update(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}
			if p == nil {
				return models.ErrNotFound
			}
			printDetail(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("title", "", "Title")
	f.String("description", "", "Description")
	f.Float64("price", 0, "Monthly price")
	f.Float64("area", 0, "Area")
	f.Int("rooms", 0, "Number of rooms")
	f.String("location", "", "Location")
	f.String("image-url", "", "Image URL")
	f.String("type", "", "apartment, house, condo or studio")
	f.StringSlice("amenities", nil, "Amenities")
	f.Bool("parking", false, "Parking available")
	f.Bool("furnished", false, "Furnished")
	f.Bool("pets", false, "Pets allowed")
	return cmd
}

func deleteCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a listing permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := opts.container()
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func toggleCmd(opts *browseOptions) *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Show or hide a listing from buyers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := opts.container()
			p, err := c.ToggleAvailability(cmd.Context(), args[0], available)
			if err != nil {
				return err
			}
			if p == nil {
				return models.ErrNotFound
			}
			printDetail(cmd.OutOrStdout(), *p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&available, "available", true, "Whether buyers can see the listing")
	return cmd
}

func roleCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "role [realtor|buyer]",
		Short: "Show or choose the caller's role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api := opts.container()
			var (
				me  client.Me
				err error
			)
			if len(args) == 1 {
				role := models.Role(args[0])
				if !role.Valid() {
					return fmt.Errorf("role must be realtor or buyer")
				}
				me, err = api.SetRole(cmd.Context(), role)
			} else {
				me, err = api.GetMe(cmd.Context())
			}
			if err != nil {
				return err
			}
			role := string(me.Role)
			if role == "" {
				role = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", me.UID, me.Email, role)
			return nil
		},
	}
}

// dashboardCmd loads the public and own lists concurrently into one container
// and prints the list the caller's role browses.
func dashboardCmd(opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the home screen for the caller's role",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, api := opts.container()
			me, err := api.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			if err := loadDashboard(cmd.Context(), c, me); err != nil {
				return err
			}
			s := c.Snapshot()
			out := cmd.OutOrStdout()
			if me.Role == models.RoleRealtor {
				fmt.Fprintf(out, "My listings: %d available, %d hidden\n\n", s.AvailableCount(), s.HiddenCount())
			} else {
				fmt.Fprintf(out, "Available listings: %d\n\n", len(s.Properties))
			}
			printProperties(out, s.DisplayList(me.Role))
			return nil
		},
	}
}

func loadDashboard(ctx context.Context, c *state.Container, me client.Me) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.FetchAll(gctx, nil)
		return err
	})
	if me.Role == models.RoleRealtor {
		g.Go(func() error {
			_, err := c.FetchMine(gctx, me.UID)
			return err
		})
	}
	return g.Wait()
}

func addFilterFlags(f *pflag.FlagSet) {
	f.Float64("min-price", 0, "Minimum price")
	f.Float64("max-price", 0, "Maximum price")
	f.Float64("min-area", 0, "Minimum area")
	f.Float64("max-area", 0, "Maximum area")
	f.Int("min-rooms", 0, "Minimum rooms")
	f.Int("max-rooms", 0, "Maximum rooms")
	f.String("type", "", "apartment, house, condo or studio")
	f.Bool("parking", false, "Require parking (false requires none)")
	f.Bool("furnished", false, "Require furnished (false requires unfurnished)")
	f.Bool("pets", false, "Require pets allowed (false requires not allowed)")
}

// filtersFromFlags maps changed flags onto the query parameters ParseFilters
// understands, so CLI and HTTP share one parser.
func filtersFromFlags(f *pflag.FlagSet) (*models.PropertyFilters, error) {
	names := map[string]string{
		"min-price": "minPrice",
		"max-price": "maxPrice",
		"min-area":  "minArea",
		"max-area":  "maxArea",
		"min-rooms": "minRooms",
		"max-rooms": "maxRooms",
		"type":      "propertyType",
		"parking":   "parking",
		"furnished": "furnished",
		"pets":      "petsAllowed",
	}
	query := make(map[string][]string)
	f.Visit(func(fl *pflag.Flag) {
		if param, ok := names[fl.Name]; ok {
			query[param] = []string{fl.Value.String()}
		}
	})
	return models.ParseFilters(query)
}

func updateFromFlags(f *pflag.FlagSet) (models.UpdatePropertyData, error) {
	var data models.UpdatePropertyData
	var err error
	setString := func(name string, dst **string) {
		if err == nil && f.Changed(name) {
			var v string
			v, err = f.GetString(name)
			*dst = &v
		}
	}
	setFloat := func(name string, dst **float64) {
		if err == nil && f.Changed(name) {
			var v float64
			v, err = f.GetFloat64(name)
			*dst = &v
		}
	}
	setBool := func(name string, dst **bool) {
		if err == nil && f.Changed(name) {
			var v bool
			v, err = f.GetBool(name)
			*dst = &v
		}
	}
	setString("title", &data.Title)
	setString("description", &data.Description)
	setFloat("price", &data.Price)
	setFloat("area", &data.Area)
	setString("location", &data.Location)
	setString("image-url", &data.ImageURL)
	setBool("parking", &data.Parking)
	setBool("furnished", &data.Furnished)
	setBool("pets", &data.PetsAllowed)
	if err == nil && f.Changed("rooms") {
		var rooms int
		rooms, err = f.GetInt("rooms")
		data.Rooms = &rooms
	}
	if err == nil && f.Changed("type") {
		var raw string
		raw, err = f.GetString("type")
		t := models.PropertyType(raw)
		data.PropertyType = &t
	}
	if err == nil && f.Changed("amenities") {
		var amenities []string
		amenities, err = f.GetStringSlice("amenities")
		data.Amenities = &amenities
	}
	return data, err
}

func printProperties(w io.Writer, props []models.Property) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tPRICE\tROOMS\tAREA\tLOCATION\tAVAILABLE")
	for _, p := range props {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%.1f\t%s\t%t\n",
			p.ID, p.Title, p.PropertyType, p.Price, p.Rooms, p.Area, p.Location, p.IsAvailable)
	}
	_ = tw.Flush()
}

func printDetail(w io.Writer, p models.Property) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"ID", p.ID},
		{"Title", p.Title},
		{"Description", p.Description},
		{"Type", string(p.PropertyType)},
		{"Price", fmt.Sprintf("%.2f", p.Price)},
		{"Area", fmt.Sprintf("%.1f", p.Area)},
		{"Rooms", fmt.Sprintf("%d", p.Rooms)},
		{"Location", p.Location},
		{"Amenities", strings.Join(p.Amenities, ", ")},
		{"Parking", fmt.Sprintf("%t", p.Parking)},
		{"Furnished", fmt.Sprintf("%t", p.Furnished)},
		{"Pets allowed", fmt.Sprintf("%t", p.PetsAllowed)},
		{"Available", fmt.Sprintf("%t", p.IsAvailable)},
		{"Realtor", p.RealtorEmail},
		{"Image", p.ImageURL},
		{"Created", p.CreatedAt.Format("2006-01-02 15:04")},
		{"Updated", p.UpdatedAt.Format("2006-01-02 15:04")},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	_ = tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
