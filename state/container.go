// Package state holds the client-side property cache: the lists shown to
// buyers and realtors, loading/error flags, active filters and search term.
//
// Every asynchronous action runs in three phases. Pending sets Loading and
// clears Error before the store call; fulfilled or rejected is applied when
// the call returns. Actions are not serialized, de-duplicated or cancelled,
// so when two fetches overlap the one that resolves last wins.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/store"
)

type Action string

const (
	ActionFetchAll           Action = "fetchProperties"
	ActionFetchMine          Action = "fetchMyProperties"
	ActionCreate             Action = "createProperty"
	ActionUpdate             Action = "updateProperty"
	ActionDelete             Action = "deleteProperty"
	ActionToggleAvailability Action = "togglePropertyAvailability"
	ActionSearch             Action = "searchProperties"
)

var defaultErrors = map[Action]string{
	ActionFetchAll:           "Failed to fetch properties",
	ActionFetchMine:          "Failed to fetch your properties",
	ActionCreate:             "Failed to create property",
	ActionUpdate:             "Failed to update property",
	ActionDelete:             "Failed to delete property",
	ActionToggleAvailability: "Failed to toggle property availability",
	ActionSearch:             "Failed to search properties",
}

// State is a snapshot of the container. Error is empty when no error is set.
type State struct {
	Properties   []models.Property
	MyProperties []models.Property
	Loading      bool
	Error        string
	Filters      models.PropertyFilters
	SearchTerm   string
	LastFetched  *time.Time
	// Version increases by one with every transition.
	Version uint64
}

func (s State) clone() State {
	s.Properties = cloneList(s.Properties)
	s.MyProperties = cloneList(s.MyProperties)
	if s.LastFetched != nil {
		t := *s.LastFetched
		s.LastFetched = &t
	}
	return s
}

func cloneList(props []models.Property) []models.Property {
	out := make([]models.Property, len(props))
	for i, p := range props {
		out[i] = p.Clone()
	}
	return out
}

// Listener is called with a fresh snapshot after a transition. Deliveries are
// serialized and never go backwards: a snapshot older than one already
// delivered is dropped. Listeners must not call container methods that change
// state.
type Listener func(State)

type Container struct {
	store  store.PropertyStore
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int

	notifyMu  sync.Mutex
	delivered uint64
}

type Option func(*Container)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

func New(s store.PropertyStore, opts ...Option) *Container {
	c := &Container{
		store:     s,
		logger:    slog.Default(),
		now:       time.Now,
		listeners: make(map[int]Listener),
		state: State{
			Properties:   []models.Property{},
			MyProperties: []models.Property{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a deep copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers l and returns a function that removes it.
func (c *Container) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// mutate applies fn under the lock and then notifies listeners in version
// order.
func (c *Container) mutate(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.state.Version++
	snap := c.state.clone()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Version <= c.delivered {
		return
	}
	c.delivered = snap.Version
	for _, l := range listeners {
		l(snap)
	}
}

func (c *Container) pending(action Action) {
	c.logger.Debug("Action pending", slog.String("action", string(action)))
	c.mutate(func(s *State) {
		s.Loading = true
		s.Error = ""
	})
}

func (c *Container) rejected(action Action, err error) {
	msg := err.Error()
	if msg == "" {
		msg = defaultErrors[action]
	}
	c.logger.Warn("Action rejected", slog.String("action", string(action)), slog.String("error", msg))
	c.mutate(func(s *State) {
		s.Loading = false
		s.Error = msg
	})
}

func (c *Container) fulfilled(action Action, fn func(s *State)) {
	c.logger.Debug("Action fulfilled", slog.String("action", string(action)))
	c.mutate(func(s *State) {
		s.Loading = false
		fn(s)
	})
}

// FetchAll replaces Properties with the available listings matching filters
// and stamps LastFetched.
func (c *Container) FetchAll(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	c.pending(ActionFetchAll)
	props, err := c.store.GetProperties(ctx, filters)
	if err != nil {
		c.rejected(ActionFetchAll, err)
		return nil, err
	}
	fetched := c.now()
	c.fulfilled(ActionFetchAll, func(s *State) {
		s.Properties = cloneList(props)
		s.LastFetched = &fetched
	})
	return props, nil
}

// FetchMine replaces MyProperties with every listing owned by realtorID.
func (c *Container) FetchMine(ctx context.Context, realtorID string) ([]models.Property, error) {
	c.pending(ActionFetchMine)
	props, err := c.store.GetPropertiesByRealtor(ctx, realtorID)
	if err != nil {
		c.rejected(ActionFetchMine, err)
		return nil, err
	}
	c.fulfilled(ActionFetchMine, func(s *State) {
		s.MyProperties = cloneList(props)
	})
	return props, nil
}

// Create persists a listing, re-reads it and inserts it at the front of both
// lists. The lists are not re-sorted.
func (c *Container) Create(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (*models.Property, error) {
	c.pending(ActionCreate)
	id, err := c.store.CreateProperty(ctx, data, realtorID, realtorEmail)
	if err != nil {
		c.rejected(ActionCreate, err)
		return nil, err
	}
	created, err := c.store.GetPropertyByID(ctx, id)
	if err != nil {
		c.rejected(ActionCreate, err)
		return nil, err
	}
	c.fulfilled(ActionCreate, func(s *State) {
		if created == nil {
			return
		}
		s.MyProperties = prepend(s.MyProperties, *created)
		s.Properties = prepend(s.Properties, *created)
	})
	return created, nil
}

// Update merges data into the listing, re-reads it and replaces the cached
// entry in place in whichever lists hold it.
func (c *Container) Update(ctx context.Context, id string, data models.UpdatePropertyData) (*models.Property, error) {
	c.pending(ActionUpdate)
	if err := c.store.UpdateProperty(ctx, id, data); err != nil {
		c.rejected(ActionUpdate, err)
		return nil, err
	}
	return c.reread(ctx, ActionUpdate, id)
}

// Delete removes the listing from the store and from both lists.
func (c *Container) Delete(ctx context.Context, id string) error {
	c.pending(ActionDelete)
	if err := c.store.DeleteProperty(ctx, id); err != nil {
		c.rejected(ActionDelete, err)
		return err
	}
	c.fulfilled(ActionDelete, func(s *State) {
		s.MyProperties = without(s.MyProperties, id)
		s.Properties = without(s.Properties, id)
	})
	return nil
}

// ToggleAvailability sets the availability flag with the same
// replace-in-place semantics as Update.
func (c *Container) ToggleAvailability(ctx context.Context, id string, isAvailable bool) (*models.Property, error) {
	c.pending(ActionToggleAvailability)
	if err := c.store.TogglePropertyAvailability(ctx, id, isAvailable); err != nil {
		c.rejected(ActionToggleAvailability, err)
		return nil, err
	}
	return c.reread(ctx, ActionToggleAvailability, id)
}

// Search replaces Properties with the available listings matching term.
// MyProperties is untouched.
func (c *Container) Search(ctx context.Context, term string) ([]models.Property, error) {
	c.pending(ActionSearch)
	props, err := c.store.SearchProperties(ctx, term)
	if err != nil {
		c.rejected(ActionSearch, err)
		return nil, err
	}
	c.fulfilled(ActionSearch, func(s *State) {
		s.Properties = cloneList(props)
	})
	return props, nil
}

func (c *Container) reread(ctx context.Context, action Action, id string) (*models.Property, error) {
	updated, err := c.store.GetPropertyByID(ctx, id)
	if err != nil {
		c.rejected(action, err)
		return nil, err
	}
	c.fulfilled(action, func(s *State) {
		if updated == nil {
			return
		}
		replace(s.MyProperties, *updated)
		replace(s.Properties, *updated)
	})
	return updated, nil
}

func (c *Container) SetFilters(filters models.PropertyFilters) {
	c.mutate(func(s *State) { s.Filters = filters })
}

func (c *Container) ClearFilters() {
	c.mutate(func(s *State) { s.Filters = models.PropertyFilters{} })
}

func (c *Container) SetSearchTerm(term string) {
	c.mutate(func(s *State) { s.SearchTerm = term })
}

func (c *Container) ClearSearch() {
	c.mutate(func(s *State) { s.SearchTerm = "" })
}

func (c *Container) ClearError() {
	c.mutate(func(s *State) { s.Error = "" })
}

// ClearCache empties both lists and LastFetched. Filters and the search term
// are kept.
func (c *Container) ClearCache() {
	c.mutate(func(s *State) {
		s.Properties = []models.Property{}
		s.MyProperties = []models.Property{}
		s.LastFetched = nil
	})
}

// prepend puts p at index 0, dropping any entry already holding its id so an
// overlapping fetch cannot leave a duplicate behind.
func prepend(list []models.Property, p models.Property) []models.Property {
	out := make([]models.Property, 0, len(list)+1)
	out = append(out, p.Clone())
	return append(out, without(list, p.ID)...)
}

func replace(list []models.Property, p models.Property) {
	for i := range list {
		if list[i].ID == p.ID {
			list[i] = p.Clone()
			return
		}
	}
}

func without(list []models.Property, id string) []models.Property {
	out := make([]models.Property, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
