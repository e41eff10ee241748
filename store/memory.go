package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dcode-github/property_rentals/backend/models"
)

// MemoryStore keeps both collections in process. It backs tests and the
// "memory" store driver.
type MemoryStore struct {
	mu         sync.RWMutex
	properties map[string]models.Property
	users      map[string]models.User
	seq        []string
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[string]models.Property),
		users:      make(map[string]models.User),
		now:        time.Now,
	}
}

// WithClock replaces the timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Put stores p as-is, keeping its id and timestamps. Used for seeding.
func (s *MemoryStore) Put(p models.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := s.properties[p.ID]; !ok {
		s.seq = append(s.seq, p.ID)
	}
	s.properties[p.ID] = p.Clone()
}

func (s *MemoryStore) CreateProperty(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", models.NewStoreError("create property", err)
	}
	p := models.NewProperty(data, realtorID, realtorEmail)
	p.ID = uuid.NewString()
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
	s.seq = append(s.seq, p.ID)
	return p.ID, nil
}

func (s *MemoryStore) GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("get properties", err)
	}
	return s.collect(func(p models.Property) bool {
		return p.IsAvailable && filters.Matches(p)
	}), nil
}

func (s *MemoryStore) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("get properties by realtor", err)
	}
	return s.collect(func(p models.Property) bool {
		return p.RealtorID == realtorID
	}), nil
}

func (s *MemoryStore) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("get property", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	p = p.Clone()
	return &p, nil
}

func (s *MemoryStore) UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error {
	if err := ctx.Err(); err != nil {
		return models.NewStoreError("update property", err)
	}
	return s.modify(id, func(p *models.Property) { data.Apply(p) })
}

func (s *MemoryStore) DeleteProperty(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return models.NewStoreError("delete property", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return nil
	}
	delete(s.properties, id)
	for i, sid := range s.seq {
		if sid == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error {
	if err := ctx.Err(); err != nil {
		return models.NewStoreError("toggle availability", err)
	}
	return s.modify(id, func(p *models.Property) { p.IsAvailable = isAvailable })
}

func (s *MemoryStore) SearchProperties(ctx context.Context, term string) ([]models.Property, error) {
	all, err := s.GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return FilterByTerm(all, term), nil
}

func (s *MemoryStore) SaveUserRole(ctx context.Context, uid string, role models.Role) error {
	if err := ctx.Err(); err != nil {
		return models.NewStoreError("save user role", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		u = models.User{UID: uid, CreatedAt: s.now().UTC()}
	}
	u.Role = role
	s.users[uid] = u
	return nil
}

func (s *MemoryStore) GetUserRole(ctx context.Context, uid string) (models.Role, error) {
	if err := ctx.Err(); err != nil {
		return "", models.NewStoreError("get user role", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[uid].Role, nil
}

// modify applies fn and advances updatedAt, never moving it backwards.
func (s *MemoryStore) modify(id string, fn func(p *models.Property)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return models.ErrNotFound
	}
	p = p.Clone()
	fn(&p)
	if now := s.now().UTC(); now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
	s.properties[id] = p
	return nil
}

func (s *MemoryStore) collect(keep func(models.Property) bool) []models.Property {
	s.mu.RLock()
	out := make([]models.Property, 0, len(s.seq))
	for _, id := range s.seq {
		if p := s.properties[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}
