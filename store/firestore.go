package store

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dcode-github/property_rentals/backend/models"
)

// FirestoreStore talks to the properties collection through the Firestore
// client. Timestamps are assigned by the server.
type FirestoreStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewFirestoreStore(client *firestore.Client, logger *slog.Logger) *FirestoreStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirestoreStore{client: client, logger: logger}
}

func (s *FirestoreStore) collection() *firestore.CollectionRef {
	return s.client.Collection(PropertiesCollection)
}

func (s *FirestoreStore) CreateProperty(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (string, error) {
	p := models.NewProperty(data, realtorID, realtorEmail)
	doc := map[string]interface{}{
		"title":        p.Title,
		"description":  p.Description,
		"price":        p.Price,
		"area":         p.Area,
		"rooms":        p.Rooms,
		"imageUrl":     p.ImageURL,
		"location":     p.Location,
		"realtorId":    p.RealtorID,
		"realtorEmail": p.RealtorEmail,
		"amenities":    p.Amenities,
		"propertyType": string(p.PropertyType),
		"parking":      p.Parking,
		"furnished":    p.Furnished,
		"petsAllowed":  p.PetsAllowed,
		"isAvailable":  true,
		"createdAt":    firestore.ServerTimestamp,
		"updatedAt":    firestore.ServerTimestamp,
	}
	ref, _, err := s.collection().Add(ctx, doc)
	if err != nil {
		s.logger.Error("Insert failed", slog.String("error", err.Error()))
		return "", models.NewStoreError("create property", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	q := s.collection().Where("isAvailable", "==", true)
	if filters != nil {
		if filters.MinPrice != nil {
			q = q.Where("price", ">=", *filters.MinPrice)
		}
		if filters.MaxPrice != nil {
			q = q.Where("price", "<=", *filters.MaxPrice)
		}
		if filters.MinArea != nil {
			q = q.Where("area", ">=", *filters.MinArea)
		}
		if filters.MaxArea != nil {
			q = q.Where("area", "<=", *filters.MaxArea)
		}
		if filters.MinRooms != nil {
			q = q.Where("rooms", ">=", *filters.MinRooms)
		}
		if filters.MaxRooms != nil {
			q = q.Where("rooms", "<=", *filters.MaxRooms)
		}
		if filters.PropertyType != nil && *filters.PropertyType != "" {
			q = q.Where("propertyType", "==", string(*filters.PropertyType))
		}
		if filters.Parking != nil {
			q = q.Where("parking", "==", *filters.Parking)
		}
		if filters.Furnished != nil {
			q = q.Where("furnished", "==", *filters.Furnished)
		}
		if filters.PetsAllowed != nil {
			q = q.Where("petsAllowed", "==", *filters.PetsAllowed)
		}
	}
	return s.run(ctx, "get properties", q.OrderBy("createdAt", firestore.Desc))
}

func (s *FirestoreStore) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	q := s.collection().Where("realtorId", "==", realtorID).OrderBy("createdAt", firestore.Desc)
	return s.run(ctx, "get properties by realtor", q)
}

func (s *FirestoreStore) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	snap, err := s.collection().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("get property", err)
	}
	p, err := decodeSnapshot(snap)
	if err != nil {
		return nil, models.NewStoreError("get property", err)
	}
	return &p, nil
}

func (s *FirestoreStore) UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error {
	return s.update(ctx, "update property", id, data.Fields())
}

func (s *FirestoreStore) DeleteProperty(ctx context.Context, id string) error {
	if _, err := s.collection().Doc(id).Delete(ctx); err != nil {
		return models.NewStoreError("delete property", err)
	}
	return nil
}

func (s *FirestoreStore) TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error {
	return s.update(ctx, "toggle availability", id, map[string]interface{}{"isAvailable": isAvailable})
}

func (s *FirestoreStore) SearchProperties(ctx context.Context, term string) ([]models.Property, error) {
	all, err := s.GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return FilterByTerm(all, term), nil
}

func (s *FirestoreStore) update(ctx context.Context, op, id string, fields map[string]interface{}) error {
	_, err := s.collection().Doc(id).Update(ctx, firestoreUpdates(fields))
	if status.Code(err) == codes.NotFound {
		return models.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Update failed", slog.String("id", id), slog.String("error", err.Error()))
		return models.NewStoreError(op, err)
	}
	return nil
}

func (s *FirestoreStore) run(ctx context.Context, op string, q firestore.Query) ([]models.Property, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, models.NewStoreError(op, err)
	}
	out := make([]models.Property, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decodeSnapshot(snap)
		if err != nil {
			s.logger.Warn("Skipping undecodable property", slog.String("id", snap.Ref.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (models.Property, error) {
	var p models.Property
	if err := snap.DataTo(&p); err != nil {
		return models.Property{}, err
	}
	p.ID = snap.Ref.ID
	return p, nil
}

// firestoreUpdates turns a field map into update paths plus a server-side
// updatedAt.
func firestoreUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	return append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
}

type FirestoreUserStore struct {
	client *firestore.Client
}

func NewFirestoreUserStore(client *firestore.Client) *FirestoreUserStore {
	return &FirestoreUserStore{client: client}
}

func (s *FirestoreUserStore) SaveUserRole(ctx context.Context, uid string, role models.Role) error {
	ref := s.client.Collection(UsersCollection).Doc(uid)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return tx.Set(ref, map[string]interface{}{
				"role":      string(role),
				"createdAt": firestore.ServerTimestamp,
			})
		}
		if err != nil {
			return err
		}
		return tx.Set(ref, map[string]interface{}{"role": string(role)}, firestore.MergeAll)
	})
	if err != nil {
		return models.NewStoreError("save user role", err)
	}
	return nil
}

func (s *FirestoreUserStore) GetUserRole(ctx context.Context, uid string) (models.Role, error) {
	snap, err := s.client.Collection(UsersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", nil
	}
	if err != nil {
		return "", models.NewStoreError("get user role", err)
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return "", models.NewStoreError("get user role", err)
	}
	return user.Role, nil
}
