package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dcode-github/property_rentals/backend/models"
)

type MongoStore struct {
	properties *mongo.Collection
	logger     *slog.Logger
	now        func() time.Time
}

func NewMongoStore(db *mongo.Database, logger *slog.Logger) *MongoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoStore{
		properties: db.Collection(PropertiesCollection),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *MongoStore) CreateProperty(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (string, error) {
	property := models.NewProperty(data, realtorID, realtorEmail)
	property.ID = primitive.NewObjectID().Hex()
	now := s.now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now

	if _, err := s.properties.InsertOne(ctx, property); err != nil {
		s.logger.Error("Insert failed", slog.String("error", err.Error()))
		return "", models.NewStoreError("create property", err)
	}
	return property.ID, nil
}

func (s *MongoStore) GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	return s.find(ctx, "get properties", AvailableQuery(filters))
}

func (s *MongoStore) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	return s.find(ctx, "get properties by realtor", bson.M{"realtorId": realtorID})
}

func (s *MongoStore) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := s.properties.FindOne(ctx, bson.M{"_id": id}).Decode(&property)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("get property", err)
	}
	return &property, nil
}

func (s *MongoStore) UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error {
	return s.update(ctx, "update property", id, bson.M(data.Fields()))
}

func (s *MongoStore) DeleteProperty(ctx context.Context, id string) error {
	res, err := s.properties.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.NewStoreError("delete property", err)
	}
	if res.DeletedCount == 0 {
		s.logger.Debug("Delete matched no property", slog.String("id", id))
	}
	return nil
}

func (s *MongoStore) TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error {
	return s.update(ctx, "toggle availability", id, bson.M{"isAvailable": isAvailable})
}

func (s *MongoStore) SearchProperties(ctx context.Context, term string) ([]models.Property, error) {
	all, err := s.GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return FilterByTerm(all, term), nil
}

// update sets fields and advances updatedAt with $max so it never moves
// backwards even when writers disagree on the clock.
func (s *MongoStore) update(ctx context.Context, op, id string, set bson.M) error {
	update := bson.M{"$max": bson.M{"updatedAt": s.now().UTC()}}
	if len(set) > 0 {
		update["$set"] = set
	}
	res, err := s.properties.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		s.logger.Error("Update failed", slog.String("id", id), slog.String("error", err.Error()))
		return models.NewStoreError(op, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, op string, filter bson.M) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.properties.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error("Error fetching properties", slog.Any("query", filter), slog.String("error", err.Error()))
		return nil, models.NewStoreError(op, err)
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, models.NewStoreError(op, err)
	}
	return properties, nil
}

// AvailableQuery builds the Mongo filter for GetProperties: availability plus
// one condition document per constrained field.
func AvailableQuery(filters *models.PropertyFilters) bson.M {
	query := bson.M{"isAvailable": true}
	if filters == nil {
		return query
	}
	rangeCond := func(field string, min, max interface{}) {
		cond := bson.M{}
		if min != nil {
			cond["$gte"] = min
		}
		if max != nil {
			cond["$lte"] = max
		}
		if len(cond) > 0 {
			query[field] = cond
		}
	}
	rangeCond("price", floatOrNil(filters.MinPrice), floatOrNil(filters.MaxPrice))
	rangeCond("area", floatOrNil(filters.MinArea), floatOrNil(filters.MaxArea))
	rangeCond("rooms", intOrNil(filters.MinRooms), intOrNil(filters.MaxRooms))
	if filters.PropertyType != nil && *filters.PropertyType != "" {
		query["propertyType"] = string(*filters.PropertyType)
	}
	if filters.Parking != nil {
		query["parking"] = *filters.Parking
	}
	if filters.Furnished != nil {
		query["furnished"] = *filters.Furnished
	}
	if filters.PetsAllowed != nil {
		query["petsAllowed"] = *filters.PetsAllowed
	}
	return query
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intOrNil(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

type MongoUserStore struct {
	users *mongo.Collection
	now   func() time.Time
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{users: db.Collection(UsersCollection), now: time.Now}
}

func (s *MongoUserStore) SaveUserRole(ctx context.Context, uid string, role models.Role) error {
	update := bson.M{
		"$set":         bson.M{"role": role},
		"$setOnInsert": bson.M{"createdAt": s.now().UTC()},
	}
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": uid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return models.NewStoreError("save user role", err)
	}
	return nil
}

func (s *MongoUserStore) GetUserRole(ctx context.Context, uid string) (models.Role, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", models.NewStoreError("get user role", err)
	}
	return user.Role, nil
}
