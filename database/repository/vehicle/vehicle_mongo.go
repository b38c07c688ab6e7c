package vehicleRepo

import (
	"context"
	"fmt"
	"time"

	"pitstop/database"
	"pitstop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VehicleRepository defines methods for vehicle data access.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by its unique ID, nil when absent.
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)
	// ListByUser retrieves all vehicles owned by a user.
	ListByUser(ctx context.Context, userID string) ([]models.Vehicle, error)
	// Create inserts a new vehicle record.
	Create(ctx context.Context, vehicle *models.Vehicle) error
	// Update modifies an existing vehicle record.
	Update(ctx context.Context, vehicle *models.Vehicle) error
}

// MongoVehicleRepo implements VehicleRepository using MongoDB.
type MongoVehicleRepo struct {
	coll *mongo.Collection
}

func NewMongoVehicleRepo() VehicleRepository {
	repo := &MongoVehicleRepo{coll: database.Collection("vehicles")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create vehicle indexes: %v\n", err)
	}
	return repo
}

func (r *MongoVehicleRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoVehicleRepo) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var v models.Vehicle
	if err := r.coll.FindOne(cctx, bson.M{"id": id}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch vehicle %s: %w", id, err)
	}
	return &v, nil
}

func (r *MongoVehicleRepo) ListByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(cctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles for user %s: %w", userID, err)
	}
	defer cursor.Close(cctx)

	var vehicles []models.Vehicle
	for cursor.Next(cctx) {
		var v models.Vehicle
		if err := cursor.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

func (r *MongoVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	if _, err := r.coll.InsertOne(cctx, vehicle); err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

func (r *MongoVehicleRepo) Update(ctx context.Context, vehicle *models.Vehicle) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	vehicle.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(cctx, bson.M{"id": vehicle.ID}, vehicle)
	if err != nil {
		return fmt.Errorf("failed to update vehicle %s: %w", vehicle.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("vehicle %s not found", vehicle.ID)
	}
	return nil
}
