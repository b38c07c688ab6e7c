package assignmentRepo

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

// MongoAssignmentRepo implements AssignmentRepository using MongoDB.
type MongoAssignmentRepo struct {
	coll *mongo.Collection
}

// NewMongoAssignmentRepo creates a new instance of AssignmentRepository using MongoDB.
func NewMongoAssignmentRepo() AssignmentRepository {
	repo := &MongoAssignmentRepo{coll: database.Collection("assignments")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create assignment indexes: %v\n", err)
	}
	return repo
}

func (r *MongoAssignmentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// One assignment per (booking, kind): the structural guarantee the
		// dispatcher's idempotency relies on.
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "jockey_id", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoAssignmentRepo) Create(ctx context.Context, a *models.JockeyAssignment) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(cctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *MongoAssignmentRepo) GetByID(ctx context.Context, id string) (*models.JockeyAssignment, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a models.JockeyAssignment
	if err := r.coll.FindOne(cctx, bson.M{"id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch assignment %s: %w", id, err)
	}
	return &a, nil
}

func (r *MongoAssignmentRepo) GetByBookingAndKind(ctx context.Context, bookingID string, kind models.AssignmentKind) (*models.JockeyAssignment, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a models.JockeyAssignment
	err := r.coll.FindOne(cctx, bson.M{"booking_id": bookingID, "kind": kind}).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch %s assignment for booking %s: %w", kind, bookingID, err)
	}
	return &a, nil
}

func (r *MongoAssignmentRepo) Complete(ctx context.Context, id string, evidence models.HandoverEvidence) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": models.AssignmentAssigned},
		bson.M{"$set": bson.M{
			"status":       models.AssignmentCompleted,
			"evidence":     evidence,
			"completed_at": now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete assignment %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoAssignmentRepo) Claim(ctx context.Context, id, jockeyID string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": models.AssignmentAssigned, "jockey_id": bson.M{"$in": bson.A{"", nil}}},
		bson.M{"$set": bson.M{"jockey_id": jockeyID}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim assignment %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}
