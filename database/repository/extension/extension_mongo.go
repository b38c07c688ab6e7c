package extensionRepo

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

// MongoExtensionRepo implements ExtensionRepository using MongoDB. It also
// holds the bookings collection so capture can increment the booking total
// in the same transaction.
type MongoExtensionRepo struct {
	coll        *mongo.Collection
	bookingColl *mongo.Collection
}

func NewMongoExtensionRepo() ExtensionRepository {
	repo := &MongoExtensionRepo{
		coll:        database.Collection("extensions"),
		bookingColl: database.Collection("bookings"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create extension indexes: %v\n", err)
	}
	return repo
}

func (r *MongoExtensionRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoExtensionRepo) Create(ctx context.Context, e *models.Extension) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := r.coll.InsertOne(cctx, e); err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}
	return nil
}

func (r *MongoExtensionRepo) GetByID(ctx context.Context, id string) (*models.Extension, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var e models.Extension
	if err := r.coll.FindOne(cctx, bson.M{"id": id}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch extension %s: %w", id, err)
	}
	return &e, nil
}

func (r *MongoExtensionRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Extension, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(cctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to list extensions for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(cctx)

	var out []models.Extension
	for cursor.Next(cctx) {
		var e models.Extension
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode extension: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MongoExtensionRepo) Approve(ctx context.Context, id, authorizationID string, at time.Time) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": models.ExtensionPending},
		bson.M{"$set": bson.M{
			"status":           models.ExtensionApproved,
			"authorization_id": authorizationID,
			"approved_at":      at,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve extension %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoExtensionRepo) Decline(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": models.ExtensionPending},
		bson.M{"$set": bson.M{
			"status":         models.ExtensionDeclined,
			"decline_reason": reason,
			"declined_at":    at,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to decline extension %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

// MarkCaptured records a successful capture and adds the amount to the
// parent booking in one session transaction. The status filter guarantees
// the increment happens at most once per extension, even on retried capture
// requests.
func (r *MongoExtensionRepo) MarkCaptured(ctx context.Context, id, bookingID string, amountCents int64, at time.Time) (bool, error) {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return false, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	captured := false
	txnFn := func(sc mongo.SessionContext) error {
		res, err := r.coll.UpdateOne(sc,
			bson.M{"id": id, "status": bson.M{"$in": bson.A{models.ExtensionApproved, models.ExtensionCaptureFailed}}},
			bson.M{"$set": bson.M{
				"status":      models.ExtensionCaptured,
				"captured_at": at,
				"updated_at":  time.Now(),
			}},
		)
		if err != nil {
			return fmt.Errorf("mark captured failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil
		}
		captured = true

		_, err = r.bookingColl.UpdateOne(sc,
			bson.M{"id": bookingID},
			bson.M{"$inc": bson.M{"total_cents": amountCents}, "$set": bson.M{"updated_at": time.Now()}},
		)
		if err != nil {
			return fmt.Errorf("increment booking total failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return false, fmt.Errorf("capture transaction failed: %w", err)
	}

	return captured, nil
}

func (r *MongoExtensionRepo) MarkCaptureFailed(ctx context.Context, id string) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": bson.M{"$in": bson.A{models.ExtensionApproved, models.ExtensionCaptureFailed}}},
		bson.M{
			"$set": bson.M{"status": models.ExtensionCaptureFailed, "updated_at": time.Now()},
			"$inc": bson.M{"capture_attempts": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark capture failed for extension %s: %w", id, err)
	}
	return nil
}

func (r *MongoExtensionRepo) ListOutstandingCaptures(ctx context.Context) ([]models.Extension, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(cctx, bson.M{"status": models.ExtensionCaptureFailed})
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding captures: %w", err)
	}
	defer cursor.Close(cctx)

	var out []models.Extension
	for cursor.Next(cctx) {
		var e models.Extension
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode extension: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
