package bookingRepo

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

// MongoBookingRepo implements BookingRepository using MongoDB. It also holds
// the assignments collection so cancellation can touch both in one
// transaction.
type MongoBookingRepo struct {
	coll           *mongo.Collection
	assignmentColl *mongo.Collection
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo() BookingRepository {
	repo := &MongoBookingRepo{
		coll:           database.Collection("bookings"),
		assignmentColl: database.Collection("assignments"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := r.coll.InsertOne(cctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.coll.FindOne(cctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(cctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for user %s: %w", userID, err)
	}
	defer cursor.Close(cctx)

	var bookings []models.Booking
	for cursor.Next(cctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// TransitionStatus is the single write path for status changes. The filter
// includes the expected current status, so two racing writers can never both
// succeed: the second one's filter no longer matches.
func (r *MongoBookingRepo) TransitionStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking %s from %s to %s: %w", id, from, to, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoBookingRepo) ConfirmPayment(ctx context.Context, id, paymentRef string, at time.Time) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(cctx,
		bson.M{"id": id, "status": models.StatusPendingPayment},
		bson.M{"$set": bson.M{
			"status":               models.StatusConfirmed,
			"payment_ref":          paymentRef,
			"payment_confirmed_at": at,
			"updated_at":           time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm payment for booking %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

// CancelWithAssignments sets the booking CANCELLED and marks its outstanding
// assignments cancelled inside one Mongo session transaction, so a reader
// never observes a cancelled booking with a live assignment.
func (r *MongoBookingRepo) CancelWithAssignments(ctx context.Context, id string, eligible []models.BookingStatus) (bool, error) {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return false, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	cancelled := false
	txnFn := func(sc mongo.SessionContext) error {
		res, err := r.coll.UpdateOne(sc,
			bson.M{"id": id, "status": bson.M{"$in": eligible}},
			bson.M{"$set": bson.M{"status": models.StatusCancelled, "updated_at": time.Now()}},
		)
		if err != nil {
			return fmt.Errorf("cancel booking failed: %w", err)
		}
		if res.MatchedCount == 0 {
			// Not eligible anymore; nothing to roll back.
			return nil
		}
		cancelled = true

		_, err = r.assignmentColl.UpdateMany(sc,
			bson.M{"booking_id": id, "status": models.AssignmentAssigned},
			bson.M{"$set": bson.M{"status": models.AssignmentCancelled}},
		)
		if err != nil {
			return fmt.Errorf("cancel assignments failed: %w", err)
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
		return false, fmt.Errorf("cancellation transaction failed: %w", err)
	}

	return cancelled, nil
}
