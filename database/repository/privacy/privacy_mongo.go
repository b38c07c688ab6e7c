package privacyRepo

import (
	"context"
	"fmt"
	"time"

	"pitstop/database"
	"pitstop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PrivacyRepository runs the storage side of a data-subject erasure request.
// The whole operation is one transaction: a partial erasure (vehicles gone,
// user record intact) is a worse failure mode than not erasing at all.
type PrivacyRepository interface {
	// EraseUser anonymizes bookings created before cutoff, hard-deletes the
	// newer ones together with the user's vehicles and notification log,
	// and anonymizes the user record itself. Fully commits or fully rolls
	// back.
	EraseUser(ctx context.Context, userID string, cutoff time.Time, placeholderEmail string) (*models.ErasureReport, error)
}

// MongoPrivacyRepo implements PrivacyRepository across the collections an
// erasure touches.
type MongoPrivacyRepo struct {
	userColl         *mongo.Collection
	vehicleColl      *mongo.Collection
	bookingColl      *mongo.Collection
	extensionColl    *mongo.Collection
	assignmentColl   *mongo.Collection
	notificationColl *mongo.Collection
}

func NewMongoPrivacyRepo() PrivacyRepository {
	return &MongoPrivacyRepo{
		userColl:         database.Collection("users"),
		vehicleColl:      database.Collection("vehicles"),
		bookingColl:      database.Collection("bookings"),
		extensionColl:    database.Collection("extensions"),
		assignmentColl:   database.Collection("assignments"),
		notificationColl: database.Collection("notifications"),
	}
}

// anonymizedBookingFields are the personal fields overwritten on retained
// bookings. Financial fields (total, services, timestamps) stay untouched.
func anonymizedBookingFields() bson.M {
	return bson.M{
		"pickup_address":   "redacted",
		"delivery_address": "redacted",
		"customer_notes":   "",
		"internal_notes":   "",
		"vehicle.plate":    "",
		"payment_ref":      "",
		"anonymized":       true,
		"updated_at":       time.Now(),
	}
}

func (r *MongoPrivacyRepo) EraseUser(ctx context.Context, userID string, cutoff time.Time, placeholderEmail string) (*models.ErasureReport, error) {
	client := r.userColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	report := &models.ErasureReport{UserID: userID}

	txnFn := func(sc mongo.SessionContext) error {
		// Retained bookings: anonymize in place.
		anonRes, err := r.bookingColl.UpdateMany(sc,
			bson.M{"user_id": userID, "created_at": bson.M{"$lt": cutoff}},
			bson.M{"$set": anonymizedBookingFields()},
		)
		if err != nil {
			return fmt.Errorf("anonymize retained bookings failed: %w", err)
		}
		report.BookingsAnonymized = int(anonRes.ModifiedCount)

		// Recent bookings (within the retention window): hard delete along
		// with their extensions and assignments.
		cursor, err := r.bookingColl.Find(sc,
			bson.M{"user_id": userID, "created_at": bson.M{"$gte": cutoff}})
		if err != nil {
			return fmt.Errorf("find recent bookings failed: %w", err)
		}
		var recentIDs []string
		for cursor.Next(sc) {
			var b models.Booking
			if err := cursor.Decode(&b); err != nil {
				cursor.Close(sc)
				return fmt.Errorf("decode booking failed: %w", err)
			}
			recentIDs = append(recentIDs, b.ID)
		}
		cursor.Close(sc)

		if len(recentIDs) > 0 {
			if _, err := r.extensionColl.DeleteMany(sc, bson.M{"booking_id": bson.M{"$in": recentIDs}}); err != nil {
				return fmt.Errorf("delete extensions failed: %w", err)
			}
			if _, err := r.assignmentColl.DeleteMany(sc, bson.M{"booking_id": bson.M{"$in": recentIDs}}); err != nil {
				return fmt.Errorf("delete assignments failed: %w", err)
			}
			delRes, err := r.bookingColl.DeleteMany(sc, bson.M{"id": bson.M{"$in": recentIDs}})
			if err != nil {
				return fmt.Errorf("delete recent bookings failed: %w", err)
			}
			report.BookingsDeleted = int(delRes.DeletedCount)
		}

		vehRes, err := r.vehicleColl.DeleteMany(sc, bson.M{"user_id": userID})
		if err != nil {
			return fmt.Errorf("delete vehicles failed: %w", err)
		}
		report.VehiclesDeleted = int(vehRes.DeletedCount)

		notifRes, err := r.notificationColl.DeleteMany(sc, bson.M{"user_id": userID})
		if err != nil {
			return fmt.Errorf("delete notifications failed: %w", err)
		}
		report.NotificationsDeleted = int(notifRes.DeletedCount)

		// The user record stays, anonymized and deactivated, to keep
		// referential integrity with retained bookings.
		res, err := r.userColl.UpdateOne(sc,
			bson.M{"id": userID},
			bson.M{"$set": bson.M{
				"email":         placeholderEmail,
				"name":          "Deleted User",
				"phone_number":  "",
				"address":       "",
				"fcm_token":     "",
				"password_hash": "",
				"deactivated":   true,
				"anonymized":    true,
				"updated_at":    time.Now(),
			}},
		)
		if err != nil {
			return fmt.Errorf("anonymize user failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("user %s not found", userID)
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
		return nil, fmt.Errorf("erasure transaction failed: %w", err)
	}

	report.CompletedAt = time.Now()
	return report, nil
}
