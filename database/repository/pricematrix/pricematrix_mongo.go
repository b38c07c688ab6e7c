package pricematrixRepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pitstop/database"
	"pitstop/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PriceMatrixRepository provides read access to the static pricing reference
// data. Entries are seeded and administered out of band.
type PriceMatrixRepository interface {
	// FindByBrand returns all matrix entries for a brand, case-insensitive.
	FindByBrand(ctx context.Context, brand string) ([]models.PriceMatrixEntry, error)
	// Upsert inserts or replaces one entry; used by seeding tooling only.
	Upsert(ctx context.Context, entry *models.PriceMatrixEntry) error
}

// MongoPriceMatrixRepo implements PriceMatrixRepository using MongoDB.
type MongoPriceMatrixRepo struct {
	coll *mongo.Collection
}

func NewMongoPriceMatrixRepo() PriceMatrixRepository {
	repo := &MongoPriceMatrixRepo{coll: database.Collection("price_matrix")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create price matrix indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPriceMatrixRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "brand_lower", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPriceMatrixRepo) FindByBrand(ctx context.Context, brand string) ([]models.PriceMatrixEntry, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(cctx, bson.M{"brand_lower": strings.ToLower(brand)})
	if err != nil {
		return nil, fmt.Errorf("failed to query price matrix for brand %s: %w", brand, err)
	}
	defer cursor.Close(cctx)

	var entries []models.PriceMatrixEntry
	for cursor.Next(cctx) {
		var e models.PriceMatrixEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode price matrix entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *MongoPriceMatrixRepo) Upsert(ctx context.Context, entry *models.PriceMatrixEntry) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := bson.M{
		"id":          entry.ID,
		"brand":       entry.Brand,
		"brand_lower": strings.ToLower(entry.Brand),
		"model":       entry.Model,
		"year_from":   entry.YearFrom,
		"year_to":     entry.YearTo,
		"services":    entry.Services,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(cctx, bson.M{"id": entry.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert price matrix entry %s: %w", entry.ID, err)
	}
	return nil
}
