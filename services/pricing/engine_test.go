package pricing

import (
	"context"
	"strings"
	"testing"
	"time"

	"pitstop/models"
)

type fakeMatrix []models.PriceMatrixEntry

func (m fakeMatrix) FindByBrand(_ context.Context, brand string) ([]models.PriceMatrixEntry, error) {
	var out []models.PriceMatrixEntry
	for _, e := range m {
		if strings.EqualFold(e.Brand, brand) {
			out = append(out, e)
		}
	}
	return out, nil
}

func testEngine() *Engine {
	matrix := fakeMatrix{
		{
			ID: "vw-golf", Brand: "VW", Model: "Golf", YearFrom: 2013, YearTo: 2018,
			Services: map[models.ServiceKind]models.TierPrices{
				models.ServiceInspection: {Tier30kCents: 179_00, Tier60kCents: 199_00, Tier90kCents: 219_00, Tier120kPlusCents: 239_00},
				models.ServiceOil:        {Tier30kCents: 149_00, Tier60kCents: 159_00, Tier90kCents: 169_00, Tier120kPlusCents: 179_00},
			},
		},
		{
			ID: "vw-passat", Brand: "VW", Model: "Passat", YearFrom: 2012, YearTo: 2019,
			Services: map[models.ServiceKind]models.TierPrices{
				models.ServiceInspection: {Tier30kCents: 200_00, Tier60kCents: 220_00, Tier90kCents: 240_00, Tier120kPlusCents: 260_00},
			},
		},
	}
	eng := NewEngine(matrix)
	eng.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return eng
}

func TestTierForMileageBoundaries(t *testing.T) {
	cases := []struct {
		mileage int
		want    models.MileageTier
	}{
		{0, models.Tier30k},
		{39_999, models.Tier30k},
		{40_000, models.Tier60k}, // boundary goes to the upper tier
		{69_999, models.Tier60k},
		{70_000, models.Tier90k},
		{99_999, models.Tier90k},
		{100_000, models.Tier120kPlus},
		{250_000, models.Tier120kPlus},
	}
	for _, tc := range cases {
		if got := TierForMileage(tc.mileage); got != tc.want {
			t.Errorf("TierForMileage(%d) = %s, want %s", tc.mileage, got, tc.want)
		}
	}
}

func TestQuoteExactMatchWithAgeMultiplier(t *testing.T) {
	eng := testEngine()

	// VW Golf 2015 at 60,000 km: 60k tier base 199, 11 years old in 2026 so
	// ×1.1 → 218.90, rounded half-up to 219.
	q, err := eng.Quote(context.Background(), "VW", "Golf", 2015, 60_000, models.ServiceInspection)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.PriceCents != 219_00 {
		t.Errorf("price = %d cents, want 21900", q.PriceCents)
	}
	if q.Source != SourceExact {
		t.Errorf("source = %s, want exact", q.Source)
	}
	if q.Tier != models.Tier60k {
		t.Errorf("tier = %s, want 60k", q.Tier)
	}
	if q.AgeMultiplier != 1.1 {
		t.Errorf("age multiplier = %v, want 1.1", q.AgeMultiplier)
	}
}

func TestQuoteExactBoundaryMileageUsesUpperTier(t *testing.T) {
	eng := testEngine()

	q, err := eng.Quote(context.Background(), "VW", "Golf", 2020, 40_000, models.ServiceInspection)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Tier != models.Tier60k {
		t.Errorf("tier at exactly 40,000 km = %s, want 60k", q.Tier)
	}
	// 2020 model is 6 years old, multiplier 1.0.
	if q.PriceCents != 199_00 {
		t.Errorf("price = %d cents, want 19900", q.PriceCents)
	}
}

func TestQuoteBrandAverageFallback(t *testing.T) {
	eng := testEngine()

	// Tiguan has no matrix entry; brand average of Golf (199) and
	// Passat (220) at the 60k tier is 209.50, rounded to 210.
	q, err := eng.Quote(context.Background(), "VW", "Tiguan", 2020, 50_000, models.ServiceInspection)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Source != SourceBrandAverage {
		t.Errorf("source = %s, want brand_average", q.Source)
	}
	if q.PriceCents != 210_00 {
		t.Errorf("price = %d cents, want 21000", q.PriceCents)
	}
}

func TestQuoteYearOutsideRangeFallsBackToBrandAverage(t *testing.T) {
	eng := testEngine()

	// A 2021 Golf is outside the 2013-2018 entry, so the exact step misses.
	q, err := eng.Quote(context.Background(), "VW", "Golf", 2021, 10_000, models.ServiceInspection)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Source != SourceBrandAverage {
		t.Errorf("source = %s, want brand_average", q.Source)
	}
}

func TestQuoteGlobalDefaultForUnknownBrand(t *testing.T) {
	eng := testEngine()

	cases := []struct {
		kind models.ServiceKind
		want int64
	}{
		{models.ServiceInspection, 250_00},
		{models.ServiceOil, 180_00},
		{models.ServiceBrake, 400_00},
	}
	for _, tc := range cases {
		q, err := eng.Quote(context.Background(), "Lada", "Niva", 2020, 30_000, tc.kind)
		if err != nil {
			t.Fatalf("Quote(%s): %v", tc.kind, err)
		}
		if q.Source != SourceDefault {
			t.Errorf("source = %s, want default", q.Source)
		}
		if q.PriceCents != tc.want {
			t.Errorf("price(%s) = %d cents, want %d", tc.kind, q.PriceCents, tc.want)
		}
	}
}

func TestQuoteOldVehicleMultiplier(t *testing.T) {
	eng := testEngine()

	// 2008 model is 18 years old in 2026: ×1.2 on the default 250 → 300.
	q, err := eng.Quote(context.Background(), "Lada", "Niva", 2008, 120_000, models.ServiceInspection)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.AgeMultiplier != 1.2 {
		t.Errorf("age multiplier = %v, want 1.2", q.AgeMultiplier)
	}
	if q.PriceCents != 300_00 {
		t.Errorf("price = %d cents, want 30000", q.PriceCents)
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	eng := testEngine()

	if _, err := eng.Quote(context.Background(), "VW", "Golf", 2015, -1, models.ServiceInspection); !models.IsValidation(err) {
		t.Errorf("negative mileage: got %v, want validation error", err)
	}
	if _, err := eng.Quote(context.Background(), "VW", "Golf", 2015, 1000, models.ServiceKind("detailing")); !models.IsValidation(err) {
		t.Errorf("unknown service kind: got %v, want validation error", err)
	}
}
