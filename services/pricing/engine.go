package pricing

import (
	"context"
	"strings"
	"time"

	"pitstop/models"
)

// MatrixSource provides read access to the price matrix reference data.
type MatrixSource interface {
	// FindByBrand returns all matrix entries for a brand (any model, any
	// year range). Brand matching is case-insensitive.
	FindByBrand(ctx context.Context, brand string) ([]models.PriceMatrixEntry, error)
}

// QuoteSource names which step of the fallback cascade produced a price.
type QuoteSource string

const (
	SourceExact        QuoteSource = "exact"
	SourceBrandAverage QuoteSource = "brand_average"
	SourceDefault      QuoteSource = "default"
)

// Quote is the result of one pricing run. Source, Tier and AgeMultiplier are
// part of the contract: customers and support staff must be able to see why
// a price was what it was.
type Quote struct {
	PriceCents    int64
	Source        QuoteSource
	Tier          models.MileageTier
	AgeMultiplier float64
}

// defaultPriceCents is the fixed global default per service kind, used when
// the brand itself is unknown to the matrix.
var defaultPriceCents = map[models.ServiceKind]int64{
	models.ServiceInspection: 250_00,
	models.ServiceOil:        180_00,
	models.ServiceBrake:      400_00,
}

// Engine computes deterministic service prices from the matrix with the
// exact → brand average → global default fallback cascade.
type Engine struct {
	Matrix MatrixSource
	// Now is injectable for deterministic age-multiplier tests.
	Now func() time.Time
}

func NewEngine(matrix MatrixSource) *Engine {
	return &Engine{Matrix: matrix, Now: time.Now}
}

// TierForMileage selects the mileage bracket. Lower bounds are inclusive,
// upper bounds exclusive: a vehicle at exactly 40,000 km prices in the 60k
// tier.
func TierForMileage(mileage int) models.MileageTier {
	switch {
	case mileage < 40_000:
		return models.Tier30k
	case mileage < 70_000:
		return models.Tier60k
	case mileage < 100_000:
		return models.Tier90k
	default:
		return models.Tier120kPlus
	}
}

// ageMultiplierTenths returns the age multiplier in tenths so all price math
// stays in integers.
func ageMultiplierTenths(vehicleAgeYears int) int64 {
	switch {
	case vehicleAgeYears <= 10:
		return 10
	case vehicleAgeYears <= 15:
		return 11
	default:
		return 12
	}
}

// roundToUnitCents rounds a price expressed in tenth-cents half-up to the
// nearest whole currency unit and returns it in cents.
func roundToUnitCents(tenthCents int64) int64 {
	units := (tenthCents + 500) / 1000
	return units * 100
}

// Quote prices one service for a vehicle descriptor. It is a pure function
// of its inputs plus the matrix contents and the current year.
func (e *Engine) Quote(ctx context.Context, brand, model string, modelYear, mileage int, kind models.ServiceKind) (*Quote, error) {
	if mileage < 0 {
		return nil, models.NewValidationError("mileage must be non-negative")
	}
	if modelYear <= 0 {
		return nil, models.NewValidationError("model year must be positive")
	}
	if _, ok := defaultPriceCents[kind]; !ok {
		return nil, models.NewValidationError("unknown service kind %q", kind)
	}

	tier := TierForMileage(mileage)
	age := e.Now().Year() - modelYear
	multTenths := ageMultiplierTenths(age)

	baseCents, source, err := e.basePrice(ctx, brand, model, modelYear, tier, kind)
	if err != nil {
		return nil, err
	}

	return &Quote{
		PriceCents:    roundToUnitCents(baseCents * multTenths),
		Source:        source,
		Tier:          tier,
		AgeMultiplier: float64(multTenths) / 10,
	}, nil
}

func (e *Engine) basePrice(ctx context.Context, brand, model string, modelYear int, tier models.MileageTier, kind models.ServiceKind) (int64, QuoteSource, error) {
	entries, err := e.Matrix.FindByBrand(ctx, brand)
	if err != nil {
		return 0, "", models.NewExternalError("price matrix lookup failed", err)
	}

	// 1. Exact: brand+model entry whose year range contains the model year.
	for _, entry := range entries {
		if !strings.EqualFold(entry.Model, model) || !entry.MatchesYear(modelYear) {
			continue
		}
		prices, ok := entry.Services[kind]
		if !ok {
			continue
		}
		return prices.ForTier(tier), SourceExact, nil
	}

	// 2. Brand average over all entries carrying the service kind, rounded
	// to the nearest whole currency unit.
	var sum int64
	var n int64
	for _, entry := range entries {
		prices, ok := entry.Services[kind]
		if !ok {
			continue
		}
		sum += prices.ForTier(tier)
		n++
	}
	if n > 0 {
		avgUnits := (sum + n*50) / (n * 100)
		return avgUnits * 100, SourceBrandAverage, nil
	}

	// 3. Global default per service kind.
	return defaultPriceCents[kind], SourceDefault, nil
}
