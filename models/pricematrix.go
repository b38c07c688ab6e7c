package models

// ServiceKind identifies a bookable maintenance service.
type ServiceKind string

const (
	ServiceInspection ServiceKind = "inspection"
	ServiceOil        ServiceKind = "oil_service"
	ServiceBrake      ServiceKind = "brake_service"
)

// MileageTier is a mileage bracket used to select a base price.
type MileageTier string

const (
	Tier30k      MileageTier = "30k"
	Tier60k      MileageTier = "60k"
	Tier90k      MileageTier = "90k"
	Tier120kPlus MileageTier = "120k+"
)

// TierPrices holds the per-mileage-tier base prices for one service kind,
// in integer cents.
type TierPrices struct {
	Tier30kCents      int64 `bson:"tier_30k_cents" json:"tier_30k_cents"`
	Tier60kCents      int64 `bson:"tier_60k_cents" json:"tier_60k_cents"`
	Tier90kCents      int64 `bson:"tier_90k_cents" json:"tier_90k_cents"`
	Tier120kPlusCents int64 `bson:"tier_120k_plus_cents" json:"tier_120k_plus_cents"`
}

// ForTier returns the price for the given mileage tier.
func (p TierPrices) ForTier(tier MileageTier) int64 {
	switch tier {
	case Tier30k:
		return p.Tier30kCents
	case Tier60k:
		return p.Tier60kCents
	case Tier90k:
		return p.Tier90kCents
	default:
		return p.Tier120kPlusCents
	}
}

// PriceMatrixEntry is static reference pricing data keyed by
// (brand, model, year range). Seeded out of band, read-only for the workflow.
type PriceMatrixEntry struct {
	ID       string                     `bson:"id" json:"id"`
	Brand    string                     `bson:"brand" json:"brand"`
	Model    string                     `bson:"model" json:"model"`
	YearFrom int                        `bson:"year_from" json:"year_from"`
	YearTo   int                        `bson:"year_to" json:"year_to"`
	Services map[ServiceKind]TierPrices `bson:"services" json:"services"`
}

// MatchesYear reports whether the entry's year range contains the model year.
func (e PriceMatrixEntry) MatchesYear(year int) bool {
	return year >= e.YearFrom && year <= e.YearTo
}
