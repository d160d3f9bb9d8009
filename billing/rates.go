package billing

import "github.com/shopspring/decimal"

// =============================================================================
// RATE RESOLVER - The only bridge between snapshot and live categories
// =============================================================================

// RateSource tells which record a resolved rate came from.
type RateSource string

const (
	RateLive     RateSource = "live"     // current Category looked up by id
	RateSnapshot RateSource = "snapshot" // category deleted, embedded copy used
)

// ResolvedRate is the rate that prices one assignment.
type ResolvedRate struct {
	CategoryID string
	Name       string
	HourlyRate decimal.Decimal
	MinuteRate decimal.Decimal
	TravelCost decimal.Decimal
	Source     RateSource
}

// RateResolver decides which rate prices an assignment.
//
// POLICY (current wins, snapshot is fallback):
//   1. Look up the live Category by the id in the assignment's snapshot.
//   2. Found: use the live rates. Historical assignments are re-priced at
//      current rates.
//   3. Not found (deleted, legacy data): use the snapshot's rates.
//
// Every earnings figure (dashboard, statistics, reports, invoices) goes
// through Resolve. Nothing else reads CategoryRef rates for pricing.
type RateResolver struct {
	live map[string]Category
}

// NewRateResolver builds a resolver over the live category collection.
func NewRateResolver(categories []Category) *RateResolver {
	live := make(map[string]Category, len(categories))
	for _, c := range categories {
		live[c.ID] = c
	}
	return &RateResolver{live: live}
}

// Resolve returns the rate for a.
func (r *RateResolver) Resolve(a Assignment) ResolvedRate {
	if r != nil {
		if c, ok := r.live[a.Category.ID]; ok {
			return ResolvedRate{
				CategoryID: c.ID,
				Name:       c.Name,
				HourlyRate: c.HourlyRate,
				MinuteRate: c.MinuteRate,
				TravelCost: c.TravelCost,
				Source:     RateLive,
			}
		}
	}
	snap := a.Category
	return ResolvedRate{
		CategoryID: snap.ID,
		Name:       snap.Name,
		HourlyRate: snap.HourlyRate,
		MinuteRate: snap.MinuteRate,
		TravelCost: snap.TravelCost,
		Source:     RateSnapshot,
	}
}
