package billing

import "github.com/shopspring/decimal"

// =============================================================================
// EARNINGS CALCULATOR
// =============================================================================

// Calculator prices assignments using rates from its Resolver.
//
// Two pricing paths exist:
//   - Earnings:        minutes * minuteRate, rounded per assignment
//                      (dashboards, statistics, summary/detailed reports)
//   - HourlyBreakdown: minutes/60 * hourlyRate, rounded per line (invoices)
//
// The two can differ by a few cents. Neither may replace the other.
type Calculator struct {
	Resolver *RateResolver
}

// NewCalculator returns a calculator over the live category collection.
func NewCalculator(categories []Category) *Calculator {
	return &Calculator{Resolver: NewRateResolver(categories)}
}

// Earnings returns round(durationMinutes * minuteRate, 2).
func (c *Calculator) Earnings(a Assignment) (decimal.Decimal, error) {
	minutes, err := a.Duration()
	if err != nil {
		return decimal.Zero, err
	}
	return EarningsAt(minutes, c.Resolver.Resolve(a)), nil
}

// EarningsAt prices a duration with an already resolved rate.
func EarningsAt(minutes int, rate ResolvedRate) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Mul(rate.MinuteRate).Round(2)
}

// TotalEarnings is the sum of the per-assignment rounded earnings.
// Sum-of-rounded, never round-of-sum.
func (c *Calculator) TotalEarnings(assignments []Assignment) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range assignments {
		e, err := c.Earnings(a)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(e)
	}
	return total, nil
}

// Breakdown is the invoice view of one assignment.
type Breakdown struct {
	Minutes    int
	Hours      decimal.Decimal // minutes/60, for display
	HourlyRate decimal.Decimal
	Amount     decimal.Decimal // round(minutes*HourlyRate/60, 2)
}

// HourlyBreakdown prices a via the hourly rate path used by invoices.
func (c *Calculator) HourlyBreakdown(a Assignment) (Breakdown, error) {
	minutes, err := a.Duration()
	if err != nil {
		return Breakdown{}, err
	}
	rate := c.Resolver.Resolve(a)
	// Multiply before dividing; minutes/60 is inexact.
	amount := decimal.NewFromInt(int64(minutes)).Mul(rate.HourlyRate).Div(decimal.NewFromInt(60)).Round(2)
	return Breakdown{
		Minutes:    minutes,
		Hours:      Hours(minutes),
		HourlyRate: rate.HourlyRate,
		Amount:     amount,
	}, nil
}

// TravelCost returns round(TravelDistance * travelCost, 2).
// Billed on invoices only; never part of Earnings.
func (c *Calculator) TravelCost(a Assignment) decimal.Decimal {
	if a.TravelDistance.IsZero() {
		return decimal.Zero
	}
	return a.TravelDistance.Mul(c.Resolver.Resolve(a).TravelCost).Round(2)
}
