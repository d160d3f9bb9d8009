/*
Package billing provides the billing resolution and consistency engine.

PURPOSE:
  This package contains the domain types and pure algorithms for pricing
  interpreter assignments. Whether a number ends up on a dashboard, in a
  statistics view, or on an invoice, it is computed here and nowhere else.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category / Location / Interpreter: the live, authoritative records
  - CategoryRef / LocationRef / InterpreterRef: snapshots embedded in an
    Assignment at the time it was created or edited
  - Assignment: a billable, time-bounded interpreter job

SNAPSHOT VS LIVE:
  An Assignment never points at a Category. It carries a copy. The copy keeps
  historical data reproducible; the RateResolver decides whether the copy or
  the live record prices the assignment (see rates.go).

DESIGN PRINCIPLES:
  1. Precision: money and rates use decimal.Decimal, never float64
  2. Derived values are derived: MinuteRate and AssignmentCount are computed,
     not edited
  3. No foreign keys in storage: referential integrity lives in integrity.go

SEE ALSO:
  - rates.go: RateResolver (the only bridge between snapshot and live)
  - earnings.go: EarningsCalculator
  - aggregate.go, report.go: AggregationEngine
  - integrity.go: IntegrityGuard
  - workingset.go: in-memory store of the four collections
*/
package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY - Live rate record and its snapshot
// =============================================================================

// Category is the authoritative rate record.
//
// INVARIANT: MinuteRate == round(HourlyRate/60, 2). Build categories with
// NewCategory and edit rates with WithHourlyRate so the two never drift.
type Category struct {
	ID         string
	Name       string
	HourlyRate decimal.Decimal // currency per hour
	MinuteRate decimal.Decimal // derived, currency per minute
	TravelCost decimal.Decimal // currency per km
}

// NewCategory creates a category with its minute rate derived from hourlyRate.
func NewCategory(id, name string, hourlyRate, travelCost decimal.Decimal) Category {
	return Category{
		ID:         id,
		Name:       name,
		HourlyRate: hourlyRate,
		MinuteRate: MinuteRateFor(hourlyRate),
		TravelCost: travelCost,
	}
}

// WithHourlyRate returns a copy of c with a new hourly rate and the matching
// minute rate.
func (c Category) WithHourlyRate(hourlyRate decimal.Decimal) Category {
	c.HourlyRate = hourlyRate
	c.MinuteRate = MinuteRateFor(hourlyRate)
	return c
}

// Normalize re-derives MinuteRate from HourlyRate. Used on every write path
// so a client-supplied minute rate is never trusted.
func (c Category) Normalize() Category {
	return c.WithHourlyRate(c.HourlyRate)
}

// Ref takes a snapshot of the category for embedding in an assignment.
func (c Category) Ref() CategoryRef {
	return CategoryRef{
		ID:         c.ID,
		Name:       c.Name,
		HourlyRate: c.HourlyRate,
		MinuteRate: c.MinuteRate,
		TravelCost: c.TravelCost,
	}
}

// MinuteRateFor returns round(hourlyRate/60, 2).
func MinuteRateFor(hourlyRate decimal.Decimal) decimal.Decimal {
	return hourlyRate.Div(decimal.NewFromInt(60)).Round(2)
}

// CategoryRef is a category snapshot held by value inside an Assignment.
// Its rate fields are read for pricing only by the RateResolver.
type CategoryRef struct {
	ID         string
	Name       string
	HourlyRate decimal.Decimal
	MinuteRate decimal.Decimal
	TravelCost decimal.Decimal
}

// =============================================================================
// LOCATION
// =============================================================================

// Coordinates is a longitude/latitude pair, in that order on the wire.
type Coordinates struct {
	Longitude float64
	Latitude  float64
}

// Location is the authoritative location record.
type Location struct {
	ID          string
	Name        string
	Address     string
	Coordinates Coordinates
	VisitCount  int
}

// Ref takes a snapshot of the location.
func (l Location) Ref() LocationRef {
	return LocationRef{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: l.Coordinates,
		VisitCount:  l.VisitCount,
	}
}

// LocationRef is a location snapshot held by value inside an Assignment.
type LocationRef struct {
	ID          string
	Name        string
	Address     string
	Coordinates Coordinates
	VisitCount  int
}

// =============================================================================
// INTERPRETER
// =============================================================================

// Interpreter is the authoritative interpreter record.
//
// AssignmentCount is derived. Whatever storage returns is overwritten by
// CountAssignments before the record is handed out.
type Interpreter struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Languages       []string
	AssignmentCount int
}

// Ref takes a snapshot of the interpreter.
func (i Interpreter) Ref() *InterpreterRef {
	return &InterpreterRef{
		ID:        i.ID,
		Name:      i.Name,
		Email:     i.Email,
		Phone:     i.Phone,
		Languages: append([]string(nil), i.Languages...),
	}
}

// InterpreterRef is an interpreter snapshot inside an Assignment.
type InterpreterRef struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Languages []string
}

// =============================================================================
// ASSIGNMENT - A billable, time-bounded job
// =============================================================================

// Assignment is one interpreter job for a client at a location.
//
// INVARIANT: EndTime is strictly after StartTime. Times carry wall-clock
// semantics; the engine never converts between zones.
type Assignment struct {
	ID          string
	ClientName  string
	Location    LocationRef
	Category    CategoryRef
	StartTime   time.Time
	EndTime     time.Time
	Interpreter *InterpreterRef // optional
	Language    string
	Notes       string
	Paid        bool

	// TravelDistance in km, billed on invoices at the category travel cost.
	TravelDistance decimal.Decimal
}

// Validate rejects assignments that must never reach the engine.
func (a Assignment) Validate() error {
	switch {
	case strings.TrimSpace(a.ClientName) == "":
		return &MissingFieldError{Field: "clientName"}
	case a.Location.ID == "":
		return &MissingFieldError{Field: "location.id"}
	case a.Category.ID == "":
		return &MissingFieldError{Field: "category.id"}
	}
	if !a.EndTime.After(a.StartTime) {
		return &InvalidRangeError{Start: a.StartTime, End: a.EndTime}
	}
	return nil
}

// HasInterpreter reports whether the assignment is assigned to interpreterID.
func (a Assignment) HasInterpreter(interpreterID string) bool {
	return a.Interpreter != nil && a.Interpreter.ID == interpreterID
}

// Clone returns a deep copy so callers cannot alias the interpreter snapshot.
func (a Assignment) Clone() Assignment {
	if a.Interpreter != nil {
		ref := *a.Interpreter
		ref.Languages = append([]string(nil), a.Interpreter.Languages...)
		a.Interpreter = &ref
	}
	return a
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NewID returns a fresh opaque identifier for a new record.
func NewID() string {
	return uuid.NewString()
}

// CountAssignments returns how many assignments reference interpreterID.
func CountAssignments(interpreterID string, assignments []Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.HasInterpreter(interpreterID) {
			n++
		}
	}
	return n
}

// WithAssignmentCounts recomputes AssignmentCount on every interpreter.
func WithAssignmentCounts(interpreters []Interpreter, assignments []Assignment) []Interpreter {
	out := make([]Interpreter, len(interpreters))
	for i, in := range interpreters {
		in.AssignmentCount = CountAssignments(in.ID, assignments)
		out[i] = in
	}
	return out
}
