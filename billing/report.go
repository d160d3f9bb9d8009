/*
report.go - Aggregated views: dashboard, statistics, reports, invoices

PURPOSE:
  Turns a set of assignments into structured rows. Every function here is a
  pure function of (assignments, live reference data); figures are
  recomputed on every call and never cached.

VIEWS:
  Dashboard:  totals, most visited location, recent jobs (minute-rate path)
  Statistics: totals, per category/location rows, interpreter leaderboards
  Summary:    per-category totals for one interpreter and period
  Detailed:   one line per assignment, chronological (minute-rate path)
  Invoice:    one line per assignment, chronological (hourly-rate path)

RENDERING:
  Turning these rows into PDF, HTML or anything else is the caller's job.

SEE ALSO:
  - aggregate.go: Filter, grouping, TopN
  - earnings.go: the two pricing paths
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine aggregates assignments against one snapshot of the live reference
// collections.
type Engine struct {
	calc         *Calculator
	locations    map[string]Location
	interpreters map[string]Interpreter
}

// NewEngine builds an engine over the reference collections in s.
func NewEngine(s Snapshot) *Engine {
	e := &Engine{
		calc:         NewCalculator(s.Categories),
		locations:    make(map[string]Location, len(s.Locations)),
		interpreters: make(map[string]Interpreter, len(s.Interpreters)),
	}
	for _, l := range s.Locations {
		e.locations[l.ID] = l
	}
	for _, in := range s.Interpreters {
		e.interpreters[in.ID] = in
	}
	return e
}

// Calculator returns the engine's earnings calculator.
func (e *Engine) Calculator() *Calculator { return e.calc }

// Totals holds the headline figures shared by every view.
type Totals struct {
	Count         int
	TotalMinutes  int
	TotalEarnings decimal.Decimal
}

func (e *Engine) totals(assignments []Assignment) (Totals, error) {
	t := Totals{Count: len(assignments), TotalEarnings: decimal.Zero}
	for _, a := range assignments {
		minutes, err := a.Duration()
		if err != nil {
			return Totals{}, err
		}
		t.TotalMinutes += minutes
		t.TotalEarnings = t.TotalEarnings.Add(EarningsAt(minutes, e.calc.Resolver.Resolve(a)))
	}
	return t, nil
}

// =============================================================================
// DASHBOARD / STATISTICS
// =============================================================================

// Dashboard is the overview for one interpreter, or everyone.
type Dashboard struct {
	Totals
	MostVisitedLocation *GroupRow
	Recent              []Assignment
	TopLocations        []GroupRow
}

// Dashboard computes the overview over all assignments of interpreterID
// ("" or "all" for everyone).
func (e *Engine) Dashboard(all []Assignment, interpreterID string) (Dashboard, error) {
	filtered := FilterAssignments(all, Filter{InterpreterID: interpreterID})
	totals, err := e.totals(filtered)
	if err != nil {
		return Dashboard{}, err
	}
	byLocation, err := e.GroupByLocation(filtered)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Totals:       totals,
		Recent:       MostRecent(filtered, 3),
		TopLocations: TopN(byLocation, 5, SortCount),
	}
	// First location with the strictly highest count wins.
	for i := range byLocation {
		if d.MostVisitedLocation == nil || byLocation[i].Count > d.MostVisitedLocation.Count {
			row := byLocation[i]
			d.MostVisitedLocation = &row
		}
	}
	return d, nil
}

// Statistics is the breakdown view.
type Statistics struct {
	Totals
	ByCategory                []GroupRow
	ByLocation                []GroupRow
	TopInterpretersByCount    []GroupRow
	TopInterpretersByEarnings []GroupRow
}

// Statistics computes totals and per-category/location rows over the
// assignments of interpreterID. The interpreter leaderboards always cover
// the full set, whatever interpreterID is.
func (e *Engine) Statistics(all []Assignment, interpreterID string) (Statistics, error) {
	filtered := FilterAssignments(all, Filter{InterpreterID: interpreterID})
	totals, err := e.totals(filtered)
	if err != nil {
		return Statistics{}, err
	}
	byCategory, err := e.GroupByCategory(filtered)
	if err != nil {
		return Statistics{}, err
	}
	byLocation, err := e.GroupByLocation(filtered)
	if err != nil {
		return Statistics{}, err
	}
	byInterpreter, err := e.GroupByInterpreter(all)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		Totals:                    totals,
		ByCategory:                byCategory,
		ByLocation:                byLocation,
		TopInterpretersByCount:    TopN(byInterpreter, 5, SortCount),
		TopInterpretersByEarnings: TopN(byInterpreter, 5, SortEarnings),
	}, nil
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportKind selects the report layout.
type ReportKind string

const (
	ReportSummary  ReportKind = "summary"
	ReportDetailed ReportKind = "detailed"
	ReportInvoice  ReportKind = "invoice"
)

// ParseReportKind validates a report kind string.
func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(s); k {
	case ReportSummary, ReportDetailed, ReportInvoice:
		return k, nil
	default:
		return "", fmt.Errorf("unknown report kind %q: %w", s, ErrMissingField)
	}
}

// ReportRequest identifies the interpreter and billing period of a report.
// Every field is required.
type ReportRequest struct {
	Kind          ReportKind
	InterpreterID string
	StartDate     time.Time
	EndDate       time.Time
}

// Validate rejects incomplete requests.
func (r ReportRequest) Validate() error {
	switch {
	case r.InterpreterID == "" || r.InterpreterID == AllInterpreters:
		return &MissingFieldError{Field: "interpreterId"}
	case r.StartDate.IsZero():
		return &MissingFieldError{Field: "startDate"}
	case r.EndDate.IsZero():
		return &MissingFieldError{Field: "endDate"}
	}
	if EndOfDay(r.EndDate).Before(r.StartDate) {
		return &InvalidRangeError{Start: r.StartDate, End: r.EndDate}
	}
	return nil
}

// Filter returns the assignment filter the request implies.
func (r ReportRequest) Filter() Filter {
	start, end := r.StartDate, r.EndDate
	return Filter{InterpreterID: r.InterpreterID, StartDate: &start, EndDate: &end}
}

// ReportLine is one assignment in a detailed report.
type ReportLine struct {
	AssignmentID string
	Date         time.Time
	ClientName   string
	Category     string
	Location     string
	Minutes      int
	DurationText string
	Earnings     decimal.Decimal
	Paid         bool
}

// InvoiceLine is one assignment on an invoice.
type InvoiceLine struct {
	AssignmentID   string
	Date           time.Time
	ClientName     string
	Category       string
	Hours          decimal.Decimal
	HourlyRate     decimal.Decimal
	Amount         decimal.Decimal
	TravelDistance decimal.Decimal
	TravelRate     decimal.Decimal
	TravelAmount   decimal.Decimal
}

// Invoice is the hourly-rate billing document.
type Invoice struct {
	Lines       []InvoiceLine
	Subtotal    decimal.Decimal // sum of line amounts
	TravelTotal decimal.Decimal
	Total       decimal.Decimal
}

// Report is the structured output for every report kind. Only the section
// matching Kind is populated.
type Report struct {
	Kind        ReportKind
	Interpreter Interpreter
	Period      DateRange
	Totals
	Categories []GroupRow   // summary
	Lines      []ReportLine // detailed
	Invoice    *Invoice     // invoice
}

// Generate builds the report described by req from all assignments.
func (e *Engine) Generate(req ReportRequest, all []Assignment) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	interpreter, ok := e.interpreters[req.InterpreterID]
	if !ok {
		return nil, fmt.Errorf("interpreter %q: %w", req.InterpreterID, ErrNotFound)
	}

	filtered := Chronological(FilterAssignments(all, req.Filter()))
	totals, err := e.totals(filtered)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Kind:        req.Kind,
		Interpreter: interpreter,
		Period:      DateRange{Start: req.StartDate, End: req.EndDate},
		Totals:      totals,
	}

	switch req.Kind {
	case ReportSummary:
		rep.Categories, err = e.GroupByCategory(filtered)
	case ReportDetailed:
		rep.Lines, err = e.DetailedLines(filtered)
	case ReportInvoice:
		rep.Invoice, err = e.Invoice(filtered)
	default:
		err = fmt.Errorf("unknown report kind %q: %w", req.Kind, ErrMissingField)
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// DetailedLines prices each assignment on the minute-rate path, in input order.
func (e *Engine) DetailedLines(assignments []Assignment) ([]ReportLine, error) {
	lines := make([]ReportLine, 0, len(assignments))
	for _, a := range assignments {
		minutes, err := a.Duration()
		if err != nil {
			return nil, err
		}
		rate := e.calc.Resolver.Resolve(a)
		lines = append(lines, ReportLine{
			AssignmentID: a.ID,
			Date:         a.StartTime,
			ClientName:   a.ClientName,
			Category:     rate.Name,
			Location:     e.locationName(a),
			Minutes:      minutes,
			DurationText: FormatDuration(minutes),
			Earnings:     EarningsAt(minutes, rate),
			Paid:         a.Paid,
		})
	}
	return lines, nil
}

// Invoice prices each assignment on the hourly-rate path, in input order.
func (e *Engine) Invoice(assignments []Assignment) (*Invoice, error) {
	inv := &Invoice{
		Lines:       make([]InvoiceLine, 0, len(assignments)),
		Subtotal:    decimal.Zero,
		TravelTotal: decimal.Zero,
	}
	for _, a := range assignments {
		b, err := e.calc.HourlyBreakdown(a)
		if err != nil {
			return nil, err
		}
		rate := e.calc.Resolver.Resolve(a)
		travel := e.calc.TravelCost(a)
		inv.Lines = append(inv.Lines, InvoiceLine{
			AssignmentID:   a.ID,
			Date:           a.StartTime,
			ClientName:     a.ClientName,
			Category:       rate.Name,
			Hours:          b.Hours,
			HourlyRate:     b.HourlyRate,
			Amount:         b.Amount,
			TravelDistance: a.TravelDistance,
			TravelRate:     rate.TravelCost,
			TravelAmount:   travel,
		})
		inv.Subtotal = inv.Subtotal.Add(b.Amount)
		inv.TravelTotal = inv.TravelTotal.Add(travel)
	}
	inv.Total = inv.Subtotal.Add(inv.TravelTotal)
	return inv, nil
}
