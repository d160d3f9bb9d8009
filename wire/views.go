package wire

import "github.com/warp/interpreter-billing/billing"

// =============================================================================
// AGGREGATED VIEWS - Read-only shapes for dashboard, statistics, reports
// =============================================================================

// GroupRow is one aggregated category, location or interpreter row.
type GroupRow struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	TotalDuration int     `json:"totalDuration"`
	TotalEarnings float64 `json:"totalEarnings"`
}

// Totals are the headline figures of every view.
type Totals struct {
	Count         int     `json:"count"`
	TotalMinutes  int     `json:"totalMinutes"`
	TotalEarnings float64 `json:"totalEarnings"`
}

// Dashboard is the home view.
type Dashboard struct {
	Totals
	MostVisitedLocation *GroupRow    `json:"mostVisitedLocation,omitempty"`
	Recent              []Assignment `json:"recent"`
	TopLocations        []GroupRow   `json:"topLocations"`
}

// Statistics holds the breakdowns and leaderboards.
type Statistics struct {
	Totals
	ByCategory                []GroupRow `json:"byCategory"`
	ByLocation                []GroupRow `json:"byLocation"`
	TopInterpretersByCount    []GroupRow `json:"topInterpretersByCount"`
	TopInterpretersByEarnings []GroupRow `json:"topInterpretersByEarnings"`
}

// ReportLine is one priced job of a detailed report.
type ReportLine struct {
	AssignmentID string  `json:"assignmentId"`
	Date         string  `json:"date"`
	ClientName   string  `json:"clientName"`
	Category     string  `json:"category"`
	Location     string  `json:"location"`
	Minutes      int     `json:"minutes"`
	Duration     string  `json:"duration"`
	Earnings     float64 `json:"earnings"`
	Paid         bool    `json:"paid"`
}

// InvoiceLine is one job priced on the hourly path, plus travel.
type InvoiceLine struct {
	AssignmentID   string  `json:"assignmentId"`
	Date           string  `json:"date"`
	ClientName     string  `json:"clientName"`
	Category       string  `json:"category"`
	Hours          float64 `json:"hours"`
	HourlyRate     float64 `json:"hourlyRate"`
	Amount         float64 `json:"amount"`
	TravelDistance float64 `json:"travelDistance,omitempty"`
	TravelRate     float64 `json:"travelRate,omitempty"`
	TravelAmount   float64 `json:"travelAmount,omitempty"`
}

// Invoice groups invoice lines with their totals.
type Invoice struct {
	Lines       []InvoiceLine `json:"lines"`
	Subtotal    float64       `json:"subtotal"`
	TravelTotal float64       `json:"travelTotal"`
	Total       float64       `json:"total"`
}

// Report is a summary, detailed or invoice report.
type Report struct {
	Kind        string       `json:"kind"`
	Interpreter Interpreter  `json:"interpreter"`
	StartDate   string       `json:"startDate"`
	EndDate     string       `json:"endDate"`
	Totals      Totals       `json:"totals"`
	Categories  []GroupRow   `json:"categories,omitempty"`
	Lines       []ReportLine `json:"lines,omitempty"`
	Invoice     *Invoice     `json:"invoice,omitempty"`
}

// -----------------------------------------------------------------------------
// Conversions
// -----------------------------------------------------------------------------

// FromGroupRow encodes one aggregated row.
func FromGroupRow(r billing.GroupRow) GroupRow {
	return GroupRow{
		ID:            r.Key,
		Name:          r.Name,
		Count:         r.Count,
		TotalDuration: r.TotalDuration,
		TotalEarnings: money(r.TotalEarnings),
	}
}

// FromGroupRows encodes aggregated rows, keeping their order.
func FromGroupRows(rows []billing.GroupRow) []GroupRow {
	return encodeAll(rows, FromGroupRow)
}

// FromTotals encodes headline figures.
func FromTotals(t billing.Totals) Totals {
	return Totals{Count: t.Count, TotalMinutes: t.TotalMinutes, TotalEarnings: money(t.TotalEarnings)}
}

// FromDashboard encodes a dashboard.
func FromDashboard(d billing.Dashboard) Dashboard {
	out := Dashboard{
		Totals:       FromTotals(d.Totals),
		Recent:       FromAssignments(d.Recent),
		TopLocations: FromGroupRows(d.TopLocations),
	}
	if d.MostVisitedLocation != nil {
		row := FromGroupRow(*d.MostVisitedLocation)
		out.MostVisitedLocation = &row
	}
	return out
}

// FromStatistics encodes statistics.
func FromStatistics(s billing.Statistics) Statistics {
	return Statistics{
		Totals:                    FromTotals(s.Totals),
		ByCategory:                FromGroupRows(s.ByCategory),
		ByLocation:                FromGroupRows(s.ByLocation),
		TopInterpretersByCount:    FromGroupRows(s.TopInterpretersByCount),
		TopInterpretersByEarnings: FromGroupRows(s.TopInterpretersByEarnings),
	}
}

// FromReport encodes a report; Invoice is set only for invoices.
func FromReport(r *billing.Report) Report {
	out := Report{
		Kind:        string(r.Kind),
		Interpreter: FromInterpreter(r.Interpreter),
		StartDate:   r.Period.Start.Format("2006-01-02"),
		EndDate:     r.Period.End.Format("2006-01-02"),
		Totals:      FromTotals(r.Totals),
		Categories:  FromGroupRows(r.Categories),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, ReportLine{
			AssignmentID: l.AssignmentID,
			Date:         FormatTime(l.Date),
			ClientName:   l.ClientName,
			Category:     l.Category,
			Location:     l.Location,
			Minutes:      l.Minutes,
			Duration:     l.DurationText,
			Earnings:     money(l.Earnings),
			Paid:         l.Paid,
		})
	}
	if r.Invoice != nil {
		inv := &Invoice{
			Lines:       make([]InvoiceLine, 0, len(r.Invoice.Lines)),
			Subtotal:    money(r.Invoice.Subtotal),
			TravelTotal: money(r.Invoice.TravelTotal),
			Total:       money(r.Invoice.Total),
		}
		for _, l := range r.Invoice.Lines {
			inv.Lines = append(inv.Lines, InvoiceLine{
				AssignmentID:   l.AssignmentID,
				Date:           FormatTime(l.Date),
				ClientName:     l.ClientName,
				Category:       l.Category,
				Hours:          money(l.Hours.Round(4)),
				HourlyRate:     money(l.HourlyRate),
				Amount:         money(l.Amount),
				TravelDistance: money(l.TravelDistance),
				TravelRate:     money(l.TravelRate),
				TravelAmount:   money(l.TravelAmount),
			})
		}
		out.Invoice = inv
	}
	return out
}
