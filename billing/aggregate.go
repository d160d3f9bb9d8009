package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTER
// =============================================================================

// AllInterpreters is the interpreter filter value meaning "no filter".
const AllInterpreters = "all"

// Filter selects assignments by interpreter and start date.
type Filter struct {
	InterpreterID string     // "" or "all" = every interpreter
	StartDate     *time.Time // inclusive
	EndDate       *time.Time // inclusive through 23:59:59.999 of that day; nil = open-ended
}

func (f Filter) byInterpreter() bool {
	return f.InterpreterID != "" && f.InterpreterID != AllInterpreters
}

// Match reports whether a passes the filter.
func (f Filter) Match(a Assignment) bool {
	if f.byInterpreter() && !a.HasInterpreter(f.InterpreterID) {
		return false
	}
	if f.StartDate != nil && a.StartTime.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && a.StartTime.After(EndOfDay(*f.EndDate)) {
		return false
	}
	return true
}

// FilterAssignments returns the assignments matching f, in input order.
func FilterAssignments(all []Assignment, f Filter) []Assignment {
	out := make([]Assignment, 0, len(all))
	for _, a := range all {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Search returns assignments whose client, location, interpreter or category
// name contains term, case-insensitively. An empty term matches everything.
func Search(all []Assignment, term string) []Assignment {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]Assignment(nil), all...)
	}
	var out []Assignment
	for _, a := range all {
		names := []string{a.ClientName, a.Location.Name, a.Category.Name}
		if a.Interpreter != nil {
			names = append(names, a.Interpreter.Name)
		}
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), term) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// =============================================================================
// GROUPING
// =============================================================================

// GroupRow is one aggregated row: a category, location or interpreter.
type GroupRow struct {
	Key           string
	Name          string
	Count         int
	TotalDuration int             // minutes
	TotalEarnings decimal.Decimal // sum of per-assignment rounded earnings
}

// groupBy folds assignments into rows keyed by key(a). Rows appear in order
// of first appearance; assignments with an empty key are skipped.
func (e *Engine) groupBy(assignments []Assignment, key func(Assignment) (string, string)) ([]GroupRow, error) {
	var rows []GroupRow
	index := make(map[string]int)
	for _, a := range assignments {
		k, name := key(a)
		if k == "" {
			continue
		}
		minutes, err := a.Duration()
		if err != nil {
			return nil, err
		}
		earned := EarningsAt(minutes, e.calc.Resolver.Resolve(a))

		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, GroupRow{Key: k, Name: name, TotalEarnings: decimal.Zero})
		}
		rows[i].Count++
		rows[i].TotalDuration += minutes
		rows[i].TotalEarnings = rows[i].TotalEarnings.Add(earned)
	}
	return rows, nil
}

// GroupByCategory aggregates per category. The row name is the resolved
// (live-preferred) category name.
func (e *Engine) GroupByCategory(assignments []Assignment) ([]GroupRow, error) {
	return e.groupBy(assignments, func(a Assignment) (string, string) {
		r := e.calc.Resolver.Resolve(a)
		return r.CategoryID, r.Name
	})
}

// GroupByLocation aggregates per location.
func (e *Engine) GroupByLocation(assignments []Assignment) ([]GroupRow, error) {
	return e.groupBy(assignments, func(a Assignment) (string, string) {
		return a.Location.ID, e.locationName(a)
	})
}

// locationName prefers the live location name over the snapshot's.
func (e *Engine) locationName(a Assignment) string {
	if l, ok := e.locations[a.Location.ID]; ok {
		return l.Name
	}
	return a.Location.Name
}

// GroupByInterpreter aggregates per interpreter, skipping unassigned jobs.
//
// Pass the full unfiltered set for cross-interpreter leaderboards and the
// filtered set for a single interpreter's report.
func (e *Engine) GroupByInterpreter(assignments []Assignment) ([]GroupRow, error) {
	return e.groupBy(assignments, func(a Assignment) (string, string) {
		if a.Interpreter == nil {
			return "", ""
		}
		name := a.Interpreter.Name
		if in, ok := e.interpreters[a.Interpreter.ID]; ok {
			name = in.Name
		}
		return a.Interpreter.ID, name
	})
}

// =============================================================================
// RANKING
// =============================================================================

// SortKey selects the GroupRow field TopN ranks by.
type SortKey string

const (
	SortCount    SortKey = "count"
	SortDuration SortKey = "duration"
	SortEarnings SortKey = "earnings"
)

// TopN returns the n largest rows by key, descending. The sort is stable so
// ties keep their input order. The input slice is not modified.
func TopN(rows []GroupRow, n int, key SortKey) []GroupRow {
	out := append([]GroupRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		switch key {
		case SortDuration:
			return out[i].TotalDuration > out[j].TotalDuration
		case SortEarnings:
			return out[i].TotalEarnings.GreaterThan(out[j].TotalEarnings)
		default:
			return out[i].Count > out[j].Count
		}
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// MostRecent returns up to n assignments, latest start first.
func MostRecent(assignments []Assignment, n int) []Assignment {
	out := append([]Assignment(nil), assignments...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Chronological returns a copy sorted by start time, earliest first.
func Chronological(assignments []Assignment) []Assignment {
	out := append([]Assignment(nil), assignments...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
