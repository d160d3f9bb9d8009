package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
)

func march(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }

// =============================================================================
// DASHBOARD / STATISTICS
// =============================================================================

func TestDashboard_Everyone(t *testing.T) {
	s := fixture()

	d, err := billing.NewEngine(s).Dashboard(s.Assignments, billing.AllInterpreters)

	require.NoError(t, err)
	assert.Equal(t, 5, d.Count)
	assert.Equal(t, 345, d.TotalMinutes)
	assert.Equal(t, "465.00", d.TotalEarnings.StringFixed(2))
	require.NotNil(t, d.MostVisitedLocation)
	assert.Equal(t, "loc-clinic", d.MostVisitedLocation.Key)
	assert.Equal(t, 3, d.MostVisitedLocation.Count)
	assert.Equal(t, []string{"a5", "a4", "a3"}, ids(d.Recent))
	assert.Equal(t, []string{"loc-clinic", "loc-court"}, keys(d.TopLocations))
}

func TestDashboard_TieKeepsFirstLocation(t *testing.T) {
	s := fixture()

	d, err := billing.NewEngine(s).Dashboard(s.Assignments, "int-ana")

	require.NoError(t, err)
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, "loc-clinic", d.MostVisitedLocation.Key)
	assert.Equal(t, []string{"a2", "a1"}, ids(d.Recent))
}

func TestDashboard_Empty(t *testing.T) {
	d, err := billing.NewEngine(fixture()).Dashboard(nil, "")

	require.NoError(t, err)
	assert.Zero(t, d.Count)
	assert.Nil(t, d.MostVisitedLocation)
	assert.True(t, d.TotalEarnings.IsZero())
}

func TestStatistics_LeaderboardsUseFullSet(t *testing.T) {
	// GIVEN: Statistics filtered to Ben
	s := fixture()

	st, err := billing.NewEngine(s).Statistics(s.Assignments, "int-ben")
	require.NoError(t, err)

	// THEN: Category/location rows cover Ben only
	assert.Equal(t, 2, st.Count)
	require.Len(t, st.ByCategory, 1)
	assert.Equal(t, "225.00", st.ByCategory[0].TotalEarnings.StringFixed(2))
	assert.Equal(t, []string{"loc-clinic", "loc-court"}, keys(st.ByLocation))

	// AND: Leaderboards cover everyone
	assert.Equal(t, []string{"int-ana", "int-ben"}, keys(st.TopInterpretersByCount))
	assert.Equal(t, []string{"int-ben", "int-ana"}, keys(st.TopInterpretersByEarnings))
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReportRequest_Validate(t *testing.T) {
	ok := billing.ReportRequest{Kind: billing.ReportSummary, InterpreterID: "int-ana", StartDate: march(1), EndDate: march(31)}
	require.NoError(t, ok.Validate())

	noInterp := ok
	noInterp.InterpreterID = billing.AllInterpreters
	assert.ErrorIs(t, noInterp.Validate(), billing.ErrMissingField)

	noEnd := ok
	noEnd.EndDate = time.Time{}
	assert.ErrorIs(t, noEnd.Validate(), billing.ErrMissingField)

	backwards := ok
	backwards.StartDate, backwards.EndDate = march(10), march(2)
	assert.ErrorIs(t, backwards.Validate(), billing.ErrInvalidRange)

	sameDay := ok
	sameDay.StartDate, sameDay.EndDate = march(10), march(10)
	assert.NoError(t, sameDay.Validate())
}

func TestParseReportKind(t *testing.T) {
	k, err := billing.ParseReportKind("invoice")
	require.NoError(t, err)
	assert.Equal(t, billing.ReportInvoice, k)

	_, err = billing.ParseReportKind("pdf")
	assert.Error(t, err)
}

func TestGenerate_Summary(t *testing.T) {
	s := fixture()
	req := billing.ReportRequest{Kind: billing.ReportSummary, InterpreterID: "int-ana", StartDate: march(1), EndDate: march(4)}

	rep, err := billing.NewEngine(s).Generate(req, s.Assignments)

	require.NoError(t, err)
	assert.Equal(t, "Ana", rep.Interpreter.Name)
	assert.Equal(t, 1, rep.Count)
	require.Len(t, rep.Categories, 1)
	assert.Equal(t, "cat-med", rep.Categories[0].Key)
	assert.Nil(t, rep.Invoice)
	assert.Empty(t, rep.Lines)
}

func TestGenerate_DetailedIsChronological(t *testing.T) {
	s := fixture()
	s.Assignments[0], s.Assignments[1] = s.Assignments[1], s.Assignments[0]
	req := billing.ReportRequest{Kind: billing.ReportDetailed, InterpreterID: "int-ana", StartDate: march(1), EndDate: march(31)}

	rep, err := billing.NewEngine(s).Generate(req, s.Assignments)

	require.NoError(t, err)
	require.Len(t, rep.Lines, 2)
	assert.Equal(t, "a1", rep.Lines[0].AssignmentID)
	assert.Equal(t, "1h 30min", rep.Lines[0].DurationText)
	assert.Equal(t, "135.00", rep.Lines[0].Earnings.StringFixed(2))
	assert.Equal(t, "Clinic", rep.Lines[0].Location)
	assert.Equal(t, "a2", rep.Lines[1].AssignmentID)
}

func TestGenerate_Invoice(t *testing.T) {
	s := fixture()
	s.Assignments[3].TravelDistance = dec("10")
	req := billing.ReportRequest{Kind: billing.ReportInvoice, InterpreterID: "int-ben", StartDate: march(1), EndDate: march(31)}

	rep, err := billing.NewEngine(s).Generate(req, s.Assignments)

	require.NoError(t, err)
	inv := rep.Invoice
	require.NotNil(t, inv)
	require.Len(t, inv.Lines, 2)
	assert.True(t, inv.Lines[0].Hours.Equal(dec("0.5")))
	assert.Equal(t, "45.00", inv.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "180.00", inv.Lines[1].Amount.StringFixed(2))
	assert.Equal(t, "3.00", inv.Lines[1].TravelAmount.StringFixed(2))
	assert.Equal(t, "225.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "3.00", inv.TravelTotal.StringFixed(2))
	assert.Equal(t, "228.00", inv.Total.StringFixed(2))
}

func TestInvoice_SubtotalIsSumOfRoundedLines(t *testing.T) {
	// Three 1 minute jobs at 50/h: each line 0.83, subtotal 2.49 (not 2.50).
	cat := billing.NewCategory("c", "Odd", dec("50"), dec("0"))
	s := billing.Snapshot{Categories: []billing.Category{cat}}
	var as []billing.Assignment
	for i, id := range []string{"x", "y", "z"} {
		as = append(as, job(id, cat, clinic, nil, at(1, 9+i, 0), 1))
	}

	inv, err := billing.NewEngine(s).Invoice(as)

	require.NoError(t, err)
	assert.Equal(t, "2.49", inv.Subtotal.StringFixed(2))
}

func TestGenerate_UnknownInterpreter(t *testing.T) {
	s := fixture()
	req := billing.ReportRequest{Kind: billing.ReportSummary, InterpreterID: "int-ghost", StartDate: march(1), EndDate: march(31)}

	_, err := billing.NewEngine(s).Generate(req, s.Assignments)

	assert.True(t, billing.IsNotFound(err))
}

func TestGenerate_RepricingScenario(t *testing.T) {
	// GIVEN: Ana's 90 minute Medical job, created at 90/h
	s := fixture()
	req := billing.ReportRequest{Kind: billing.ReportDetailed, InterpreterID: "int-ana", StartDate: march(3), EndDate: march(3)}
	rep, err := billing.NewEngine(s).Generate(req, s.Assignments)
	require.NoError(t, err)
	assert.Equal(t, "135.00", rep.Lines[0].Earnings.StringFixed(2))

	// WHEN: Medical is edited to 120/h
	s.Categories[0] = medical.WithHourlyRate(dec("120"))

	// THEN: The report reprices, the stored snapshot still says 90
	rep, err = billing.NewEngine(s).Generate(req, s.Assignments)
	require.NoError(t, err)
	assert.Equal(t, "180.00", rep.Lines[0].Earnings.StringFixed(2))
	assert.True(t, s.Assignments[0].Category.HourlyRate.Equal(dec("90")))
}
