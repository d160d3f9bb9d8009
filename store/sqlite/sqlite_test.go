package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/store/sqlite"
)

var (
	medical = billing.NewCategory("cat-med", "Medical", decimal.NewFromInt(90), decimal.RequireFromString("0.30"))
	clinic  = billing.Location{ID: "loc-clinic", Name: "Clinic", Address: "1 Main St",
		Coordinates: billing.Coordinates{Longitude: 13.405, Latitude: 52.52}, VisitCount: 3}
	ana = billing.Interpreter{ID: "int-ana", Name: "Ana", Email: "ana@example.com", Languages: []string{"de", "es"}}
)

func job(id string, day int, minutes int) billing.Assignment {
	start := time.Date(2025, 3, day, 9, 0, 0, 0, time.UTC)
	return billing.Assignment{
		ID:             id,
		ClientName:     "ACME",
		Location:       clinic.Ref(),
		Category:       medical.Ref(),
		Interpreter:    ana.Ref(),
		StartTime:      start,
		EndTime:        start.Add(time.Duration(minutes) * time.Minute),
		Language:       "es",
		TravelDistance: decimal.RequireFromString("12.5"),
	}
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.SaveCategory(ctx, medical))
	require.NoError(t, s.SaveLocation(ctx, clinic))
	require.NoError(t, s.SaveInterpreter(ctx, ana))
	return s
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := sqlite.Open("oracle", "x")
	assert.Error(t, err)
}

func TestReferenceData_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.True(t, cats[0].HourlyRate.Equal(decimal.NewFromInt(90)))
	assert.True(t, cats[0].MinuteRate.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cats[0].TravelCost.Equal(decimal.RequireFromString("0.3")))

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []billing.Location{clinic}, locs)

	ins, err := s.ListInterpreters(ctx)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, []string{"de", "es"}, ins[0].Languages)
	assert.Zero(t, ins[0].AssignmentCount)
}

func TestSaveCategory_DerivesMinuteRate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	edited := medical
	edited.HourlyRate = decimal.NewFromInt(100)
	edited.MinuteRate = decimal.NewFromInt(42)
	require.NoError(t, s.SaveCategory(ctx, edited))

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "1.67", cats[0].MinuteRate.StringFixed(2))
}

func TestSaveAssignment_RoundTripAndUpsert(t *testing.T) {
	// GIVEN: A stored assignment
	s := newStore(t)
	ctx := context.Background()
	a := job("a1", 10, 95)
	inserted, err := s.SaveAssignment(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	// WHEN: Saved again with the same id
	a.ClientName = "Second"
	a.Interpreter = nil
	inserted, err = s.SaveAssignment(ctx, a)
	require.NoError(t, err)
	assert.False(t, inserted)

	// THEN: One row, latest values, no interpreter
	all, err := s.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, "Second", got.ClientName)
	assert.Nil(t, got.Interpreter)
	assert.True(t, a.StartTime.Equal(got.StartTime))
	assert.True(t, a.EndTime.Equal(got.EndTime))
	assert.Equal(t, a.Location, got.Location)
	assert.True(t, got.Category.HourlyRate.Equal(decimal.NewFromInt(90)))
	assert.True(t, got.TravelDistance.Equal(decimal.RequireFromString("12.5")))
}

func TestSaveAssignment_KeepsInterpreterSnapshot(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveAssignment(ctx, job("a1", 10, 60))
	require.NoError(t, err)

	all, err := s.ListAssignments(ctx)
	require.NoError(t, err)
	require.NotNil(t, all[0].Interpreter)
	assert.Equal(t, *ana.Ref(), *all[0].Interpreter)
}

func TestSaveAssignment_RejectsInvalidRange(t *testing.T) {
	s := newStore(t)
	a := job("a1", 10, 60)
	a.EndTime = a.StartTime

	_, err := s.SaveAssignment(context.Background(), a)

	assert.ErrorIs(t, err, billing.ErrInvalidRange)
}

func TestListAssignments_ChronologicalOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, a := range []billing.Assignment{job("late", 20, 30), job("early", 2, 30), job("mid", 11, 30)} {
		_, err := s.SaveAssignment(ctx, a)
		require.NoError(t, err)
	}

	all, err := s.ListAssignments(ctx)

	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"early", "mid", "late"}, ids)
}

func TestSetPaidStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveAssignment(ctx, job("a1", 10, 60))
	require.NoError(t, err)

	require.NoError(t, s.SetPaidStatus(ctx, "a1", true))
	all, _ := s.ListAssignments(ctx)
	assert.True(t, all[0].Paid)

	err = s.SetPaidStatus(ctx, "ghost", true)
	assert.True(t, billing.IsNotFound(err))
}

func TestDeleteCategory_BlockedWithExactCount(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a1", "a2"} {
		_, err := s.SaveAssignment(ctx, job(id, 10, 60))
		require.NoError(t, err)
	}

	err := s.DeleteCategory(ctx, medical.ID)

	var rc *billing.ReferentialConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, 2, rc.BlockingCount)
	cats, _ := s.ListCategories(ctx)
	assert.Len(t, cats, 1)
}

func TestDeleteLocation_AllowedWhenUnreferenced(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteLocation(ctx, clinic.ID))

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestDeleteInterpreter_Detaches(t *testing.T) {
	// GIVEN: Two assignments for Ana
	s := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"a1", "a2"} {
		_, err := s.SaveAssignment(ctx, job(id, 10, 60))
		require.NoError(t, err)
	}
	ins, _ := s.ListInterpreters(ctx)
	assert.Equal(t, 2, ins[0].AssignmentCount)

	// WHEN: Ana is deleted
	require.NoError(t, s.DeleteInterpreter(ctx, ana.ID))

	// THEN: Both assignments remain without an interpreter
	all, err := s.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, a := range all {
		assert.Nil(t, a.Interpreter)
	}
	ins, _ = s.ListInterpreters(ctx)
	assert.Empty(t, ins)
}

func TestLoadSnapshot_PricesWithLiveRates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveAssignment(ctx, job("a1", 10, 90))
	require.NoError(t, err)
	require.NoError(t, s.SaveCategory(ctx, medical.WithHourlyRate(decimal.NewFromInt(120))))

	snap, err := billing.LoadSnapshot(ctx, s)
	require.NoError(t, err)
	total, err := billing.NewEngine(snap).Calculator().TotalEarnings(snap.Assignments)

	require.NoError(t, err)
	assert.Equal(t, "180.00", total.StringFixed(2))
	assert.True(t, snap.Assignments[0].Category.HourlyRate.Equal(decimal.NewFromInt(90)))
}

func TestReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveAssignment(ctx, job("a1", 10, 60))
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	snap, err := billing.LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, snap.Assignments)
	assert.Empty(t, snap.Categories)
}
