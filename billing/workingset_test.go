package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
)

func loaded() *billing.WorkingSet {
	s := fixture()
	ws := billing.NewWorkingSet()
	ws.ReplaceCategories(s.Categories)
	ws.ReplaceLocations(s.Locations)
	ws.ReplaceInterpreters(s.Interpreters)
	ws.ReplaceAssignments(s.Assignments)
	return ws
}

func TestWorkingSet_PutAssignmentReplacesInPlace(t *testing.T) {
	ws := loaded()
	a, ok := ws.Assignment("a2")
	require.True(t, ok)

	a.ClientName = "Renamed"
	inserted := ws.PutAssignment(a)

	assert.False(t, inserted)
	all := ws.Assignments()
	assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5"}, ids(all))
	assert.Equal(t, "Renamed", all[1].ClientName)
}

func TestWorkingSet_PutAssignmentAppends(t *testing.T) {
	ws := loaded()

	inserted := ws.PutAssignment(job("a6", legal, court, &cleo, at(12, 9, 0), 30))

	assert.True(t, inserted)
	assert.Equal(t, 6, ws.Len(billing.CollectionAssignments))
}

func TestWorkingSet_ReturnsCopies(t *testing.T) {
	ws := loaded()

	all := ws.Assignments()
	all[0].Interpreter.Name = "Mutated"
	all[0].ClientName = "Mutated"

	a, _ := ws.Assignment("a1")
	assert.Equal(t, "Ana", a.Interpreter.Name)
	assert.NotEqual(t, "Mutated", a.ClientName)
}

func TestWorkingSet_SetPaid(t *testing.T) {
	ws := loaded()

	require.NoError(t, ws.SetPaid("a1", true))
	a, _ := ws.Assignment("a1")
	assert.True(t, a.Paid)

	err := ws.SetPaid("nope", true)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestWorkingSet_InterpreterCountsDerived(t *testing.T) {
	ws := loaded()
	stale := ana
	stale.AssignmentCount = 99
	ws.PutInterpreter(stale)

	in, ok := ws.Interpreter(ana.ID)

	require.True(t, ok)
	assert.Equal(t, 2, in.AssignmentCount)
	counts := map[string]int{}
	for _, i := range ws.Snapshot().Interpreters {
		counts[i.ID] = i.AssignmentCount
	}
	assert.Equal(t, map[string]int{"int-ana": 2, "int-ben": 2, "int-cleo": 0}, counts)
}

func TestWorkingSet_PutCategoryNormalizes(t *testing.T) {
	ws := loaded()

	ws.PutCategory(billing.Category{ID: medical.ID, Name: "Medical", HourlyRate: dec("120"), MinuteRate: dec("5")})

	c, _ := ws.Category(medical.ID)
	assert.True(t, c.MinuteRate.Equal(dec("2")))
	assert.Equal(t, medical.ID, ws.Categories()[0].ID)
}

func TestWorkingSet_Remove(t *testing.T) {
	ws := loaded()

	assert.True(t, ws.RemoveLocation(court.ID))
	assert.False(t, ws.RemoveLocation(court.ID))
	assert.True(t, ws.RemoveCategory(legal.ID))
	assert.True(t, ws.RemoveInterpreter(cleo.ID))

	assert.Len(t, ws.Locations(), 1)
	assert.Len(t, ws.Categories(), 1)
	assert.Len(t, ws.Interpreters(), 2)
}

func TestWorkingSet_EngineUsesLiveRates(t *testing.T) {
	ws := loaded()
	ws.PutCategory(medical.WithHourlyRate(dec("120")))

	total, err := ws.Engine().Calculator().TotalEarnings(ws.Assignments())

	require.NoError(t, err)
	// medical 240 min at 2.00 + legal 105
	assert.Equal(t, "585.00", total.StringFixed(2))
}
