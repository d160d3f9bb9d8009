package billing_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
)

func TestCanDelete_ExactBlockingCount(t *testing.T) {
	// GIVEN: N assignments referencing Legal, for several N
	for _, n := range []int{0, 1, 2, 7} {
		var as []billing.Assignment
		for i := 0; i < n; i++ {
			as = append(as, job(fmt.Sprintf("l%d", i), legal, court, nil, at(1+i, 9, 0), 30))
		}
		as = append(as, job("m", medical, clinic, nil, at(20, 9, 0), 30))

		// WHEN: Asking to delete Legal
		check := billing.CanDelete(billing.EntityCategory, legal.ID, as)

		// THEN: Allowed only at zero, count exact
		assert.Equal(t, n == 0, check.Allowed, "n=%d", n)
		assert.Equal(t, n, check.BlockingCount, "n=%d", n)
	}
}

func TestCheckDelete_Location(t *testing.T) {
	all := fixture().Assignments

	err := billing.CheckDelete(billing.EntityLocation, clinic.ID, all)

	var rc *billing.ReferentialConflictError
	require.True(t, errors.As(err, &rc))
	assert.Equal(t, 3, rc.BlockingCount)
	assert.Equal(t, billing.EntityLocation, rc.Kind)
	assert.Equal(t, billing.KindReferentialConflict, billing.KindOf(err))

	assert.NoError(t, billing.CheckDelete(billing.EntityLocation, "loc-unused", all))
}

func TestCanDelete_InterpreterNeverBlocked(t *testing.T) {
	check := billing.CanDelete(billing.EntityInterpreter, ana.ID, fixture().Assignments)
	assert.True(t, check.Allowed)
}

func TestCanDelete_UnknownKind(t *testing.T) {
	assert.False(t, billing.CanDelete("planet", "x", nil).Allowed)
}

func TestDetachInterpreter(t *testing.T) {
	all := fixture().Assignments

	detached := billing.DetachInterpreter(ben.ID, all)

	assert.Equal(t, []string{"a3", "a4"}, ids(detached))
	for _, a := range detached {
		assert.Nil(t, a.Interpreter)
	}
	// originals untouched
	assert.True(t, all[2].HasInterpreter(ben.ID))
}

func TestGuard_SeesFreshAssignments(t *testing.T) {
	// GIVEN: A working set with an unreferenced location
	ws := billing.NewWorkingSet()
	ws.ReplaceLocations([]billing.Location{clinic, court})
	guard := billing.NewGuard(ws)
	require.True(t, guard.CanDelete(billing.EntityLocation, court.ID).Allowed)

	// WHEN: An assignment at that location is added
	ws.PutAssignment(job("new", medical, court, nil, at(1, 9, 0), 30))

	// THEN: The guard blocks immediately
	err := guard.CheckDelete(billing.EntityLocation, court.ID)
	assert.ErrorIs(t, err, billing.ErrReferentialConflict)
}
