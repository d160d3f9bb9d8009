package remote_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/api"
	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/billing/store"
	"github.com/warp/interpreter-billing/reconcile"
	"github.com/warp/interpreter-billing/remote"
)

// TestCoordinatorOverHTTP drives the coordinator through the HTTP client
// against a real router backed by the memory store.
func TestCoordinatorOverHTTP(t *testing.T) {
	// GIVEN: A server with one category, location and interpreter
	medical := billing.NewCategory("cat-med", "Medical", decimal.NewFromInt(90), decimal.Zero)
	clinic := billing.Location{ID: "loc-clinic", Name: "Clinic"}
	ana := billing.Interpreter{ID: "int-ana", Name: "Ana", Languages: []string{"es"}}
	m := store.NewMemory()
	m.Seed(billing.Snapshot{
		Categories:   []billing.Category{medical},
		Locations:    []billing.Location{clinic},
		Interpreters: []billing.Interpreter{ana},
	})
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(m), nil))
	defer srv.Close()

	ctx := context.Background()
	c := reconcile.New(remote.New(srv.URL+"/api", time.Second), billing.NewWorkingSet(), reconcile.Config{})
	_, err := c.LoadAll(ctx)
	require.NoError(t, err)

	// WHEN: A job is booked, paid, and the category re-rated
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	saved, err := c.Upsert(ctx, billing.Assignment{
		ClientName:  "ACME",
		Location:    clinic.Ref(),
		Category:    medical.Ref(),
		Interpreter: ana.Ref(),
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, c.SetPaidStatus(ctx, saved.ID, true))
	_, err = c.SaveCategory(ctx, medical.WithHourlyRate(decimal.NewFromInt(120)))
	require.NoError(t, err)

	// THEN: A fresh load sees the same state the coordinator holds
	fresh := reconcile.New(remote.New(srv.URL+"/api", time.Second), billing.NewWorkingSet(), reconcile.Config{})
	snap, err := fresh.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1)
	assert.True(t, snap.Assignments[0].Paid)
	assert.Equal(t, 1, snap.Interpreters[0].AssignmentCount)
	total, err := billing.NewEngine(snap).Calculator().TotalEarnings(snap.Assignments)
	require.NoError(t, err)
	assert.Equal(t, "180.00", total.StringFixed(2))

	// AND: A referenced category cannot be deleted, server side either
	err = fresh.DeleteCategory(ctx, medical.ID)
	var rc *billing.ReferentialConflictError
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, 1, rc.BlockingCount)
	err = remote.New(srv.URL+"/api", time.Second).DeleteCategory(ctx, medical.ID)
	require.ErrorAs(t, err, &rc)
	assert.Equal(t, 1, rc.BlockingCount)

	// AND: Removing the interpreter detaches the job everywhere
	require.NoError(t, c.RemoveInterpreter(ctx, ana.ID))
	snap, err = fresh.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Interpreters)
	assert.Nil(t, snap.Assignments[0].Interpreter)
}

func TestDeleteOverHTTP_IDWithSlash(t *testing.T) {
	// GIVEN: A location whose id contains a slash
	m := store.NewMemory()
	m.Seed(billing.Snapshot{Locations: []billing.Location{{ID: "loc/north wing", Name: "North"}}})
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(m), nil))
	defer srv.Close()

	// WHEN: It is deleted through the client
	err := remote.New(srv.URL+"/api", time.Second).DeleteLocation(context.Background(), "loc/north wing")

	// THEN: The server resolved the same id
	require.NoError(t, err)
	locs, err := m.ListLocations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, locs)
}
