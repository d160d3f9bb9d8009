package main

import (
	"context"
	"net/http"
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

// newServer serves a store holding one unpaid job. When failAssignments is
// set, listing assignments returns 500.
func newServer(t *testing.T, failAssignments bool) (*reconcile.Coordinator, *store.Memory) {
	t.Helper()
	medical := billing.NewCategory("cat-med", "Medical", decimal.NewFromInt(90), decimal.Zero)
	clinic := billing.Location{ID: "loc-clinic", Name: "Clinic"}
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := store.NewMemory()
	m.Seed(billing.Snapshot{
		Categories: []billing.Category{medical},
		Locations:  []billing.Location{clinic},
		Assignments: []billing.Assignment{{
			ID: "a1", ClientName: "ACME",
			Location: clinic.Ref(), Category: medical.Ref(),
			StartTime: start, EndTime: start.Add(time.Hour),
		}},
	})

	router := api.NewRouter(api.NewHandler(m), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failAssignments && r.Method == http.MethodGet && r.URL.Path == "/api/assignments" {
			http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
			return
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	coord := reconcile.New(remote.New(srv.URL+"/api", time.Second), billing.NewWorkingSet(), reconcile.Config{})
	t.Cleanup(coord.Close)
	return coord, m
}

func TestRun_Pay(t *testing.T) {
	coord, m := newServer(t, false)

	err := run(context.Background(), coord, options{interpreter: billing.AllInterpreters}, []string{"pay", "a1"})

	require.NoError(t, err)
	all, _ := m.ListAssignments(context.Background())
	assert.True(t, all[0].Paid)
}

func TestRun_PayReportsMissingLocalRecord(t *testing.T) {
	// GIVEN: The assignments collection fails to load
	coord, m := newServer(t, true)

	// WHEN: A job is marked paid
	err := run(context.Background(), coord, options{interpreter: billing.AllInterpreters}, []string{"pay", "a1"})

	// THEN: The store accepted it, but the command reports the job missing
	assert.True(t, billing.IsNotFound(err))
	all, _ := m.ListAssignments(context.Background())
	assert.True(t, all[0].Paid)
}

func TestRun_UnknownCommand(t *testing.T) {
	coord, _ := newServer(t, false)

	err := run(context.Background(), coord, options{}, []string{"frobnicate"})

	assert.ErrorContains(t, err, "unknown command")
}
