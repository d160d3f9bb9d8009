package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/wire"
)

func TestListScenarios(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/scenarios", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]ScenarioDTO](t, resp)
	assert.Len(t, got, len(scenarios))
}

func TestLoadScenario_AllLoad(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			srv, _ := newTestServer(t)

			resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})

			require.Equal(t, http.StatusOK, resp.StatusCode)
			out := decode[LoadScenarioResponse](t, resp)
			assert.Equal(t, "loaded", out.Status)
			assert.Positive(t, out.Assignments)

			resp = do(t, http.MethodGet, srv.URL+"/api/scenarios/current", nil)
			cur := decode[ScenarioDTO](t, resp)
			assert.Equal(t, s.ID, cur.ID)
		})
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadScenario_ReplacesExistingData(t *testing.T) {
	// GIVEN: A server seeded with its own fixture
	srv, m := newTestServer(t, job("a1", 3, 60))

	// WHEN: The rate-change scenario is loaded
	resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "rate-change"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN: Only the scenario data remains, priced at the raised rate
	snap, err := billing.LoadSnapshot(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "job-01", snap.Assignments[0].ID)
	total, err := billing.NewEngine(snap).Calculator().TotalEarnings(snap.Assignments)
	require.NoError(t, err)
	assert.Equal(t, "180.00", total.StringFixed(2))
}

func TestLoadScenario_RetiredCategoryPricedFromSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "retired-category"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/statistics", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decode[wire.Statistics](t, resp)
	// 60 min at 60/h live + 120 min at 75/h snapshot
	assert.Equal(t, 210.0, s.TotalEarnings)
	assert.Len(t, s.ByCategory, 2)
}

func TestLoadScenario_UnassignedDetaches(t *testing.T) {
	srv, m := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "unassigned"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	all, err := m.ListAssignments(context.Background())

	require.NoError(t, err)
	detached := 0
	for _, a := range all {
		if a.Interpreter == nil {
			detached++
		}
	}
	assert.Equal(t, 2, detached)
}

func TestResetDatabase(t *testing.T) {
	srv, m := newTestServer(t, job("a1", 3, 60))

	resp := do(t, http.MethodPost, srv.URL+"/api/scenarios/reset", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	all, _ := m.ListAssignments(context.Background())
	assert.Empty(t, all)
}
