/*
scenarios.go - Demo data loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the repository with realistic
  billing data. Each scenario shows one behavior of the engine.

AVAILABLE SCENARIOS:
  sample-month:      A month of jobs for three interpreters, partly paid
  rate-change:       A category re-rated after its job was booked
  retired-category:  A job whose category no longer exists (snapshot pricing)
  unassigned:        Jobs left without an interpreter after a delete

HOW SCENARIOS WORK:
 1. Reset the repository (clear all data)
 2. Save categories, locations, interpreters
 3. Save assignments with snapshots of those records
 4. Optionally edit or delete reference data afterwards

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "rate-change"}

NOTE:
  Scenarios reset the repository. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/interpreter-billing/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "sample-month",
		Name:        "Sample Month",
		Description: "March jobs for three interpreters across three categories, some paid",
	},
	{
		ID:          "rate-change",
		Name:        "Rate Change",
		Description: "A 90 minute Medical job booked at 90/h, category later raised to 120/h",
	},
	{
		ID:          "retired-category",
		Name:        "Retired Category",
		Description: "A job whose category was removed; priced from its snapshot",
	},
	{
		ID:          "unassigned",
		Name:        "Unassigned Jobs",
		Description: "An interpreter deleted after booking; their jobs stay, detached",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the repository and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", &billing.MalformedRecordError{Err: err})
		return
	}
	out, err := h.ApplyScenario(r.Context(), req.ScenarioID)
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ApplyScenario resets the repository and loads scenario id.
func (h *Handler) ApplyScenario(ctx context.Context, id string) (LoadScenarioResponse, error) {
	var load func(context.Context, *seeder) error
	switch id {
	case "sample-month":
		load = loadSampleMonth
	case "rate-change":
		load = loadRateChange
	case "retired-category":
		load = loadRetiredCategory
	case "unassigned":
		load = loadUnassigned
	default:
		return LoadScenarioResponse{}, &billing.MissingFieldError{Field: "scenario_id"}
	}

	if err := h.reset(ctx); err != nil {
		return LoadScenarioResponse{}, err
	}
	if err := load(ctx, &seeder{repo: h.Repo}); err != nil {
		return LoadScenarioResponse{}, err
	}
	h.setScenario(id)

	snap, err := billing.LoadSnapshot(ctx, h.Repo)
	if err != nil {
		return LoadScenarioResponse{}, err
	}
	return LoadScenarioResponse{
		Status:       "loaded",
		Scenario:     id,
		Assignments:  len(snap.Assignments),
		Interpreters: len(snap.Interpreters),
	}, nil
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder writes through the repository and stops at the first error.
type seeder struct {
	repo billing.Repository
	err  error
}

func (s *seeder) category(ctx context.Context, id, name string, hourly, travel string) billing.Category {
	c := billing.NewCategory(id, name, decimal.RequireFromString(hourly), decimal.RequireFromString(travel))
	if s.err == nil {
		s.err = s.repo.SaveCategory(ctx, c)
	}
	return c
}

func (s *seeder) location(ctx context.Context, l billing.Location) billing.Location {
	if s.err == nil {
		s.err = s.repo.SaveLocation(ctx, l)
	}
	return l
}

func (s *seeder) interpreter(ctx context.Context, in billing.Interpreter) billing.Interpreter {
	if s.err == nil {
		s.err = s.repo.SaveInterpreter(ctx, in)
	}
	return in
}

// job books an assignment starting at day/hour in March 2025.
func (s *seeder) job(ctx context.Context, id, client string, c billing.Category, l billing.Location,
	in *billing.Interpreter, day, hour, minutes int, paid bool, km string) {
	if s.err != nil {
		return
	}
	start := time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
	a := billing.Assignment{
		ID:             id,
		ClientName:     client,
		Location:       l.Ref(),
		Category:       c.Ref(),
		StartTime:      start,
		EndTime:        start.Add(time.Duration(minutes) * time.Minute),
		Paid:           paid,
		TravelDistance: decimal.RequireFromString(km),
	}
	if in != nil {
		a.Interpreter = in.Ref()
		if len(in.Languages) > 0 {
			a.Language = in.Languages[0]
		}
	}
	_, s.err = s.repo.SaveAssignment(ctx, a)
}

func standardLocations(ctx context.Context, s *seeder) (clinic, court, school billing.Location) {
	clinic = s.location(ctx, billing.Location{ID: "loc-clinic", Name: "St. Mary Clinic", Address: "12 Harbour Rd",
		Coordinates: billing.Coordinates{Longitude: -0.1276, Latitude: 51.5072}})
	court = s.location(ctx, billing.Location{ID: "loc-court", Name: "County Court", Address: "1 Justice Sq",
		Coordinates: billing.Coordinates{Longitude: -0.1195, Latitude: 51.5136}})
	school = s.location(ctx, billing.Location{ID: "loc-school", Name: "Riverside School", Address: "40 Mill Ln"})
	return clinic, court, school
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSampleMonth(ctx context.Context, s *seeder) error {
	medical := s.category(ctx, "cat-medical", "Medical", "90", "0.30")
	legal := s.category(ctx, "cat-legal", "Legal", "60", "0.25")
	community := s.category(ctx, "cat-community", "Community", "45", "0.20")
	clinic, court, school := standardLocations(ctx, s)

	ana := s.interpreter(ctx, billing.Interpreter{ID: "int-ana", Name: "Ana Ruiz", Email: "ana@example.com", Languages: []string{"es", "pt"}})
	ben := s.interpreter(ctx, billing.Interpreter{ID: "int-ben", Name: "Ben Okafor", Email: "ben@example.com", Languages: []string{"fr"}})
	cleo := s.interpreter(ctx, billing.Interpreter{ID: "int-cleo", Name: "Cleo Haddad", Phone: "+44 20 7946 0000", Languages: []string{"ar", "fr"}})

	s.job(ctx, "job-01", "Harbour Health", medical, clinic, &ana, 3, 9, 90, true, "8")
	s.job(ctx, "job-02", "Harbour Health", medical, clinic, &ana, 4, 14, 60, true, "8")
	s.job(ctx, "job-03", "Crown Prosecution", legal, court, &ana, 6, 10, 150, false, "3.5")
	s.job(ctx, "job-04", "Riverside PTA", community, school, &ben, 7, 18, 75, true, "0")
	s.job(ctx, "job-05", "Crown Prosecution", legal, court, &ben, 10, 9, 240, false, "3.5")
	s.job(ctx, "job-06", "Harbour Health", medical, clinic, &cleo, 12, 11, 45, false, "12")
	s.job(ctx, "job-07", "Family Court", legal, court, &cleo, 13, 13, 120, true, "12")
	s.job(ctx, "job-08", "Harbour Health", medical, clinic, &ben, 17, 8, 30, false, "8")
	s.job(ctx, "job-09", "Riverside PTA", community, school, &ana, 19, 17, 60, false, "0")
	s.job(ctx, "job-10", "Harbour Health", medical, clinic, &cleo, 24, 15, 105, false, "12")
	s.job(ctx, "job-11", "Family Court", legal, court, &ana, 27, 9, 180, false, "3.5")
	s.job(ctx, "job-12", "Walk-in", community, clinic, nil, 28, 10, 40, false, "0")
	return s.err
}

func loadRateChange(ctx context.Context, s *seeder) error {
	medical := s.category(ctx, "cat-medical", "Medical", "90", "0")
	clinic, _, _ := standardLocations(ctx, s)
	ana := s.interpreter(ctx, billing.Interpreter{ID: "int-ana", Name: "Ana Ruiz", Languages: []string{"es"}})

	s.job(ctx, "job-01", "Harbour Health", medical, clinic, &ana, 10, 9, 90, false, "0")

	// Raise the live rate; the booked job keeps its 90/h snapshot.
	if s.err == nil {
		s.err = s.repo.SaveCategory(ctx, medical.WithHourlyRate(decimal.NewFromInt(120)))
	}
	return s.err
}

func loadRetiredCategory(ctx context.Context, s *seeder) error {
	legal := s.category(ctx, "cat-legal", "Legal", "60", "0.25")
	_, court, _ := standardLocations(ctx, s)
	ben := s.interpreter(ctx, billing.Interpreter{ID: "int-ben", Name: "Ben Okafor", Languages: []string{"fr"}})

	// Never saved as a live category.
	retired := billing.NewCategory("cat-conference", "Conference (retired)", decimal.NewFromInt(75), decimal.Zero)

	s.job(ctx, "job-01", "Crown Prosecution", legal, court, &ben, 5, 9, 60, false, "3.5")
	s.job(ctx, "job-02", "Trade Expo", retired, court, &ben, 8, 9, 120, false, "0")
	return s.err
}

func loadUnassigned(ctx context.Context, s *seeder) error {
	medical := s.category(ctx, "cat-medical", "Medical", "90", "0.30")
	clinic, _, _ := standardLocations(ctx, s)
	ana := s.interpreter(ctx, billing.Interpreter{ID: "int-ana", Name: "Ana Ruiz", Languages: []string{"es"}})
	dan := s.interpreter(ctx, billing.Interpreter{ID: "int-dan", Name: "Dan Weiss", Languages: []string{"de"}})

	s.job(ctx, "job-01", "Harbour Health", medical, clinic, &ana, 3, 9, 60, false, "8")
	s.job(ctx, "job-02", "Harbour Health", medical, clinic, &dan, 4, 9, 60, false, "8")
	s.job(ctx, "job-03", "Harbour Health", medical, clinic, &dan, 5, 9, 30, false, "8")

	if s.err == nil {
		s.err = s.repo.DeleteInterpreter(ctx, dan.ID)
	}
	return s.err
}
