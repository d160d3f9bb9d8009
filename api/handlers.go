/*
handlers.go - HTTP request handlers

PURPOSE:
  Serves the billing store contract: list and save the four collections,
  flip payment status, guarded deletes, and the read-only report views
  (dashboard, statistics, summary/detailed/invoice reports).

  Every view is computed from a fresh snapshot of the repository, so
  reports always price with the current live rates.

HANDLER PATTERN:
  Each handler follows:
  1. Parse and decode the request (wire DTOs)
  2. Call the repository / billing engine
  3. Encode the result as wire DTOs
  4. Map errors to status codes in one place (statusFor)

ERROR RESPONSES:
  400  InvalidRange, MissingField, MalformedRecord
  404  NotFound
  409  ReferentialConflict, body carries blockingCount
  502  RemoteUnavailable
  500  anything else

SEE ALSO:
  - server.go: Route definitions
  - wire/: JSON shapes
  - billing/store.go: Repository interface
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/wire"
)

// Resetter is implemented by repositories that can wipe all data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler handles HTTP requests.
type Handler struct {
	Repo billing.Repository

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(repo billing.Repository) *Handler {
	return &Handler{Repo: repo}
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// ListCategories returns all categories.
// GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, "Failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromCategories(cats))
}

// ListLocations returns all locations.
// GET /api/locations
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Repo.ListLocations(r.Context())
	if err != nil {
		writeError(w, "Failed to list locations", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromLocations(locs))
}

// ListInterpreters returns all interpreters with their assignment counts.
// GET /api/interpreters
func (h *Handler) ListInterpreters(w http.ResponseWriter, r *http.Request) {
	ins, err := h.Repo.ListInterpreters(r.Context())
	if err != nil {
		writeError(w, "Failed to list interpreters", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromInterpreters(ins))
}

// ListAssignments returns assignments, optionally filtered.
// GET /api/assignments?interpreterId=&startDate=&endDate=&q=
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, "Invalid filter", err)
		return
	}
	all, err := h.Repo.ListAssignments(r.Context())
	if err != nil {
		writeError(w, "Failed to list assignments", err)
		return
	}
	out := billing.Search(billing.FilterAssignments(all, filter), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, wire.FromAssignments(out))
}

// =============================================================================
// ASSIGNMENT WRITES
// =============================================================================

// SaveAssignment inserts or replaces an assignment by id.
// POST /api/assignments
func (h *Handler) SaveAssignment(w http.ResponseWriter, r *http.Request) {
	var req wire.Assignment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", malformedBody(billing.CollectionAssignments, err))
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	a, err := wire.DecodeAssignment(req)
	if err != nil {
		writeError(w, "Invalid assignment", err)
		return
	}
	if _, err := h.Repo.SaveAssignment(r.Context(), a); err != nil {
		writeError(w, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: a.ID})
}

// UpdatePaymentStatus flips only the paid flag.
// POST /api/assignments/payment-status
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req wire.PaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", malformedBody(billing.CollectionAssignments, err))
		return
	}
	if req.ID == "" {
		writeError(w, "Invalid request", &billing.MissingFieldError{Field: "id"})
		return
	}
	if err := h.Repo.SetPaidStatus(r.Context(), req.ID, req.Paid); err != nil {
		writeError(w, "Failed to update payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: req.ID})
}

// =============================================================================
// REFERENCE DATA WRITES
// =============================================================================

// SaveCategory upserts a category. The minute rate is derived here.
// POST /api/categories
func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	var req wire.Category
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", malformedBody(billing.CollectionCategories, err))
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	c, err := wire.DecodeCategory(req)
	if err != nil {
		writeError(w, "Invalid category", err)
		return
	}
	if err := h.Repo.SaveCategory(r.Context(), c); err != nil {
		writeError(w, "Failed to save category", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: c.ID})
}

// DeleteCategory removes a category no assignment references.
// DELETE /api/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := h.Repo.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, "Failed to delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: id})
}

// SaveLocation upserts a location.
// POST /api/locations
func (h *Handler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req wire.Location
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", malformedBody(billing.CollectionLocations, err))
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	l, err := wire.DecodeLocation(req)
	if err != nil {
		writeError(w, "Invalid location", err)
		return
	}
	if err := h.Repo.SaveLocation(r.Context(), l); err != nil {
		writeError(w, "Failed to save location", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: l.ID})
}

// DeleteLocation removes a location no assignment references.
// DELETE /api/locations/{id}
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := h.Repo.DeleteLocation(r.Context(), id); err != nil {
		writeError(w, "Failed to delete location", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: id})
}

// SaveInterpreter upserts an interpreter.
// POST /api/interpreters
func (h *Handler) SaveInterpreter(w http.ResponseWriter, r *http.Request) {
	var req wire.Interpreter
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", malformedBody(billing.CollectionInterpreters, err))
		return
	}
	if req.ID == "" {
		req.ID = billing.NewID()
	}
	in, err := wire.DecodeInterpreter(req)
	if err != nil {
		writeError(w, "Invalid interpreter", err)
		return
	}
	if err := h.Repo.SaveInterpreter(r.Context(), in); err != nil {
		writeError(w, "Failed to save interpreter", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: in.ID})
}

// DeleteInterpreter removes an interpreter and detaches it from its
// assignments.
// DELETE /api/interpreters/{id}
func (h *Handler) DeleteInterpreter(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := h.Repo.DeleteInterpreter(r.Context(), id); err != nil {
		writeError(w, "Failed to delete interpreter", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SaveResponse{Success: true, ID: id})
}

// =============================================================================
// VIEWS
// =============================================================================

// GetDashboard returns totals, recent jobs and top locations.
// GET /api/dashboard?interpreterId=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := billing.LoadSnapshot(r.Context(), h.Repo)
	if err != nil {
		writeError(w, "Failed to load data", err)
		return
	}
	d, err := billing.NewEngine(snap).Dashboard(snap.Assignments, r.URL.Query().Get("interpreterId"))
	if err != nil {
		writeError(w, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromDashboard(d))
}

// GetStatistics returns the category/location breakdowns and leaderboards.
// GET /api/statistics?interpreterId=
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	snap, err := billing.LoadSnapshot(r.Context(), h.Repo)
	if err != nil {
		writeError(w, "Failed to load data", err)
		return
	}
	s, err := billing.NewEngine(snap).Statistics(snap.Assignments, r.URL.Query().Get("interpreterId"))
	if err != nil {
		writeError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromStatistics(s))
}

// GetReport builds a summary, detailed or invoice report.
// GET /api/reports/{kind}?interpreterId=&startDate=&endDate=
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, "Invalid report request", err)
		return
	}
	snap, err := billing.LoadSnapshot(r.Context(), h.Repo)
	if err != nil {
		writeError(w, "Failed to load data", err)
		return
	}
	rep, err := billing.NewEngine(snap).Generate(req, snap.Assignments)
	if err != nil {
		writeError(w, "Failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromReport(rep))
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Repo.(Resetter)
	if !ok {
		return errors.New("repository does not support reset")
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	h.setScenario("")
	return nil
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func parseFilter(r *http.Request) (billing.Filter, error) {
	q := r.URL.Query()
	f := billing.Filter{InterpreterID: q.Get("interpreterId")}
	var err error
	if f.StartDate, err = optionalDate(q.Get("startDate"), "startDate"); err != nil {
		return billing.Filter{}, err
	}
	if f.EndDate, err = optionalDate(q.Get("endDate"), "endDate"); err != nil {
		return billing.Filter{}, err
	}
	return f, nil
}

func optionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := wire.ParseDate(s)
	if err != nil {
		return nil, &billing.MalformedRecordError{Field: field, Err: err}
	}
	return &t, nil
}

func parseReportRequest(r *http.Request) (billing.ReportRequest, error) {
	kind, err := billing.ParseReportKind(chi.URLParam(r, "kind"))
	if err != nil {
		return billing.ReportRequest{}, err
	}
	q := r.URL.Query()
	req := billing.ReportRequest{Kind: kind, InterpreterID: q.Get("interpreterId")}
	start, err := optionalDate(q.Get("startDate"), "startDate")
	if err != nil {
		return billing.ReportRequest{}, err
	}
	end, err := optionalDate(q.Get("endDate"), "endDate")
	if err != nil {
		return billing.ReportRequest{}, err
	}
	if start != nil {
		req.StartDate = *start
	}
	if end != nil {
		req.EndDate = *end
	}
	return req, nil
}

// pathID returns the {id} route parameter, unescaped.
func pathID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if raw, err := url.PathUnescape(id); err == nil {
		return raw
	}
	return id
}

func malformedBody(coll billing.Collection, err error) error {
	return &billing.MalformedRecordError{Collection: coll, Err: err}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	switch billing.KindOf(err) {
	case billing.KindInvalidRange, billing.KindMissingField, billing.KindMalformedRecord:
		return http.StatusBadRequest
	case billing.KindNotFound:
		return http.StatusNotFound
	case billing.KindReferentialConflict:
		return http.StatusConflict
	case billing.KindRemoteUnavailable, billing.KindPartialSync:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, message string, err error) {
	resp := wire.ErrorResponse{
		Error: fmt.Sprintf("%s: %v", message, err),
		Kind:  string(billing.KindOf(err)),
	}
	var rc *billing.ReferentialConflictError
	if errors.As(err, &rc) {
		n := rc.BlockingCount
		resp.BlockingCount = &n
	}
	writeJSON(w, statusFor(err), resp)
}
