/*
Package remote is the HTTP client for the billing store.

PURPOSE:
  Implements reconcile.Remote against the JSON contract served by the api
  package (or any server speaking the same contract). Every call is bounded
  by the client timeout and by the caller's context.

ERROR MAPPING:
  transport failure, timeout  -> RemoteError{Status: 0}   (RemoteUnavailable)
  404                         -> RemoteError{Status: 404} (NotFound)
  409 with blockingCount      -> ReferentialConflictError
  other non-2xx               -> RemoteError{Status: n}   (RemoteUnavailable)
  undecodable 2xx body        -> MalformedRecordError

SEE ALSO:
  - wire/wire.go: shapes and codec
  - reconcile/coordinator.go: the only caller
*/
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/wire"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 5 * time.Second

// Client talks to a billing store over HTTP.
type Client struct {
	BaseURL string
	http    *resty.Client
}

// New returns a client for baseURL. A non-positive timeout means DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	return &Client{BaseURL: baseURL, http: c}
}

// =============================================================================
// READS
// =============================================================================

// FetchCategories lists every category.
func (c *Client) FetchCategories(ctx context.Context) ([]billing.Category, error) {
	var out []wire.Category
	if err := c.get(ctx, "/categories", billing.CollectionCategories, &out); err != nil {
		return nil, err
	}
	return wire.DecodeCategories(out)
}

// FetchLocations lists every location.
func (c *Client) FetchLocations(ctx context.Context) ([]billing.Location, error) {
	var out []wire.Location
	if err := c.get(ctx, "/locations", billing.CollectionLocations, &out); err != nil {
		return nil, err
	}
	return wire.DecodeLocations(out)
}

// FetchInterpreters lists every interpreter with its assignment count.
func (c *Client) FetchInterpreters(ctx context.Context) ([]billing.Interpreter, error) {
	var out []wire.Interpreter
	if err := c.get(ctx, "/interpreters", billing.CollectionInterpreters, &out); err != nil {
		return nil, err
	}
	return wire.DecodeInterpreters(out)
}

// FetchAssignments lists every assignment.
func (c *Client) FetchAssignments(ctx context.Context) ([]billing.Assignment, error) {
	var out []wire.Assignment
	if err := c.get(ctx, "/assignments", billing.CollectionAssignments, &out); err != nil {
		return nil, err
	}
	return wire.DecodeAssignments(out)
}

func (c *Client) get(ctx context.Context, path string, coll billing.Collection, into any) error {
	r, err := c.http.R().SetContext(ctx).SetError(&wire.ErrorResponse{}).Get(path)
	if err != nil {
		return &billing.RemoteError{Op: "GET " + path, Err: err}
	}
	if r.IsError() {
		return responseError("GET "+path, r)
	}
	if err := json.Unmarshal(r.Body(), into); err != nil {
		return &billing.MalformedRecordError{Collection: coll, Err: err}
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// UpsertAssignment sends a and returns the id the store recorded.
func (c *Client) UpsertAssignment(ctx context.Context, a billing.Assignment) (string, error) {
	var resp wire.SaveResponse
	if err := c.send(ctx, http.MethodPost, "/assignments", wire.FromAssignment(a), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return a.ID, nil
	}
	return resp.ID, nil
}

// SetPaidStatus updates only the paid flag of assignment id.
func (c *Client) SetPaidStatus(ctx context.Context, id string, paid bool) error {
	return c.send(ctx, http.MethodPost, "/assignments/payment-status",
		wire.PaymentStatusRequest{ID: id, Paid: paid}, nil)
}

// SaveCategory upserts a category.
func (c *Client) SaveCategory(ctx context.Context, cat billing.Category) error {
	return c.send(ctx, http.MethodPost, "/categories", wire.FromCategory(cat), nil)
}

// DeleteCategory deletes a category; the store refuses while it is referenced.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.remove(ctx, "categories", id)
}

// SaveLocation upserts a location.
func (c *Client) SaveLocation(ctx context.Context, l billing.Location) error {
	return c.send(ctx, http.MethodPost, "/locations", wire.FromLocation(l), nil)
}

// DeleteLocation deletes a location; the store refuses while it is referenced.
func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	return c.remove(ctx, "locations", id)
}

// SaveInterpreter upserts an interpreter.
func (c *Client) SaveInterpreter(ctx context.Context, in billing.Interpreter) error {
	return c.send(ctx, http.MethodPost, "/interpreters", wire.FromInterpreter(in), nil)
}

// DeleteInterpreter deletes an interpreter; the store detaches its assignments.
func (c *Client) DeleteInterpreter(ctx context.Context, id string) error {
	return c.remove(ctx, "interpreters", id)
}

// remove issues DELETE /{resource}/{id} with id path-escaped.
func (c *Client) remove(ctx context.Context, resource, id string) error {
	req := c.http.R().SetPathParam("id", id)
	return c.execute(ctx, req, http.MethodDelete, "/"+resource+"/{id}", nil, nil)
}

func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	return c.execute(ctx, c.http.R(), method, path, body, result)
}

func (c *Client) execute(ctx context.Context, req *resty.Request, method, path string, body, result any) error {
	req.SetContext(ctx).SetError(&wire.ErrorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	op := method + " " + path
	r, err := req.Execute(method, path)
	if err != nil {
		return &billing.RemoteError{Op: op, Err: err}
	}
	if r.IsError() {
		return responseError(op, r)
	}
	return nil
}

// responseError maps a non-2xx response onto the billing error taxonomy.
func responseError(op string, r *resty.Response) error {
	var body *wire.ErrorResponse
	if e, ok := r.Error().(*wire.ErrorResponse); ok {
		body = e
	}
	if r.StatusCode() == http.StatusConflict && body != nil && body.BlockingCount != nil {
		kind, id := entityFromPath(r.Request.URL)
		return &billing.ReferentialConflictError{Kind: kind, ID: id, BlockingCount: *body.BlockingCount}
	}
	msg := r.Status()
	if body != nil && body.Error != "" {
		msg = body.Error
	}
	return &billing.RemoteError{Op: op, Status: r.StatusCode(), Msg: msg}
}

// entityFromPath reads ".../categories/{id}" style paths.
func entityFromPath(rawURL string) (billing.EntityKind, string) {
	parts := strings.Split(strings.TrimRight(rawURL, "/"), "/")
	if len(parts) < 2 {
		return "", ""
	}
	id := parts[len(parts)-1]
	if raw, err := url.PathUnescape(id); err == nil {
		id = raw
	}
	switch parts[len(parts)-2] {
	case "categories":
		return billing.EntityCategory, id
	case "locations":
		return billing.EntityLocation, id
	case "interpreters":
		return billing.EntityInterpreter, id
	}
	return "", id
}
