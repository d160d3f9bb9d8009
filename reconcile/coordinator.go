/*
coordinator.go - Keeps the in-memory working set consistent with the remote store

PURPOSE:
  The Coordinator is the only writer of a billing.WorkingSet during normal
  operation. It loads the four collections, pushes edits to the remote store
  and applies them locally only after the store accepted them.

STATE MACHINE (per collection):
  Uninitialized -> Loading -> Ready | Stale
  Ready | Stale -> Loading           (explicit resync)

  A failed load marks the collection Stale and keeps whatever the working
  set held before. Callers always get the last known good snapshot.

CONCURRENCY:
  - LoadAll calls issued while one is in flight share its result
    (singleflight), so a slow load can never overwrite a fresher one.
  - Operations on the same collection are serialized by a per-collection
    mutex. Different collections do not block each other.
  - No optimistic concurrency across sessions: the last upsert wins.

TIMEOUTS:
  Every remote call is bounded by Config.RemoteTimeout (default 5s).

SHUTDOWN:
  After Close, results of calls still in flight are discarded and the
  working set is left untouched.

SEE ALSO:
  - billing/workingset.go: the store object being synchronized
  - billing/integrity.go: delete checks run before any remote delete
  - remote/client.go: HTTP implementation of Remote
*/
package reconcile

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/warp/interpreter-billing/billing"
)

// ErrClosed is returned for results that arrive after Close.
var ErrClosed = errors.New("coordinator closed")

// DefaultRemoteTimeout bounds each remote call.
const DefaultRemoteTimeout = 5 * time.Second

// Remote is the persistent store the coordinator synchronizes with.
type Remote interface {
	FetchCategories(ctx context.Context) ([]billing.Category, error)
	FetchLocations(ctx context.Context) ([]billing.Location, error)
	FetchInterpreters(ctx context.Context) ([]billing.Interpreter, error)
	FetchAssignments(ctx context.Context) ([]billing.Assignment, error)

	// UpsertAssignment returns the id the store recorded.
	UpsertAssignment(ctx context.Context, a billing.Assignment) (string, error)
	SetPaidStatus(ctx context.Context, id string, paid bool) error

	SaveCategory(ctx context.Context, c billing.Category) error
	DeleteCategory(ctx context.Context, id string) error
	SaveLocation(ctx context.Context, l billing.Location) error
	DeleteLocation(ctx context.Context, id string) error
	SaveInterpreter(ctx context.Context, in billing.Interpreter) error
	DeleteInterpreter(ctx context.Context, id string) error
}

// =============================================================================
// STATE
// =============================================================================

// State is the sync state of one collection.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateStale         State = "stale"
)

// Status describes one collection.
type Status struct {
	State    State
	LoadedAt time.Time // last successful load, zero if never
	Err      error     // last load failure, nil after a success
}

// Config tunes the coordinator.
type Config struct {
	RemoteTimeout time.Duration
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator synchronizes a WorkingSet with a Remote.
type Coordinator struct {
	remote Remote
	set    *billing.WorkingSet
	guard  *billing.Guard
	cfg    Config
	now    func() time.Time

	group singleflight.Group
	locks map[billing.Collection]*sync.Mutex

	mu     sync.Mutex // guards status and closed
	status map[billing.Collection]Status
	closed bool
}

// New returns a coordinator over ws. Nothing is loaded until LoadAll.
func New(remote Remote, ws *billing.WorkingSet, cfg Config) *Coordinator {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}
	c := &Coordinator{
		remote: remote,
		set:    ws,
		guard:  billing.NewGuard(ws),
		cfg:    cfg,
		now:    time.Now,
		locks:  make(map[billing.Collection]*sync.Mutex, len(billing.Collections)),
		status: make(map[billing.Collection]Status, len(billing.Collections)),
	}
	for _, coll := range billing.Collections {
		c.locks[coll] = &sync.Mutex{}
		c.status[coll] = Status{State: StateUninitialized}
	}
	return c
}

// WorkingSet returns the set this coordinator writes to.
func (c *Coordinator) WorkingSet() *billing.WorkingSet { return c.set }

// Status returns the status of one collection.
func (c *Coordinator) Status(coll billing.Collection) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[coll]
}

// State returns the state of one collection.
func (c *Coordinator) State(coll billing.Collection) State {
	return c.Status(coll).State
}

// Close stops the coordinator from applying any further results.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Coordinator) setState(coll billing.Collection, st State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status[coll]
	s.State = st
	switch st {
	case StateReady:
		s.LoadedAt = c.now()
		s.Err = nil
	case StateStale:
		s.Err = err
	}
	c.status[coll] = s
}

// apply runs fn against the working set unless the coordinator is closed.
// Holding c.mu makes Close and apply mutually exclusive.
func (c *Coordinator) apply(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	fn()
	return nil
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.RemoteTimeout)
}

// lock acquires the mutexes of colls in Collections order.
func (c *Coordinator) lock(colls ...billing.Collection) func() {
	var held []*sync.Mutex
	for _, coll := range billing.Collections {
		for _, want := range colls {
			if want == coll {
				m := c.locks[coll]
				m.Lock()
				held = append(held, m)
				break
			}
		}
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// =============================================================================
// LOAD
// =============================================================================

// LoadAll fetches the four collections. Each collection that fails keeps its
// previous contents and is marked Stale; the returned error is then a
// *billing.PartialSyncError. The snapshot is always the current working set.
//
// The shared load ignores cancellation of whichever caller started it; each
// remote call is still bounded by Config.RemoteTimeout. A caller whose ctx
// ends first gets ctx.Err() while the load carries on for the others.
func (c *Coordinator) LoadAll(ctx context.Context) (billing.Snapshot, error) {
	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan("load-all", func() (any, error) {
		return nil, c.loadAll(flight)
	})
	select {
	case res := <-ch:
		if res.Shared {
			log.Printf("[Sync] LoadAll coalesced with in-flight load")
		}
		return c.set.Snapshot(), res.Err
	case <-ctx.Done():
		return c.set.Snapshot(), ctx.Err()
	}
}

func (c *Coordinator) loadAll(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	failed := make(map[billing.Collection]error)
	for _, coll := range billing.Collections {
		if err := c.load(ctx, coll); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			log.Printf("[Sync] Failed to load %s, keeping last known good: %v", coll, err)
			failed[coll] = err
		}
	}
	if len(failed) > 0 {
		return &billing.PartialSyncError{Failed: failed}
	}
	log.Printf("[Sync] Loaded %d categories, %d locations, %d interpreters, %d assignments",
		c.set.Len(billing.CollectionCategories), c.set.Len(billing.CollectionLocations),
		c.set.Len(billing.CollectionInterpreters), c.set.Len(billing.CollectionAssignments))
	return nil
}

// Reload fetches one collection.
func (c *Coordinator) Reload(ctx context.Context, coll billing.Collection) error {
	return c.load(ctx, coll)
}

func (c *Coordinator) load(ctx context.Context, coll billing.Collection) error {
	unlock := c.lock(coll)
	defer unlock()

	c.setState(coll, StateLoading, nil)
	cctx, cancel := c.callCtx(ctx)
	defer cancel()

	var err error
	switch coll {
	case billing.CollectionCategories:
		var xs []billing.Category
		if xs, err = c.remote.FetchCategories(cctx); err == nil {
			err = c.apply(func() { c.set.ReplaceCategories(xs) })
		}
	case billing.CollectionLocations:
		var xs []billing.Location
		if xs, err = c.remote.FetchLocations(cctx); err == nil {
			err = c.apply(func() { c.set.ReplaceLocations(xs) })
		}
	case billing.CollectionInterpreters:
		var xs []billing.Interpreter
		if xs, err = c.remote.FetchInterpreters(cctx); err == nil {
			err = c.apply(func() { c.set.ReplaceInterpreters(xs) })
		}
	case billing.CollectionAssignments:
		var xs []billing.Assignment
		if xs, err = c.remote.FetchAssignments(cctx); err == nil {
			err = c.apply(func() { c.set.ReplaceAssignments(xs) })
		}
	}

	if err != nil {
		c.setState(coll, StateStale, err)
		return err
	}
	c.setState(coll, StateReady, nil)
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// Upsert validates a, sends it to the store and then replaces it by id in
// the working set (or appends it). An empty id gets a fresh one. On failure
// the working set is unchanged.
func (c *Coordinator) Upsert(ctx context.Context, a billing.Assignment) (billing.Assignment, error) {
	if a.ID == "" {
		a.ID = billing.NewID()
	}
	if err := a.Validate(); err != nil {
		return billing.Assignment{}, err
	}

	unlock := c.lock(billing.CollectionAssignments)
	defer unlock()

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	id, err := c.remote.UpsertAssignment(cctx, a)
	if err != nil {
		return billing.Assignment{}, err
	}
	if id != "" {
		a.ID = id
	}
	if err := c.apply(func() { c.set.PutAssignment(a) }); err != nil {
		return billing.Assignment{}, err
	}
	return a, nil
}

// SetPaidStatus updates only the paid flag. The local flag changes only
// after the store accepted the update.
func (c *Coordinator) SetPaidStatus(ctx context.Context, id string, paid bool) error {
	unlock := c.lock(billing.CollectionAssignments)
	defer unlock()

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.SetPaidStatus(cctx, id, paid); err != nil {
		return err
	}
	var local error
	if err := c.apply(func() { local = c.set.SetPaid(id, paid) }); err != nil {
		return err
	}
	return local
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SaveCategory stores c with its minute rate derived from the hourly rate.
func (c *Coordinator) SaveCategory(ctx context.Context, cat billing.Category) (billing.Category, error) {
	if cat.ID == "" {
		cat.ID = billing.NewID()
	}
	cat = cat.Normalize()

	unlock := c.lock(billing.CollectionCategories)
	defer unlock()

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.SaveCategory(cctx, cat); err != nil {
		return billing.Category{}, err
	}
	return cat, c.apply(func() { c.set.PutCategory(cat) })
}

// DeleteCategory refuses while any assignment in the working set references
// the category.
func (c *Coordinator) DeleteCategory(ctx context.Context, id string) error {
	unlock := c.lock(billing.CollectionCategories, billing.CollectionAssignments)
	defer unlock()

	if err := c.guard.CheckDelete(billing.EntityCategory, id); err != nil {
		return err
	}
	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.DeleteCategory(cctx, id); err != nil {
		return err
	}
	return c.apply(func() { c.set.RemoveCategory(id) })
}

// SaveLocation stores l, assigning an id when empty.
func (c *Coordinator) SaveLocation(ctx context.Context, l billing.Location) (billing.Location, error) {
	if l.ID == "" {
		l.ID = billing.NewID()
	}

	unlock := c.lock(billing.CollectionLocations)
	defer unlock()

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.SaveLocation(cctx, l); err != nil {
		return billing.Location{}, err
	}
	return l, c.apply(func() { c.set.PutLocation(l) })
}

// DeleteLocation refuses while any assignment references the location.
func (c *Coordinator) DeleteLocation(ctx context.Context, id string) error {
	unlock := c.lock(billing.CollectionLocations, billing.CollectionAssignments)
	defer unlock()

	if err := c.guard.CheckDelete(billing.EntityLocation, id); err != nil {
		return err
	}
	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.DeleteLocation(cctx, id); err != nil {
		return err
	}
	return c.apply(func() { c.set.RemoveLocation(id) })
}

// SaveInterpreter stores in, assigning an id when empty.
func (c *Coordinator) SaveInterpreter(ctx context.Context, in billing.Interpreter) (billing.Interpreter, error) {
	if in.ID == "" {
		in.ID = billing.NewID()
	}

	unlock := c.lock(billing.CollectionInterpreters)
	defer unlock()

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.SaveInterpreter(cctx, in); err != nil {
		return billing.Interpreter{}, err
	}
	return in, c.apply(func() { c.set.PutInterpreter(in) })
}

// RemoveInterpreter clears the interpreter from its assignments, persisting
// each one, then deletes the interpreter. A failure part way leaves the
// already detached assignments detached on both sides.
func (c *Coordinator) RemoveInterpreter(ctx context.Context, id string) error {
	unlock := c.lock(billing.CollectionInterpreters, billing.CollectionAssignments)
	defer unlock()

	for _, a := range billing.DetachInterpreter(id, c.set.Assignments()) {
		cctx, cancel := c.callCtx(ctx)
		_, err := c.remote.UpsertAssignment(cctx, a)
		cancel()
		if err != nil {
			return err
		}
		detached := a
		if err := c.apply(func() { c.set.PutAssignment(detached) }); err != nil {
			return err
		}
	}

	cctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.remote.DeleteInterpreter(cctx, id); err != nil {
		return err
	}
	return c.apply(func() { c.set.RemoveInterpreter(id) })
}
