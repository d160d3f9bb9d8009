// Package store provides Repository implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/interpreter-billing/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements billing.Repository with in-memory tables.
type Memory struct {
	mu           sync.RWMutex
	categories   table[billing.Category]
	locations    table[billing.Location]
	interpreters table[billing.Interpreter]
	assignments  table[billing.Assignment]
}

// table keeps insertion order so listings are stable.
type table[T any] struct {
	ids  []string
	rows map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t *table[T]) upsert(id string, v T) bool {
	_, exists := t.rows[id]
	if !exists {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = v
	return !exists
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, x := range t.ids {
		if x == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			return
		}
	}
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.rows[id])
	}
	return out
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		categories:   newTable[billing.Category](),
		locations:    newTable[billing.Location](),
		interpreters: newTable[billing.Interpreter](),
		assignments:  newTable[billing.Assignment](),
	}
}

// Seed loads a snapshot, replacing by id.
func (m *Memory) Seed(s billing.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range s.Categories {
		m.categories.upsert(c.ID, c.Normalize())
	}
	for _, l := range s.Locations {
		m.locations.upsert(l.ID, l)
	}
	for _, in := range s.Interpreters {
		m.interpreters.upsert(in.ID, in)
	}
	for _, a := range s.Assignments {
		m.assignments.upsert(a.ID, a.Clone())
	}
}

// ListCategories returns categories in insertion order.
func (m *Memory) ListCategories(_ context.Context) ([]billing.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categories.all(), nil
}

// ListLocations returns locations in insertion order.
func (m *Memory) ListLocations(_ context.Context) ([]billing.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locations.all(), nil
}

// ListInterpreters returns interpreters with counts from the stored assignments.
func (m *Memory) ListInterpreters(_ context.Context) ([]billing.Interpreter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return billing.WithAssignmentCounts(m.interpreters.all(), m.assignments.all()), nil
}

// ListAssignments returns assignments in insertion order.
func (m *Memory) ListAssignments(_ context.Context) ([]billing.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.assignments.all()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// SaveAssignment upserts by id. Returns true on insert.
func (m *Memory) SaveAssignment(_ context.Context, a billing.Assignment) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments.upsert(a.ID, a.Clone()), nil
}

// SetPaidStatus flips only the paid flag.
func (m *Memory) SetPaidStatus(_ context.Context, id string, paid bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments.rows[id]
	if !ok {
		return &billing.RecordNotFoundError{Collection: billing.CollectionAssignments, ID: id}
	}
	a.Paid = paid
	m.assignments.rows[id] = a
	return nil
}

// SaveCategory upserts c with its minute rate re-derived.
func (m *Memory) SaveCategory(_ context.Context, c billing.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories.upsert(c.ID, c.Normalize())
	return nil
}

// DeleteCategory refuses while any assignment references the category.
func (m *Memory) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := billing.CheckDelete(billing.EntityCategory, id, m.assignments.all()); err != nil {
		return err
	}
	m.categories.delete(id)
	return nil
}

// SaveLocation upserts l.
func (m *Memory) SaveLocation(_ context.Context, l billing.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations.upsert(l.ID, l)
	return nil
}

// DeleteLocation refuses while any assignment references the location.
func (m *Memory) DeleteLocation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := billing.CheckDelete(billing.EntityLocation, id, m.assignments.all()); err != nil {
		return err
	}
	m.locations.delete(id)
	return nil
}

// SaveInterpreter upserts in.
func (m *Memory) SaveInterpreter(_ context.Context, in billing.Interpreter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interpreters.upsert(in.ID, in)
	return nil
}

// DeleteInterpreter removes the interpreter and clears it from every
// assignment that referenced it.
func (m *Memory) DeleteInterpreter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range billing.DetachInterpreter(id, m.assignments.all()) {
		m.assignments.rows[a.ID] = a
	}
	m.interpreters.delete(id)
	return nil
}

// Reset deletes every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = newTable[billing.Category]()
	m.locations = newTable[billing.Location]()
	m.interpreters = newTable[billing.Interpreter]()
	m.assignments = newTable[billing.Assignment]()
	return nil
}

var _ billing.Repository = (*Memory)(nil)
