/*
workingset.go - In-memory store of the four collections

PURPOSE:
  The WorkingSet is the explicit store object that owns the categories,
  locations, interpreters and assignments a session works with. It is passed
  by handle to whoever needs it (coordinator, guard, engine); there is no
  package-level singleton.

ORDERING:
  Each collection keeps the order records were loaded or first inserted.
  Replacing a record by id keeps its position, so ranking ties stay stable.

CONCURRENCY:
  Guarded by sync.RWMutex. Every accessor returns copies; callers can never
  mutate the set except through its methods.

SEE ALSO:
  - reconcile/coordinator.go: the only writer during normal operation
  - integrity.go: Guard reads assignments from here
*/
package billing

import "sync"

// Collection names one of the four collections.
type Collection string

const (
	CollectionCategories   Collection = "categories"
	CollectionLocations    Collection = "locations"
	CollectionInterpreters Collection = "interpreters"
	CollectionAssignments  Collection = "assignments"
)

// Collections lists every collection in load order.
var Collections = []Collection{
	CollectionCategories,
	CollectionLocations,
	CollectionInterpreters,
	CollectionAssignments,
}

// Snapshot is a point-in-time copy of all four collections.
type Snapshot struct {
	Categories   []Category
	Locations    []Location
	Interpreters []Interpreter
	Assignments  []Assignment
}

// =============================================================================
// KEYED COLLECTION
// =============================================================================

type keyed[T any] struct {
	order []string
	items map[string]T
}

func newKeyed[T any]() keyed[T] {
	return keyed[T]{items: make(map[string]T)}
}

func (k *keyed[T]) replace(items []T, id func(T) string) {
	k.order = make([]string, 0, len(items))
	k.items = make(map[string]T, len(items))
	for _, it := range items {
		k.put(id(it), it)
	}
}

// put inserts or replaces in place. Returns true on insert.
func (k *keyed[T]) put(id string, v T) bool {
	_, exists := k.items[id]
	if !exists {
		k.order = append(k.order, id)
	}
	k.items[id] = v
	return !exists
}

func (k *keyed[T]) get(id string) (T, bool) {
	v, ok := k.items[id]
	return v, ok
}

func (k *keyed[T]) remove(id string) bool {
	if _, ok := k.items[id]; !ok {
		return false
	}
	delete(k.items, id)
	for i, o := range k.order {
		if o == id {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	return true
}

func (k *keyed[T]) list() []T {
	out := make([]T, 0, len(k.order))
	for _, id := range k.order {
		out = append(out, k.items[id])
	}
	return out
}

// =============================================================================
// WORKING SET
// =============================================================================

// WorkingSet owns the in-memory collections.
type WorkingSet struct {
	mu           sync.RWMutex
	categories   keyed[Category]
	locations    keyed[Location]
	interpreters keyed[Interpreter]
	assignments  keyed[Assignment]
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		categories:   newKeyed[Category](),
		locations:    newKeyed[Location](),
		interpreters: newKeyed[Interpreter](),
		assignments:  newKeyed[Assignment](),
	}
}

// Snapshot copies all four collections. Interpreter assignment counts are
// recomputed from the assignments in the same snapshot.
func (w *WorkingSet) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	assignments := w.assignmentsLocked()
	return Snapshot{
		Categories:   w.categories.list(),
		Locations:    w.locations.list(),
		Interpreters: WithAssignmentCounts(w.interpreters.list(), assignments),
		Assignments:  assignments,
	}
}

// Engine returns an aggregation engine over the current reference data.
func (w *WorkingSet) Engine() *Engine {
	return NewEngine(w.Snapshot())
}

// Len returns the number of records in c.
func (w *WorkingSet) Len(c Collection) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	switch c {
	case CollectionCategories:
		return len(w.categories.order)
	case CollectionLocations:
		return len(w.locations.order)
	case CollectionInterpreters:
		return len(w.interpreters.order)
	case CollectionAssignments:
		return len(w.assignments.order)
	}
	return 0
}

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

// Categories returns the live categories.
func (w *WorkingSet) Categories() []Category {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.categories.list()
}

// Category returns the live category with id.
func (w *WorkingSet) Category(id string) (Category, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.categories.get(id)
}

// ReplaceCategories swaps the whole collection.
func (w *WorkingSet) ReplaceCategories(cs []Category) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.categories.replace(cs, func(c Category) string { return c.ID })
}

// PutCategory inserts or replaces c, re-deriving its minute rate.
func (w *WorkingSet) PutCategory(c Category) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.categories.put(c.ID, c.Normalize())
}

// RemoveCategory deletes a category without any integrity check.
// Callers go through Guard first.
func (w *WorkingSet) RemoveCategory(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.categories.remove(id)
}

// -----------------------------------------------------------------------------
// Locations
// -----------------------------------------------------------------------------

// Locations returns the live locations.
func (w *WorkingSet) Locations() []Location {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.locations.list()
}

// Location returns the live location with id.
func (w *WorkingSet) Location(id string) (Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.locations.get(id)
}

// ReplaceLocations swaps the whole collection.
func (w *WorkingSet) ReplaceLocations(ls []Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locations.replace(ls, func(l Location) string { return l.ID })
}

// PutLocation inserts or replaces l.
func (w *WorkingSet) PutLocation(l Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locations.put(l.ID, l)
}

// RemoveLocation deletes a location without any integrity check.
func (w *WorkingSet) RemoveLocation(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.locations.remove(id)
}

// -----------------------------------------------------------------------------
// Interpreters
// -----------------------------------------------------------------------------

// Interpreters returns the live interpreters with recomputed assignment counts.
func (w *WorkingSet) Interpreters() []Interpreter {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WithAssignmentCounts(w.interpreters.list(), w.assignmentsLocked())
}

// Interpreter returns the live interpreter with id.
func (w *WorkingSet) Interpreter(id string) (Interpreter, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	in, ok := w.interpreters.get(id)
	if ok {
		in.AssignmentCount = CountAssignments(id, w.assignmentsLocked())
	}
	return in, ok
}

// ReplaceInterpreters swaps the whole collection.
func (w *WorkingSet) ReplaceInterpreters(is []Interpreter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interpreters.replace(is, func(i Interpreter) string { return i.ID })
}

// PutInterpreter inserts or replaces in.
func (w *WorkingSet) PutInterpreter(in Interpreter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interpreters.put(in.ID, in)
}

// RemoveInterpreter deletes an interpreter.
func (w *WorkingSet) RemoveInterpreter(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interpreters.remove(id)
}

// -----------------------------------------------------------------------------
// Assignments
// -----------------------------------------------------------------------------

func (w *WorkingSet) assignmentsLocked() []Assignment {
	list := w.assignments.list()
	for i := range list {
		list[i] = list[i].Clone()
	}
	return list
}

// Assignments returns every assignment.
func (w *WorkingSet) Assignments() []Assignment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.assignmentsLocked()
}

// Assignment returns the assignment with id.
func (w *WorkingSet) Assignment(id string) (Assignment, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.assignments.get(id)
	return a.Clone(), ok
}

// ReplaceAssignments swaps the whole collection.
func (w *WorkingSet) ReplaceAssignments(as []Assignment) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.assignments.replace(as, func(a Assignment) string { return a.ID })
	for id, a := range w.assignments.items {
		w.assignments.items[id] = a.Clone()
	}
}

// PutAssignment replaces the assignment with a.ID in place, or appends it.
// Returns true when a was inserted.
func (w *WorkingSet) PutAssignment(a Assignment) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.assignments.put(a.ID, a.Clone())
}

// SetPaid updates only the paid flag of one assignment.
func (w *WorkingSet) SetPaid(id string, paid bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.assignments.get(id)
	if !ok {
		return &RecordNotFoundError{Collection: CollectionAssignments, ID: id}
	}
	a.Paid = paid
	w.assignments.items[id] = a
	return nil
}
