/*
store.go - Persistence interface for the four collections

PURPOSE:
  Defines the interface between the billing domain and whatever keeps the
  authoritative copy of the data. The HTTP server persists through it; the
  in-memory and SQL implementations satisfy it.

KEY INTERFACE:
  Repository: list the four collections, upsert assignments, flip the paid
  flag, save/delete reference records.

NO FOREIGN KEYS:
  Storage keeps assignment snapshots as plain columns. Deleting a category
  or location never cascades; callers run CheckDelete first.

UPSERT CONTRACT:
  SaveAssignment inserts when the id is unknown and replaces when it is
  known. Last write wins; there is no version check.

IMPLEMENTATIONS:
  - billing/store/memory.go: In-memory for tests and dev mode
  - store/sqlite/sqlite.go: SQLite or PostgreSQL via sqlx

SEE ALSO:
  - integrity.go: CheckDelete, DetachInterpreter
  - workingset.go: the client-side in-memory copy
*/
package billing

import "context"

// =============================================================================
// REPOSITORY - Interface for persistence
// =============================================================================

// Repository persists categories, locations, interpreters and assignments.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListLocations(ctx context.Context) ([]Location, error)
	ListInterpreters(ctx context.Context) ([]Interpreter, error)
	ListAssignments(ctx context.Context) ([]Assignment, error)

	// SaveAssignment inserts or replaces a by id. Returns true on insert.
	SaveAssignment(ctx context.Context, a Assignment) (bool, error)

	// SetPaidStatus updates only the paid flag. Unknown id: ErrNotFound.
	SetPaidStatus(ctx context.Context, id string, paid bool) error

	SaveCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id string) error

	SaveLocation(ctx context.Context, l Location) error
	DeleteLocation(ctx context.Context, id string) error

	SaveInterpreter(ctx context.Context, in Interpreter) error
	DeleteInterpreter(ctx context.Context, id string) error
}

// LoadSnapshot reads all four collections from r. Interpreter assignment
// counts are recomputed.
func LoadSnapshot(ctx context.Context, r Repository) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Categories, err = r.ListCategories(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Locations, err = r.ListLocations(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Interpreters, err = r.ListInterpreters(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Assignments, err = r.ListAssignments(ctx); err != nil {
		return Snapshot{}, err
	}
	s.Interpreters = WithAssignmentCounts(s.Interpreters, s.Assignments)
	return s, nil
}
