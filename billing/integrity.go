package billing

// =============================================================================
// INTEGRITY GUARD - No orphaned snapshots, no cascading deletes
// =============================================================================

// EntityKind names a reference collection an assignment can point at.
type EntityKind string

const (
	EntityCategory    EntityKind = "category"
	EntityLocation    EntityKind = "location"
	EntityInterpreter EntityKind = "interpreter"
)

// DeleteCheck is the outcome of CanDelete.
type DeleteCheck struct {
	Allowed       bool
	BlockingCount int
}

// CanDelete scans assignments for snapshots of the given category or location.
// Any reference blocks the delete; the caller reports BlockingCount and the
// user must reassign those assignments first.
//
// Interpreters are never blocked: see DetachInterpreter.
func CanDelete(kind EntityKind, id string, assignments []Assignment) DeleteCheck {
	n := 0
	switch kind {
	case EntityCategory:
		for _, a := range assignments {
			if a.Category.ID == id {
				n++
			}
		}
	case EntityLocation:
		for _, a := range assignments {
			if a.Location.ID == id {
				n++
			}
		}
	case EntityInterpreter:
		return DeleteCheck{Allowed: true}
	default:
		return DeleteCheck{Allowed: false}
	}
	return DeleteCheck{Allowed: n == 0, BlockingCount: n}
}

// CheckDelete is CanDelete as an error: nil when allowed, otherwise a
// *ReferentialConflictError with the exact blocking count.
func CheckDelete(kind EntityKind, id string, assignments []Assignment) error {
	check := CanDelete(kind, id, assignments)
	if check.Allowed {
		return nil
	}
	return &ReferentialConflictError{Kind: kind, ID: id, BlockingCount: check.BlockingCount}
}

// DetachInterpreter returns copies of the assignments that reference
// interpreterID, with the interpreter snapshot cleared. The caller persists
// them before removing the interpreter.
func DetachInterpreter(interpreterID string, assignments []Assignment) []Assignment {
	var out []Assignment
	for _, a := range assignments {
		if a.HasInterpreter(interpreterID) {
			a = a.Clone()
			a.Interpreter = nil
			out = append(out, a)
		}
	}
	return out
}

// Guard runs integrity checks against the current in-memory working set,
// so an assignment created a moment ago is always seen.
type Guard struct {
	set *WorkingSet
}

// NewGuard returns a guard over ws.
func NewGuard(ws *WorkingSet) *Guard {
	return &Guard{set: ws}
}

// CanDelete checks kind/id against the working set's assignments.
func (g *Guard) CanDelete(kind EntityKind, id string) DeleteCheck {
	return CanDelete(kind, id, g.set.Assignments())
}

// CheckDelete checks kind/id against the working set's assignments.
func (g *Guard) CheckDelete(kind EntityKind, id string) error {
	return CheckDelete(kind, id, g.set.Assignments())
}
