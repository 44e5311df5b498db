package visibility

// Decision is the tri-state outcome of a gating check. Helpers that used
// to answer with nil meaning "don't block" now answer Indeterminate, so
// callers must consciously choose how to treat the ambiguous case instead
// of null-coalescing into fail-open.
type Decision int

const (
	Indeterminate Decision = iota
	Allowed
	Blocked
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "ALLOWED"
	case Blocked:
		return "BLOCKED"
	}
	return "INDETERMINATE"
}

// OrBlocked collapses the tri-state for callers that want fail-closed
// behavior: only an explicit Allowed passes.
func (d Decision) OrBlocked() bool { return d == Allowed }

// CanSeeAggregate is the tri-state form of the mode decision for surfaces
// that need to distinguish "viewer unknown" from "viewer denied".
func CanSeeAggregate(mode Mode) Decision {
	switch mode {
	case RequesterFull:
		return Allowed
	case UnitOnly:
		return Blocked
	}
	return Indeterminate
}
