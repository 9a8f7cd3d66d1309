package rule

import "fmt"

// Kind is the edit primitive a rule applies.
type Kind int

const (
	Substitute Kind = iota
	Insert
	Overwrite
	Delete
	Shift
	Reverse
)

var kindNames = [...]string{
	Substitute: "substitute",
	Insert:     "insert",
	Overwrite:  "overwrite",
	Delete:     "delete",
	Shift:      "shift",
	Reverse:    "reverse",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// needsCells reports whether the kind writes target cells.
func (k Kind) needsCells() bool {
	return k == Substitute || k == Insert || k == Overwrite
}

// Operator symbols recognized by KindForOperator.
const (
	OpSubstitute = "->"
	OpInsert     = ">"
	OpOverwrite  = "-->"
	OpDelete     = "><"
	OpShiftRight = ">>"
	OpShiftLeft  = "<<"
	OpReverse    = ">><<"
)

// KindForOperator maps an operator symbol to a kind. For shifts the second
// result is the sign the target offset is multiplied by.
func KindForOperator(op string) (Kind, int, error) {
	switch op {
	case OpSubstitute:
		return Substitute, 1, nil
	case OpInsert:
		return Insert, 1, nil
	case OpOverwrite:
		return Overwrite, 1, nil
	case OpDelete:
		return Delete, 1, nil
	case OpShiftRight:
		return Shift, 1, nil
	case OpShiftLeft:
		return Shift, -1, nil
	case OpReverse:
		return Reverse, 1, nil
	default:
		return 0, 0, &UnknownOperatorError{Operator: op}
	}
}

// ConflictMark selects which of two overlapping matches is flagged.
type ConflictMark int

const (
	MarkIgnore ConflictMark = iota
	MarkNew
	MarkOriginal
	MarkBoth
)

func (m ConflictMark) String() string {
	switch m {
	case MarkNew:
		return "new"
	case MarkOriginal:
		return "original"
	case MarkBoth:
		return "both"
	default:
		return "ignore"
	}
}

// ParseConflictMark accepts the long names and the short forms used in rule
// sources ("this" for new, "og" for original).
func ParseConflictMark(s string) (ConflictMark, error) {
	switch s {
	case "ignore":
		return MarkIgnore, nil
	case "new", "this":
		return MarkNew, nil
	case "original", "og":
		return MarkOriginal, nil
	case "both":
		return MarkBoth, nil
	}
	return 0, fmt.Errorf("unknown conflict mark policy %q", s)
}

// ConflictResolution decides what Apply does with a conflicting match.
type ConflictResolution int

const (
	ResolveIgnore ConflictResolution = iota
	// ResolveBranch applies the match on its own branch while the branch
	// budget lasts.
	ResolveBranch
	// ResolveBranchNoLimit branches regardless of the budget.
	ResolveBranchNoLimit
	ResolveSkip
	ResolveBreak
)

func (r ConflictResolution) String() string {
	switch r {
	case ResolveBranch:
		return "branch"
	case ResolveBranchNoLimit:
		return "branch-no-limit"
	case ResolveSkip:
		return "skip"
	case ResolveBreak:
		return "break"
	default:
		return "ignore"
	}
}

// ParseConflictResolution parses a resolution policy name.
func ParseConflictResolution(s string) (ConflictResolution, error) {
	switch s {
	case "ignore":
		return ResolveIgnore, nil
	case "branch":
		return ResolveBranch, nil
	case "branch-no-limit", "branch_nbl", "nbl":
		return ResolveBranchNoLimit, nil
	case "skip":
		return ResolveSkip, nil
	case "break":
		return ResolveBreak, nil
	}
	return 0, fmt.Errorf("unknown conflict resolution policy %q", s)
}

// BranchOrigin selects what a new working copy is branched from.
type BranchOrigin int

const (
	// OriginPrevious branches from the unmodified input space.
	OriginPrevious BranchOrigin = iota
	// OriginCurrent branches from the working copy as edited so far.
	OriginCurrent
)

func (o BranchOrigin) String() string {
	if o == OriginCurrent {
		return "current"
	}
	return "previous"
}

// ParseBranchOrigin parses a branch origin name.
func ParseBranchOrigin(s string) (BranchOrigin, error) {
	switch s {
	case "previous", "prev":
		return OriginPrevious, nil
	case "current":
		return OriginCurrent, nil
	}
	return 0, fmt.Errorf("unknown branch origin %q", s)
}
