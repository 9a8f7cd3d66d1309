package rule

import (
	"sort"
	"strconv"

	"github.com/roach88/ruleflow/internal/ir"
)

// FlagAliases maps short flag names to their long forms.
var FlagAliases = map[string]string{
	"d":    "disabled",
	"g":    "group",
	"gb":   "group_break",
	"a":    "always_apply",
	"sr":   "space_range",
	"mr":   "match_range",
	"cmp":  "conflict_mark",
	"crp":  "conflict_resolution",
	"nct":  "no_causality_tracking",
	"nib":  "no_initial_branch",
	"nds":  "no_delta_submit",
	"pl":   "parallel_limit",
	"bl":   "branch_limit",
	"bo":   "branch_origin",
	"life": "lifespan",
}

// CanonicalFlag resolves an alias to its long name.
func CanonicalFlag(name string) string {
	if long, ok := FlagAliases[name]; ok {
		return long
	}
	return name
}

// ApplyFlags assigns flags to the rule's fields. Keys may be long names or
// aliases. Flags are applied in sorted key order so errors are stable.
func ApplyFlags(r *Rule, flags ir.Flags) error {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := applyFlag(r, CanonicalFlag(k), flags[k]); err != nil {
			return err
		}
	}
	return nil
}

func applyFlag(r *Rule, name string, v ir.FlagValue) error {
	var err error
	switch name {
	case "disabled":
		r.Disabled, err = flagBool(name, v)
	case "group":
		r.Group, err = flagString(name, v)
	case "group_break":
		r.GroupBreak, err = flagBool(name, v)
	case "always_apply":
		r.AlwaysApply, err = flagBool(name, v)
	case "space_range":
		r.SpaceRange, err = flagRange(name, v)
	case "match_range":
		r.MatchRange, err = flagRange(name, v)
	case "offset":
		r.Offset, err = flagInt(name, v)
	case "conflict_mark":
		var s string
		if s, err = flagString(name, v); err == nil {
			r.ConflictMark, err = ParseConflictMark(s)
		}
	case "conflict_resolution":
		var s string
		if s, err = flagString(name, v); err == nil {
			r.ConflictResolution, err = ParseConflictResolution(s)
		}
	case "no_causality_tracking":
		r.NoCausalityTracking, err = flagBool(name, v)
	case "no_initial_branch":
		r.NoInitialBranch, err = flagBool(name, v)
	case "no_delta_submit":
		r.NoDeltaSubmit, err = flagBool(name, v)
	case "parallel_limit":
		r.ParallelLimit, err = flagInt(name, v)
	case "branch_limit":
		r.BranchLimit, err = flagInt(name, v)
	case "branch_origin":
		var s string
		if s, err = flagString(name, v); err == nil {
			r.BranchOrigin, err = ParseBranchOrigin(s)
		}
	case "lifespan":
		r.Lifespan, err = flagInt(name, v)
	default:
		return &UnknownFlagError{Name: name}
	}
	if err != nil {
		if IsFlagError(err) {
			return err
		}
		return &FlagValueError{Name: name, Value: v.String(), Message: err.Error()}
	}
	return nil
}

func flagBool(name string, v ir.FlagValue) (bool, error) {
	switch v.Kind {
	case ir.FlagBool:
		return v.Bool, nil
	case ir.FlagInt:
		return v.Int != 0, nil
	}
	return false, &FlagValueError{Name: name, Value: v.String(), Message: "expected a boolean"}
}

func flagInt(name string, v ir.FlagValue) (int, error) {
	if v.Kind != ir.FlagInt {
		return 0, &FlagValueError{Name: name, Value: v.String(), Message: "expected an integer or inf"}
	}
	return v.Int, nil
}

// flagRange accepts [a,b] or a single index n meaning [n, n+1].
func flagRange(name string, v ir.FlagValue) ([2]int, error) {
	switch v.Kind {
	case ir.FlagRange:
		if v.Range[1] < v.Range[0] {
			return [2]int{}, &FlagValueError{Name: name, Value: v.String(), Message: "range end before start"}
		}
		return v.Range, nil
	case ir.FlagInt:
		if v.Int == ir.Inf {
			return [2]int{0, ir.Inf}, nil
		}
		return [2]int{v.Int, v.Int + 1}, nil
	}
	return [2]int{}, &FlagValueError{Name: name, Value: v.String(), Message: "expected [start,end]"}
}

func flagString(name string, v ir.FlagValue) (string, error) {
	switch v.Kind {
	case ir.FlagString:
		return v.Str, nil
	case ir.FlagInt:
		return strconv.Itoa(v.Int), nil
	}
	return "", &FlagValueError{Name: name, Value: v.String(), Message: "expected a name"}
}
