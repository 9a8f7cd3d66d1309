package ir

import (
	"errors"
	"fmt"
)

// UnknownSelectorKindError reports a selector the core cannot interpret.
type UnknownSelectorKindError struct {
	Kind   SelectorKind
	Reason string
}

func (e *UnknownSelectorKindError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unknown selector kind %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("unknown selector kind %s", e.Kind)
}

// UnknownTargetKindError reports a target the core cannot interpret.
type UnknownTargetKindError struct {
	Kind TargetKind
}

func (e *UnknownTargetKindError) Error() string {
	return fmt.Sprintf("unknown target kind %s", e.Kind)
}

// IsUnknownKind reports whether err is a malformed selector or target.
func IsUnknownKind(err error) bool {
	var sel *UnknownSelectorKindError
	var tgt *UnknownTargetKindError
	return errors.As(err, &sel) || errors.As(err, &tgt)
}
