package rule

import (
	"errors"
	"fmt"
)

// UnknownOperatorError reports an operator symbol with no rule kind.
type UnknownOperatorError struct {
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// UnknownFlagError reports a flag name with no rule field.
type UnknownFlagError struct {
	Name string
}

func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("unknown flag %q", e.Name)
}

// FlagValueError reports a flag whose value has the wrong shape.
type FlagValueError struct {
	Name    string
	Value   string
	Message string
}

func (e *FlagValueError) Error() string {
	return fmt.Sprintf("flag %s=%s: %s", e.Name, e.Value, e.Message)
}

// IsFlagError reports whether err is an unknown flag or a bad flag value.
func IsFlagError(err error) bool {
	var ufe *UnknownFlagError
	var fve *FlagValueError
	return errors.As(err, &ufe) || errors.As(err, &fve)
}

// ApplyError wraps a primitive failure with the rule and match that caused it.
type ApplyError struct {
	Rule  string
	Space int
	Match int
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("rule %s: space %d match %d: %v", e.Rule, e.Space, e.Match, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
