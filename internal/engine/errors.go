package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while evolving a flow.
//
// Runtime errors include:
//   - Rule failure: an edit primitive rejected a match
//   - Step cap: EvolveUntilInert ran out of steps
//   - Invalid initial space: the flow has nothing to start from
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlowID identifies the affected flow.
	FlowID string

	// Rule names the rule involved, if any.
	Rule string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRuleApplyFailed indicates a rule's match or apply failed.
	ErrCodeRuleApplyFailed RuntimeErrorCode = "RULE_APPLY_FAILED"

	// ErrCodeStepCapExceeded indicates the flow hit its hard step cap.
	ErrCodeStepCapExceeded RuntimeErrorCode = "STEP_CAP_EXCEEDED"

	// ErrCodeInvalidInitialSpace indicates the flow was given no spaces.
	ErrCodeInvalidInitialSpace RuntimeErrorCode = "INVALID_INITIAL_SPACE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.FlowID != "" && e.Rule != "" {
		msg = fmt.Sprintf("%s (flow=%s, rule=%s)", msg, e.FlowID, e.Rule)
	} else if e.FlowID != "" {
		msg = fmt.Sprintf("%s (flow=%s)", msg, e.FlowID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsRuleError returns true if err is a rule application failure.
// Uses errors.As to handle wrapped errors.
func IsRuleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeRuleApplyFailed
	}
	return false
}

// IsQuotaError returns true if err reports an exhausted step cap.
// Matches both RuntimeError with ErrCodeStepCapExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStepCapExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewRuleError wraps a rule failure.
func NewRuleError(flowID, ruleName string, step int, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRuleApplyFailed,
		Message: fmt.Sprintf("step %d failed", step),
		FlowID:  flowID,
		Rule:    ruleName,
		Details: map[string]string{"step": fmt.Sprintf("%d", step)},
		Err:     err,
	}
}

// NewInitialSpaceError reports an unusable initial state.
func NewInitialSpaceError(message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidInitialSpace,
		Message: message,
	}
}
