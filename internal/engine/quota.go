package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts steps taken by EvolveUntilInert and enforces a hard
// cap.
//
// The cap guards against rule sets that never become inert, for instance a
// rule that keeps rewriting its own output. Inertness is the normal way
// out; the cap is the fallback.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
// Call it before each step.
func (q *QuotaEnforcer) Check(flowID string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			FlowID: flowID,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// StepsExceededError is returned when EvolveUntilInert reaches its cap
// while some rule still matches. Events evolved so far are kept.
type StepsExceededError struct {
	FlowID string
	Steps  int
	Limit  int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded max steps: %d steps > %d limit",
		e.FlowID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
