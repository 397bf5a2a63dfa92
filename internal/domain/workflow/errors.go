package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrInvalidState is returned when an operation is not valid for the expense's status
	ErrInvalidState = errors.New("invalid state")

	// ErrTerminalState is returned when a decision targets an approved or rejected expense
	ErrTerminalState = errors.New("expense is in a terminal state")

	// ErrNotAuthorized is returned when the actor may not decide the current step
	ErrNotAuthorized = errors.New("approver not authorized for this step")

	// ErrDuplicateDecision is returned when the current step already has a decision
	ErrDuplicateDecision = errors.New("step already decided")

	// ErrStepNotFound is returned when the workflow has no step at or after the requested sequence
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrInvalidDecision is returned for decisions other than Approved or Rejected
	ErrInvalidDecision = errors.New("invalid decision")
)
