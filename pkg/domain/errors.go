package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the parent of every "entity id unresolved" error.
var ErrNotFound = errors.New("not found")

var (
	// ErrWorkflowNotFound is returned when a workflow ID cannot be found in the store.
	ErrWorkflowNotFound = fmt.Errorf("workflow %w", ErrNotFound)
	// ErrNodeNotFound is returned when a node ID cannot be found in the store.
	ErrNodeNotFound = fmt.Errorf("node %w", ErrNotFound)
	// ErrEdgeNotFound is returned when an edge ID cannot be found in the store.
	ErrEdgeNotFound = fmt.Errorf("edge %w", ErrNotFound)
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation error")

// ErrNodeNotInWorkflow is returned when an edge endpoint is owned by another workflow.
var ErrNodeNotInWorkflow = errors.New("node does not belong to the workflow")

var (
	ErrNoStartNode = errors.New("no start node found")
	ErrNoEndNode   = errors.New("no end node found")
	ErrNoPathFound = errors.New("no path found from start to end node")
)

// ErrMissingConditionContext is returned when a run reaches a Condition node
// before any Message node.
var ErrMissingConditionContext = errors.New("Condition Node must have a preceding Message Node") //nolint:staticcheck // user-facing text

var (
	// ErrInvalidExpression is returned when a condition expression cannot be parsed.
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrEvaluation is returned when a parsed expression fails at evaluation time,
	// e.g. it references an undefined identifier.
	ErrEvaluation = errors.New("evaluation error")
)

// ErrStore wraps store failures that are not a missing entity.
var ErrStore = errors.New("store error")

// ErrDuplicateID is returned when an entity is created with an id already in use.
var ErrDuplicateID = errors.New("duplicate id")

// ValidationError is a graph-invariant violation.
// Message is user-facing and stable; callers match on it.
type ValidationError struct {
	Message string
	Cause   error
}

// Invalid returns a *ValidationError with the given message.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// Invalidf formats a *ValidationError message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
