package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when an operation names a field that is not
	// declared in the registry.
	ErrUnknownField = errors.New("flow: unknown field")
	// ErrDuplicateField marks a field name declared more than once.
	ErrDuplicateField = errors.New("flow: duplicate field")
	// ErrCycle marks a dependents graph that loops back on itself.
	ErrCycle = errors.New("flow: dependency cycle")
	// ErrInvalidStep marks a field placed on a step the registry does not have.
	ErrInvalidStep = errors.New("flow: invalid step")
	// ErrStepBlocked is returned by Next and Submit while an active field on or
	// before the current step carries a validation error.
	ErrStepBlocked = errors.New("flow: step has invalid fields")
	// ErrLastStep is returned by Next when the cursor is on the final step.
	ErrLastStep = errors.New("flow: already on last step")
)

// DefinitionError describes a malformed field declaration detected while
// building a Registry.
type DefinitionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("flow: %s", e.Reason)
	}
	return fmt.Sprintf("flow: field %q: %s", e.Field, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}
