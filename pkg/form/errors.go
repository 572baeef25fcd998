package form

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formkit/pkg/controls"
)

var (
	// ErrUnknownField is returned when a field id is not part of the mounted form.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrDuplicateField is returned when two fields of a form share an id.
	ErrDuplicateField = errors.New("form: duplicate field id")
	// ErrMissingAccessor is returned when a field has no value accessor.
	ErrMissingAccessor = errors.New("form: field has no value accessor")
	// ErrReadOnlyAccessor is returned by Func accessors built without a setter.
	ErrReadOnlyAccessor = errors.New("form: accessor has no setter")
	// ErrUnknownControl aliases the registry sentinel so callers only need one
	// import for errors.Is checks.
	ErrUnknownControl = controls.ErrUnknownControl
)

// UnknownFieldError reports a SetValue call for a field that was not captured
// when the instance was mounted.
type UnknownFieldError struct {
	ID FieldID
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("form: unknown field %q", string(e.ID))
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// FieldError wraps a configuration problem with the field it concerns.
type FieldError struct {
	Section string
	ID      FieldID
	Err     error
}

func (e *FieldError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("form: section %q field %q: %v", e.Section, string(e.ID), e.Err)
	}
	return fmt.Sprintf("form: field %q: %v", string(e.ID), e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
