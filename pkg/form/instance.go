package form

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/render"
)

type setter func(value any) error

// Instance is the per-mount state of a form: the initial snapshot, the live
// model, the validation error table and the setter table. Every edit derives
// new model and error values from the previous ones and replaces them; nothing
// is mutated in place. An Instance is not safe for concurrent use; hosts
// serialise access to it.
type Instance struct {
	form *Form

	initial Record
	model   Record
	errors  map[FieldID]string
	setters map[FieldID]setter
	fields  map[FieldID]Field

	afterChange  AfterPropertyChange
	onSubmit     SubmitHandler
	submitButton controls.SubmitButton
	submitLabel  string
	logger       *slog.Logger
	data         controls.ComponentData
}

// buildSetters runs once per mount.
func (i *Instance) buildSetters() {
	i.setters = make(map[FieldID]setter)
	i.fields = make(map[FieldID]Field)
	for _, section := range i.form.sections {
		for _, field := range section.Fields {
			i.fields[field.ID] = field
			i.setters[field.ID] = i.newSetter(field)
		}
	}
}

func (i *Instance) newSetter(field Field) setter {
	return func(value any) error {
		errs := i.errors
		if field.Validate != nil {
			if verr := field.Validate(value); verr != nil {
				errs = withError(errs, field.ID, verr.Error())
				i.logger.Debug("field invalid", "field", string(field.ID), "path", field.Name(), "message", verr.Error())
			} else {
				errs = withoutError(errs, field.ID)
			}
		}

		// Invalid values are still written; only submission is gated.
		next, err := field.Value.Set(i.model, value)
		if err != nil {
			return &FieldError{ID: field.ID, Err: fmt.Errorf("write %q: %w", field.Name(), err)}
		}
		if i.afterChange != nil {
			i.afterChange(next, field, value)
		}

		i.errors = errs
		i.model = next
		i.logger.Debug("field changed", "field", string(field.ID), "path", field.Name())
		return nil
	}
}

// SetValue routes value through the cached setter of field id.
func (i *Instance) SetValue(id FieldID, value any) error {
	set, ok := i.setters[id]
	if !ok {
		return &UnknownFieldError{ID: id}
	}
	return set(value)
}

// Model returns the live model. Treat it as read-only; edits go through
// SetValue.
func (i *Instance) Model() Record {
	return i.model
}

// Initial returns the snapshot taken at mount.
func (i *Instance) Initial() Record {
	return i.initial
}

// Form returns the form this instance was mounted from.
func (i *Instance) Form() *Form {
	return i.form
}

// Field returns the descriptor for id.
func (i *Instance) Field(id FieldID) (Field, bool) {
	field, ok := i.fields[id]
	return field, ok
}

// Value reads the current value of field id.
func (i *Instance) Value(id FieldID) (any, bool) {
	field, ok := i.fields[id]
	if !ok {
		return nil, false
	}
	return field.Value.Get(i.model)
}

// Errors returns a copy of the validation error table.
func (i *Instance) Errors() map[FieldID]string {
	out := make(map[FieldID]string, len(i.errors))
	for id, message := range i.errors {
		out[id] = message
	}
	return out
}

// Error returns the validation message of field id, if any.
func (i *Instance) Error(id FieldID) (string, bool) {
	message, ok := i.errors[id]
	return message, ok
}

// HasErrors reports whether any field currently carries a validation error.
func (i *Instance) HasErrors() bool {
	return len(i.errors) > 0
}

// IsModified compares the field's value in the initial snapshot against the
// live model. Comparable values use ==; maps, slices and funcs compare by
// identity. There is no deep comparison.
func (i *Instance) IsModified(id FieldID) bool {
	field, ok := i.fields[id]
	if !ok {
		return false
	}
	before, _ := field.Value.Get(i.initial)
	after, _ := field.Value.Get(i.model)
	return !sameValue(before, after)
}

// Submit gates submission on the error table. With errors present the event's
// default action and propagation are stopped and the submit handler is not
// called. Fields that were never edited are not re-validated here.
func (i *Instance) Submit(ev *SubmitEvent) bool {
	if ev == nil {
		ev = NewSubmitEvent(nil)
	}
	if len(i.errors) > 0 {
		ev.PreventDefault()
		ev.StopPropagation()
		i.logger.Debug("submit blocked", "errors", len(i.errors))
		return false
	}
	if i.onSubmit != nil {
		i.onSubmit(i.model, ev)
	}
	i.logger.Debug("submit accepted")
	return true
}

// ApplyErrors merges a server-side error payload into the error table. Keys are
// matched against field names (dotted paths), tolerating JSON pointer and
// wrapper prefixes. Messages that match no field are returned.
func (i *Instance) ApplyErrors(payload map[string][]string) []string {
	if len(payload) == 0 {
		return nil
	}

	byName := make(map[string][]FieldID)
	names := make([]string, 0, len(i.fields))
	for _, section := range i.form.sections {
		for _, field := range section.Fields {
			name := field.Name()
			if _, seen := byName[name]; !seen {
				names = append(names, name)
			}
			byName[name] = append(byName[name], field.ID)
		}
	}

	mapped := render.MapErrorPayload(names, payload)
	errs := i.errors
	for name, messages := range mapped.Fields {
		for _, id := range byName[name] {
			errs = withError(errs, id, strings.Join(messages, "; "))
		}
	}
	i.errors = errs
	return mapped.Form
}

func withError(errs map[FieldID]string, id FieldID, message string) map[FieldID]string {
	if current, ok := errs[id]; ok && current == message {
		return errs
	}
	out := make(map[FieldID]string, len(errs)+1)
	for key, value := range errs {
		out[key] = value
	}
	out[id] = message
	return out
}

func withoutError(errs map[FieldID]string, id FieldID) map[FieldID]string {
	if _, ok := errs[id]; !ok {
		return errs
	}
	out := make(map[FieldID]string, len(errs))
	for key, value := range errs {
		if key != id {
			out[key] = value
		}
	}
	return out
}

func sameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	// Structs holding interfaces can still panic on ==.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
