package form

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-formkit/internal/logging"
	"github.com/goliatone/go-formkit/pkg/controls"
)

// DefaultSubmitLabel is the label of the submit control when none is set.
const DefaultSubmitLabel = "Submit"

// Form is the reusable result of Builder.CreateForm. It is immutable and safe
// to mount concurrently; each Mount returns an independent Instance.
type Form struct {
	header   controls.SectionHeader
	registry *controls.Registry
	sections []Section
}

// Sections returns a copy of the form's sections.
func (f *Form) Sections() []Section {
	out := make([]Section, len(f.sections))
	for i, section := range f.sections {
		section.Fields = append([]Field(nil), section.Fields...)
		out[i] = section
	}
	return out
}

// Registry returns a copy of the control registry captured at creation.
func (f *Form) Registry() *controls.Registry {
	return f.registry.Clone()
}

// Tags lists the control tags used by the form's fields in first-use order.
func (f *Form) Tags() []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, section := range f.sections {
		for _, field := range section.Fields {
			if _, ok := seen[field.Type]; ok {
				continue
			}
			seen[field.Type] = struct{}{}
			tags = append(tags, field.Type)
		}
	}
	return tags
}

// AfterPropertyChange runs after a value is written and before the new model
// is committed.
type AfterPropertyChange func(model Record, field Field, value any)

// SubmitHandler receives the current model when a submission is accepted.
type SubmitHandler func(model Record, ev *SubmitEvent)

// MountOption configures a mounted instance.
type MountOption func(*Instance)

// WithAfterPropertyChange registers a hook invoked on every edit.
func WithAfterPropertyChange(fn AfterPropertyChange) MountOption {
	return func(i *Instance) {
		i.afterChange = fn
	}
}

// WithOnSubmit registers the handler for accepted submissions.
func WithOnSubmit(fn SubmitHandler) MountOption {
	return func(i *Instance) {
		i.onSubmit = fn
	}
}

// WithSubmitButton overrides the submit control renderer.
func WithSubmitButton(button controls.SubmitButton) MountOption {
	return func(i *Instance) {
		if button != nil {
			i.submitButton = button
		}
	}
}

// WithSubmitLabel overrides the "Submit" label.
func WithSubmitLabel(label string) MountOption {
	return func(i *Instance) {
		if label != "" {
			i.submitLabel = label
		}
	}
}

// WithLogger sets the logger used for edit and submit diagnostics.
func WithLogger(logger *slog.Logger) MountOption {
	return func(i *Instance) {
		i.logger = logging.OrNop(logger)
	}
}

// WithComponentData passes template and theme helpers to controls.
func WithComponentData(data controls.ComponentData) MountOption {
	return func(i *Instance) {
		i.data = data
	}
}

// Mount creates a runtime instance seeded with model. The instance keeps its
// own copy; later changes to model are not observed.
func (f *Form) Mount(model Record, opts ...MountOption) *Instance {
	initial := deepCopyRecord(model)
	inst := &Instance{
		form:         f,
		initial:      initial,
		model:        copyRecords(initial),
		errors:       map[FieldID]string{},
		submitButton: DefaultSubmitButton,
		submitLabel:  DefaultSubmitLabel,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(inst)
	}
	inst.buildSetters()
	return inst
}

// SubmitEvent models the host's submit event. A blocked submission prevents
// the default action and stops propagation.
type SubmitEvent struct {
	ctx                context.Context
	defaultPrevented   bool
	propagationStopped bool
}

// NewSubmitEvent creates an event bound to ctx.
func NewSubmitEvent(ctx context.Context) *SubmitEvent {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SubmitEvent{ctx: ctx}
}

// Context returns the context the event was created with.
func (e *SubmitEvent) Context() context.Context {
	if e == nil || e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

func (e *SubmitEvent) PreventDefault()          { e.defaultPrevented = true }
func (e *SubmitEvent) StopPropagation()         { e.propagationStopped = true }
func (e *SubmitEvent) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *SubmitEvent) PropagationStopped() bool { return e.propagationStopped }

func deepCopyRecord(src Record) Record {
	out := make(Record, len(src))
	for key, value := range src {
		out[key] = deepCopy(value)
	}
	return out
}

// copyRecords copies every nested record of src and shares the other values,
// so leaves keep their identity for IsModified.
func copyRecords(src Record) Record {
	out := make(Record, len(src))
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			value = copyRecords(nested)
		}
		out[key] = value
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return deepCopyRecord(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
