package form

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formkit/pkg/controls"
)

// Builder accumulates controls for a form. Every RegisterControl call returns
// a new Builder holding its own registry copy, so forms created from an earlier
// builder never observe later registrations.
type Builder struct {
	header   controls.SectionHeader
	registry *controls.Registry
	errs     []error
}

// WithDefaultSection starts a builder whose sections render with
// DefaultSectionHeader.
func WithDefaultSection() *Builder {
	return WithSection(nil)
}

// WithSection starts a builder bound to header. A nil header falls back to
// DefaultSectionHeader.
func WithSection(header controls.SectionHeader) *Builder {
	if header == nil {
		header = DefaultSectionHeader
	}
	return &Builder{
		header:   header,
		registry: controls.New(),
	}
}

// WithRegistry starts a builder from a copy of an existing registry, such as a
// package of default controls.
func WithRegistry(registry *controls.Registry, header controls.SectionHeader) *Builder {
	b := WithSection(header)
	b.registry = registry.Clone()
	return b
}

// RegisterControl returns a builder that also knows tag. Registering an
// existing tag replaces it. Invalid descriptors are reported by CreateForm.
func (b *Builder) RegisterControl(tag string, descriptor controls.Descriptor) *Builder {
	next := &Builder{
		header:   b.header,
		registry: b.registry.Clone(),
		errs:     append([]error(nil), b.errs...),
	}
	if err := next.registry.Register(tag, descriptor); err != nil {
		next.errs = append(next.errs, err)
	}
	return next
}

// RegisterFunc is RegisterControl for a bare control function with the
// default string decoder.
func (b *Builder) RegisterFunc(tag string, control controls.Control) *Builder {
	return b.RegisterControl(tag, controls.Descriptor{Control: control})
}

// Controls lists the tags registered so far.
func (b *Builder) Controls() []string {
	return b.registry.Names()
}

// CreateForm snapshots the registry and header and binds them to sections.
// Fields without ids get generated ones; every field must have an accessor and
// a registered control tag.
func (b *Builder) CreateForm(sections ...Section) (*Form, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	registry := b.registry.Clone()
	frozen := make([]Section, len(sections))
	seen := make(map[FieldID]struct{})
	var problems []error

	for si, section := range sections {
		copied := Section{
			ID:     section.ID,
			Title:  section.Title,
			Fields: make([]Field, len(section.Fields)),
			Props:  cloneProps(section.Props),
		}
		if copied.ID == "" {
			copied.ID = fmt.Sprintf("section-%d", si)
		}
		for fi, field := range section.Fields {
			if field.ID == "" {
				field.ID = newFieldID()
			}
			field.Props = cloneProps(field.Props)
			copied.Fields[fi] = field

			if _, dup := seen[field.ID]; dup {
				problems = append(problems, &FieldError{Section: copied.Title, ID: field.ID, Err: ErrDuplicateField})
				continue
			}
			seen[field.ID] = struct{}{}

			if field.Value == nil {
				problems = append(problems, &FieldError{Section: copied.Title, ID: field.ID, Err: ErrMissingAccessor})
			}
			if _, err := registry.Lookup(field.Type); err != nil {
				problems = append(problems, &FieldError{Section: copied.Title, ID: field.ID, Err: err})
			}
		}
		frozen[si] = copied
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	return &Form{
		header:   b.header,
		registry: registry,
		sections: frozen,
	}, nil
}

// MustCreateForm mirrors CreateForm but panics on error.
func (b *Builder) MustCreateForm(sections ...Section) *Form {
	f, err := b.CreateForm(sections...)
	if err != nil {
		panic(err)
	}
	return f
}

func cloneProps(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
