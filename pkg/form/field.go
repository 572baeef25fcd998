package form

import (
	"strings"

	"github.com/google/uuid"
)

// FieldID identifies a field within a form. Error and setter tables are keyed
// by it, so it must be unique per form.
type FieldID string

// Validator checks a candidate value. A nil return means the value is valid;
// otherwise the error text becomes the field's validation message.
type Validator func(value any) error

// Accessor reads and writes one field value inside a model.
type Accessor interface {
	// Name is the dotted name used for input names and error mapping.
	Name() string
	Get(model Record) (any, bool)
	// Set returns a new model with value applied; model is not modified.
	Set(model Record, value any) (Record, error)
}

type pathAccessor struct {
	path   Path
	policy ContainerPolicy
}

// At builds an accessor for a dotted path using the CreateMissing policy. It
// panics on a malformed path; use AtPath with ParsePath to handle the error.
func At(path string) Accessor {
	return AtPath(MustPath(path), CreateMissing)
}

// AtPath builds an accessor for p using the supplied container policy.
func AtPath(p Path, policy ContainerPolicy) Accessor {
	if policy == nil {
		policy = CreateMissing
	}
	return pathAccessor{path: append(Path(nil), p...), policy: policy}
}

func (a pathAccessor) Name() string { return a.path.String() }

func (a pathAccessor) Get(model Record) (any, bool) {
	return a.path.Get(model)
}

func (a pathAccessor) Set(model Record, value any) (Record, error) {
	return a.path.Set(model, value, a.policy)
}

// PathOf exposes the underlying path of accessors built with At or AtPath.
func PathOf(a Accessor) (Path, bool) {
	pa, ok := a.(pathAccessor)
	if !ok {
		return nil, false
	}
	return append(Path(nil), pa.path...), true
}

type funcAccessor struct {
	name string
	get  func(Record) (any, bool)
	set  func(Record, any) (Record, error)
}

// Func builds an accessor from an explicit get/set pair. set must return a new
// model rather than mutate its input.
func Func(name string, get func(Record) (any, bool), set func(Record, any) (Record, error)) Accessor {
	return funcAccessor{name: strings.TrimSpace(name), get: get, set: set}
}

func (a funcAccessor) Name() string { return a.name }

func (a funcAccessor) Get(model Record) (any, bool) {
	if a.get == nil {
		return nil, false
	}
	return a.get(model)
}

func (a funcAccessor) Set(model Record, value any) (Record, error) {
	if a.set == nil {
		return nil, ErrReadOnlyAccessor
	}
	return a.set(model, value)
}

// Field describes one input: which control renders it, how it is labelled,
// where its value lives, and how it is validated.
type Field struct {
	ID    FieldID
	Type  string
	Label Value[string]
	Value Accessor
	// Validate is optional.
	Validate Validator
	// Readonly defaults to false, Visible to true.
	Readonly Value[bool]
	Visible  Value[bool]
	// Props carries control-specific extras, passed through to the control
	// beneath the base props.
	Props map[string]any
}

// Name returns the accessor name, or the id when no accessor is set.
func (f Field) Name() string {
	if f.Value != nil {
		if name := f.Value.Name(); name != "" {
			return name
		}
	}
	return string(f.ID)
}

// Section is a titled, ordered group of fields.
type Section struct {
	ID     string
	Title  string
	Fields []Field
	Props  map[string]any
}

// NewSection groups fields under title and assigns a generated id to every
// field that lacks one.
func NewSection(title string, fields ...Field) Section {
	section := Section{
		Title:  title,
		Fields: make([]Field, len(fields)),
	}
	for i, field := range fields {
		if field.ID == "" {
			field.ID = newFieldID()
		}
		section.Fields[i] = field
	}
	return section
}

func newFieldID() FieldID {
	return FieldID(uuid.NewString())
}
