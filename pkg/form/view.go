package form

import (
	"github.com/goliatone/go-formkit/pkg/controls"
)

// View is the resolved render tree of one render pass.
type View struct {
	Sections []SectionView
}

// SectionView holds the visible fields of a section.
type SectionView struct {
	Section Section
	Fields  []FieldView
}

// FieldView pairs a visible field with its control and composed props.
type FieldView struct {
	Field      Field
	Descriptor controls.Descriptor
	Props      controls.Props
}

// Tags lists the control tags present in the view.
func (v View) Tags() []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, section := range v.Sections {
		for _, field := range section.Fields {
			if _, ok := seen[field.Descriptor.Name]; ok {
				continue
			}
			seen[field.Descriptor.Name] = struct{}{}
			tags = append(tags, field.Descriptor.Name)
		}
	}
	return tags
}

// reservedProps are the base prop names that override same-named extras.
var reservedProps = []string{"label", "value", "onChange", "readonly", "isModified", "error"}

// View resolves visibility, labels, readonly flags, modified state, errors and
// controls for the current model. Hidden fields are left out entirely.
func (i *Instance) View() (View, error) {
	view := View{Sections: make([]SectionView, 0, len(i.form.sections))}
	for _, section := range i.form.sections {
		sv := SectionView{Section: section}
		for _, field := range section.Fields {
			if !field.Visible.Resolve(i.model, true) {
				continue
			}
			descriptor, err := i.form.registry.Lookup(field.Type)
			if err != nil {
				return View{}, &FieldError{Section: section.Title, ID: field.ID, Err: err}
			}
			sv.Fields = append(sv.Fields, FieldView{
				Field:      field,
				Descriptor: descriptor,
				Props:      i.props(field),
			})
		}
		view.Sections = append(view.Sections, sv)
	}
	return view, nil
}

func (i *Instance) props(field Field) controls.Props {
	extra := cloneProps(field.Props)
	for _, key := range reservedProps {
		delete(extra, key)
	}
	value, _ := field.Value.Get(i.model)
	message := i.errors[field.ID]
	id := field.ID
	return controls.Props{
		ID:         string(field.ID),
		Name:       field.Name(),
		Label:      field.Label.Resolve(i.model, ""),
		Value:      value,
		OnChange:   func(v any) error { return i.SetValue(id, v) },
		Readonly:   field.Readonly.Resolve(i.model, false),
		IsModified: i.IsModified(field.ID),
		Error:      message,
		Extra:      extra,
	}
}
