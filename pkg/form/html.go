package form

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/render"
)

// Render writes the form element: one header-wrapped field list per section,
// the hidden inputs from opts, and the submit control.
func (i *Instance) Render(ctx context.Context, w io.Writer, opts render.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	view, err := i.View()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	method, _ := opts.FormMethod()
	buf.WriteString(`<form method="`)
	buf.WriteString(method)
	buf.WriteString(`"`)
	writeAttr(&buf, "id", opts.ID)
	writeAttr(&buf, "action", opts.Action)
	class := "formkit"
	if extra := strings.TrimSpace(opts.Class); extra != "" {
		class += " " + extra
	}
	writeAttr(&buf, "class", class)
	buf.WriteString(` novalidate>`)

	for _, hidden := range opts.HiddenFields() {
		buf.WriteString(`<input type="hidden"`)
		writeAttr(&buf, "name", hidden.Name)
		buf.WriteString(` value="`)
		buf.WriteString(html.EscapeString(hidden.Value))
		buf.WriteString(`">`)
	}

	for _, section := range view.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.renderSection(&buf, section); err != nil {
			return err
		}
	}

	if err := i.submitButton(&buf, i.submitLabel, i.data); err != nil {
		return fmt.Errorf("form: render submit: %w", err)
	}
	buf.WriteString(`</form>`)

	_, err = w.Write(buf.Bytes())
	return err
}

func (i *Instance) renderSection(buf *bytes.Buffer, section SectionView) error {
	var children bytes.Buffer
	ids := make([]string, 0, len(section.Fields))
	for _, field := range section.Fields {
		ids = append(ids, string(field.Field.ID))
		if err := field.Descriptor.Control(&children, field.Props, i.data); err != nil {
			return &FieldError{Section: section.Section.Title, ID: field.Field.ID, Err: err}
		}
	}

	header := i.form.header
	if header == nil {
		header = DefaultSectionHeader
	}
	props := controls.HeaderProps{
		SectionID: section.Section.ID,
		Title:     section.Section.Title,
		Children:  children.String(),
		Props:     cloneProps(section.Section.Props),
		FieldIDs:  ids,
		ErrorFor: func(id string) (string, bool) {
			return i.Error(FieldID(id))
		},
	}
	if err := header(buf, props, i.data); err != nil {
		return fmt.Errorf("form: render section %q: %w", section.Section.Title, err)
	}
	return nil
}

// DefaultSectionHeader wraps a section in a fieldset with a legend.
func DefaultSectionHeader(buf *bytes.Buffer, props controls.HeaderProps, _ controls.ComponentData) error {
	buf.WriteString(`<fieldset class="formkit-section"`)
	writeAttr(buf, "data-section", props.SectionID)
	if controls.HasValidationError(props) {
		buf.WriteString(` data-validation="invalid"`)
	}
	buf.WriteString(`>`)
	if title := strings.TrimSpace(props.Title); title != "" {
		buf.WriteString(`<legend>`)
		buf.WriteString(html.EscapeString(title))
		buf.WriteString(`</legend>`)
	}
	buf.WriteString(props.Children)
	buf.WriteString(`</fieldset>`)
	return nil
}

// DefaultSubmitButton renders a plain submit button.
func DefaultSubmitButton(buf *bytes.Buffer, label string, _ controls.ComponentData) error {
	buf.WriteString(`<button type="submit" name="_action" value="submit">`)
	buf.WriteString(html.EscapeString(label))
	buf.WriteString(`</button>`)
	return nil
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(html.EscapeString(value))
	buf.WriteString(`"`)
}
