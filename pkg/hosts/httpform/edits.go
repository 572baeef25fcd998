package httpform

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
)

// applyForm feeds a browser submission through the instance. Inputs are named
// by field path. Hidden and read-only fields are ignored, and so is every value
// that renders the same as the live one, so untouched fields are never
// validated here. Masked controls posted empty keep their value.
func (s *Server) applyForm(inst *form.Instance, values url.Values) error {
	for _, field := range s.editableFields(inst) {
		raw, ok := values[field.Name()]
		if !ok {
			continue
		}
		descriptor, err := s.registry.Lookup(field.Type)
		if err != nil {
			return err
		}
		if descriptor.Masked && (len(raw) == 0 || raw[0] == "") {
			continue
		}
		decoded, err := decodeWith(descriptor, field, raw)
		if err != nil {
			return err
		}
		if err := s.edit(inst, field, decoded); err != nil {
			return err
		}
	}
	return nil
}

// applyJSON reads each field's path out of a JSON body. Missing members leave
// the field alone.
func (s *Server) applyJSON(inst *form.Instance, body []byte) error {
	for _, field := range s.editableFields(inst) {
		value, ok := jsonValue(body, jsonPath(field))
		if !ok {
			continue
		}
		if err := s.edit(inst, field, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) editableFields(inst *form.Instance) []form.Field {
	model := inst.Model()
	var fields []form.Field
	for _, section := range inst.Form().Sections() {
		for _, field := range section.Fields {
			if !field.Visible.Resolve(model, true) || field.Readonly.Resolve(model, false) {
				continue
			}
			fields = append(fields, field)
		}
	}
	return fields
}

func (s *Server) decode(field form.Field, raw []string) (any, error) {
	descriptor, err := s.registry.Lookup(field.Type)
	if err != nil {
		return nil, err
	}
	return decodeWith(descriptor, field, raw)
}

func decodeWith(descriptor controls.Descriptor, field form.Field, raw []string) (any, error) {
	decode := descriptor.Decode
	if decode == nil {
		decode = controls.DecodeString
	}
	value, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode field %q: %w", string(field.ID), err)
	}
	return value, nil
}

func (s *Server) edit(inst *form.Instance, field form.Field, value any) error {
	current, _ := inst.Value(field.ID)
	if sameInput(current, value) {
		return nil
	}
	return s.set(inst, field, value)
}

// sameInput compares values the way controls render them. An absent value
// matches the empty input of every control: "", false or nil.
func sameInput(current, next any) bool {
	if current == nil {
		return isEmptyInput(next)
	}
	return controls.FormatValue(current) == controls.FormatValue(next)
}

func isEmptyInput(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	}
	return false
}

func (s *Server) set(inst *form.Instance, field form.Field, value any) error {
	if err := inst.SetValue(field.ID, value); err != nil {
		s.metrics.edits.WithLabelValues(outcomeError).Inc()
		return err
	}
	if _, invalid := inst.Error(field.ID); invalid {
		s.metrics.edits.WithLabelValues(outcomeInvalid).Inc()
		return nil
	}
	s.metrics.edits.WithLabelValues(outcomeValid).Inc()
	return nil
}

func jsonAction(body []byte) string {
	return gjson.GetBytes(body, actionField).String()
}

func jsonValue(body []byte, path string) (any, bool) {
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// jsonPath escapes the gjson metacharacters in each path segment.
func jsonPath(field form.Field) string {
	segments := []string{field.Name()}
	if path, ok := form.PathOf(field.Value); ok {
		segments = path
	}
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = gjsonEscaper.Replace(segment)
	}
	return strings.Join(escaped, ".")
}

var gjsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`!`, `\!`,
	`=`, `\=`,
	`<`, `\<`,
	`>`, `\>`,
	`%`, `\%`,
)
