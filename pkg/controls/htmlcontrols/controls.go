package htmlcontrols

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formkit/pkg/controls"
)

// Theme partial keys. A theme maps these to its own template names.
const (
	PartialInput    = "forms.input"
	PartialTextarea = "forms.textarea"
	PartialCheckbox = "forms.checkbox"
	PartialSelect   = "forms.select"
	PartialSection  = "forms.section"
	PartialSubmit   = "forms.submit"
)

// DefaultPartials maps every partial key to its embedded template.
func DefaultPartials() map[string]string {
	return map[string]string{
		PartialInput:    "input.tpl",
		PartialTextarea: "textarea.tpl",
		PartialCheckbox: "checkbox.tpl",
		PartialSelect:   "select.tpl",
		PartialSection:  "section.tpl",
		PartialSubmit:   "submit.tpl",
	}
}

// NewRegistry returns a registry holding the built-in HTML controls.
func NewRegistry() *controls.Registry {
	registry := controls.New()

	registry.MustRegister("text", controls.Descriptor{Control: inputControl("text")})
	registry.MustRegister("email", controls.Descriptor{Control: inputControl("email")})
	registry.MustRegister("date", controls.Descriptor{Control: inputControl("date")})
	registry.MustRegister("password", controls.Descriptor{Control: inputControl("password"), Masked: true})
	registry.MustRegister("number", controls.Descriptor{
		Control: inputControl("number"),
		Decode:  DecodeNumber,
	})
	registry.MustRegister("textarea", controls.Descriptor{
		Control: templateControl(PartialTextarea, "textarea.tpl", func(payload map[string]any, props controls.Props) {
			rows := extraString(props, "rows")
			if rows == "" {
				rows = "4"
			}
			payload["rows"] = rows
		}),
	})
	registry.MustRegister("checkbox", controls.Descriptor{
		Control: templateControl(PartialCheckbox, "checkbox.tpl", func(payload map[string]any, props controls.Props) {
			payload["checked"] = truthy(props.Value)
		}),
		Decode: DecodeBool,
	})
	registry.MustRegister("select", controls.Descriptor{
		Control: templateControl(PartialSelect, "select.tpl", func(payload map[string]any, props controls.Props) {
			payload["options"] = selectOptions(props.Extra["options"], controls.FormatValue(props.Value))
		}),
	})

	return registry
}

func inputControl(inputType string) controls.Control {
	return templateControl(PartialInput, "input.tpl", func(payload map[string]any, props controls.Props) {
		payload["type"] = inputType
		if inputType == "password" {
			payload["value"] = ""
		}
	})
}

type payloadFunc func(payload map[string]any, props controls.Props)

func templateControl(partialKey, templateName string, extend payloadFunc) controls.Control {
	return func(buf *bytes.Buffer, props controls.Props, data controls.ComponentData) error {
		payload := fieldPayload(props, data)
		if extend != nil {
			extend(payload, props)
		}
		return renderPartial(buf, partialKey, templateName, payload, data)
	}
}

func renderPartial(buf *bytes.Buffer, partialKey, templateName string, payload map[string]any, data controls.ComponentData) error {
	if data.Template == nil {
		return fmt.Errorf("htmlcontrols: template renderer not configured for %q", templateName)
	}
	resolved := data.Partial(partialKey, templateName)
	rendered, err := data.Template.RenderTemplate(resolved, payload)
	if err != nil {
		return fmt.Errorf("htmlcontrols: render template %q: %w", resolved, err)
	}
	buf.WriteString(rendered)
	return nil
}

// fieldPayload flattens props into plain template values. OnChange never
// reaches the template.
func fieldPayload(props controls.Props, data controls.ComponentData) map[string]any {
	name := props.Name
	if name == "" {
		name = props.ID
	}
	payload := map[string]any{
		"id":          props.ID,
		"name":        name,
		"control_id":  controlID(props.ID),
		"label":       props.Label,
		"value":       controls.FormatValue(props.Value),
		"readonly":    props.Readonly,
		"modified":    props.IsModified,
		"error":       props.Error,
		"required":    truthy(props.Extra["required"]),
		"placeholder": extraString(props, "placeholder"),
		"help":        extraString(props, "help"),
		"help_html":   SanitizeHelpHTML(props.ExtraString("helpHTML")),
		"class":       sanitizeClassList(props.ExtraString("class")),
		"step":        extraString(props, "step"),
		"min":         extraString(props, "min"),
		"max":         extraString(props, "max"),
	}
	if len(data.Config) > 0 {
		payload["config"] = data.Config
	}
	return payload
}

// SectionHeader renders a section through the "forms.section" partial.
func SectionHeader(buf *bytes.Buffer, props controls.HeaderProps, data controls.ComponentData) error {
	payload := map[string]any{
		"section_id": props.SectionID,
		"title":      props.Title,
		"children":   props.Children,
		"invalid":    controls.HasValidationError(props),
	}
	if props.Props != nil {
		payload["class"] = sanitizeClassList(controls.FormatValue(props.Props["class"]))
		payload["description"] = controls.FormatValue(props.Props["description"])
	}
	if data.Theme != nil {
		payload["theme"] = data.Theme.Theme
		payload["style"] = cssVarsStyle(data.Theme.CSSVars)
	}
	return renderPartial(buf, PartialSection, "section.tpl", payload, data)
}

// SubmitButton renders the submit control through the "forms.submit" partial.
func SubmitButton(buf *bytes.Buffer, label string, data controls.ComponentData) error {
	payload := map[string]any{"label": label}
	if class, ok := data.Config["submitClass"].(string); ok {
		payload["class"] = sanitizeClassList(class)
	}
	return renderPartial(buf, PartialSubmit, "submit.tpl", payload, data)
}

// DecodeNumber parses the submitted value as a float. Empty input decodes to
// nil; text that does not parse is kept as a string so validators can report
// it.
func DecodeNumber(raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	value := strings.TrimSpace(raw[len(raw)-1])
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value, nil
	}
	return f, nil
}

// DecodeBool reports whether any submitted value is a checked marker. The
// checkbox template sends a hidden "false" ahead of the box itself.
func DecodeBool(raw []string) (any, error) {
	for _, value := range raw {
		if truthy(value) {
			return true, nil
		}
	}
	return false, nil
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

func selectOptions(raw any, current string) []any {
	var parsed []option
	add := func(value, label string) {
		if label == "" {
			label = value
		}
		parsed = append(parsed, option{Value: value, Label: label, Selected: value == current})
	}

	switch typed := raw.(type) {
	case []string:
		for _, value := range typed {
			add(value, "")
		}
	case []map[string]any:
		for _, entry := range typed {
			add(controls.FormatValue(entry["value"]), controls.FormatValue(entry["label"]))
		}
	case []any:
		for _, entry := range typed {
			if m, ok := entry.(map[string]any); ok {
				add(controls.FormatValue(m["value"]), controls.FormatValue(m["label"]))
				continue
			}
			add(controls.FormatValue(entry), "")
		}
	}

	out := make([]any, 0, len(parsed))
	for _, opt := range parsed {
		out = append(out, map[string]any{
			"value":    opt.Value,
			"label":    opt.Label,
			"selected": opt.Selected,
		})
	}
	return out
}

func extraString(props controls.Props, key string) string {
	if props.Extra == nil {
		return ""
	}
	return strings.TrimSpace(controls.FormatValue(props.Extra[key]))
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}

func controlID(id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ""
	}
	return "fk-" + strings.Join(strings.Fields(trimmed), "-")
}

func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.HasPrefix(token, "formkit-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}
