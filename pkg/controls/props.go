package controls

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Props is the contract every control receives. The base fields always win
// over same-named entries in Extra.
type Props struct {
	// ID is the field id, Name its dotted model path.
	ID   string
	Name string

	Label      string
	Value      any
	OnChange   func(value any) error
	Readonly   bool
	IsModified bool
	// Error is empty when the field is valid.
	Error string

	Extra map[string]any
}

// HasError reports whether a validation message is attached.
func (p Props) HasError() bool {
	return p.Error != ""
}

// ExtraString returns Extra[key] when it holds a string.
func (p Props) ExtraString(key string) string {
	if p.Extra == nil {
		return ""
	}
	value, _ := p.Extra[key].(string)
	return value
}

// TemplateRenderer is the template seam controls render through.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// ComponentData carries render-time helpers shared by controls, headers and
// submit buttons.
type ComponentData struct {
	Template TemplateRenderer
	Theme    *theme.RendererConfig
	Config   map[string]any
}

// Partial returns the theme override for key, or fallback.
func (d ComponentData) Partial(key, fallback string) string {
	if d.Theme == nil || d.Theme.Partials == nil {
		return fallback
	}
	if candidate := strings.TrimSpace(d.Theme.Partials[key]); candidate != "" {
		return candidate
	}
	return fallback
}

// Control writes the markup for one field into buf.
type Control func(buf *bytes.Buffer, props Props, data ComponentData) error

// Decoder converts raw submitted values (as a browser or prompt delivers them)
// into the value type the control edits.
type Decoder func(raw []string) (any, error)

// DecodeString returns the first raw value, or "" when none was submitted.
func DecodeString(raw []string) (any, error) {
	if len(raw) == 0 {
		return "", nil
	}
	return raw[0], nil
}

// HeaderProps is what a section header receives. Children is the already
// rendered field list.
type HeaderProps struct {
	SectionID string
	Title     string
	Children  string
	Props     map[string]any
	FieldIDs  []string
	// ErrorFor looks up the current validation message of a field in the
	// section. Headers that want a section-level flag derive it themselves.
	ErrorFor func(id string) (string, bool)
}

// HasValidationError derives a section-level flag from the per-field lookups.
func HasValidationError(props HeaderProps) bool {
	if props.ErrorFor == nil {
		return false
	}
	for _, id := range props.FieldIDs {
		if _, ok := props.ErrorFor(id); ok {
			return true
		}
	}
	return false
}

// SectionHeader wraps a section's rendered fields.
type SectionHeader func(buf *bytes.Buffer, props HeaderProps, data ComponentData) error

// SubmitButton renders the control that submits the form.
type SubmitButton func(buf *bytes.Buffer, label string, data ComponentData) error

// FormatValue renders a model value the way controls display it. nil becomes
// "", floats drop trailing zeros, everything else goes through fmt.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
