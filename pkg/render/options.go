package render

import "strings"

// Options describe per-request data used when a mounted form writes its
// markup, without touching the form definition itself.
type Options struct {
	// ID is emitted as the form element id when set.
	ID string
	// Action and Method populate the form element. Method defaults to POST.
	// Verbs browsers cannot submit (PUT/PATCH/DELETE) are sent as POST with a
	// hidden _method input.
	Action string
	Method string
	// Hidden lists extra hidden inputs such as session ids or CSRF tokens.
	Hidden []HiddenField
	// Class is appended to the form element class list.
	Class string
}

// FormMethod resolves the method attribute and, when the requested verb is not
// supported by HTML forms, the override to send in a hidden _method field.
func (o Options) FormMethod() (method, override string) {
	verb := strings.ToUpper(strings.TrimSpace(o.Method))
	switch verb {
	case "", "POST":
		return "post", ""
	case "GET":
		return "get", ""
	default:
		return "post", verb
	}
}

// HiddenFields merges the configured hidden inputs with the method override
// and returns them sorted by name.
func (o Options) HiddenFields() []HiddenField {
	fields := append([]HiddenField(nil), o.Hidden...)
	if _, override := o.FormMethod(); override != "" {
		fields = append(fields, Hidden("_method", override))
	}
	return SortedHiddenFields(MergeHiddenFields(nil, fields...))
}
