package render

import (
	"fmt"
	"slices"
	"strings"
)

// SessionFieldName is the default input name used by SessionField.
const SessionFieldName = "_session"

// HiddenField is a hidden input written at the top of the form element.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden builds a hidden input, formatting value with fmt.Sprint.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken carries token under name, e.g. "_csrf" or "csrf_token".
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// SessionField carries the id of the mounted instance a submission belongs
// to. An empty name uses SessionFieldName.
func SessionField(name, sessionID string) HiddenField {
	if strings.TrimSpace(name) == "" {
		name = SessionFieldName
	}
	return Hidden(name, sessionID)
}

// MergeHiddenFields overlays fields on base. Blank names are dropped and
// later fields win.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for name, value := range base {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields lists fields by name so markup is deterministic.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	var out []HiddenField
	for name, value := range fields {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, HiddenField{Name: name, Value: value})
		}
	}
	slices.SortFunc(out, func(a, b HiddenField) int { return strings.Compare(a.Name, b.Name) })
	return out
}
