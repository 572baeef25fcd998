package render

import (
	"slices"
	"strconv"
	"strings"
)

// ErrorMapping splits a server error payload into messages per field path and
// messages for the form as a whole.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Request envelopes stripped from the front of error keys.
var envelopeKeys = map[string]bool{
	"body":       true,
	"request":    true,
	"payload":    true,
	"data":       true,
	"attributes": true,
}

// Keys that address the whole form.
var formKeys = map[string]bool{
	"":                 true,
	".":                true,
	"/":                true,
	"#":                true,
	"$":                true,
	"form":             true,
	"base":             true,
	"__all__":          true,
	"non_field_errors": true,
	"non-field-errors": true,
}

// MergeFormErrors appends extras to existing, trimming messages and dropping
// blanks and repeats. Order is kept.
func MergeFormErrors(existing []string, extras ...string) []string {
	return uniqueMessages(slices.Concat(existing, extras))
}

// MapErrorPayload resolves every payload key to one of fieldPaths. Keys may be
// dotted paths, JSON pointers or JSONPath-like strings, nested under request
// envelopes or array indexes. The deepest matching path wins; keys matching
// nothing become form-level messages.
func MapErrorPayload(fieldPaths []string, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	known := make(map[string]bool, len(fieldPaths))
	for _, path := range fieldPaths {
		if path = strings.TrimSpace(path); path != "" {
			known[path] = true
		}
	}

	for key, messages := range payload {
		messages = uniqueMessages(messages)
		if len(messages) == 0 {
			continue
		}
		path := resolveErrorKey(key, known)
		if path == "" {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[path] = append(mapping.Fields[path], messages...)
	}
	mapping.Form = uniqueMessages(mapping.Form)
	return mapping
}

func resolveErrorKey(key string, known map[string]bool) string {
	if formKeys[strings.ToLower(strings.TrimSpace(key))] {
		return ""
	}
	segments := splitErrorKey(key)
	if len(segments) == 0 {
		return ""
	}

	bare := stripEnvelope(segments)
	best := ""
	for _, candidate := range [][]string{segments, bare, withoutIndexes(segments), withoutIndexes(bare)} {
		match := deepestMatch(candidate, known)
		if match != "" && (best == "" || strings.Count(match, ".") > strings.Count(best, ".")) {
			best = match
		}
	}
	return best
}

// splitErrorKey accepts "a.b", "a[0].b", "/a/b", "#/a/b" and "$.a.b".
func splitErrorKey(key string) []string {
	key = strings.TrimLeft(strings.TrimSpace(key), "#$/.")
	key = strings.NewReplacer("[", ".", "]", "").Replace(key)

	var segments []string
	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '.' || r == '/' }) {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		// JSON pointer escapes.
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		segments = append(segments, part)
	}
	return segments
}

func stripEnvelope(segments []string) []string {
	for len(segments) > 0 && envelopeKeys[strings.ToLower(segments[0])] {
		segments = segments[1:]
	}
	return segments
}

func withoutIndexes(segments []string) []string {
	return slices.DeleteFunc(slices.Clone(segments), func(segment string) bool {
		_, err := strconv.Atoi(segment)
		return err == nil
	})
}

// deepestMatch returns the longest known prefix of segments.
func deepestMatch(segments []string, known map[string]bool) string {
	for end := len(segments); end > 0; end-- {
		if candidate := strings.Join(segments[:end], "."); known[candidate] {
			return candidate
		}
	}
	return ""
}

func uniqueMessages(messages []string) []string {
	var out []string
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message != "" && !slices.Contains(out, message) {
			out = append(out, message)
		}
	}
	return out
}
