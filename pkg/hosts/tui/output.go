package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
)

// ContentType reports the media type Marshal produces for format.
func ContentType(format OutputFormat) string {
	switch format {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Marshal serializes a model. Nested records are flattened to dotted paths
// for the form and pretty formats.
func Marshal(model form.Record, format OutputFormat) ([]byte, error) {
	switch format {
	case "", OutputFormatJSON:
		out, err := json.MarshalIndent(model, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tui: encode json: %w", err)
		}
		return append(out, '\n'), nil
	case OutputFormatFormURLEncoded:
		values := url.Values{}
		for _, leaf := range flatten(model) {
			values.Add(leaf.path, controls.FormatValue(leaf.value))
		}
		return []byte(values.Encode()), nil
	case OutputFormatPrettyText:
		var buf bytes.Buffer
		for _, leaf := range flatten(model) {
			fmt.Fprintf(&buf, "%s: %s\n", leaf.path, controls.FormatValue(leaf.value))
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("tui: unsupported output format %q", format)
	}
}

type leaf struct {
	path  string
	value any
}

func flatten(model form.Record) []leaf {
	var out []leaf
	var walk func(prefix string, rec form.Record)
	walk = func(prefix string, rec form.Record) {
		for key, value := range rec {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if nested, ok := value.(form.Record); ok {
				walk(path, nested)
				continue
			}
			out = append(out, leaf{path: path, value: value})
		}
	}
	walk("", model)
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}
