package render

import (
	"bytes"
	"html"
	"maps"
	"slices"

	"github.com/goliatone/go-formkit/pkg/controls"
)

// Page describes a standalone HTML document around rendered form markup.
type Page struct {
	Title       string
	Stylesheets []string
	Scripts     []controls.Script
	// Body is written verbatim; callers escape their own content.
	Body []byte
}

// WritePage writes page as a complete document. Stylesheets go in the head,
// scripts after the body markup.
func WritePage(buf *bytes.Buffer, page Page) {
	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
	buf.WriteString(html.EscapeString(page.Title))
	buf.WriteString(`</title>`)
	for _, href := range page.Stylesheets {
		buf.WriteString(`<link rel="stylesheet" href="`)
		buf.WriteString(html.EscapeString(href))
		buf.WriteString(`">`)
	}
	buf.WriteString(`</head><body>`)
	buf.Write(page.Body)
	for _, script := range page.Scripts {
		writeScript(buf, script)
	}
	buf.WriteString(`</body></html>`)
}

func writeScript(buf *bytes.Buffer, script controls.Script) {
	buf.WriteString(`<script`)
	switch {
	case script.Module:
		buf.WriteString(` type="module"`)
	case script.Type != "":
		buf.WriteString(` type="`)
		buf.WriteString(html.EscapeString(script.Type))
		buf.WriteString(`"`)
	}
	if script.Src != "" {
		buf.WriteString(` src="`)
		buf.WriteString(html.EscapeString(script.Src))
		buf.WriteString(`"`)
	}
	if script.Async {
		buf.WriteString(` async`)
	}
	if script.Defer {
		buf.WriteString(` defer`)
	}
	for _, key := range slices.Sorted(maps.Keys(script.Attrs)) {
		buf.WriteString(` `)
		buf.WriteString(html.EscapeString(key))
		buf.WriteString(`="`)
		buf.WriteString(html.EscapeString(script.Attrs[key]))
		buf.WriteString(`"`)
	}
	buf.WriteString(`>`)
	if script.Src == "" {
		buf.WriteString(script.Inline)
	}
	buf.WriteString(`</script>`)
}
