package htmlcontrols

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// Templates exposes the embedded control templates. Names are relative to the
// templates directory, for example "input.tpl", so includes resolve against
// the same root.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}
