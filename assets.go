package formkit

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
)

// StylesheetName is the default stylesheet inside Assets.
const StylesheetName = "formkit.css"

//go:embed assets/*.css
var embeddedAssets embed.FS

// Assets exposes the default stylesheet so Go applications can serve it
// without a frontend build step. Pair it with htmlcontrols.WithStylesheets so
// pages link it.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formkit.Assets()),
//	  ),
//	)
func Assets() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

// Templates exposes the built-in control templates so callers can copy or
// override them without importing htmlcontrols directly.
func Templates() fs.FS {
	return htmlcontrols.Templates()
}
