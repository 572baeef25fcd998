package testsupport_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/testsupport"
)

func TestWriteFixture(t *testing.T) {
	path := testsupport.WriteFixture(t, t.TempDir(), "nested/form.yaml", "forms: {}")
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "forms: {}" {
		t.Fatalf("unexpected fixture %q: %v", data, err)
	}
}

func TestRenderString(t *testing.T) {
	text := func(buf *bytes.Buffer, props controls.Props, _ controls.ComponentData) error {
		buf.WriteString(`<input name="` + props.Name + `">`)
		return nil
	}
	f := form.WithDefaultSection().RegisterFunc("text", text).MustCreateForm(
		form.NewSection("", form.Field{ID: "title", Type: "text", Value: form.At("title")}),
	)

	out := testsupport.RenderString(t, f.Mount(nil), render.Options{Action: "/save"})
	testsupport.AssertContains(t, out, `action="/save"`, `<input name="title">`)
	testsupport.AssertNotContains(t, out, `data-validation="invalid"`)
}
