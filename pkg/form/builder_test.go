package form_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
)

func TestBuilder_RegistrationDoesNotLeakIntoEarlierForms(t *testing.T) {
	base := form.WithDefaultSection().RegisterFunc("text", textControl)
	early := base.MustCreateForm(form.NewSection("A",
		form.Field{ID: "name", Type: "text", Value: form.At("name")},
	))

	extended := base.RegisterFunc("date", textControl)

	if diff := cmp.Diff([]string{"text"}, base.Controls()); diff != "" {
		t.Fatalf("base builder changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"date", "text"}, extended.Controls()); diff != "" {
		t.Fatalf("extended builder mismatch (-want +got):\n%s", diff)
	}
	if early.Registry().Has("date") {
		t.Fatalf("form created earlier observed a later registration")
	}

	_, err := base.CreateForm(form.NewSection("B",
		form.Field{ID: "when", Type: "date", Value: form.At("when")},
	))
	if !errors.Is(err, form.ErrUnknownControl) {
		t.Fatalf("expected ErrUnknownControl from base builder, got %v", err)
	}
	if _, err := extended.CreateForm(form.NewSection("B",
		form.Field{ID: "when", Type: "date", Value: form.At("when")},
	)); err != nil {
		t.Fatalf("extended builder should know date: %v", err)
	}
}

func TestBuilder_RegisterControlReplacesTag(t *testing.T) {
	first := func(buf *bytes.Buffer, _ controls.Props, _ controls.ComponentData) error {
		buf.WriteString("first")
		return nil
	}
	second := func(buf *bytes.Buffer, _ controls.Props, _ controls.ComponentData) error {
		buf.WriteString("second")
		return nil
	}

	f := form.WithDefaultSection().
		RegisterFunc("text", first).
		RegisterFunc(" text ", second).
		MustCreateForm(form.NewSection("", form.Field{ID: "x", Type: "text", Value: form.At("x")}))

	view, err := f.Mount(nil).View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	var buf bytes.Buffer
	if err := view.Sections[0].Fields[0].Descriptor.Control(&buf, controls.Props{}, controls.ComponentData{}); err != nil {
		t.Fatalf("control: %v", err)
	}
	if buf.String() != "second" {
		t.Fatalf("expected replacement control, got %q", buf.String())
	}
}

func TestBuilder_CreateFormValidation(t *testing.T) {
	b := newBuilder()

	_, err := b.CreateForm(form.NewSection("Broken",
		form.Field{ID: "dup", Type: "text", Value: form.At("a")},
		form.Field{ID: "dup", Type: "text", Value: form.At("b")},
		form.Field{ID: "noaccessor", Type: "text"},
		form.Field{ID: "unknown", Type: "rating", Value: form.At("r")},
	))
	if err == nil {
		t.Fatalf("expected configuration errors")
	}
	for _, target := range []error{form.ErrDuplicateField, form.ErrMissingAccessor, form.ErrUnknownControl} {
		if !errors.Is(err, target) {
			t.Fatalf("expected %v in %v", target, err)
		}
	}

	var unknown *controls.UnknownControlError
	if !errors.As(err, &unknown) || unknown.Tag != "rating" {
		t.Fatalf("expected UnknownControlError for rating, got %v", err)
	}
}

func TestBuilder_InvalidDescriptorSurfacesAtCreate(t *testing.T) {
	b := form.WithDefaultSection().RegisterControl("broken", controls.Descriptor{})

	_, err := b.CreateForm()
	if !errors.Is(err, controls.ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestBuilder_AssignsIDs(t *testing.T) {
	f := newBuilder().MustCreateForm(
		form.Section{Title: "One", Fields: []form.Field{{Type: "text", Value: form.At("a")}}},
		form.Section{ID: "custom", Title: "Two"},
	)

	sections := f.Sections()
	if sections[0].ID != "section-0" || sections[1].ID != "custom" {
		t.Fatalf("unexpected section ids: %q %q", sections[0].ID, sections[1].ID)
	}
	if sections[0].Fields[0].ID == "" {
		t.Fatalf("expected generated field id")
	}
	if diff := cmp.Diff([]string{"text"}, f.Tags()); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_CustomSectionHeader(t *testing.T) {
	header := func(buf *bytes.Buffer, props controls.HeaderProps, _ controls.ComponentData) error {
		buf.WriteString("<section>")
		buf.WriteString(strings.ToUpper(props.Title))
		if controls.HasValidationError(props) {
			buf.WriteString("!")
		}
		buf.WriteString(props.Children)
		buf.WriteString("</section>")
		return nil
	}
	f := form.WithSection(header).
		RegisterFunc("text", textControl).
		MustCreateForm(form.NewSection("Profile",
			form.Field{ID: "name", Type: "text", Value: form.At("name"), Validate: required},
		))

	inst := f.Mount(form.Record{"name": "x"})
	_ = inst.SetValue("name", "")

	var buf bytes.Buffer
	if err := inst.Render(context.Background(), &buf, render.Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "<section>PROFILE!<input") {
		t.Fatalf("custom header not used:\n%s", buf.String())
	}
}
