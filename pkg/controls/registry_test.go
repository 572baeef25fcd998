package controls

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func noopControl(*bytes.Buffer, Props, ComponentData) error { return nil }

func TestRegistryDescriptorClone(t *testing.T) {
	reg := New()
	if err := reg.Register("test", Descriptor{Control: noopControl, Stylesheets: []string{"/a.css"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	desc, err := reg.Lookup("test")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	desc.Stylesheets = append(desc.Stylesheets, "/mutated.css")

	original, _ := reg.Lookup("test")
	if diff := cmp.Diff([]string{"/a.css"}, original.Stylesheets); diff != "" {
		t.Fatalf("registry descriptor mutated (-want +got):\n%s", diff)
	}
	if original.Name != "test" {
		t.Fatalf("expected descriptor name to be the tag, got %q", original.Name)
	}
	if original.Decode == nil {
		t.Fatalf("expected default decoder")
	}
}

func TestRegistryTrimsTags(t *testing.T) {
	reg := New()
	reg.MustRegister("  text ", Descriptor{Control: noopControl})

	if !reg.Has("text") || !reg.Has(" text") {
		t.Fatalf("expected trimmed lookup")
	}
	if diff := cmp.Diff([]string{"text"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryTagsAreCaseSensitive(t *testing.T) {
	reg := New()
	reg.MustRegister("text", Descriptor{Control: noopControl, Stylesheets: []string{"/lower.css"}})
	reg.MustRegister("Text", Descriptor{Control: noopControl, Stylesheets: []string{"/upper.css"}})

	if diff := cmp.Diff([]string{"Text", "text"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	lower, err := reg.Lookup("text")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"/lower.css"}, lower.Stylesheets); diff != "" {
		t.Fatalf("lower-case entry overwritten (-want +got):\n%s", diff)
	}
	if reg.Has("TEXT") {
		t.Fatalf("unexpected case-insensitive match")
	}
}

func TestRegistryRejectsInvalidDescriptors(t *testing.T) {
	reg := New()
	if err := reg.Register("", Descriptor{Control: noopControl}); !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor for empty tag, got %v", err)
	}
	if err := reg.Register("x", Descriptor{}); !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor for nil control, got %v", err)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	_, err := New().Lookup("rating")
	if !errors.Is(err, ErrUnknownControl) {
		t.Fatalf("expected ErrUnknownControl, got %v", err)
	}
	var typed *UnknownControlError
	if !errors.As(err, &typed) || typed.Tag != "rating" {
		t.Fatalf("expected UnknownControlError{rating}, got %#v", err)
	}

	var nilRegistry *Registry
	if _, err := nilRegistry.Lookup("x"); !errors.Is(err, ErrUnknownControl) {
		t.Fatalf("nil registry should report unknown control, got %v", err)
	}
}

func TestRegistryCloneIsIndependent(t *testing.T) {
	reg := New()
	reg.MustRegister("text", Descriptor{Control: noopControl})

	clone := reg.Clone()
	clone.MustRegister("date", Descriptor{Control: noopControl})

	if reg.Has("date") {
		t.Fatalf("clone registration leaked into source")
	}
	if !clone.Has("text") {
		t.Fatalf("clone lost existing entry")
	}
}

func TestRegistryAssetsDeduplicates(t *testing.T) {
	reg := New()
	reg.MustRegister("input", Descriptor{
		Control:     noopControl,
		Stylesheets: []string{"/shared.css", "/input.css"},
		Scripts:     []Script{{Src: "/shared.js"}},
	})
	reg.MustRegister("select", Descriptor{
		Control:     noopControl,
		Stylesheets: []string{"/shared.css", "/select.css"},
		Scripts:     []Script{{Src: "/shared.js"}, {Src: "/select.js"}},
	})

	styles, scripts := reg.Assets([]string{"input", "select", "missing"})
	if diff := cmp.Diff([]string{"/shared.css", "/input.css", "/select.css"}, styles); diff != "" {
		t.Fatalf("styles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Script{{Src: "/shared.js"}, {Src: "/select.js"}}, scripts); diff != "" {
		t.Fatalf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeString(t *testing.T) {
	got, _ := DecodeString(nil)
	if got != "" {
		t.Fatalf("expected empty string, got %v", got)
	}
	got, _ = DecodeString([]string{"a", "b"})
	if got != "a" {
		t.Fatalf("expected first value, got %v", got)
	}
}

func TestHasValidationError(t *testing.T) {
	errs := map[string]string{"b": "bad"}
	props := HeaderProps{
		FieldIDs: []string{"a", "b"},
		ErrorFor: func(id string) (string, bool) {
			msg, ok := errs[id]
			return msg, ok
		},
	}
	if !HasValidationError(props) {
		t.Fatalf("expected section error flag")
	}
	props.FieldIDs = []string{"a"}
	if HasValidationError(props) {
		t.Fatalf("unexpected section error flag")
	}
}

func TestComponentDataPartial(t *testing.T) {
	var data ComponentData
	if got := data.Partial("forms.input", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: "x", want: "x"},
		{in: true, want: "true"},
		{in: 30.0, want: "30"},
		{in: 2.5, want: "2.5"},
		{in: 41, want: "41"},
		{in: int64(7), want: "7"},
		{in: []string{"a"}, want: "[a]"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Fatalf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
