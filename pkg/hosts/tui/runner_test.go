package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	passPos      int
	err          error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func profileForm() *form.Form {
	return form.WithRegistry(htmlcontrols.NewRegistry(), nil).MustCreateForm(
		form.NewSection("Profile",
			form.Field{ID: "first", Type: "text", Label: form.Static("First name"), Value: form.At("firstName"), Validate: validation.Required()},
			form.Field{ID: "age", Type: "number", Label: form.Static("Age"), Value: form.At("age"), Validate: validation.Min(18)},
			form.Field{ID: "news", Type: "checkbox", Label: form.Static("Newsletter"), Value: form.At("news")},
			form.Field{ID: "plan", Type: "select", Label: form.Static("Plan"), Value: form.At("plan"),
				Props: map[string]any{"options": []any{"free", map[string]any{"value": "pro", "label": "Pro plan"}}}},
			form.Field{ID: "bio", Type: "textarea", Label: form.Static("Bio"), Value: form.At("bio")},
			form.Field{ID: "pw", Type: "password", Label: form.Static("Password"), Value: form.At("pw")},
			form.Field{ID: "account", Type: "text", Label: form.Static("Account"), Value: form.At("account"), Readonly: form.Static(true)},
			form.Field{ID: "secret", Type: "text", Label: form.Static("Secret"), Value: form.At("secret"), Visible: form.Static(false)},
		),
	)
}

func TestRunner_PromptsAndRepromptsErroredFields(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "12", "Ann", "41"},
		confirm:   []bool{true},
		selectIdx: []int{1},
		textAreas: []string{"hello"},
		passwords: []string{"s3cret"},
	}
	inst := profileForm().Mount(form.Record{"account": "acc-1"})

	got, err := New(WithPromptDriver(driver)).Run(context.Background(), inst)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := form.Record{
		"firstName": "Ann",
		"age":       41.0,
		"news":      true,
		"plan":      "pro",
		"bio":       "hello",
		"pw":        "s3cret",
		"account":   "acc-1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{
		"First name", "Age", "Newsletter", "Plan", "Bio", "Password",
		"First name (required)", "Age (min 18)",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}

	wantInfo := []string{
		"== Profile",
		"! First name: required",
		"! Age: min 18",
		"Please fix 2 field(s) before submitting.",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_AbortPropagates(t *testing.T) {
	driver := &stubDriver{err: ErrAborted}
	_, err := New(WithPromptDriver(driver)).Run(context.Background(), profileForm().Mount(nil))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestRunner_UnreachableErrors(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ann", "30"},
		confirm:   []bool{false},
		selectIdx: []int{0},
		textAreas: []string{""},
		passwords: []string{""},
	}
	inst := profileForm().Mount(nil)
	inst.ApplyErrors(map[string][]string{"account": {"locked"}})

	_, err := New(WithPromptDriver(driver)).Run(context.Background(), inst)
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
}

func TestRunner_MaxAttempts(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "30"},
		confirm:   []bool{false},
		selectIdx: []int{0},
		textAreas: []string{""},
		passwords: []string{""},
	}
	_, err := New(WithPromptDriver(driver), WithMaxAttempts(1)).Run(context.Background(), profileForm().Mount(nil))
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestMarshal(t *testing.T) {
	model := form.Record{
		"name":  "Ann",
		"age":   41.0,
		"owner": form.Record{"city": "Porto"},
	}

	pretty, err := Marshal(model, OutputFormatPrettyText)
	if err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if diff := cmp.Diff("age: 41\nname: Ann\nowner.city: Porto\n", string(pretty)); diff != "" {
		t.Fatalf("pretty mismatch (-want +got):\n%s", diff)
	}

	encoded, err := Marshal(model, OutputFormatFormURLEncoded)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if diff := cmp.Diff("age=41&name=Ann&owner.city=Porto", string(encoded)); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	if _, err := Marshal(model, "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if ContentType(OutputFormatJSON) != "application/json" {
		t.Fatalf("unexpected json content type")
	}
}
