package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formkit/internal/logging"
	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
)

// Runner drives a mounted form instance from the terminal. Every answer goes
// through the instance's setter, and submission is gated by the instance.
type Runner struct {
	driver      PromptDriver
	theme       Theme
	maxAttempts int
	logger      *slog.Logger
}

// New constructs a Runner with the survey driver.
func New(options ...Option) *Runner {
	r := &Runner{
		driver: NewSurveyDriver(),
		theme:  DefaultTheme,
		logger: logging.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Run prompts every visible, writable field section by section, then submits.
// While submission is blocked only the fields carrying errors are asked again.
// The accepted model is returned.
func (r *Runner) Run(ctx context.Context, inst *form.Instance) (form.Record, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if inst == nil {
		return nil, errors.New("tui: instance is required")
	}
	registry := inst.Form().Registry()

	for _, section := range inst.Form().Sections() {
		if title := strings.TrimSpace(section.Title); title != "" {
			if err := r.driver.Info(ctx, r.theme.SectionPrefix+title); err != nil {
				return nil, err
			}
		}
		for _, field := range section.Fields {
			if !r.promptable(inst, field) {
				continue
			}
			if err := r.ask(ctx, inst, registry, field); err != nil {
				return nil, err
			}
		}
	}

	for attempt := 1; ; attempt++ {
		if inst.Submit(form.NewSubmitEvent(ctx)) {
			r.logger.Debug("terminal submission accepted", "attempts", attempt)
			return inst.Model(), nil
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return nil, fmt.Errorf("%w: %d", ErrTooManyAttempts, attempt)
		}

		pending := r.erroredFields(inst)
		if len(pending) == 0 {
			return nil, ErrUnresolvable
		}
		msg := fmt.Sprintf("%sPlease fix %d field(s) before submitting.", r.theme.InfoPrefix, len(pending))
		if err := r.driver.Info(ctx, msg); err != nil {
			return nil, err
		}
		for _, field := range pending {
			if err := r.ask(ctx, inst, registry, field); err != nil {
				return nil, err
			}
		}
	}
}

func (r *Runner) promptable(inst *form.Instance, field form.Field) bool {
	model := inst.Model()
	return field.Visible.Resolve(model, true) && !field.Readonly.Resolve(model, false)
}

func (r *Runner) erroredFields(inst *form.Instance) []form.Field {
	var out []form.Field
	for _, section := range inst.Form().Sections() {
		for _, field := range section.Fields {
			if _, ok := inst.Error(field.ID); ok && r.promptable(inst, field) {
				out = append(out, field)
			}
		}
	}
	return out
}

func (r *Runner) ask(ctx context.Context, inst *form.Instance, registry *controls.Registry, field form.Field) error {
	descriptor, err := registry.Lookup(field.Type)
	if err != nil {
		return err
	}
	model := inst.Model()
	current, _ := inst.Value(field.ID)
	label := field.Label.Resolve(model, field.Name())
	help := helpText(field)
	if message, ok := inst.Error(field.ID); ok {
		label = fmt.Sprintf("%s (%s)", label, message)
	}

	var value any
	switch descriptor.Name {
	case "checkbox":
		value, err = r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: truthy(current), Help: help})
	case "select":
		value, err = r.selectValue(ctx, field, label, help, current)
	case "textarea":
		value, err = r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: controls.FormatValue(current), Help: help})
	case "password":
		var answer string
		if answer, err = r.driver.Password(ctx, InputConfig{Message: label, Help: help}); err == nil {
			value, err = decode(descriptor, answer)
		}
	default:
		var answer string
		if answer, err = r.driver.Input(ctx, InputConfig{Message: label, Default: controls.FormatValue(current), Help: help}); err == nil {
			value, err = decode(descriptor, answer)
		}
	}
	if err != nil {
		return err
	}

	if err := inst.SetValue(field.ID, value); err != nil {
		return err
	}
	if message, ok := inst.Error(field.ID); ok {
		r.logger.Debug("terminal answer invalid", "field", string(field.ID), "message", message)
		return r.driver.Info(ctx, r.theme.ErrorPrefix+field.Label.Resolve(inst.Model(), field.Name())+": "+message)
	}
	return nil
}

func (r *Runner) selectValue(ctx context.Context, field form.Field, label, help string, current any) (any, error) {
	values, labels := options(field.Props["options"])
	if len(values) == 0 {
		return nil, fmt.Errorf("tui: select field %q has no options", string(field.ID))
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      labels,
		DefaultIndex: indexOf(values, controls.FormatValue(current)),
		Help:         help,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		return nil, fmt.Errorf("tui: select field %q: choice %d out of range", string(field.ID), idx)
	}
	return values[idx], nil
}

func decode(descriptor controls.Descriptor, answer string) (any, error) {
	if descriptor.Decode == nil {
		return answer, nil
	}
	return descriptor.Decode([]string{answer})
}

func options(raw any) (values, labels []string) {
	add := func(value, label string) {
		if label == "" {
			label = value
		}
		values = append(values, value)
		labels = append(labels, label)
	}
	switch typed := raw.(type) {
	case []string:
		for _, value := range typed {
			add(value, "")
		}
	case []any:
		for _, entry := range typed {
			if m, ok := entry.(map[string]any); ok {
				add(controls.FormatValue(m["value"]), controls.FormatValue(m["label"]))
				continue
			}
			add(controls.FormatValue(entry), "")
		}
	case []map[string]any:
		for _, m := range typed {
			add(controls.FormatValue(m["value"]), controls.FormatValue(m["label"]))
		}
	}
	return values, labels
}

func helpText(field form.Field) string {
	help, _ := field.Props["help"].(string)
	return strings.TrimSpace(help)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}
