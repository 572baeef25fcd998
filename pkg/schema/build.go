package schema

import (
	"fmt"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
	"github.com/goliatone/go-formkit/pkg/visibility"
	"github.com/goliatone/go-formkit/pkg/visibility/expr"
)

// BuildOption configures how a FormSpec becomes sections.
type BuildOption func(*buildConfig)

type buildConfig struct {
	evaluator visibility.Evaluator
	extras    map[string]any
	policy    form.ContainerPolicy
}

// WithEvaluator replaces the default expression evaluator. Rules are then not
// syntax-checked at build time.
func WithEvaluator(ev visibility.Evaluator) BuildOption {
	return func(c *buildConfig) {
		if ev != nil {
			c.evaluator = ev
		}
	}
}

// WithExtras exposes values to expressions under the `extras.` prefix.
func WithExtras(extras map[string]any) BuildOption {
	return func(c *buildConfig) {
		c.extras = extras
	}
}

// WithContainerPolicy sets how missing intermediate records are handled by
// the generated accessors. Defaults to form.CreateMissing.
func WithContainerPolicy(policy form.ContainerPolicy) BuildOption {
	return func(c *buildConfig) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// FormSections converts the spec into form sections ready for Builder.CreateForm.
func (f FormSpec) FormSections(opts ...BuildOption) ([]form.Section, error) {
	cfg := buildConfig{policy: form.CreateMissing}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	checkRules := cfg.evaluator == nil
	if checkRules {
		cfg.evaluator = expr.New()
	}

	sections := make([]form.Section, 0, len(f.Sections))
	for _, spec := range f.Sections {
		section := form.Section{
			ID:     spec.ID,
			Title:  spec.Title,
			Props:  spec.Props,
			Fields: make([]form.Field, 0, len(spec.Fields)),
		}
		for _, fieldSpec := range spec.Fields {
			field, err := f.field(fieldSpec, cfg, checkRules)
			if err != nil {
				return nil, err
			}
			section.Fields = append(section.Fields, field)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// Build creates the form with b.
func (f FormSpec) Build(b *form.Builder, opts ...BuildOption) (*form.Form, error) {
	sections, err := f.FormSections(opts...)
	if err != nil {
		return nil, err
	}
	built, err := b.CreateForm(sections...)
	if err != nil {
		return nil, fmt.Errorf("schema: form %q: %w", f.ID, err)
	}
	return built, nil
}

// MountOptions returns the instance options the spec implies, currently the
// submit label.
func (f FormSpec) MountOptions() []form.MountOption {
	if f.Submit == "" {
		return nil
	}
	return []form.MountOption{form.WithSubmitLabel(f.Submit)}
}

func (f FormSpec) field(spec FieldSpec, cfg buildConfig, checkRules bool) (form.Field, error) {
	path, err := form.ParsePath(spec.Path)
	if err != nil {
		return form.Field{}, f.errorf(spec, "path: %w", err)
	}
	validate, err := validation.FromRules(spec.Rules)
	if err != nil {
		return form.Field{}, f.errorf(spec, "rules: %w", err)
	}

	field := form.Field{
		ID:       form.FieldID(spec.ID),
		Type:     spec.Type,
		Value:    form.AtPath(path, cfg.policy),
		Validate: validate,
		Props:    spec.Props,
	}
	if spec.Label != "" {
		field.Label = form.Static(spec.Label)
	}
	if field.Readonly, err = f.flag(spec, spec.Readonly, cfg, checkRules); err != nil {
		return form.Field{}, err
	}
	if field.Visible, err = f.flag(spec, spec.Visible, cfg, checkRules); err != nil {
		return form.Field{}, err
	}
	return field, nil
}

func (f FormSpec) flag(spec FieldSpec, flag Flag, cfg buildConfig, checkRules bool) (form.Value[bool], error) {
	if !flag.IsSet() {
		return form.Value[bool]{}, nil
	}
	rule, isRule := flag.Expression()
	if !isRule {
		return form.Static(flag.Value()), nil
	}
	if checkRules {
		if _, err := expr.Compile(rule); err != nil {
			return form.Value[bool]{}, f.errorf(spec, "%w", err)
		}
	}
	return visibility.Condition(cfg.evaluator, spec.Path, rule, cfg.extras), nil
}

func (f FormSpec) errorf(spec FieldSpec, format string, args ...any) error {
	return fmt.Errorf("schema: form %q field %q: "+format, append([]any{f.ID, spec.ID}, args...)...)
}
