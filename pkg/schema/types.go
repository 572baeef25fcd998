package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formkit/pkg/validation"
)

// Store holds every form definition found by LoadFS, keyed by form id.
type Store struct {
	forms map[string]FormSpec
}

// FormSpec is one declared form.
type FormSpec struct {
	ID       string        `json:"-" yaml:"-"`
	Source   string        `json:"-" yaml:"-"`
	Title    string        `json:"title,omitempty" yaml:"title,omitempty"`
	Submit   string        `json:"submit,omitempty" yaml:"submit,omitempty"`
	Sections []SectionSpec `json:"sections" yaml:"sections"`
}

// SectionSpec declares a titled group of fields.
type SectionSpec struct {
	ID     string         `json:"id,omitempty" yaml:"id,omitempty"`
	Title  string         `json:"title,omitempty" yaml:"title,omitempty"`
	Props  map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Fields []FieldSpec    `json:"fields" yaml:"fields"`
}

// FieldSpec declares one field. Path defaults to ID and ID to Path.
type FieldSpec struct {
	ID       string            `json:"id,omitempty" yaml:"id,omitempty"`
	Type     string            `json:"type" yaml:"type"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	Path     string            `json:"path,omitempty" yaml:"path,omitempty"`
	Readonly Flag              `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Visible  Flag              `json:"visible,omitempty" yaml:"visible,omitempty"`
	Rules    []validation.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	Props    map[string]any    `json:"props,omitempty" yaml:"props,omitempty"`
}

// Flag is a boolean that may also be given as an expression string, e.g.
// `visible: "plan == pro"`.
type Flag struct {
	set     bool
	literal bool
	rule    string
}

// Literal builds a constant flag.
func Literal(v bool) Flag { return Flag{set: true, literal: v} }

// Rule builds an expression flag.
func Rule(expr string) Flag {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Flag{}
	}
	return Flag{set: true, rule: expr}
}

// IsSet reports whether the flag was declared.
func (f Flag) IsSet() bool { return f.set }

// Expression returns the rule text, if the flag is an expression.
func (f Flag) Expression() (string, bool) {
	return f.rule, f.set && f.rule != ""
}

// Value returns the literal, meaningful when Expression reports false.
func (f Flag) Value() bool { return f.literal }

func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = Flag{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Literal(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("schema: flag must be a bool or expression string, got %s", trimmed)
	}
	*f = fromString(s)
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if rule, ok := f.Expression(); ok {
		return json.Marshal(rule)
	}
	return json.Marshal(f.literal)
}

func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("schema: line %d: flag must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*f = Flag{}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*f = Literal(b)
	case "!!str":
		*f = fromString(node.Value)
	default:
		return fmt.Errorf("schema: line %d: flag must be a bool or expression string, got %s", node.Line, node.Tag)
	}
	return nil
}

func (f Flag) IsZero() bool { return !f.set }

// fromString accepts "true"/"false" as literals so quoted booleans behave.
func fromString(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return Literal(true)
	case "false":
		return Literal(false)
	}
	return Rule(s)
}
