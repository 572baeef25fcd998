package expr

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

func TestEvaluatorRules(t *testing.T) {
	t.Parallel()

	model := form.Record{
		"enabled": true,
		"flag":    "true",
		"plan":    "pro",
		"age":     21,
		"total":   "99.5",
		"owner":   form.Record{"name": "Ann", "address": form.Record{"city": "Lisbon"}},
		"tags":    []any{},
	}
	model["cta.headline"] = "Hello"
	extras := map[string]any{"admin": true, "role": "editor"}

	tests := []struct {
		rule string
		want bool
	}{
		{rule: "", want: true},
		{rule: "enabled", want: true},
		{rule: "!enabled", want: false},
		{rule: "enabled == true", want: true},
		{rule: "flag == true", want: true},
		{rule: "plan == \"pro\"", want: true},
		{rule: "plan == 'pro'", want: true},
		{rule: "plan == pro", want: true},
		{rule: "plan != pro", want: false},
		{rule: "age >= 18", want: true},
		{rule: "age < 18", want: false},
		{rule: "total > 99", want: true},
		{rule: "total <= 99", want: false},
		{rule: "age == 21", want: true},
		{rule: "owner.name == Ann", want: true},
		{rule: "owner.address.city != Porto", want: true},
		{rule: "owner.phone == null", want: true},
		{rule: "owner != null", want: true},
		{rule: "cta.headline == Hello", want: true},
		{rule: "tags", want: false},
		{rule: "missing", want: false},
		{rule: "extras.admin && plan == pro", want: true},
		{rule: "EXTRAS.role == editor", want: true},
		{rule: "!(enabled && age < 18) || missing", want: true},
		{rule: "missing || (enabled && extras.role == viewer)", want: false},
	}

	eval := New()
	for _, tt := range tests {
		got, err := eval.Eval("field", tt.rule, visibility.Context{Values: model, Extras: extras})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.rule, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %v, got %v", tt.rule, tt.want, got)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		"a = b",
		"a & b",
		"a | b",
		"(a && b",
		"a ==",
		"== a",
		"a > \"x\"",
		"plan == 'pro",
		"a b",
	} {
		if _, err := Compile(rule); !errors.Is(err, ErrSyntax) {
			t.Fatalf("%q: expected ErrSyntax, got %v", rule, err)
		}
	}
}

func TestEvaluatorCachesPrograms(t *testing.T) {
	t.Parallel()

	eval := New()
	if _, err := eval.Eval("", "a == 1", visibility.Context{}); err != nil {
		t.Fatalf("eval: %v", err)
	}
	first := eval.cache["a == 1"]
	if _, err := eval.Eval("", "  a == 1 ", visibility.Context{}); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if eval.cache["a == 1"] != first || len(eval.cache) != 1 {
		t.Fatalf("expected cached program to be reused")
	}
}

func TestConditionTracksModel(t *testing.T) {
	t.Parallel()

	visible := visibility.Condition(New(), "discount", "plan == pro", nil)
	if !visible.Resolve(form.Record{"plan": "pro"}, false) {
		t.Fatalf("expected visible for pro plan")
	}
	if visible.Resolve(form.Record{"plan": "free"}, true) {
		t.Fatalf("expected hidden for free plan")
	}

	broken := visibility.Condition(New(), "discount", "plan ==", nil)
	if broken.Resolve(form.Record{}, true) {
		t.Fatalf("expected failing rule to resolve false")
	}
}
