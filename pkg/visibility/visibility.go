package visibility

import (
	"github.com/goliatone/go-formkit/pkg/form"
)

// Evaluator decides a rule such as `plan == "pro" && extras.admin` against the
// live model of a form.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values is the form model; Extras
// carries caller context such as roles or feature flags, reachable through
// the `extras.` prefix.
type Context struct {
	Values form.Record
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// Condition turns a rule into a computed form value, evaluated against the
// model on every render. A failing evaluation resolves to false.
func Condition(ev Evaluator, fieldPath, rule string, extras map[string]any) form.Value[bool] {
	if ev == nil {
		return form.Value[bool]{}
	}
	return form.Computed(func(model form.Record) bool {
		ok, err := ev.Eval(fieldPath, rule, Context{Values: model, Extras: extras})
		return err == nil && ok
	})
}
