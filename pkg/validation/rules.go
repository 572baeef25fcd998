package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-formkit/pkg/form"
)

// Rule kinds understood by FromRule.
const (
	KindRequired  = "required"
	KindMin       = "min"
	KindMax       = "max"
	KindMinLength = "minLength"
	KindMaxLength = "maxLength"
	KindPattern   = "pattern"
)

var (
	// ErrUnknownRule is returned by FromRule for an unsupported kind.
	ErrUnknownRule = errors.New("validation: unknown rule")
	// ErrInvalidRule is returned when a rule's params cannot be parsed.
	ErrInvalidRule = errors.New("validation: invalid rule params")
)

// Rule is the declarative form of a validator, as found in form definition
// files and OpenAPI constraints. Min/Max/MinLength/MaxLength read
// Params["value"], Pattern reads Params["pattern"].
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Required rejects nil, blank strings and empty collections.
func Required() form.Validator {
	return func(value any) error {
		if isEmpty(value) {
			return errors.New("required")
		}
		return nil
	}
}

// MinLength rejects strings (in runes) or collections shorter than n. Empty
// values pass so optional fields stay optional.
func MinLength(n int) form.Validator {
	return func(value any) error {
		if isEmpty(value) {
			return nil
		}
		if length, ok := lengthOf(value); ok && length < n {
			return fmt.Errorf("min length %d", n)
		}
		return nil
	}
}

// MaxLength rejects strings (in runes) or collections longer than n.
func MaxLength(n int) form.Validator {
	return func(value any) error {
		if length, ok := lengthOf(value); ok && length > n {
			return fmt.Errorf("max length %d", n)
		}
		return nil
	}
}

// Pattern rejects non-empty strings that do not match re.
func Pattern(re *regexp.Regexp) form.Validator {
	return func(value any) error {
		if isEmpty(value) || re == nil {
			return nil
		}
		if !re.MatchString(fmt.Sprint(value)) {
			return errors.New("does not match required pattern")
		}
		return nil
	}
}

// Min rejects numbers below limit. Numeric strings are parsed; other
// non-empty values fail with a type message.
func Min(limit float64) form.Validator {
	return func(value any) error {
		if isEmpty(value) {
			return nil
		}
		n, err := toFloat(value)
		if err != nil {
			return err
		}
		if n < limit {
			return fmt.Errorf("min %v", limit)
		}
		return nil
	}
}

// Max rejects numbers above limit.
func Max(limit float64) form.Validator {
	return func(value any) error {
		if isEmpty(value) {
			return nil
		}
		n, err := toFloat(value)
		if err != nil {
			return err
		}
		if n > limit {
			return fmt.Errorf("max %v", limit)
		}
		return nil
	}
}

// All runs validators in order and reports the first failure. Nil entries
// are skipped; with nothing left All returns nil.
func All(validators ...form.Validator) form.Validator {
	active := make([]form.Validator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			active = append(active, v)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(value any) error {
		for _, v := range active {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMessage replaces the failure text of v.
func WithMessage(v form.Validator, message string) form.Validator {
	if v == nil || strings.TrimSpace(message) == "" {
		return v
	}
	return func(value any) error {
		if err := v(value); err != nil {
			return errors.New(message)
		}
		return nil
	}
}

// FromRule compiles a declarative rule.
func FromRule(rule Rule) (form.Validator, error) {
	var (
		v   form.Validator
		err error
	)
	switch strings.TrimSpace(rule.Kind) {
	case KindRequired:
		v = Required()
	case KindMin:
		var limit float64
		if limit, err = floatParam(rule, "value"); err == nil {
			v = Min(limit)
		}
	case KindMax:
		var limit float64
		if limit, err = floatParam(rule, "value"); err == nil {
			v = Max(limit)
		}
	case KindMinLength:
		var n int
		if n, err = intParam(rule, "value"); err == nil {
			v = MinLength(n)
		}
	case KindMaxLength:
		var n int
		if n, err = intParam(rule, "value"); err == nil {
			v = MaxLength(n)
		}
	case KindPattern:
		var re *regexp.Regexp
		if re, err = regexp.Compile(rule.Params["pattern"]); err != nil {
			err = fmt.Errorf("%w: pattern %q: %v", ErrInvalidRule, rule.Params["pattern"], err)
		} else {
			v = Pattern(re)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, rule.Kind)
	}
	if err != nil {
		return nil, err
	}
	return WithMessage(v, rule.Message), nil
}

// FromRules compiles rules and chains them with All.
func FromRules(rules []Rule) (form.Validator, error) {
	validators := make([]form.Validator, 0, len(rules))
	for _, rule := range rules {
		v, err := FromRule(rule)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}
	return All(validators...), nil
}

func floatParam(rule Rule, key string) (float64, error) {
	raw := strings.TrimSpace(rule.Params[key])
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s=%q", ErrInvalidRule, rule.Kind, key, raw)
	}
	return val, nil
}

func intParam(rule Rule, key string) (int, error) {
	raw := strings.TrimSpace(rule.Params[key])
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s=%q", ErrInvalidRule, rule.Kind, key, raw)
	}
	return val, nil
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func lengthOf(value any) (int, bool) {
	if s, ok := value.(string); ok {
		return len([]rune(s)), true
	}
	if value == nil {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("expected number, got %T", value)
}
