package validation

import (
	"errors"
	"regexp"
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		v       func(any) error
		value   any
		wantErr string
	}{
		{name: "required blank", v: Required(), value: "  ", wantErr: "required"},
		{name: "required nil", v: Required(), value: nil, wantErr: "required"},
		{name: "required empty slice", v: Required(), value: []any{}, wantErr: "required"},
		{name: "required ok", v: Required(), value: "x"},
		{name: "required false bool is set", v: Required(), value: false},
		{name: "min length short", v: MinLength(3), value: "ab", wantErr: "min length 3"},
		{name: "min length empty passes", v: MinLength(3), value: ""},
		{name: "min length counts runes", v: MinLength(3), value: "çãé"},
		{name: "max length long", v: MaxLength(2), value: "abc", wantErr: "max length 2"},
		{name: "max length slice", v: MaxLength(1), value: []any{1, 2}, wantErr: "max length 1"},
		{name: "pattern mismatch", v: Pattern(regexp.MustCompile(`^\d+$`)), value: "12a", wantErr: "does not match required pattern"},
		{name: "pattern match", v: Pattern(regexp.MustCompile(`^\d+$`)), value: "12"},
		{name: "min below", v: Min(18), value: 17, wantErr: "min 18"},
		{name: "min numeric string", v: Min(18), value: "21"},
		{name: "max above", v: Max(10), value: 10.5, wantErr: "max 10"},
		{name: "number type", v: Max(10), value: true, wantErr: "expected number, got bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v(tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAll_FirstFailureWins(t *testing.T) {
	v := All(nil, Required(), MinLength(5))
	if err := v(""); err == nil || err.Error() != "required" {
		t.Fatalf("expected required, got %v", err)
	}
	if err := v("abc"); err == nil || err.Error() != "min length 5" {
		t.Fatalf("expected min length, got %v", err)
	}
	if All() != nil {
		t.Fatalf("expected nil validator for empty chain")
	}
}

func TestFromRules(t *testing.T) {
	v, err := FromRules([]Rule{
		{Kind: KindRequired, Message: "name is required"},
		{Kind: KindMaxLength, Params: map[string]string{"value": "4"}},
	})
	if err != nil {
		t.Fatalf("from rules: %v", err)
	}
	if err := v(""); err == nil || err.Error() != "name is required" {
		t.Fatalf("expected custom message, got %v", err)
	}
	if err := v("abcde"); err == nil || err.Error() != "max length 4" {
		t.Fatalf("expected max length, got %v", err)
	}
	if err := v("abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromRule_Errors(t *testing.T) {
	if _, err := FromRule(Rule{Kind: "luhn"}); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
	if _, err := FromRule(Rule{Kind: KindMin, Params: map[string]string{"value": "x"}}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	if _, err := FromRule(Rule{Kind: KindPattern, Params: map[string]string{"pattern": "("}}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule for bad pattern, got %v", err)
	}
}
