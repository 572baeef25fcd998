package form

// Value holds either a literal or a function computed from the current model.
// The zero Value is unset and resolves to the caller's fallback.
type Value[T any] struct {
	literal  T
	compute  func(Record) T
	hasValue bool
}

// Static wraps a literal value.
func Static[T any](v T) Value[T] {
	return Value[T]{literal: v, hasValue: true}
}

// Computed wraps a function evaluated against the current model on each render.
func Computed[T any](fn func(Record) T) Value[T] {
	if fn == nil {
		return Value[T]{}
	}
	return Value[T]{compute: fn, hasValue: true}
}

// IsSet reports whether a literal or function was supplied.
func (v Value[T]) IsSet() bool {
	return v.hasValue
}

// Resolve returns the literal, the computed value, or fallback when unset.
func (v Value[T]) Resolve(model Record, fallback T) T {
	if !v.hasValue {
		return fallback
	}
	if v.compute != nil {
		return v.compute(model)
	}
	return v.literal
}
