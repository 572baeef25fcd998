package form

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// RecordFrom converts a struct (or pointer to one) into a nested Record using
// `mapstructure` tags. Nested structs become nested records; other values are
// copied as-is.
func RecordFrom(v any) (Record, error) {
	if v == nil {
		return Record{}, nil
	}
	if rec, ok := v.(Record); ok {
		return deepCopyRecord(rec), nil
	}

	var flat map[string]any
	if err := mapstructure.Decode(v, &flat); err != nil {
		return nil, fmt.Errorf("form: record from %T: %w", v, err)
	}

	out := make(Record, len(flat))
	for key, value := range flat {
		if isStruct(value) {
			nested, err := RecordFrom(value)
			if err != nil {
				return nil, err
			}
			out[key] = nested
			continue
		}
		out[key] = value
	}
	return out, nil
}

// Decode writes rec into out, a pointer to a struct, converting scalar types
// where the record holds strings (as submitted by HTML forms).
func Decode(rec Record, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("form: decoder: %w", err)
	}
	if err := decoder.Decode(rec); err != nil {
		return fmt.Errorf("form: decode into %T: %w", out, err)
	}
	return nil
}

func isStruct(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}
