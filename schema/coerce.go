package schema

import (
	"encoding/json"
	"reflect"
)

// Coerce converts a wire-decoded value to the native type t on a best-effort
// basis, used when no schema covers a method. Direct assignment and numeric
// conversions are tried first; structured values fall back to a JSON
// round-trip into a fresh instance of t.
func Coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, &CastError{Value: v, Target: t.String()}
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return reflect.Value{}, &CastError{Value: v, Target: t.String()}
	}
	return ptr.Elem(), nil
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) ||
		k == reflect.Float32 || k == reflect.Float64
}
