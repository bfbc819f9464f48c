// Package schema holds the IDL-derived type system consulted when converting
// call values between native Go form and wire-neutral form.
//
// A Descriptor describes one declared type: a primitive, a struct with ordered
// members, an array, or a string-keyed map. Descriptors check structural
// compatibility against native Go types ("does this shape satisfy the declared
// type?") and perform the actual value conversion in both directions.
// Compatibility is structural, not nominal: any Go struct or map whose fields
// line up with the declared members is acceptable.
package schema

import (
	"fmt"
	"reflect"
)

// Kind enumerates the primitive wire types.
type Kind int

const (
	Bool Kind = iota
	Byte
	I16
	U16
	I32
	U32
	I64
	U64
	Float
	Double
	String
	// Any accepts every value unchanged.
	Any
)

var kindNames = [...]string{
	Bool: "bool", Byte: "byte", I16: "i16", U16: "u16",
	I32: "i32", U32: "u32", I64: "i64", U64: "u64",
	Float: "float", Double: "double", String: "string", Any: "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Descriptor is the schema-side view of one declared type.
type Descriptor interface {
	// CanAssignFrom reports whether values of the native type t can be
	// converted to this wire type.
	CanAssignFrom(t reflect.Type) bool

	// FromNative converts a native value to its wire-neutral form.
	FromNative(v reflect.Value) (any, error)

	// ToNative converts a wire-neutral value into an instance of the native
	// type t.
	ToNative(wire any, t reflect.Type) (reflect.Value, error)

	// String renders the declared type in IDL notation.
	String() string
}

// CastError reports a value that cannot be converted to the declared type.
type CastError struct {
	Value  any
	Target string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast value of type %T to %s", e.Value, e.Target)
}

// Primitive describes a single primitive kind.
type Primitive struct {
	Kind Kind
}

// Prim returns the descriptor for a primitive kind.
func Prim(k Kind) *Primitive { return &Primitive{Kind: k} }

func (p *Primitive) String() string { return p.Kind.String() }

func (p *Primitive) CanAssignFrom(t reflect.Type) bool {
	t = deref(t)
	if t.Kind() == reflect.Interface {
		// Dynamic value, checked at conversion time.
		return true
	}
	switch p.Kind {
	case Any:
		return true
	case Bool:
		return t.Kind() == reflect.Bool
	case Byte:
		return t.Kind() == reflect.Uint8 || t.Kind() == reflect.Int8
	case I16:
		return isSignedWidth(t.Kind(), reflect.Int16)
	case I32:
		return isSignedWidth(t.Kind(), reflect.Int32) || t.Kind() == reflect.Int
	case I64:
		return isSignedWidth(t.Kind(), reflect.Int64) || t.Kind() == reflect.Int
	case U16:
		return isUnsignedWidth(t.Kind(), reflect.Uint16)
	case U32:
		return isUnsignedWidth(t.Kind(), reflect.Uint32) || t.Kind() == reflect.Uint
	case U64:
		return isUnsignedWidth(t.Kind(), reflect.Uint64) || t.Kind() == reflect.Uint
	case Float:
		return t.Kind() == reflect.Float32
	case Double:
		return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
	case String:
		return t.Kind() == reflect.String
	}
	return false
}

func (p *Primitive) FromNative(v reflect.Value) (any, error) {
	v = unwrap(v)
	if !v.IsValid() {
		if p.Kind == Any {
			return nil, nil
		}
		return nil, &CastError{Value: nil, Target: p.String()}
	}
	if !p.CanAssignFrom(v.Type()) {
		return nil, &CastError{Value: v.Interface(), Target: p.String()}
	}
	return v.Interface(), nil
}

func (p *Primitive) ToNative(wire any, t reflect.Type) (reflect.Value, error) {
	if !p.CanAssignFrom(t) {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	return Coerce(wire, t)
}

// isSignedWidth reports whether k is a signed integer kind no wider than max.
// Widening is implicit; narrowing is not.
func isSignedWidth(k, max reflect.Kind) bool {
	return k >= reflect.Int8 && k <= max
}

// isUnsignedWidth reports whether k is an unsigned integer kind no wider than max.
func isUnsignedWidth(k, max reflect.Kind) bool {
	return k >= reflect.Uint8 && k <= max
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// unwrap strips interface wrappers and pointers from a value.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
