package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Member is one declared struct member. Member order follows the declaration
// order in the IDL source and is preserved for positional contexts.
type Member struct {
	Name string
	Type Descriptor
}

// Struct describes a declared struct type. Compatibility with a native Go
// type is structural: the native type must expose a same-named field for
// every declared member (recursively compatible), or be a string-keyed map
// whose value type satisfies every member.
//
// The structural walk is reflection-heavy and the same (descriptor, native
// type) pairs recur on every call, so results are memoized.
type Struct struct {
	Name    string
	Members []Member

	compat sync.Map // reflect.Type -> bool
}

// NewStruct builds a struct descriptor with members in declaration order.
func NewStruct(name string, members ...Member) *Struct {
	return &Struct{Name: name, Members: members}
}

func (s *Struct) String() string { return "struct " + s.Name }

// assignPair is one (struct descriptor, native type) frame of an in-progress
// structural walk. The set of frames lives on the walk's own stack, never in
// the shared memo, so a walk in one goroutine can't leak a provisional answer
// to another.
type assignPair struct {
	s *Struct
	t reflect.Type
}

// canAssign recurses the structural walk, threading the in-progress frame set
// through the composite descriptors.
func canAssign(d Descriptor, t reflect.Type, seen map[assignPair]bool) bool {
	switch dd := d.(type) {
	case *Struct:
		return dd.canAssign(t, seen)
	case *Array:
		return dd.canAssign(t, seen)
	case *Map:
		return dd.canAssign(t, seen)
	}
	return d.CanAssignFrom(t)
}

func (s *Struct) CanAssignFrom(t reflect.Type) bool {
	return s.canAssign(t, nil)
}

func (s *Struct) canAssign(t reflect.Type, seen map[assignPair]bool) bool {
	t = deref(t)
	if t.Kind() == reflect.Interface {
		return true
	}
	if ok, hit := s.compat.Load(t); hit {
		return ok.(bool)
	}
	pair := assignPair{s, t}
	if seen[pair] {
		// Cycle through a self-referential declaration; the outer frame
		// decides.
		return true
	}
	if seen == nil {
		seen = make(map[assignPair]bool)
	}
	seen[pair] = true
	ok := s.walk(t, seen)
	delete(seen, pair)
	// Only final answers reach the shared memo.
	s.compat.Store(t, ok)
	return ok
}

func (s *Struct) walk(t reflect.Type, seen map[assignPair]bool) bool {
	switch t.Kind() {
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return false
		}
		for _, m := range s.Members {
			if !canAssign(m.Type, t.Elem(), seen) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for _, m := range s.Members {
			f, ok := fieldFor(t, m.Name)
			if !ok || !canAssign(m.Type, f.Type, seen) {
				return false
			}
		}
		return true
	}
	return false
}

func (s *Struct) FromNative(v reflect.Value) (any, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return nil, &CastError{Value: nil, Target: s.String()}
	}
	out := make(map[string]any, len(s.Members))
	switch v.Kind() {
	case reflect.Map:
		for _, m := range s.Members {
			mv := v.MapIndex(reflect.ValueOf(m.Name))
			if !mv.IsValid() {
				return nil, fmt.Errorf("member %q missing from value for %s", m.Name, s.String())
			}
			w, err := m.Type.FromNative(mv)
			if err != nil {
				return nil, err
			}
			out[m.Name] = w
		}
	case reflect.Struct:
		for _, m := range s.Members {
			f, ok := fieldFor(v.Type(), m.Name)
			if !ok {
				return nil, fmt.Errorf("member %q missing from value for %s", m.Name, s.String())
			}
			w, err := m.Type.FromNative(v.FieldByIndex(f.Index))
			if err != nil {
				return nil, err
			}
			out[m.Name] = w
		}
	default:
		return nil, &CastError{Value: v.Interface(), Target: s.String()}
	}
	return out, nil
}

func (s *Struct) ToNative(wire any, t reflect.Type) (reflect.Value, error) {
	fields, ok := wire.(map[string]any)
	if !ok {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	wantPtr := t.Kind() == reflect.Ptr
	et := deref(t)

	if et.Kind() == reflect.Map && et.Key().Kind() == reflect.String {
		out := reflect.MakeMapWithSize(et, len(s.Members))
		for _, m := range s.Members {
			wv, present := fields[m.Name]
			if !present {
				continue
			}
			nv, err := m.Type.ToNative(wv, et.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(m.Name), nv)
		}
		return out, nil
	}
	if et.Kind() != reflect.Struct {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}

	inst := reflect.New(et).Elem()
	for _, m := range s.Members {
		wv, present := fields[m.Name]
		if !present {
			// Unmatched native fields keep their zero value.
			continue
		}
		f, ok := fieldFor(et, m.Name)
		if !ok {
			continue
		}
		nv, err := m.Type.ToNative(wv, f.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		inst.FieldByIndex(f.Index).Set(nv)
	}
	if wantPtr {
		return inst.Addr(), nil
	}
	return inst, nil
}

// fieldFor resolves a declared member name against a Go struct type. A json
// tag takes precedence, then a case-insensitive field name match (covering
// promoted embedded fields).
func fieldFor(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return f, true
		}
	}
	f, ok := t.FieldByNameFunc(func(n string) bool {
		return strings.EqualFold(n, name)
	})
	if ok && f.PkgPath == "" {
		return f, true
	}
	return reflect.StructField{}, false
}

// Array describes an ordered sequence with a uniform element type.
type Array struct {
	Elem Descriptor
}

func (a *Array) String() string { return "list<" + a.Elem.String() + ">" }

func (a *Array) CanAssignFrom(t reflect.Type) bool {
	return a.canAssign(t, nil)
}

func (a *Array) canAssign(t reflect.Type, seen map[assignPair]bool) bool {
	t = deref(t)
	if t.Kind() == reflect.Interface {
		return true
	}
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	return canAssign(a.Elem, t.Elem(), seen)
}

func (a *Array) FromNative(v reflect.Value) (any, error) {
	v = unwrap(v)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, &CastError{Value: valueOrNil(v), Target: a.String()}
	}
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		w, err := a.Elem.FromNative(v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func (a *Array) ToNative(wire any, t reflect.Type) (reflect.Value, error) {
	elems, ok := wire.([]any)
	if !ok {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	et := deref(t)
	if et.Kind() != reflect.Slice {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	out := reflect.MakeSlice(et, len(elems), len(elems))
	for i, e := range elems {
		nv, err := a.Elem.ToNative(e, et.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(nv)
	}
	return out, nil
}

// Map describes a string-keyed mapping with a uniform value type.
type Map struct {
	Value Descriptor
}

func (m *Map) String() string { return "map<string," + m.Value.String() + ">" }

func (m *Map) CanAssignFrom(t reflect.Type) bool {
	return m.canAssign(t, nil)
}

func (m *Map) canAssign(t reflect.Type, seen map[assignPair]bool) bool {
	t = deref(t)
	if t.Kind() == reflect.Interface {
		return true
	}
	if t.Kind() != reflect.Map || t.Key().Kind() != reflect.String {
		return false
	}
	return canAssign(m.Value, t.Elem(), seen)
}

func (m *Map) FromNative(v reflect.Value) (any, error) {
	v = unwrap(v)
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, &CastError{Value: valueOrNil(v), Target: m.String()}
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		w, err := m.Value.FromNative(iter.Value())
		if err != nil {
			return nil, err
		}
		out[iter.Key().String()] = w
	}
	return out, nil
}

func (m *Map) ToNative(wire any, t reflect.Type) (reflect.Value, error) {
	fields, ok := wire.(map[string]any)
	if !ok {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	et := deref(t)
	if et.Kind() != reflect.Map || et.Key().Kind() != reflect.String {
		return reflect.Value{}, &CastError{Value: wire, Target: t.String()}
	}
	out := reflect.MakeMapWithSize(et, len(fields))
	for k, e := range fields {
		nv, err := m.Value.ToNative(e, et.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(k), nv)
	}
	return out, nil
}

func valueOrNil(v reflect.Value) any {
	if v.IsValid() {
		return v.Interface()
	}
	return nil
}
