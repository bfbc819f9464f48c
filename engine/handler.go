package engine

import (
	"fmt"
	"reflect"
)

var (
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	engineType = reflect.TypeOf((*Engine)(nil))
)

// handler wraps one registered function. Accepted shapes:
//
//	func([*Engine,] params...)
//	func([*Engine,] params...) error
//	func([*Engine,] params...) T
//	func([*Engine,] params...) (T, error)
//
// A leading *Engine parameter is injected by the engine and not consumed
// from the wire arguments.
type handler struct {
	name          string
	fn            reflect.Value
	injectsEngine bool
	params        []reflect.Type
	variadic      bool
	returnsValue  bool
	returnsError  bool
}

func newHandler(name string, fn any) (*handler, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("rpc: handler for %q must be a function, got %T", name, fn)
	}
	t := v.Type()
	h := &handler{name: name, fn: v, variadic: t.IsVariadic()}

	first := 0
	if t.NumIn() > 0 && t.In(0) == engineType {
		h.injectsEngine = true
		first = 1
	}
	for i := first; i < t.NumIn(); i++ {
		h.params = append(h.params, t.In(i))
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errType {
			h.returnsError = true
		} else {
			h.returnsValue = true
		}
	case 2:
		if t.Out(1) != errType {
			return nil, fmt.Errorf("rpc: handler for %q must return (T, error), got second return %s", name, t.Out(1))
		}
		h.returnsValue = true
		h.returnsError = true
	default:
		return nil, fmt.Errorf("rpc: handler for %q has %d return values, want at most 2", name, t.NumOut())
	}
	return h, nil
}

// accepts reports whether n wire arguments satisfy the handler's parameter
// list, and returns the expected count used in the mismatch error.
func (h *handler) accepts(n int) (bool, int) {
	if h.variadic {
		min := len(h.params) - 1
		return n >= min, min
	}
	return n == len(h.params), len(h.params)
}

// paramAt returns the declared type of wire argument i, unrolling the
// variadic tail.
func (h *handler) paramAt(i int) reflect.Type {
	last := len(h.params) - 1
	if h.variadic && i >= last {
		return h.params[last].Elem()
	}
	return h.params[i]
}

// invoke calls the handler. A panic inside the handler is converted to an
// error so the engine never crashes on inbound traffic.
func (h *handler) invoke(args []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	outs := h.fn.Call(args)
	if h.returnsError {
		if ev := outs[len(outs)-1]; !ev.IsNil() {
			return nil, ev.Interface().(error)
		}
	}
	if h.returnsValue {
		return outs[0].Interface(), nil
	}
	return nil, nil
}
