package engine

import (
	"reflect"

	"github.com/google/uuid"
	"github.com/levenlabs/go-llog"

	"cross-rpc/schema"
)

// RemoteFunc is the generic callable-reference type. A handler parameter
// declared as RemoteFunc (or as plain any) receives a forwarding callable
// that relays its arguments back to the peer function behind the reference
// token. The returned error reports only transmission failures; no reply is
// awaited.
type RemoteFunc func(args ...any) error

var remoteFuncType = reflect.TypeOf(RemoteFunc(nil))

// callbackBridge maps function-value identities to reference tokens. A token
// is a one-off method name: the reverse mapping lives in the engine's handler
// table, so inbound requests addressed to the token route into the original
// function. Identity is the function's code pointer; the same function value
// passed twice reuses its token for the life of the connection.
type callbackBridge struct {
	tokens map[uintptr]string
}

func newCallbackBridge() callbackBridge {
	return callbackBridge{tokens: make(map[uintptr]string)}
}

// tokenForLocked returns the reference token for fn, generating and
// registering one on first sight. Caller holds e.mu.
func (e *Engine) tokenForLocked(fn reflect.Value) (string, error) {
	key := fn.Pointer()
	if tok, ok := e.bridge.tokens[key]; ok {
		return tok, nil
	}
	tok := uuid.NewString()
	h, err := newHandler(tok, fn.Interface())
	if err != nil {
		return "", err
	}
	e.handlers[tok] = h
	e.bridge.tokens[key] = tok
	return tok, nil
}

// forwardingValue builds the native stand-in for a received reference token,
// adapted to the declared parameter type t. Invoking the stand-in issues a
// new outbound call addressed to the token.
func (e *Engine) forwardingValue(token string, t reflect.Type) (reflect.Value, error) {
	generic := RemoteFunc(func(args ...any) error {
		_, err := e.Call(token, args...)
		return err
	})
	if t == remoteFuncType {
		return reflect.ValueOf(generic), nil
	}
	if t.Kind() == reflect.Interface && remoteFuncType.AssignableTo(t) {
		v := reflect.New(t).Elem()
		v.Set(reflect.ValueOf(generic))
		return v, nil
	}
	if t.Kind() != reflect.Func {
		return reflect.Value{}, &schema.CastError{Value: token, Target: t.String()}
	}

	// Thunk adapted to the declared signature. A trailing error return
	// carries transmission failures; any other return type means the caller
	// would need a nested reply, which cannot be awaited here.
	errOut := -1
	valueOut := false
	for i := 0; i < t.NumOut(); i++ {
		if i == t.NumOut()-1 && t.Out(i) == errType {
			errOut = i
		} else {
			valueOut = true
		}
	}

	thunk := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		outs := make([]reflect.Value, t.NumOut())
		for i := range outs {
			outs[i] = reflect.Zero(t.Out(i))
		}
		if valueOut {
			if errOut < 0 {
				panic(ErrUnsupportedCallbackReturn)
			}
			outs[errOut] = errValue(ErrUnsupportedCallbackReturn)
			return outs
		}
		args := make([]any, 0, len(in))
		for i, v := range in {
			if t.IsVariadic() && i == len(in)-1 {
				for j := 0; j < v.Len(); j++ {
					args = append(args, v.Index(j).Interface())
				}
				continue
			}
			args = append(args, v.Interface())
		}
		if _, err := e.Call(token, args...); err != nil {
			if errOut >= 0 {
				outs[errOut] = errValue(err)
			} else {
				llog.Warn("callback forward failed", llog.KV{"token": token, "error": err})
			}
		}
		return outs
	})
	return thunk, nil
}

func errValue(err error) reflect.Value {
	v := reflect.New(errType).Elem()
	v.Set(reflect.ValueOf(err))
	return v
}
