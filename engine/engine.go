// Package engine implements the per-connection RPC engine: it correlates
// outbound calls with their replies, defers inbound traffic until the
// connection is marked ready, converts values between native Go form and
// wire-neutral form (schema-driven when one is loaded, best-effort
// otherwise), and bridges function-valued arguments across the wire by
// reference.
//
// One Engine instance is one peer session. The transport delivers raw
// inbound payloads to OnMessage and reports its demise via the close
// callback wired by the dialing code; everything else goes through Call,
// Register and Ready.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/levenlabs/go-llog"

	"cross-rpc/codec"
	"cross-rpc/message"
	"cross-rpc/middleware"
	"cross-rpc/schema"
)

// Transport is the engine's view of the byte-level connection. Send must
// transmit one serialized message; framing is the transport's business.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithSchema loads an IDL-derived schema. Methods covered by it get
// schema-driven value conversion and one-way detection.
func WithSchema(r *schema.Registry) Option {
	return func(e *Engine) { e.schema = r }
}

// WithFaultHandler replaces the default reaction to a protocol-level fault
// (a call-error with id -1). The default logs the fault and closes the
// engine.
func WithFaultHandler(fn func(error)) Option {
	return func(e *Engine) { e.onFault = fn }
}

// Engine is the per-connection orchestrator.
type Engine struct {
	codec     codec.Codec
	transport Transport
	schema    *schema.Registry
	onFault   func(error)

	chainOnce sync.Once
	chain     middleware.HandlerFunc

	mu          sync.Mutex
	calls       callTable
	handlers    map[string]*handler
	bridge      callbackBridge
	oneway      map[string]bool
	middlewares []middleware.Middleware
	ready       bool
	draining    bool
	deferred    [][]byte
	closed      bool
}

// New binds an engine to a transport and codec. The engine starts in the
// not-ready state: inbound messages are buffered until Ready is called.
func New(t Transport, c codec.Codec, opts ...Option) *Engine {
	e := &Engine{
		codec:     c,
		transport: t,
		calls:     newCallTable(),
		handlers:  make(map[string]*handler),
		bridge:    newCallbackBridge(),
		oneway:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.onFault == nil {
		e.onFault = func(err error) {
			llog.Error("protocol fault, closing connection", llog.KV{"error": err})
			e.Close()
		}
	}
	return e
}

// Register exposes fn to the peer under the given method name.
// Re-registering a name replaces the previous handler.
func (e *Engine) Register(method string, fn any) error {
	h, err := newHandler(method, fn)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[method] = h
	return nil
}

// Use appends inbound-dispatch middleware. Must be called before the first
// message is dispatched; later calls have no effect.
func (e *Engine) Use(mw ...middleware.Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.middlewares = append(e.middlewares, mw...)
}

// Methods returns the registered method names, sorted. Callback reference
// tokens are included; from the engine's point of view they are ordinary
// method names.
func (e *Engine) Methods() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schema returns the loaded schema registry, or nil.
func (e *Engine) Schema() *schema.Registry { return e.schema }

// Call issues an outbound call. Function-valued arguments are replaced by
// reference tokens and their positions recorded; remaining values are
// converted per the loaded schema when it covers the method, else passed
// through with numeric normalization. The pending entry is registered before
// the request is written, so a reply can never arrive unmatched. If the
// schema declares the method's return type void the call is one-way: no
// reply is awaited and the returned handle is already resolved.
func (e *Engine) Call(method string, args ...any) (*Call, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	oneWay := e.isOneWayLocked(method)
	var fn *schema.Function
	if e.schema != nil {
		fn, _ = e.schema.Lookup(method)
	}
	if fn != nil && len(args) != len(fn.Params) {
		e.mu.Unlock()
		return nil, fmt.Errorf("rpc: %s declares %d parameters, got %d arguments", method, len(fn.Params), len(args))
	}

	wireArgs := make([]any, len(args))
	var cbIdx []int
	for i, a := range args {
		if v := reflect.ValueOf(a); v.Kind() == reflect.Func {
			tok, err := e.tokenForLocked(v)
			if err != nil {
				e.mu.Unlock()
				return nil, err
			}
			wireArgs[i] = tok
			cbIdx = append(cbIdx, i)
			continue
		}
		if fn != nil {
			w, err := fn.Params[i].FromNative(reflect.ValueOf(a))
			if err != nil {
				e.mu.Unlock()
				return nil, err
			}
			wireArgs[i] = w
			continue
		}
		wireArgs[i] = message.Normalize(a)
	}

	id := e.calls.allocate()
	call := newCall(id, method)
	call.OneWay = oneWay
	if !oneWay {
		e.calls.register(call)
	}
	e.mu.Unlock()

	req := &message.Request{ID: id, Method: method, CallbackIndices: cbIdx, Args: wireArgs}
	data, err := e.codec.Serialize(req)
	if err == nil {
		err = e.transport.Send(data)
	}
	if err != nil {
		e.mu.Lock()
		e.calls.remove(id)
		e.mu.Unlock()
		return nil, err
	}
	if oneWay {
		call.finish(nil, nil)
	}
	return call, nil
}

// OnMessage feeds one raw inbound payload from the transport. Messages that
// arrive before Ready, or while earlier deferred messages are still
// unprocessed, are queued and replayed in arrival order.
func (e *Engine) OnMessage(raw []byte) {
	e.mu.Lock()
	if !e.ready || e.draining || len(e.deferred) > 0 {
		e.deferred = append(e.deferred, raw)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.dispatch(raw)
}

// Ready marks initialization complete and drains the deferred queue in FIFO
// order. Messages arriving mid-drain join the end of the same queue. The
// transition is one-way.
func (e *Engine) Ready() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.ready = true
	e.draining = true
	for len(e.deferred) > 0 {
		raw := e.deferred[0]
		e.deferred = e.deferred[1:]
		e.mu.Unlock()
		e.dispatch(raw)
		e.mu.Lock()
	}
	e.draining = false
	e.mu.Unlock()
}

// Close fails every outstanding call with ErrConnectionClosed, discards the
// deferred queue and closes the transport. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	outstanding := e.calls.drain()
	e.deferred = nil
	e.mu.Unlock()

	for _, c := range outstanding {
		c.finish(nil, ErrConnectionClosed)
	}
	return e.transport.Close()
}

func (e *Engine) dispatch(raw []byte) {
	msg, err := e.codec.Deserialize(raw)
	if err != nil {
		llog.Warn("dropping undecodable message", llog.KV{"error": err})
		return
	}
	switch m := msg.(type) {
	case *message.Request:
		reply := e.requestChain()(context.Background(), m)
		if reply != nil && !e.isOneWay(m.Method) {
			e.send(reply)
		}
	case *message.Response:
		e.dispatchResponse(m)
	case *message.ProtocolError:
		e.dispatchError(m)
	}
}

func (e *Engine) requestChain() middleware.HandlerFunc {
	e.chainOnce.Do(func() {
		e.mu.Lock()
		mws := append([]middleware.Middleware(nil), e.middlewares...)
		e.mu.Unlock()
		e.chain = middleware.Chain(mws...)(e.handleRequest)
	})
	return e.chain
}

func (e *Engine) handleRequest(ctx context.Context, req *message.Request) message.Message {
	e.mu.Lock()
	h, registered := e.handlers[req.Method]
	oneWay := e.isOneWayLocked(req.Method)
	var fn *schema.Function
	if e.schema != nil {
		fn, _ = e.schema.Lookup(req.Method)
	}
	e.mu.Unlock()

	if !registered {
		reason := fmt.Sprintf("Method %s is not registered", req.Method)
		if oneWay {
			llog.Warn("dropping one-way request", llog.KV{"method": req.Method})
			return nil
		}
		return &message.ProtocolError{ID: req.ID, Reason: reason}
	}

	args, err := e.nativeArgs(h, fn, req)
	if err != nil {
		if oneWay {
			llog.Warn("dropping one-way request", llog.KV{"method": req.Method, "error": err})
			return nil
		}
		return &message.ProtocolError{ID: req.ID, Reason: err.Error()}
	}

	result, herr := h.invoke(args)
	if oneWay {
		// No id to report against; swallow handler errors.
		if herr != nil {
			llog.Warn("one-way handler failed", llog.KV{"method": req.Method, "error": herr})
		}
		return nil
	}
	if herr != nil {
		return &message.Response{ID: req.ID, OK: false, Result: herr.Error(), HasResult: true}
	}

	resp := &message.Response{ID: req.ID, OK: true}
	if h.returnsValue {
		out := result
		if fn != nil && fn.Return != nil {
			w, werr := fn.Return.FromNative(reflect.ValueOf(result))
			if werr != nil {
				return &message.ProtocolError{ID: req.ID, Reason: werr.Error()}
			}
			out = w
		}
		resp.Result = message.Normalize(out)
		resp.HasResult = true
	}
	return resp
}

// nativeArgs converts wire arguments into the handler's parameter values:
// engine injection first, then per position either a forwarding callable (for
// callback indices), schema conversion, or best-effort coercion.
func (e *Engine) nativeArgs(h *handler, fn *schema.Function, req *message.Request) ([]reflect.Value, error) {
	ok, want := h.accepts(len(req.Args))
	if !ok {
		return nil, fmt.Errorf("Incorrect number of arguments for a method. Expected: %d. Received: %d", want, len(req.Args))
	}

	cb := make(map[int]bool, len(req.CallbackIndices))
	for _, i := range req.CallbackIndices {
		cb[i] = true
	}

	args := make([]reflect.Value, 0, len(req.Args)+1)
	if h.injectsEngine {
		args = append(args, reflect.ValueOf(e))
	}
	for i, raw := range req.Args {
		pt := h.paramAt(i)
		var (
			v   reflect.Value
			err error
		)
		switch {
		case cb[i]:
			tok, isString := raw.(string)
			if !isString {
				err = fmt.Errorf("callback argument %d is not a reference token", i)
				break
			}
			v, err = e.forwardingValue(tok, pt)
		case fn != nil && i < len(fn.Params):
			v, err = fn.Params[i].ToNative(raw, pt)
		default:
			v, err = schema.Coerce(raw, pt)
		}
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (e *Engine) dispatchResponse(resp *message.Response) {
	e.mu.Lock()
	call, ok := e.calls.remove(resp.ID)
	e.mu.Unlock()
	if !ok {
		e.send(&message.ProtocolError{
			ID:     message.NoCallID,
			Reason: fmt.Sprintf("Invalid callID: %d", resp.ID),
		})
		return
	}
	if resp.OK {
		call.finish(resp.Result, nil)
		return
	}
	call.finish(nil, &RemoteError{Reason: fmt.Sprint(resp.Result)})
}

func (e *Engine) dispatchError(perr *message.ProtocolError) {
	if perr.ID == message.NoCallID {
		e.onFault(&FaultError{Reason: perr.Reason})
		return
	}
	e.mu.Lock()
	call, ok := e.calls.remove(perr.ID)
	e.mu.Unlock()
	if !ok {
		// Nobody is waiting on this id; log and move on.
		llog.Warn("call-error for unknown call", llog.KV{"id": perr.ID, "reason": perr.Reason})
		return
	}
	call.finish(nil, &RemoteError{Reason: perr.Reason})
}

func (e *Engine) isOneWay(method string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isOneWayLocked(method)
}

// isOneWayLocked consults the schema once per method name and memoizes the
// answer. Caller holds e.mu.
func (e *Engine) isOneWayLocked(method string) bool {
	if v, ok := e.oneway[method]; ok {
		return v
	}
	v := false
	if e.schema != nil {
		if fn, ok := e.schema.Lookup(method); ok {
			v = fn.OneWay()
		}
	}
	e.oneway[method] = v
	return v
}

func (e *Engine) send(msg message.Message) {
	data, err := e.codec.Serialize(msg)
	if err != nil {
		llog.Error("failed to serialize reply", llog.KV{"error": err})
		return
	}
	if err := e.transport.Send(data); err != nil {
		llog.Warn("failed to send reply", llog.KV{"error": err})
	}
}
