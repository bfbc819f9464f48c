package schema

import (
	"strings"
	"sync"
)

// Function is the declared signature of one remotely callable service
// function: parameter types in declared order and the return type. A nil
// Return means void, which makes the function one-way (no reply is sent or
// awaited).
type Function struct {
	Params []Descriptor
	Return Descriptor
}

// OneWay reports whether the function's declared return type is void.
func (f *Function) OneWay() bool { return f.Return == nil }

// Registry is the loaded schema: named types plus per-service function
// signatures, as produced by the IDL front end. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	types    map[string]Descriptor
	services map[string]map[string]*Function
}

func NewRegistry() *Registry {
	return &Registry{
		types:    make(map[string]Descriptor),
		services: make(map[string]map[string]*Function),
	}
}

// RegisterType records a named type declaration.
func (r *Registry) RegisterType(name string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = d
}

// Type returns a previously registered named type.
func (r *Registry) Type(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[name]
	return d, ok
}

// RegisterFunction records the signature of service.function.
func (r *Registry) RegisterFunction(service, function string, fn *Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[service]
	if !ok {
		svc = make(map[string]*Function)
		r.services[service] = svc
	}
	svc[function] = fn
}

// ServiceFunction returns the declared signature of service.function.
func (r *Registry) ServiceFunction(service, function string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[service]
	if !ok {
		return nil, false
	}
	fn, ok := svc[function]
	return fn, ok
}

// Lookup resolves a qualified "Service.Function" method name. Method names
// without a service qualifier (callback reference tokens in particular) are
// never covered by a schema.
func (r *Registry) Lookup(method string) (*Function, bool) {
	service, function, ok := strings.Cut(method, ".")
	if !ok {
		return nil, false
	}
	return r.ServiceFunction(service, function)
}
