// Package introspect exposes a read-only HTTP descriptor service: tooling
// and peers can list the methods an engine has registered and, when a schema
// is loaded, their declared signatures. It never sits on the RPC hot path.
package introspect

import (
	"net/http"
	"strings"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"cross-rpc/schema"
)

// Source is the view of an engine the descriptor service needs.
type Source interface {
	Methods() []string
	Schema() *schema.Registry
}

// RPC is the descriptor endpoint, reachable as RPC.GetMethods.
type RPC struct {
	src Source
}

type GetMethodsArgs struct {
	// Service filters to one service qualifier; empty lists everything.
	Service string `json:"service"`
}

type MethodInfo struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
	Return string   `json:"return,omitempty"`
	OneWay bool     `json:"oneWay,omitempty"`
}

type GetMethodsReply struct {
	Methods []MethodInfo `json:"methods"`
}

func (r *RPC) GetMethods(req *http.Request, args *GetMethodsArgs, reply *GetMethodsReply) error {
	reg := r.src.Schema()
	for _, name := range r.src.Methods() {
		if args.Service != "" && !strings.HasPrefix(name, args.Service+".") {
			continue
		}
		info := MethodInfo{Name: name}
		if reg != nil {
			if fn, ok := reg.Lookup(name); ok {
				for _, p := range fn.Params {
					info.Params = append(info.Params, p.String())
				}
				if fn.Return != nil {
					info.Return = fn.Return.String()
				} else {
					info.OneWay = true
				}
			}
		}
		reply.Methods = append(reply.Methods, info)
	}
	return nil
}

// NewHandler builds the JSON-RPC2 HTTP handler serving the descriptor
// service for src.
func NewHandler(src Source) (http.Handler, error) {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&RPC{src: src}, "RPC"); err != nil {
		return nil, err
	}
	return s, nil
}
