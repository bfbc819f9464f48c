// Package message defines the wire messages exchanged between two connected
// peers.
//
// Every message travels as a positional array. The first element is a string
// tag identifying the variant, the second is the call id that correlates a
// request with its eventual reply:
//
//	["call", id, method, [callbackIdx...], arg0, arg1, ...]
//	["call-reply", id, true, result]      success
//	["call-reply", id, true]              success, void result
//	["call-reply", id, false, reason]     handler raised an error
//	["call-error", id, reason]            protocol-level error
//
// The codec layer turns these variants into their serialized form.
package message

import "math"

// Wire tags for the three message variants.
const (
	TagCall      = "call"
	TagCallReply = "call-reply"
	TagCallError = "call-error"
)

// NoCallID marks a protocol-level error that is not attributable to any
// particular call, e.g. a reply whose id the peer has never issued.
const NoCallID int64 = -1

// Message is one of *Request, *Response or *ProtocolError.
type Message interface {
	Tag() string
	CallID() int64
}

// Request asks the peer to invoke Method with Args. CallbackIndices lists the
// argument positions that carry callback reference tokens instead of plain
// values.
type Request struct {
	ID              int64
	Method          string
	CallbackIndices []int
	Args            []any
}

func (r *Request) Tag() string   { return TagCall }
func (r *Request) CallID() int64 { return r.ID }

// Response answers a Request. OK is false when the handler returned an error,
// in which case Result holds the error description. HasResult distinguishes a
// void reply from one whose result happens to be the "no value" token.
type Response struct {
	ID        int64
	OK        bool
	Result    any
	HasResult bool
}

func (r *Response) Tag() string   { return TagCallReply }
func (r *Response) CallID() int64 { return r.ID }

// ProtocolError reports a fault that happened before any handler ran: an
// unknown method, a bad argument list, or (with ID == NoCallID) a message the
// peer could not associate with a call at all.
type ProtocolError struct {
	ID     int64
	Reason string
}

func (e *ProtocolError) Tag() string   { return TagCallError }
func (e *ProtocolError) CallID() int64 { return e.ID }

// Normalize prepares a value for transmission. Non-finite floating-point
// values (NaN, ±Inf) become nil, the wire "no value" token, since most wire
// encodings reject them as numeric literals. Slices and string-keyed maps are
// normalized element-wise.
func Normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}
		return out
	default:
		return v
	}
}
