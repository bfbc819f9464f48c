package codec

import (
	"encoding/json"
	"fmt"

	"cross-rpc/message"
)

// JSONCodec encodes messages as JSON positional arrays.
// Pros: human-readable, cross-language, easy to debug.
// Cons: numbers decode as float64 and need coercion on the receiving side.
type JSONCodec struct{}

func (c *JSONCodec) Serialize(msg message.Message) ([]byte, error) {
	var elems []any
	switch m := msg.(type) {
	case *message.Request:
		indices := m.CallbackIndices
		if indices == nil {
			indices = []int{}
		}
		elems = make([]any, 0, 4+len(m.Args))
		elems = append(elems, message.TagCall, m.ID, m.Method, indices)
		for _, a := range m.Args {
			elems = append(elems, message.Normalize(a))
		}
	case *message.Response:
		elems = []any{message.TagCallReply, m.ID, m.OK}
		if m.HasResult {
			elems = append(elems, message.Normalize(m.Result))
		}
	case *message.ProtocolError:
		elems = []any{message.TagCallError, m.ID, m.Reason}
	default:
		return nil, fmt.Errorf("codec: unknown message type %T", msg)
	}
	return json.Marshal(elems)
}

func (c *JSONCodec) Deserialize(data []byte) (message.Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("codec: message is not a positional array: %w", err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("codec: message has %d elements, want at least 2", len(parts))
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return nil, fmt.Errorf("codec: message tag: %w", err)
	}
	var id int64
	if err := json.Unmarshal(parts[1], &id); err != nil {
		return nil, fmt.Errorf("codec: call id: %w", err)
	}

	switch tag {
	case message.TagCall:
		if len(parts) < 4 {
			return nil, fmt.Errorf("codec: call message has %d elements, want at least 4", len(parts))
		}
		req := &message.Request{ID: id, CallbackIndices: []int{}}
		if err := json.Unmarshal(parts[2], &req.Method); err != nil {
			return nil, fmt.Errorf("codec: method name: %w", err)
		}
		if err := json.Unmarshal(parts[3], &req.CallbackIndices); err != nil {
			return nil, fmt.Errorf("codec: callback indices: %w", err)
		}
		req.Args = make([]any, 0, len(parts)-4)
		for _, raw := range parts[4:] {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("codec: argument: %w", err)
			}
			req.Args = append(req.Args, v)
		}
		return req, nil

	case message.TagCallReply:
		if len(parts) < 3 {
			return nil, fmt.Errorf("codec: call-reply message has %d elements, want at least 3", len(parts))
		}
		resp := &message.Response{ID: id}
		if err := json.Unmarshal(parts[2], &resp.OK); err != nil {
			return nil, fmt.Errorf("codec: reply flag: %w", err)
		}
		if len(parts) > 3 {
			resp.HasResult = true
			if err := json.Unmarshal(parts[3], &resp.Result); err != nil {
				return nil, fmt.Errorf("codec: result: %w", err)
			}
		}
		return resp, nil

	case message.TagCallError:
		if len(parts) < 3 {
			return nil, fmt.Errorf("codec: call-error message has %d elements, want at least 3", len(parts))
		}
		perr := &message.ProtocolError{ID: id}
		if err := json.Unmarshal(parts[2], &perr.Reason); err != nil {
			return nil, fmt.Errorf("codec: error reason: %w", err)
		}
		return perr, nil
	}
	return nil, fmt.Errorf("codec: unknown message tag %q", tag)
}
