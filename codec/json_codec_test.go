package codec

import (
	"math"
	"testing"

	"cross-rpc/message"
)

func TestSerializeRequest(t *testing.T) {
	c := &JSONCodec{}

	data, err := c.Serialize(&message.Request{
		ID:     0,
		Method: "svc.fn",
		Args:   []any{42, "s"},
	})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	want := `["call",0,"svc.fn",[],42,"s"]`
	if string(data) != want {
		t.Errorf("wire shape mismatch: got %s, want %s", data, want)
	}

	data, err = c.Serialize(&message.Request{
		ID:              3,
		Method:          "svc.fn",
		CallbackIndices: []int{1},
		Args:            []any{"x", "tok"},
	})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	want = `["call",3,"svc.fn",[1],"x","tok"]`
	if string(data) != want {
		t.Errorf("wire shape mismatch: got %s, want %s", data, want)
	}
}

func TestSerializeResponse(t *testing.T) {
	c := &JSONCodec{}

	data, err := c.Serialize(&message.Response{ID: 1, OK: true, Result: 3.14, HasResult: true})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != `["call-reply",1,true,3.14]` {
		t.Errorf("unexpected wire shape: %s", data)
	}

	// Void replies omit the result entirely.
	data, err = c.Serialize(&message.Response{ID: 1, OK: true})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != `["call-reply",1,true]` {
		t.Errorf("unexpected wire shape: %s", data)
	}

	data, err = c.Serialize(&message.Response{ID: 2, OK: false, Result: "boom", HasResult: true})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != `["call-reply",2,false,"boom"]` {
		t.Errorf("unexpected wire shape: %s", data)
	}
}

func TestSerializeProtocolError(t *testing.T) {
	c := &JSONCodec{}
	data, err := c.Serialize(&message.ProtocolError{ID: message.NoCallID, Reason: "Invalid callID: 100"})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != `["call-error",-1,"Invalid callID: 100"]` {
		t.Errorf("unexpected wire shape: %s", data)
	}
}

func TestSerializeNormalizesNonFiniteFloats(t *testing.T) {
	c := &JSONCodec{}
	data, err := c.Serialize(&message.Request{
		ID:     0,
		Method: "m",
		Args:   []any{math.NaN(), math.Inf(1), math.Inf(-1)},
	})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != `["call",0,"m",[],null,null,null]` {
		t.Errorf("non-finite floats must serialize as null: %s", data)
	}
}

func TestDeserializeRequest(t *testing.T) {
	c := &JSONCodec{}
	msg, err := c.Deserialize([]byte(`["call",7,"svc.fn",[2],42,"s","tok"]`))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	req, ok := msg.(*message.Request)
	if !ok {
		t.Fatalf("expected *message.Request, got %T", msg)
	}
	if req.ID != 7 || req.Method != "svc.fn" {
		t.Errorf("header mismatch: %+v", req)
	}
	if len(req.CallbackIndices) != 1 || req.CallbackIndices[0] != 2 {
		t.Errorf("callback indices mismatch: %v", req.CallbackIndices)
	}
	if len(req.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(req.Args))
	}
	if req.Args[0] != float64(42) || req.Args[1] != "s" || req.Args[2] != "tok" {
		t.Errorf("args mismatch: %v", req.Args)
	}
}

func TestDeserializeResponse(t *testing.T) {
	c := &JSONCodec{}

	msg, err := c.Deserialize([]byte(`["call-reply",1,true,3.14]`))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	resp := msg.(*message.Response)
	if !resp.OK || !resp.HasResult || resp.Result != 3.14 {
		t.Errorf("response mismatch: %+v", resp)
	}

	msg, err = c.Deserialize([]byte(`["call-reply",1,true]`))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	resp = msg.(*message.Response)
	if !resp.OK || resp.HasResult {
		t.Errorf("void response mismatch: %+v", resp)
	}
}

func TestDeserializeProtocolError(t *testing.T) {
	c := &JSONCodec{}
	msg, err := c.Deserialize([]byte(`["call-error",-1,"bad"]`))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	perr := msg.(*message.ProtocolError)
	if perr.ID != message.NoCallID || perr.Reason != "bad" {
		t.Errorf("protocol error mismatch: %+v", perr)
	}
}

func TestDeserializeRejectsMalformedInput(t *testing.T) {
	c := &JSONCodec{}
	for _, in := range []string{
		`{"not":"array"}`,
		`[]`,
		`["call"]`,
		`["call",0]`,
		`["call",0,"m"]`,
		`["call-reply",0]`,
		`["call-error",0]`,
		`["bogus",0,"x"]`,
		`[42,0,"x"]`,
	} {
		if _, err := c.Deserialize([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}
