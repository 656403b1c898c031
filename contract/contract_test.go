package contract

import (
	"encoding/json"
	"fmt"
	"testing"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addReply struct {
	Sum int `json:"sum"`
}

func TestRPCFuncValidatorRoundTrips(t *testing.T) {
	desc := RPC(RPCOptions[addArgs, addReply]{
		RequestFunc: func(a addArgs) (addArgs, error) {
			if a.A < 0 || a.B < 0 {
				return a, fmt.Errorf("a and b must be non-negative")
			}
			return a, nil
		},
	})

	raw, err := desc.ValidateRequest(json.RawMessage(`{"a":2,"b":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded addArgs
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.A != 2 || decoded.B != 3 {
		t.Fatalf("unexpected round-trip value: %+v", decoded)
	}
}

func TestRPCFuncValidatorRejects(t *testing.T) {
	desc := RPC(RPCOptions[addArgs, addReply]{
		RequestFunc: func(a addArgs) (addArgs, error) {
			if a.A < 0 {
				return a, fmt.Errorf("a must be non-negative")
			}
			return a, nil
		},
	})

	_, err := desc.ValidateRequest(json.RawMessage(`{"a":-1,"b":3}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFuncValidatorTakesPrecedenceOverSchema(t *testing.T) {
	schemaCalled := false
	desc := RPC(RPCOptions[addArgs, addReply]{
		RequestFunc: func(a addArgs) (addArgs, error) { return a, nil },
		RequestSchema: func(raw json.RawMessage) (json.RawMessage, error) {
			schemaCalled = true
			return raw, nil
		},
	})

	if _, err := desc.ValidateRequest(json.RawMessage(`{"a":1,"b":2}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schemaCalled {
		t.Fatal("expected schema validator to be skipped when a func validator is present")
	}
}

func TestSchemaValidatorUsedWhenNoFuncValidator(t *testing.T) {
	desc := RPC(RPCOptions[addArgs, addReply]{
		RequestSchema: RequireNonEmpty("a"),
	})

	if _, err := desc.ValidateRequest(json.RawMessage(`{"b":2}`)); err == nil {
		t.Fatal("expected schema validator to reject missing field 'a'")
	}
}

func TestEventValidatorRejectsEmptyUserID(t *testing.T) {
	type userJoined struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}
	desc := Event(EventOptions[userJoined]{
		Func: func(p userJoined) (userJoined, error) {
			if p.UserID == "" {
				return p, fmt.Errorf("userId is required")
			}
			return p, nil
		},
	})

	_, err := desc.ValidatePayload(json.RawMessage(`{"userId":"","name":"X"}`))
	if err == nil {
		t.Fatal("expected validation to fail for empty userId")
	}
}

func TestDescriptorsWithoutValidatorsPassThrough(t *testing.T) {
	desc := RPC[addArgs, addReply](RPCOptions[addArgs, addReply]{})
	raw := json.RawMessage(`{"a":1,"b":2}`)
	out, err := desc.ValidateRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("expected payload to pass through unchanged, got %s", out)
	}
}

func TestContractNewDefaultsNilMaps(t *testing.T) {
	c := New(nil, nil, nil)
	if c.RPCToServer == nil || c.RPCToClient == nil || c.Events == nil {
		t.Fatal("expected New to initialize nil maps")
	}
}
