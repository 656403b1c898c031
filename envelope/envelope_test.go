package envelope

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewStampsVersionAndTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	env := New(KindHello, 3)
	after := time.Now().UnixMilli()

	if env.V != 3 {
		t.Fatalf("expect V=3, got %d", env.V)
	}
	if env.Ts < before || env.Ts > after {
		t.Fatalf("expect Ts within [%d, %d], got %d", before, after, env.Ts)
	}
	if env.Kind != KindHello {
		t.Fatalf("expect Kind=hello, got %s", env.Kind)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{"rpc_req needs id and ch", Envelope{Kind: KindRPCRequest}, true},
		{"rpc_req ok", Envelope{Kind: KindRPCRequest, ID: "1", Ch: "add"}, false},
		{"rpc_res needs id", Envelope{Kind: KindRPCResponse}, true},
		{"rpc_res ok", Envelope{Kind: KindRPCResponse, ID: "1"}, false},
		{"rpc_err needs id", Envelope{Kind: KindRPCError}, true},
		{"event needs ch", Envelope{Kind: KindEvent}, true},
		{"event ok", Envelope{Kind: KindEvent, Ch: "userJoined"}, false},
		{"hello rejects id/ch", Envelope{Kind: KindHello, ID: "1"}, true},
		{"hello ok", Envelope{Kind: KindHello}, false},
		{"unknown kind passes through to the OnUnknownEnvelope hook", Envelope{Kind: "bogus"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestUnknownFieldsRoundTripThroughExtra(t *testing.T) {
	wire := `{"v":1,"ts":123,"kind":"event","ch":"x","p":{"a":1},"trace":"abc-123"}`

	var env Envelope
	if err := json.Unmarshal([]byte(wire), &env); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := env.Extra["trace"]; !ok {
		t.Fatalf("expected unknown field 'trace' preserved in Extra")
	}

	out, err := json.Marshal(&env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var roundTripped map[string]json.RawMessage
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("unmarshal round trip failed: %v", err)
	}
	if _, ok := roundTripped["trace"]; !ok {
		t.Fatalf("expected 'trace' to survive the round trip")
	}
}

func TestIsRPC(t *testing.T) {
	rpcKinds := []Kind{KindRPCRequest, KindRPCResponse, KindRPCError}
	for _, k := range rpcKinds {
		if !(&Envelope{Kind: k}).IsRPC() {
			t.Fatalf("expected %s to be RPC", k)
		}
	}
	nonRPCKinds := []Kind{KindEvent, KindHello}
	for _, k := range nonRPCKinds {
		if (&Envelope{Kind: k}).IsRPC() {
			t.Fatalf("expected %s to not be RPC", k)
		}
	}
}
