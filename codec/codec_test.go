package codec

import (
	"testing"

	"kataribe/envelope"
)

func sampleEnvelope() *envelope.Envelope {
	e := envelope.New(envelope.KindRPCRequest, 1)
	e.ID = "call-1"
	e.Ch = "ArithService.Add"
	e.P = []byte(`{"a":1,"b":2}`)
	return e
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := &JSONCodec{}

	original := sampleEnvelope()
	data, err := c.Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded envelope.Envelope
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.ID != original.ID || decoded.Ch != original.Ch {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if c.Type() != CodecTypeJSON {
		t.Errorf("Type() = %v, want CodecTypeJSON", c.Type())
	}
}

func TestGobCodecRoundTrip(t *testing.T) {
	c := &GobCodec{}

	original := sampleEnvelope()
	data, err := c.Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded envelope.Envelope
	if err := c.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.ID != original.ID || decoded.Ch != original.Ch {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if c.Type() != CodecTypeBinary {
		t.Errorf("Type() = %v, want CodecTypeBinary", c.Type())
	}
}

func TestGetCodec(t *testing.T) {
	if _, ok := GetCodec(CodecTypeJSON).(*JSONCodec); !ok {
		t.Error("GetCodec(CodecTypeJSON) did not return a *JSONCodec")
	}
	if _, ok := GetCodec(CodecTypeBinary).(*GobCodec); !ok {
		t.Error("GetCodec(CodecTypeBinary) did not return a *GobCodec")
	}
}
