package codec

import (
	"bytes"
	"encoding/gob"
)

// GobCodec implements a compact binary serialization using the standard
// library's encoding/gob.
//
// The teacher's BinaryCodec hand-rolled a length-prefixed binary layout
// specific to message.RPCMessage's three fixed fields. An Envelope carries
// a variable-shape Meta map and Feat slice on top of that, so a hand-rolled
// layout would need to special-case those — effectively reinventing a
// schema encoder. gob already solves "encode an arbitrary Go struct
// compactly, without repeating field names on the wire" for any type,
// which is the same concern the teacher's BinaryCodec served, generalized
// instead of duplicated. It is registered as CodecTypeBinary, exercising
// the same Codec/CodecType plumbing (protocol frame header, GetCodec
// factory) the teacher built around the JSON/Binary split.
//
// gob encodes interface-typed fields (envelope.Envelope.Meta values) only
// for concrete types registered via gob.Register; callers that put
// non-primitive values in Meta and use GobCodec are responsible for
// registering them once at startup.
type GobCodec struct{}

func (c *GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *GobCodec) Type() CodecType {
	return CodecTypeBinary
}
