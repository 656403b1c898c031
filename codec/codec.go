// Package codec provides the serialization layer used by transport/frame
// to put an envelope.Envelope on the wire inside a protocol frame.
//
// It defines a pluggable Codec interface with two implementations:
//   - JSONCodec: human-readable, canonical per spec §6.2, used for
//     interop with non-Go peers.
//   - GobCodec:  compact binary format for Go-to-Go links that don't need
//     the canonical JSON encoding.
//
// The codec type is stored in the protocol frame header so the receiver
// knows which codec to use for deserialization.
package codec

// CodecType identifies the serialization format, stored as 1 byte in the frame header.
type CodecType byte

const (
	CodecTypeJSON   CodecType = 0 // JSON serialization (encoding/json)
	CodecTypeBinary CodecType = 1 // gob serialization
)

// Codec is the interface for serialization/deserialization.
// Implementing this interface allows adding new formats (e.g., Protobuf)
// without changing any other layer — this is the Strategy Pattern.
type Codec interface {
	Encode(v any) ([]byte, error)    // Serialize a struct to bytes
	Decode(data []byte, v any) error // Deserialize bytes back to a struct
	Type() CodecType                 // Return the codec type identifier
}

// GetCodec is a factory function that returns the appropriate codec by type.
func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}
	return &GobCodec{}
}
