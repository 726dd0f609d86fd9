// Package encoder provides the byte codecs used to serialize values: JSON for the
// field map fallback, and CBOR, MessagePack, YAML or Protobuf for stream bound values.
package encoder

// Codec marshals values to bytes and back.
// Unmarshal expects out to be a non-nil pointer.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, out any) error
}
