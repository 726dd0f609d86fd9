package encoder

import (
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.RawToString = true
	h.WriteExt = true
	return h
}

// MsgpackCodec implements Codec using MessagePack.
// Struct fields honour `codec` tags and fall back to `json` tags.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var data []byte
	if err := codec.NewEncoderBytes(&data, msgpackHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("encoder: msgpack: %w", err)
	}
	return data, nil
}

func (MsgpackCodec) Unmarshal(data []byte, out any) error {
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(out); err != nil {
		return fmt.Errorf("encoder: msgpack: %w", err)
	}
	return nil
}
