package encoder

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// ProtoMarshaler is the interface implemented by types that can marshal themselves into valid Protobuf.
type ProtoMarshaler interface {
	MarshalProto() ([]byte, error)
}

// ProtoUnmarshaler is the interface implemented by types that can unmarshal a Protobuf description of themselves.
type ProtoUnmarshaler interface {
	UnmarshalProto([]byte) error
}

var protoMessageType = reflect.TypeFor[proto.Message]()

// ProtoEncoder implements Codec for proto.Message values and for types
// implementing ProtoMarshaler/ProtoUnmarshaler.
//
// Unmarshal accepts either a message (*pb.Msg) or a pointer to a message
// pointer (**pb.Msg), in which case the message is allocated.
type ProtoEncoder struct{}

func (ProtoEncoder) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case proto.Message:
		return proto.Marshal(m)
	case ProtoMarshaler:
		return m.MarshalProto()
	default:
		return nil, fmt.Errorf("encoder: value of type %T is not a protobuf message", v)
	}
}

func (ProtoEncoder) Unmarshal(data []byte, out any) error {
	switch m := out.(type) {
	case proto.Message:
		return proto.Unmarshal(data, m)
	case ProtoUnmarshaler:
		return m.UnmarshalProto(data)
	}

	// **pb.Msg: allocate the message and unmarshal into it.
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() || !v.Elem().Type().Implements(protoMessageType) ||
		v.Elem().Type().Kind() != reflect.Pointer {
		return fmt.Errorf("encoder: target of type %T is not a protobuf message", out)
	}
	msg := reflect.New(v.Elem().Type().Elem())
	if err := proto.Unmarshal(data, msg.Interface().(proto.Message)); err != nil {
		return err
	}
	v.Elem().Set(msg)
	return nil
}
