package encoder

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: equal values produce identical bytes.
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("encoder: cbor encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("encoder: cbor decoder initialization failed: " + err.Error())
	}
}

// CBORCodec implements Codec using deterministic CBOR.
type CBORCodec struct{}

func (CBORCodec) Marshal(v any) ([]byte, error) {
	data, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoder: cbor: %w", err)
	}
	return data, nil
}

func (CBORCodec) Unmarshal(data []byte, out any) error {
	if err := cborDecMode.Unmarshal(data, out); err != nil {
		return fmt.Errorf("encoder: cbor: %w", err)
	}
	return nil
}
