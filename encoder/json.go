package encoder

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// JSONCodec implements Codec using encoding/json.
//
// Decoding is lenient towards hand written input: comments and trailing commas
// are stripped before the data is parsed. Encoding always produces plain JSON.
type JSONCodec struct {
	// Strict disables the removal of comments and trailing commas.
	Strict bool
}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoder: json: %w", err)
	}
	return data, nil
}

func (c JSONCodec) Unmarshal(data []byte, out any) error {
	if !c.Strict {
		data = jsonc.ToJSON(data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("encoder: json: %w", err)
	}
	return nil
}
