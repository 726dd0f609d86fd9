package encoder

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLCodec implements Codec using YAML, for documents edited by hand.
// Struct fields are matched through `yaml` tags, or the lowercased field name.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoder: yaml: %w", err)
	}
	return data, nil
}

func (YAMLCodec) Unmarshal(data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("encoder: yaml: %w", err)
	}
	return nil
}
