package binder

import (
	"fmt"
	"io"

	"github.com/holmberd/go-objectbinder/encoder"
	"github.com/holmberd/go-objectbinder/fieldmap"
)

// CodecStreamBinder binds T as a single document encoded with Codec.
// A nil Codec uses encoder.JSONCodec.
//
// Example:
//
//	binder.Register[*pb.Report](r, binder.CodecStreamBinder[*pb.Report]{Codec: encoder.ProtoEncoder{}})
type CodecStreamBinder[T any] struct {
	Codec encoder.Codec
}

func (b CodecStreamBinder[T]) codec() encoder.Codec {
	if b.Codec == nil {
		return encoder.JSONCodec{}
	}
	return b.Codec
}

func (b CodecStreamBinder[T]) ReadFromStream(r io.Reader) (T, error) {
	var v T
	data, err := io.ReadAll(r)
	if err != nil {
		return v, err
	}
	if err := b.codec().Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

func (b CodecStreamBinder[T]) WriteToStream(v T, w io.Writer) error {
	data, err := b.codec().Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// FieldMapStreamBinder binds T as its field map, encoded with Codec.
// A nil Registry uses fieldmap.Default and a nil Codec uses encoder.JSONCodec.
type FieldMapStreamBinder[T any] struct {
	Registry *fieldmap.Registry
	Codec    encoder.Codec
}

func (b FieldMapStreamBinder[T]) registry() *fieldmap.Registry {
	if b.Registry == nil {
		return fieldmap.Default()
	}
	return b.Registry
}

func (b FieldMapStreamBinder[T]) codec() encoder.Codec {
	if b.Codec == nil {
		return encoder.JSONCodec{}
	}
	return b.Codec
}

func (b FieldMapStreamBinder[T]) ReadFromStream(r io.Reader) (T, error) {
	var zero T
	data, err := io.ReadAll(r)
	if err != nil {
		return zero, err
	}
	var m map[string]string
	if err := b.codec().Unmarshal(data, &m); err != nil {
		return zero, fmt.Errorf("binder: field map: %w", err)
	}
	return fieldmap.FromFieldMapWith[T](b.registry(), m)
}

func (b FieldMapStreamBinder[T]) WriteToStream(v T, w io.Writer) error {
	m, err := b.registry().ToFieldMap(v)
	if err != nil {
		return err
	}
	data, err := b.codec().Marshal(map[string]string(m))
	if err != nil {
		return fmt.Errorf("binder: field map: %w", err)
	}
	_, err = w.Write(data)
	return err
}
