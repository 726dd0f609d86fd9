package binder

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/holmberd/go-objectbinder/blobstore"
	"github.com/holmberd/go-objectbinder/keyfactory"
)

// StreamBinder reads and writes values of type T from and to byte streams.
type StreamBinder[T any] interface {
	ReadFromStream(r io.Reader) (T, error)
	WriteToStream(v T, w io.Writer) error
}

// StreamBinderFuncs builds a StreamBinder from a pair of functions.
type StreamBinderFuncs[T any] struct {
	Read  func(r io.Reader) (T, error)
	Write func(v T, w io.Writer) error
}

func (f StreamBinderFuncs[T]) ReadFromStream(r io.Reader) (T, error) {
	if f.Read == nil {
		var zero T
		return zero, fmt.Errorf("binder: '%s' cannot be read", reflect.TypeFor[T]())
	}
	return f.Read(r)
}

func (f StreamBinderFuncs[T]) WriteToStream(v T, w io.Writer) error {
	if f.Write == nil {
		return fmt.Errorf("binder: '%s' cannot be written", reflect.TypeFor[T]())
	}
	return f.Write(v, w)
}

// StreamBinderProvider offers binders for exactly the type T.
type StreamBinderProvider[T any] struct {
	sb StreamBinder[T]
}

func NewStreamBinderProvider[T any](sb StreamBinder[T]) *StreamBinderProvider[T] {
	return &StreamBinderProvider[T]{sb: sb}
}

func (p *StreamBinderProvider[T]) TryGetBinder(t reflect.Type, isInput bool) Binder {
	if t != reflect.TypeFor[T]() {
		return nil
	}
	return &streamBinder[T]{sb: p.sb, isInput: isInput}
}

// Register appends a provider binding T through sb.
func Register[T any](r *Registry, sb StreamBinder[T]) {
	r.Add(NewStreamBinderProvider(sb))
}

type streamBinder[T any] struct {
	sb      StreamBinder[T]
	isInput bool
}

func (b *streamBinder[T]) Bind(
	ctx context.Context,
	streams blobstore.StreamProvider,
	loc keyfactory.Location,
) (BindResult, error) {
	var (
		res *Result[T]
		err error
	)
	if b.isInput {
		res, err = b.bindInput(ctx, streams, loc)
	} else {
		res, err = b.bindOutput(ctx, streams, loc)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// bindInput reads the value up front. The result keeps the stream open until closed.
func (b *streamBinder[T]) bindInput(
	ctx context.Context,
	streams blobstore.StreamProvider,
	loc keyfactory.Location,
) (*Result[T], error) {
	rc, err := streams.OpenRead(ctx, loc)
	if err != nil {
		return nil, err
	}
	v, err := b.sb.ReadFromStream(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("binder: failed to read '%s': %w", loc, err)
	}
	return NewInputResult(loc, v, rc), nil
}

func (b *streamBinder[T]) bindOutput(
	ctx context.Context,
	streams blobstore.StreamProvider,
	loc keyfactory.Location,
) (*Result[T], error) {
	wc, err := streams.OpenWrite(ctx, loc)
	if err != nil {
		return nil, err
	}
	return NewOutputResult(loc, wc, func(v T) error {
		return b.sb.WriteToStream(v, wc)
	}), nil
}
