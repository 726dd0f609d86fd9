package binder

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/holmberd/go-objectbinder/blobstore"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"go.uber.org/zap"
)

// Result is a bound value of type T together with the stream it owns.
//
// Output results carry a deferred write back. It runs on Close, at most once, and only
// when the value is present: a value that was never set, or a nil pointer, map, slice or
// interface, writes nothing and the stream is discarded instead.
//
// A Result is used by a single goroutine; Close and Discard are safe to call repeatedly.
type Result[T any] struct {
	loc       keyfactory.Location
	stream    io.Closer
	writeBack func(v T) error // Nil for input results.

	value T
	set   bool

	mu       sync.Mutex
	released bool
}

var _ BindResult = (*Result[struct{}])(nil)

// NewInputResult returns a result holding a value read from stream.
func NewInputResult[T any](loc keyfactory.Location, value T, stream io.Closer) *Result[T] {
	return &Result[T]{loc: loc, stream: stream, value: value, set: true}
}

// NewOutputResult returns a result holding no value whose writeBack is invoked on Close
// once a value has been set.
func NewOutputResult[T any](loc keyfactory.Location, stream io.Closer, writeBack func(v T) error) *Result[T] {
	return &Result[T]{loc: loc, stream: stream, writeBack: writeBack}
}

// Location returns the bound blob location.
func (r *Result[T]) Location() keyfactory.Location {
	return r.loc
}

// IsOutput reports whether the result writes back on Close.
func (r *Result[T]) IsOutput() bool {
	return r.writeBack != nil
}

// Value returns the bound value. It is the zero value of T until set on output results.
func (r *Result[T]) Value() T {
	return r.value
}

// Set replaces the bound value.
func (r *Result[T]) Set(v T) {
	r.value = v
	r.set = true
}

// Unset marks the value absent so that Close writes nothing.
func (r *Result[T]) Unset() {
	var zero T
	r.value = zero
	r.set = false
}

// IsAbsent reports whether there is nothing to write back.
func (r *Result[T]) IsAbsent() bool {
	return !r.set || isNil(reflect.ValueOf(&r.value).Elem())
}

func (r *Result[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}

func (r *Result[T]) Interface() any {
	if r.IsAbsent() {
		return nil
	}
	return r.value
}

func (r *Result[T]) SetInterface(v any) error {
	if v == nil {
		r.Unset()
		return nil
	}
	typed, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot assign '%T' to '%s'", ErrTypeMismatch, v, r.Type())
	}
	r.Set(typed)
	return nil
}

// Close writes back a present value of an output result and releases the stream.
// If the write fails the stream is discarded and the write error returned.
func (r *Result[T]) Close() error {
	return r.release(true)
}

// Discard releases the stream without writing.
func (r *Result[T]) Discard() error {
	return r.release(false)
}

func (r *Result[T]) release(commit bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true

	if r.writeBack == nil {
		return r.closeStream(true)
	}
	if !commit || r.IsAbsent() {
		Logger().Debug("output discarded",
			zap.Stringer("location", r.loc),
			zap.Bool("absent", r.IsAbsent()),
		)
		return r.closeStream(false)
	}
	if err := r.writeBack(r.value); err != nil {
		return errors.Join(
			fmt.Errorf("binder: failed to write '%s': %w", r.loc, err),
			r.closeStream(false),
		)
	}
	Logger().Debug("output written", zap.Stringer("location", r.loc), zap.Stringer("type", r.Type()))
	return r.closeStream(true)
}

func (r *Result[T]) closeStream(commit bool) error {
	if r.stream == nil {
		return nil
	}
	return blobstore.Release(r.stream, commit)
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
