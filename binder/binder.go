// Package binder materializes and persists values of a type against blob streams.
//
// A Registry holds an ordered list of providers. Resolving a type walks the providers in
// registration order and returns the first binder offered. A binder opens a stream for a
// blob location and returns a result that owns the stream until it is closed:
//
//	r := binder.NewRegistry()
//	binder.Register[Report](r, binder.CodecStreamBinder[Report]{})
//
//	err := binder.Use(ctx, r, blobs, loc, false, func(res *binder.Result[Report]) error {
//		res.Set(Report{Title: "q1"})
//		return nil
//	}) // The report is written when the scope ends without error.
package binder

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/holmberd/go-objectbinder/blobstore"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"go.uber.org/zap"
)

var (
	ErrNoBinder     = errors.New("binder: no binder for type")
	ErrTypeMismatch = errors.New("binder: type mismatch")
)

// Binder binds values of one type in one direction.
type Binder interface {
	// Bind opens the stream at loc. Errors from streams are returned unchanged.
	Bind(ctx context.Context, streams blobstore.StreamProvider, loc keyfactory.Location) (BindResult, error)
}

// BindResult is the untyped view of a bound value and the stream it owns.
type BindResult interface {
	// Type returns the bound type.
	Type() reflect.Type
	// Interface returns the bound value, or nil if it is absent.
	Interface() any
	// SetInterface replaces the bound value. v must be assignable to Type.
	SetInterface(v any) error
	// Close runs the deferred write back, if any, and releases the stream.
	Close() error
	// Discard releases the stream without writing.
	Discard() error
}

// Provider offers binders. TryGetBinder returns nil to decline.
type Provider interface {
	TryGetBinder(t reflect.Type, isInput bool) Binder
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(t reflect.Type, isInput bool) Binder

func (f ProviderFunc) TryGetBinder(t reflect.Type, isInput bool) Binder {
	return f(t, isInput)
}

// Registry is an ordered list of providers.
//
// Providers are only ever appended. When two providers claim the same type, the first
// registered one wins and the later one is never consulted for that type.
// Registration must happen before the registry is used for resolution.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a provider.
func (r *Registry) Add(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Resolve returns the binder of the first provider that does not decline.
func (r *Registry) Resolve(t reflect.Type, isInput bool) (Binder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, p := range r.providers {
		if b := p.TryGetBinder(t, isInput); b != nil {
			Logger().Debug("binder resolved",
				zap.Stringer("type", t),
				zap.Bool("input", isInput),
				zap.Int("provider", i),
			)
			return b, true
		}
	}
	return nil, false
}

// Bind resolves a binder for T and binds loc.
// ErrNoBinder is returned if no provider offers a binder for T.
func Bind[T any](
	ctx context.Context,
	r *Registry,
	streams blobstore.StreamProvider,
	loc keyfactory.Location,
	isInput bool,
) (*Result[T], error) {
	t := reflect.TypeFor[T]()
	b, ok := r.Resolve(t, isInput)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrNoBinder, t)
	}
	res, err := b.Bind(ctx, streams, loc)
	if err != nil {
		return nil, err
	}
	typed, ok := res.(*Result[T])
	if !ok {
		_ = res.Discard()
		return nil, fmt.Errorf("%w: binder for '%s' produced '%s'", ErrTypeMismatch, t, res.Type())
	}
	return typed, nil
}

// Use binds loc and calls fn with the result. The result is closed when fn returns
// without error, and discarded when fn fails or panics.
func Use[T any](
	ctx context.Context,
	r *Registry,
	streams blobstore.StreamProvider,
	loc keyfactory.Location,
	isInput bool,
	fn func(res *Result[T]) error,
) error {
	res, err := Bind[T](ctx, r, streams, loc, isInput)
	if err != nil {
		return err
	}
	released := false
	defer func() {
		if !released {
			_ = res.Discard()
		}
	}()

	if err := fn(res); err != nil {
		released = true
		return errors.Join(err, res.Discard())
	}
	released = true
	return res.Close()
}
