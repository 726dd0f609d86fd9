// Package objectstore persists values as Redis hashes of their field maps.
//
// Each value is stored under "<__namespace__>:object:<kind>:<id>" with one hash field per
// field map entry, so single fields stay readable with plain Redis tooling.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/holmberd/go-objectbinder/datastore"
	"github.com/holmberd/go-objectbinder/eventemitter"
	"github.com/holmberd/go-objectbinder/fieldmap"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"go.uber.org/zap"
)

const maxPageLimit = 1000

var ErrNotFound = errors.New("objectstore: object not found")

type Event int

const (
	ObjectsPut Event = iota
	ObjectsRemoved
	ObjectsFlushed
)

func (e Event) String() string {
	switch e {
	case ObjectsPut:
		return "ObjectsPut"
	case ObjectsRemoved:
		return "ObjectsRemoved"
	case ObjectsFlushed:
		return "ObjectsFlushed"
	default:
		return fmt.Sprintf("event(%d)", e)
	}
}

// Options configures a Store.
type Options struct {
	Namespace  string             // Optional key namespace.
	Expiration time.Duration      // Object TTL, zero keeps objects forever.
	Registry   *fieldmap.Registry // Defaults to fieldmap.Default().
}

// Cursor is a page of objects from a paginated listing.
type Cursor[T any] struct {
	Cursor  uint64
	IDs     []string
	Objects []T
}

// Store persists objects of type T under a kind. T must be a struct, a pointer to a
// struct or a string keyed map, see fieldmap.Mappable.
//
// An object whose fields are all absent has an empty field map and is stored as a
// deletion; listeners are notified through OnRemoved instead of OnPut.
type Store[T any] struct {
	kind      string
	opts      Options
	registry  *fieldmap.Registry
	dsClient  *datastore.Client
	onPut     *eventemitter.EventTarget[[]string]
	onRemoved *eventemitter.EventTarget[[]string]
	onFlushed *eventemitter.EventTarget[[]string]
}

// New creates a new instance of a store.
func New[T any](kind string, dsClient *datastore.Client, opts Options) (*Store[T], error) {
	if dsClient == nil {
		return nil, errors.New("objectstore: datastore client must not be nil")
	}
	if kind == "" {
		return nil, errors.New("objectstore: kind must not be empty")
	}
	if err := keyfactory.ValidateKeyFragment(kind); err != nil {
		return nil, fmt.Errorf("objectstore: %w", err)
	}
	if opts.Namespace != "" {
		if err := keyfactory.ValidateKeyFragment(opts.Namespace); err != nil {
			return nil, fmt.Errorf("objectstore: %w", err)
		}
	}
	if t := reflect.TypeFor[T](); !fieldmap.Mappable(t) {
		return nil, fmt.Errorf("objectstore: %w: '%s'", fieldmap.ErrNotConstructible, t)
	}
	registry := opts.Registry
	if registry == nil {
		registry = fieldmap.Default()
	}
	return &Store[T]{
		kind:      kind,
		opts:      opts,
		registry:  registry,
		dsClient:  dsClient,
		onPut:     eventemitter.NewEventTarget[[]string](ObjectsPut.String()),
		onRemoved: eventemitter.NewEventTarget[[]string](ObjectsRemoved.String()),
		onFlushed: eventemitter.NewEventTarget[[]string](ObjectsFlushed.String()),
	}, nil
}

func (s *Store[T]) Kind() string {
	return s.kind
}

func (s *Store[T]) OnPut() *eventemitter.EventTarget[[]string] {
	return s.onPut
}

func (s *Store[T]) OnRemoved() *eventemitter.EventTarget[[]string] {
	return s.onRemoved
}

func (s *Store[T]) OnFlushed() *eventemitter.EventTarget[[]string] {
	return s.onFlushed
}

func (s *Store[T]) key(id string) (*keyfactory.Key, error) {
	key, err := keyfactory.ObjectKey(s.opts.Namespace, s.kind, id)
	if err != nil {
		return nil, fmt.Errorf("objectstore: %w", err)
	}
	return key, nil
}

func (s *Store[T]) matchKey() (*keyfactory.Key, error) {
	keyMatch, err := keyfactory.ObjectMatchKey(s.opts.Namespace, s.kind)
	if err != nil {
		return nil, fmt.Errorf("objectstore: %w", err)
	}
	return keyMatch, nil
}

// Put stores v under id, replacing any existing object.
func (s *Store[T]) Put(ctx context.Context, id string, v T) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}
	fields, err := s.registry.ToFieldMap(v)
	if err != nil {
		return fmt.Errorf("objectstore: failed to encode object '%s': %w", id, err)
	}
	if err := s.dsClient.PutFields(ctx, key, fields, s.opts.Expiration); err != nil {
		return err
	}
	if len(fields) == 0 {
		Logger().Debug("empty object removed", zap.String("kind", s.kind), zap.String("id", id))
		s.onRemoved.Emit(ctx, []string{id})
		return nil
	}
	Logger().Debug("object put",
		zap.String("kind", s.kind),
		zap.String("id", id),
		zap.Int("fields", len(fields)),
	)
	s.onPut.Emit(ctx, []string{id})
	return nil
}

// GetFields returns the stored field map of the object with id.
// ErrNotFound is returned if the object does not exist.
func (s *Store[T]) GetFields(ctx context.Context, id string) (fieldmap.FieldMap, error) {
	key, err := s.key(id)
	if err != nil {
		return nil, err
	}
	fields, err := s.dsClient.GetFields(ctx, key)
	if err != nil {
		if errors.Is(err, datastore.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s '%s'", ErrNotFound, s.kind, id)
		}
		return nil, err
	}
	return fields, nil
}

// Get retrieves the object with id.
// ErrNotFound is returned if the object does not exist. A field that fails to decode
// returns the partially decoded object together with the error.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	fields, err := s.GetFields(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return fieldmap.FromFieldMapWith[T](s.registry, fields)
}

// Delete deletes the objects with the given IDs. Missing objects are ignored.
func (s *Store[T]) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil // No-op for empty IDs.
	}
	keys := make([]*keyfactory.Key, len(ids))
	for i, id := range ids {
		key, err := s.key(id)
		if err != nil {
			return err
		}
		keys[i] = key
	}
	if _, err := s.dsClient.Delete(ctx, keys...); err != nil {
		return err
	}
	s.onRemoved.Emit(ctx, ids)
	return nil
}

// Exists checks whether an object with id exists.
func (s *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	key, err := s.key(id)
	if err != nil {
		return false, err
	}
	return s.dsClient.Exists(ctx, key)
}

// IDs returns the IDs of all stored objects.
//   - May miss objects added/removed during iteration.
func (s *Store[T]) IDs(ctx context.Context) ([]string, error) {
	keyMatch, err := s.matchKey()
	if err != nil {
		return nil, err
	}
	keys, err := s.dsClient.ScanKeys(ctx, keyMatch)
	if err != nil {
		return nil, err
	}
	return s.parseIDs(keys)
}

// GetWithPagination retrieves objects with cursor pagination.
//   - Does not guarantee an exact number of objects returned per page.
//   - A given object may be returned multiple times.
//   - Objects removed between listing and reading are skipped.
func (s *Store[T]) GetWithPagination(ctx context.Context, cursor uint64, limit int) (*Cursor[T], error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	keyMatch, err := s.matchKey()
	if err != nil {
		return nil, err
	}
	keys, nextCursor, err := s.dsClient.GetKeysWithCursor(ctx, cursor, limit, keyMatch)
	if err != nil {
		return nil, err
	}
	ids, err := s.parseIDs(keys)
	if err != nil {
		return nil, err
	}
	page := &Cursor[T]{Cursor: nextCursor}
	for _, id := range ids {
		v, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		page.IDs = append(page.IDs, id)
		page.Objects = append(page.Objects, v)
	}
	return page, nil
}

func (s *Store[T]) parseIDs(keys []*keyfactory.Key) ([]string, error) {
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		_, id, err := keyfactory.ParseObjectKey(key.RedisKey())
		if err != nil {
			return nil, fmt.Errorf("objectstore: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// flush deletes every object of the store's kind, used in e.g. tests.
// It triggers the ObjectsFlushed event.
func (s *Store[T]) flush(ctx context.Context) error {
	keyMatch, err := s.matchKey()
	if err != nil {
		return err
	}
	if err := s.dsClient.DeleteMatch(ctx, keyMatch); err != nil {
		return err
	}
	s.onFlushed.Emit(ctx, []string{})
	return nil
}
