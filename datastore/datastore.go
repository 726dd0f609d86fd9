// The datastore package provides a simple abstraction over Redis for storing blobs and field maps.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/holmberd/go-objectbinder/keyfactory"
)

var (
	ErrKeyNotFound = errors.New("datastore: key not found")
)

const maxScanLimit = 1000

// Client represents a datastore client for interacting with a datastore.
// The client is safe for concurrent use.
type Client struct {
	rsClient *redis.Client
}

// NewClient creates a new instance of a Client.
func NewClient(rsClient *redis.Client) (*Client, error) {
	if rsClient == nil {
		return nil, errors.New("datastore: redis client must not be nil")
	}
	return &Client{
		rsClient: rsClient,
	}, nil
}

// Put writes the data with the key to the store.
// If the key doesn't exist it's added, otherwise it's replaced.
func (c *Client) Put(
	ctx context.Context,
	key *keyfactory.Key,
	data []byte,
	expiration time.Duration,
) error {
	if key == nil {
		return nil // No-op for empty key.
	}
	if err := c.rsClient.Set(ctx, key.RedisKey(), data, expiration).Err(); err != nil {
		return fmt.Errorf("datastore: failed to write key '%s': %w", key, err)
	}
	return nil
}

// Get retrieves the data associated with the key from the store.
// ErrKeyNotFound is returned if the key is not found in the store.
func (c *Client) Get(ctx context.Context, key *keyfactory.Key) ([]byte, error) {
	if key == nil {
		return nil, ErrKeyNotFound
	}
	data, err := c.rsClient.Get(ctx, key.RedisKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("datastore: %w", err)
	}
	return data, nil
}

// PutFields replaces the hash stored at key with fields.
// Fields absent from the map are removed. An empty map deletes the key.
func (c *Client) PutFields(
	ctx context.Context,
	key *keyfactory.Key,
	fields map[string]string,
	expiration time.Duration,
) error {
	if key == nil {
		return nil // No-op for empty key.
	}
	rsKey := key.RedisKey()
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	_, err := c.rsClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rsKey)
		if len(values) == 0 {
			return nil
		}
		pipe.HSet(ctx, rsKey, values)
		if expiration > 0 {
			pipe.Expire(ctx, rsKey, expiration)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("datastore: failed to write fields of key '%s': %w", key, err)
	}
	return nil
}

// GetFields retrieves the hash stored at key.
// ErrKeyNotFound is returned if the key is not found in the store.
func (c *Client) GetFields(ctx context.Context, key *keyfactory.Key) (map[string]string, error) {
	if key == nil {
		return nil, ErrKeyNotFound
	}
	fields, err := c.rsClient.HGetAll(ctx, key.RedisKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}
	// HGETALL returns an empty hash for missing keys.
	if len(fields) == 0 {
		return nil, ErrKeyNotFound
	}
	return fields, nil
}

// Delete deletes the provided keys from the store.
// It returns the number of keys that were removed.
func (c *Client) Delete(ctx context.Context, keys ...*keyfactory.Key) (int64, error) {
	if len(keys) == 0 {
		return 0, nil // No-op for empty keys.
	}
	rsKeys := make([]string, len(keys))
	for i, key := range keys {
		rsKeys[i] = key.RedisKey()
	}
	n, err := c.rsClient.Del(ctx, rsKeys...).Result()
	if err != nil {
		return 0, fmt.Errorf("datastore: failed to delete keys from redis: %w", err)
	}
	return n, nil
}

// DeleteMatch deletes all keys matching the key pattern.
func (c *Client) DeleteMatch(ctx context.Context, keyMatch *keyfactory.Key) error {
	if keyMatch == nil {
		return nil // No-op for empty key.
	}
	keys, err := c.ScanKeys(ctx, keyMatch)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil // No-op.
	}
	_, err = c.Delete(ctx, keys...)
	return err
}

// GetKeysWithCursor retrieves matching keys using cursor pagination.
//   - Does not gurantee an exact number of keys returned per page.
//   - A given key may be returned multiple times.
//   - Keys that were not constantly present in the collection during a full iteration, may be returned or not.
func (c *Client) GetKeysWithCursor(
	ctx context.Context,
	cursor uint64,
	limit int,
	keyMatch *keyfactory.Key,
) (keys []*keyfactory.Key, nextCursor uint64, err error) {
	if limit <= 0 || limit > maxScanLimit {
		limit = maxScanLimit
	}
	rsKeys, nextCursor, err := c.rsClient.Scan(ctx, cursor, keyMatch.RedisKey(), int64(limit)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("datastore: failed scanning redis for keys: %w", err)
	}
	keys = make([]*keyfactory.Key, len(rsKeys))
	for i, rsKey := range rsKeys {
		key, err := keyfactory.ParseRedisKey(rsKey)
		if err != nil {
			return nil, 0, fmt.Errorf("datastore: failed to parse redis key: %w", err)
		}
		keys[i] = key
	}
	return keys, nextCursor, nil
}

// ScanKeys retrieves all matching keys as a non-blocking operation.
// May miss keys added/removed during iteration. Duplicates are removed.
func (c *Client) ScanKeys(ctx context.Context, keyMatch *keyfactory.Key) ([]*keyfactory.Key, error) {
	var (
		cursor uint64
		keys   []*keyfactory.Key
		seen   = make(map[string]struct{})
	)
	for {
		page, nextCursor, err := c.GetKeysWithCursor(ctx, cursor, maxScanLimit, keyMatch)
		if err != nil {
			return nil, err
		}
		for _, k := range page {
			if _, ok := seen[k.RedisKey()]; ok {
				continue
			}
			seen[k.RedisKey()] = struct{}{}
			keys = append(keys, k)
		}
		if nextCursor == 0 {
			return keys, nil
		}
		cursor = nextCursor
	}
}

// Exists checks whether the key exist in the store.
func (c *Client) Exists(ctx context.Context, key *keyfactory.Key) (bool, error) {
	if key == nil {
		return false, nil // No-op for empty key.
	}
	n, err := c.rsClient.Exists(ctx, key.RedisKey()).Result()
	if err != nil {
		return false, fmt.Errorf("datastore: %w", err)
	}
	return n > 0, nil
}
