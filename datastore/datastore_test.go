package datastore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"github.com/holmberd/go-objectbinder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDSClient(t *testing.T, rsClient *redis.Client) (*Client, context.Context, string) {
	t.Helper()
	ctx := context.Background()

	// A random key is used as the key namespace to ensure test data isolation.
	namespace := testutil.RandomNamespace()

	ds, err := NewClient(rsClient)
	require.NoError(t, err)

	t.Cleanup(func() {
		keyMatch, err := keyfactory.NamespaceMatchKey(namespace)
		if err != nil {
			t.Fatal(err)
		}
		if err := ds.DeleteMatch(ctx, keyMatch); err != nil {
			t.Fatalf("failed to flush datastore: %v", err)
		}
	})
	return ds, ctx, namespace
}

func blobKey(t *testing.T, namespace, container, name string) *keyfactory.Key {
	t.Helper()
	key, err := keyfactory.BlobKey(namespace, keyfactory.Location{Container: container, Name: name})
	require.NoError(t, err)
	return key
}

func TestDatastoreClient(t *testing.T) {
	rsClient, server := testutil.NewRedisClientWithCleanup(t)
	defer server.Close()

	t.Run("Nil redis client", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.Error(t, err)
	})

	t.Run("Put and Get", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		key := blobKey(t, ns, "box", "put.bin")

		data := []byte("value")
		require.NoError(t, ds.Put(ctx, key, data, 0))

		got, err := ds.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Get missing key", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		_, err := ds.Get(ctx, blobKey(t, ns, "box", "missing"))
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Put with expiration", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		key := blobKey(t, ns, "box", "ttl")
		require.NoError(t, ds.Put(ctx, key, []byte("x"), time.Minute))

		server.FastForward(2 * time.Minute)
		exists, err := ds.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("PutFields and GetFields", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		key, err := keyfactory.ObjectKey(ns, "settings", "one")
		require.NoError(t, err)

		require.NoError(t, ds.PutFields(ctx, key, map[string]string{"a": "1", "b": "2"}, 0))
		got, err := ds.GetFields(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)

		// Replacing drops fields that are no longer present.
		require.NoError(t, ds.PutFields(ctx, key, map[string]string{"b": "3"}, 0))
		got, err = ds.GetFields(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"b": "3"}, got)

		require.NoError(t, ds.PutFields(ctx, key, map[string]string{}, 0))
		_, err = ds.GetFields(ctx, key)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Delete and Exists", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		key := blobKey(t, ns, "box", "to-delete")

		require.NoError(t, ds.Put(ctx, key, []byte("temp"), 0))
		exists, err := ds.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		n, err := ds.Delete(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		exists, err = ds.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ScanKeys and DeleteMatch", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		numKeys := 25
		for i := range numKeys {
			require.NoError(t, ds.Put(ctx, blobKey(t, ns, "scan", fmt.Sprintf("b-%d", i)), []byte("val"), 0))
		}
		require.NoError(t, ds.Put(ctx, blobKey(t, ns, "other", "b"), []byte("val"), 0))

		keyMatch, err := keyfactory.BlobMatchKey(ns, "scan")
		require.NoError(t, err)
		keys, err := ds.ScanKeys(ctx, keyMatch)
		require.NoError(t, err)
		assert.Len(t, keys, numKeys)

		require.NoError(t, ds.DeleteMatch(ctx, keyMatch))
		keys, err = ds.ScanKeys(ctx, keyMatch)
		require.NoError(t, err)
		assert.Empty(t, keys)

		exists, err := ds.Exists(ctx, blobKey(t, ns, "other", "b"))
		require.NoError(t, err)
		assert.True(t, exists, "keys outside the pattern are kept")
	})

	t.Run("GetKeysWithCursor", func(t *testing.T) {
		ds, ctx, ns := setupDSClient(t, rsClient)
		numKeys := 12
		for i := range numKeys {
			require.NoError(t, ds.Put(ctx, blobKey(t, ns, "cursor", fmt.Sprint(i)), []byte("val"), 0))
		}
		keyMatch, err := keyfactory.BlobMatchKey(ns, "cursor")
		require.NoError(t, err)

		cursor := uint64(0)
		seen := make(map[string]struct{})
		for {
			keys, nextCursor, err := ds.GetKeysWithCursor(ctx, cursor, 5, keyMatch)
			require.NoError(t, err)
			for _, k := range keys {
				seen[k.RedisKey()] = struct{}{}
			}
			if nextCursor == 0 {
				break
			}
			cursor = nextCursor
		}
		assert.Len(t, seen, numKeys)
	})
}
