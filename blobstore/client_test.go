package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/holmberd/go-objectbinder/datastore"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"github.com/holmberd/go-objectbinder/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func setupClient(t *testing.T, compression Compression) (*Client, context.Context) {
	t.Helper()
	rsClient, _ := testutil.NewRedisClientWithCleanup(t)
	ds, err := datastore.NewClient(rsClient)
	require.NoError(t, err)
	c, err := NewClient(ds, Options{
		Namespace:   testutil.RandomNamespace(),
		Compression: compression,
	})
	require.NoError(t, err)
	return c, context.Background()
}

func mustLocation(t *testing.T, path string) keyfactory.Location {
	t.Helper()
	loc, err := keyfactory.ParseLocation(path)
	require.NoError(t, err)
	return loc
}

func writeBlob(t *testing.T, c *Client, ctx context.Context, loc keyfactory.Location, data string) {
	t.Helper()
	w, err := c.OpenWrite(ctx, loc)
	require.NoError(t, err)
	_, err = io.WriteString(w, data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readBlob(t *testing.T, c *Client, ctx context.Context, loc keyfactory.Location) string {
	t.Helper()
	r, err := c.OpenRead(ctx, loc)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, Options{})
	assert.Error(t, err)

	rsClient, _ := testutil.NewRedisClientWithCleanup(t)
	ds, err := datastore.NewClient(rsClient)
	require.NoError(t, err)

	_, err = NewClient(ds, Options{Namespace: "__reserved"})
	assert.Error(t, err)

	_, err = NewClient(ds, Options{Compression: Compression(9)})
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			t.Run("Write and read", func(t *testing.T) {
				c, ctx := setupClient(t, compression)
				loc := mustLocation(t, "reports/2024/q1.csv")
				payload := strings.Repeat("a,b,c\n", 100)

				writeBlob(t, c, ctx, loc, payload)
				assert.Equal(t, payload, readBlob(t, c, ctx, loc))

				got, err := c.Get(ctx, loc)
				require.NoError(t, err)
				assert.Equal(t, payload, string(got))
			})

			t.Run("Write replaces", func(t *testing.T) {
				c, ctx := setupClient(t, compression)
				loc := mustLocation(t, "box/item")

				writeBlob(t, c, ctx, loc, "first")
				writeBlob(t, c, ctx, loc, "second")
				assert.Equal(t, "second", readBlob(t, c, ctx, loc))
			})

			t.Run("Put and Get", func(t *testing.T) {
				c, ctx := setupClient(t, compression)
				loc := mustLocation(t, "box/raw.bin")
				data := []byte{0, 1, 2, 3, 255}

				require.NoError(t, c.Put(ctx, loc, data))
				got, err := c.Get(ctx, loc)
				require.NoError(t, err)
				assert.Equal(t, data, got)
			})
		})
	}

	t.Run("Read missing blob", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		_, err := c.OpenRead(ctx, mustLocation(t, "box/missing"))
		assert.ErrorIs(t, err, ErrBlobNotFound)
	})

	t.Run("Nothing is stored before close", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		loc := mustLocation(t, "box/pending")

		w, err := c.OpenWrite(ctx, loc)
		require.NoError(t, err)
		_, err = w.Write([]byte("pending"))
		require.NoError(t, err)

		exists, err := c.Exists(ctx, loc)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, w.Close())
		exists, err = c.Exists(ctx, loc)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Write after close", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		w, err := c.OpenWrite(ctx, mustLocation(t, "box/closed"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close(), "closing twice is a no-op")

		_, err = w.Write([]byte("late"))
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("Discard keeps the existing blob", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		loc := mustLocation(t, "box/kept")
		writeBlob(t, c, ctx, loc, "original")

		w, err := c.OpenWrite(ctx, loc)
		require.NoError(t, err)
		_, err = w.Write([]byte("replacement"))
		require.NoError(t, err)
		require.NoError(t, Release(w, false))

		assert.Equal(t, "original", readBlob(t, c, ctx, loc))
		require.NoError(t, w.Close(), "close after discard is a no-op")
		assert.Equal(t, "original", readBlob(t, c, ctx, loc))
	})

	t.Run("Release commits", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		loc := mustLocation(t, "box/committed")

		w, err := c.OpenWrite(ctx, loc)
		require.NoError(t, err)
		_, err = w.Write([]byte("data"))
		require.NoError(t, err)
		require.NoError(t, Release(w, true))

		assert.Equal(t, "data", readBlob(t, c, ctx, loc))
	})

	t.Run("Invalid location", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		_, err := c.OpenWrite(ctx, keyfactory.Location{Container: "Bad_Container", Name: "x"})
		assert.Error(t, err)
		_, err = c.OpenRead(ctx, keyfactory.Location{Container: "box", Name: "a*"})
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		loc := mustLocation(t, "box/deleted")
		writeBlob(t, c, ctx, loc, "x")

		require.NoError(t, c.Delete(ctx, loc))
		exists, err := c.Exists(ctx, loc)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, c.Delete(ctx, loc), "deleting a missing blob is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		c, ctx := setupClient(t, CompressionNone)
		names := []string{"a.txt", "b.txt", "nested/c.txt"}
		for _, name := range names {
			writeBlob(t, c, ctx, keyfactory.Location{Container: "listed", Name: name}, name)
		}
		writeBlob(t, c, ctx, mustLocation(t, "other/d.txt"), "d")

		locs, err := c.List(ctx, "listed")
		require.NoError(t, err)
		got := make([]string, len(locs))
		for i, loc := range locs {
			assert.Equal(t, "listed", loc.Container)
			got[i] = loc.Name
		}
		assert.ElementsMatch(t, names, got)
	})
}

func TestClientEvents(t *testing.T) {
	c, ctx := setupClient(t, CompressionZstd)
	loc := mustLocation(t, "events/blob")

	var written, deleted []Event
	c.OnWritten().AddListener(func(_ context.Context, e Event) { written = append(written, e) })
	c.OnDeleted().AddListener(func(_ context.Context, e Event) { deleted = append(deleted, e) })

	payload := bytes.Repeat([]byte("z"), 64)
	writeBlob(t, c, ctx, loc, string(payload))
	require.Len(t, written, 1)
	assert.Equal(t, Event{Location: loc, Size: len(payload), Digest: blake3.Sum256(payload)}, written[0])

	// Discarded writes are not events.
	w, err := c.OpenWrite(ctx, loc)
	require.NoError(t, err)
	require.NoError(t, Release(w, false))
	assert.Len(t, written, 1)

	require.NoError(t, c.Delete(ctx, loc))
	require.NoError(t, c.Delete(ctx, loc))
	require.Len(t, deleted, 1)
	assert.Equal(t, loc, deleted[0].Location)
}
