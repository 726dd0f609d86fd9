package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/holmberd/go-objectbinder/datastore"
	"github.com/holmberd/go-objectbinder/eventemitter"
	"github.com/holmberd/go-objectbinder/keyfactory"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	Namespace   string        // Optional key namespace.
	Expiration  time.Duration // Blob TTL, zero keeps blobs forever.
	Compression Compression   // Fixed for the lifetime of the stored data.
}

// Event describes a blob change.
type Event struct {
	Location keyfactory.Location
	Size     int      // Uncompressed size, zero for deletions.
	Digest   [32]byte // BLAKE3 of the uncompressed contents, zero for deletions.
}

// Client stores blobs in Redis and implements StreamProvider.
// The client is safe for concurrent use.
type Client struct {
	dsClient  *datastore.Client
	opts      Options
	onWritten *eventemitter.EventTarget[Event]
	onDeleted *eventemitter.EventTarget[Event]
}

var _ StreamProvider = (*Client)(nil)

// NewClient creates a new instance of a Client.
func NewClient(dsClient *datastore.Client, opts Options) (*Client, error) {
	if dsClient == nil {
		return nil, errors.New("blobstore: datastore client must not be nil")
	}
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("blobstore: unknown compression %s", opts.Compression)
	}
	if opts.Namespace != "" {
		if err := keyfactory.ValidateKeyFragment(opts.Namespace); err != nil {
			return nil, fmt.Errorf("blobstore: %w", err)
		}
	}
	return &Client{
		dsClient:  dsClient,
		opts:      opts,
		onWritten: eventemitter.NewEventTarget[Event]("BlobWritten"),
		onDeleted: eventemitter.NewEventTarget[Event]("BlobDeleted"),
	}, nil
}

func (c *Client) OnWritten() *eventemitter.EventTarget[Event] {
	return c.onWritten
}

func (c *Client) OnDeleted() *eventemitter.EventTarget[Event] {
	return c.onDeleted
}

// OpenRead opens the blob at loc for reading.
// ErrBlobNotFound is returned if the blob does not exist.
func (c *Client) OpenRead(ctx context.Context, loc keyfactory.Location) (io.ReadCloser, error) {
	data, err := c.get(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &blobReader{Reader: bytes.NewReader(data)}, nil
}

// OpenWrite opens the blob at loc for writing. Written bytes are buffered and stored
// when the stream is closed, replacing any existing blob. Discarding the stream
// leaves the existing blob untouched.
func (c *Client) OpenWrite(ctx context.Context, loc keyfactory.Location) (io.WriteCloser, error) {
	key, err := keyfactory.BlobKey(c.opts.Namespace, loc)
	if err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	return &blobWriter{ctx: ctx, client: c, loc: loc, key: key}, nil
}

// Get returns the contents of the blob at loc.
func (c *Client) Get(ctx context.Context, loc keyfactory.Location) ([]byte, error) {
	return c.get(ctx, loc)
}

// Put replaces the contents of the blob at loc.
func (c *Client) Put(ctx context.Context, loc keyfactory.Location, data []byte) error {
	key, err := keyfactory.BlobKey(c.opts.Namespace, loc)
	if err != nil {
		return fmt.Errorf("blobstore: %w", err)
	}
	return c.put(ctx, loc, key, data)
}

// Exists checks whether a blob exists at loc.
func (c *Client) Exists(ctx context.Context, loc keyfactory.Location) (bool, error) {
	key, err := keyfactory.BlobKey(c.opts.Namespace, loc)
	if err != nil {
		return false, fmt.Errorf("blobstore: %w", err)
	}
	return c.dsClient.Exists(ctx, key)
}

// Delete deletes the blob at loc. Deleting a missing blob is a no-op.
func (c *Client) Delete(ctx context.Context, loc keyfactory.Location) error {
	key, err := keyfactory.BlobKey(c.opts.Namespace, loc)
	if err != nil {
		return fmt.Errorf("blobstore: %w", err)
	}
	n, err := c.dsClient.Delete(ctx, key)
	if err != nil {
		return err
	}
	if n > 0 {
		Logger().Debug("blob deleted", zap.Stringer("location", loc))
		c.onDeleted.Emit(ctx, Event{Location: loc})
	}
	return nil
}

// List returns the locations of all blobs in container.
//   - May miss blobs added/removed during iteration.
func (c *Client) List(ctx context.Context, container string) ([]keyfactory.Location, error) {
	keyMatch, err := keyfactory.BlobMatchKey(c.opts.Namespace, container)
	if err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	keys, err := c.dsClient.ScanKeys(ctx, keyMatch)
	if err != nil {
		return nil, err
	}
	locs := make([]keyfactory.Location, 0, len(keys))
	for _, key := range keys {
		loc, err := keyfactory.ParseBlobKey(key.RedisKey())
		if err != nil {
			return nil, fmt.Errorf("blobstore: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func (c *Client) get(ctx context.Context, loc keyfactory.Location) ([]byte, error) {
	key, err := keyfactory.BlobKey(c.opts.Namespace, loc)
	if err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	data, err := c.dsClient.Get(ctx, key)
	if err != nil {
		if errors.Is(err, datastore.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, loc)
		}
		return nil, err
	}
	if data, err = decompress(data, c.opts.Compression); err != nil {
		return nil, fmt.Errorf("blobstore: failed to decompress blob '%s': %w", loc, err)
	}
	return data, nil
}

func (c *Client) put(ctx context.Context, loc keyfactory.Location, key *keyfactory.Key, data []byte) error {
	size, digest := len(data), blake3.Sum256(data)
	data, err := compress(data, c.opts.Compression)
	if err != nil {
		return err
	}
	if err := c.dsClient.Put(ctx, key, data, c.opts.Expiration); err != nil {
		return err
	}
	Logger().Debug("blob written",
		zap.Stringer("location", loc),
		zap.Int("size", size),
		zap.Int("stored", len(data)),
	)
	c.onWritten.Emit(ctx, Event{Location: loc, Size: size, Digest: digest})
	return nil
}

type blobReader struct {
	*bytes.Reader
}

func (r *blobReader) Close() error {
	return nil
}

// blobWriter buffers a blob and stores it on Close.
type blobWriter struct {
	ctx    context.Context
	client *Client
	loc    keyfactory.Location
	key    *keyfactory.Key

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (w *blobWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

// Close stores the buffered contents. Closing a closed stream is a no-op.
func (w *blobWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.client.put(w.ctx, w.loc, w.key, w.buf.Bytes())
}

// Discard releases the stream without storing anything.
func (w *blobWriter) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		Logger().Debug("blob write discarded", zap.Stringer("location", w.loc))
	}
	w.buf.Reset()
	return nil
}
