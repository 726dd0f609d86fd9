// Package blobstore provides byte stream access to named blobs.
//
// A blob is addressed by a keyfactory.Location (container and name). The StreamProvider
// contract is what stream binders consume; Client implements it on top of Redis.
package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/holmberd/go-objectbinder/keyfactory"
)

var (
	ErrBlobNotFound = errors.New("blobstore: blob not found")
	ErrClosed       = errors.New("blobstore: stream closed")
)

// StreamProvider opens byte streams for blobs.
//
// Writes to a stream returned by OpenWrite are only guaranteed to be persisted
// once the stream is closed without error.
type StreamProvider interface {
	OpenRead(ctx context.Context, loc keyfactory.Location) (io.ReadCloser, error)
	OpenWrite(ctx context.Context, loc keyfactory.Location) (io.WriteCloser, error)
}

// Discarder is implemented by write streams that can be released without persisting
// anything written to them.
type Discarder interface {
	Discard() error
}

// Release closes s, or discards it if commit is false and s supports it.
func Release(s io.Closer, commit bool) error {
	if d, ok := s.(Discarder); ok && !commit {
		return d.Discard()
	}
	return s.Close()
}
