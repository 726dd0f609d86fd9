// Package testutil provides Redis and synchronization helpers for tests.
package testutil

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// NewRedisClientWithCleanup returns a redis client connected to a new in-memory server.
// The server is stopped and the client closed when the test completes.
func NewRedisClientWithCleanup(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	rsClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = rsClient.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rsClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	return rsClient, server
}

// WaitGroupWithTimeout fails the test if wg is not done within timeout.
func WaitGroupWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	ReceiveWithTimeout(t, done, timeout)
}

// ReceiveWithTimeout returns the next value from ch, failing the test if none arrives
// within timeout. A closed channel yields the zero value.
func ReceiveWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		var zero T
		t.Fatalf("timeout after %s waiting for %T", timeout, zero)
		return zero
	}
}

// RandomNamespace returns a random 10-character key namespace for test data isolation.
// It is a valid key fragment and container name.
func RandomNamespace() string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	ns := make([]byte, 10)
	for i := range ns {
		ns[i] = letters[rand.Intn(len(letters))]
	}
	return string(ns)
}
