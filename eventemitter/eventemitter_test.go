package eventemitter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holmberd/go-objectbinder/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEventTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("Return event name", func(t *testing.T) {
		name := "my-event"
		et := NewEventTarget[int](name)
		assert.Equal(t, name, et.EventName(), "should return correct event name")
	})

	t.Run("Add listener and emit event", func(t *testing.T) {
		et := NewEventTarget[string]("test-event")
		var received string
		token := et.AddListener(func(ctx context.Context, e string) {
			received = e
		})
		assert.NotZero(t, token, "should return a valid token")
		ok := et.Emit(ctx, "hello")
		assert.True(t, ok, "should return true when listener is triggered")
		assert.Equal(t, "hello", received, "listener should receive the event")
	})

	t.Run("Listeners are called in registration order", func(t *testing.T) {
		et := NewEventTarget[int]("ordered")
		var order []int
		et.AddListener(func(ctx context.Context, e int) { order = append(order, 1) })
		et.AddListener(func(ctx context.Context, e int) { order = append(order, 2) })
		assert.True(t, et.Emit(ctx, 0))
		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("Tokens are unique", func(t *testing.T) {
		et := NewEventTarget[int]("tokens")
		t1 := et.AddListener(func(ctx context.Context, e int) {})
		t2 := et.AddListener(func(ctx context.Context, e int) {})
		assert.NotEqual(t, t1, t2)
	})

	t.Run("Emit event with no listeners", func(t *testing.T) {
		et := NewEventTarget[int]("empty")
		assert.False(t, et.Emit(ctx, 1), "Emit should return false if no listeners are registered")
	})

	t.Run("Remove existing listener", func(t *testing.T) {
		et := NewEventTarget[int]("removable")
		called := false
		token := et.AddListener(func(ctx context.Context, e int) {
			called = true
		})
		assert.True(t, et.RemoveListener(token), "should remove the listener")
		et.Emit(ctx, 1)
		assert.False(t, called, "should not call listener after removal")
	})

	t.Run("Remove non-existent listener", func(t *testing.T) {
		et := NewEventTarget[int]("missing")
		assert.False(t, et.RemoveListener(42), "should return false when removing non-existent listener")
	})

	t.Run("Remove all listeners", func(t *testing.T) {
		et := NewEventTarget[int]("wipe")
		assert.False(t, et.RemoveAllListeners(), "should return false without listeners")
		et.AddListener(func(ctx context.Context, e int) {})
		et.AddListener(func(ctx context.Context, e int) {})

		assert.True(t, et.RemoveAllListeners(), "should remove all listeners")
		assert.False(t, et.Emit(ctx, 1), "should not emit after removing all listeners")
	})

	t.Run("Listener removing itself does not deadlock", func(t *testing.T) {
		et := NewEventTarget[int]("self-removing")
		count := 0
		var token ListenerToken
		token = et.AddListener(func(ctx context.Context, e int) {
			count++
			et.RemoveListener(token)
		})
		et.Emit(ctx, 1)
		et.Emit(ctx, 2)
		assert.Equal(t, 1, count)
	})

	t.Run("Emit concurrent events", func(t *testing.T) {
		et := NewEventTarget[int]("tick")
		const numListeners = 100
		const numEmitters = 50
		var wg sync.WaitGroup
		var called atomic.Int32

		for range numListeners {
			et.AddListener(func(ctx context.Context, e int) {
				called.Add(1)
			})
		}
		for i := range numEmitters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				et.Emit(ctx, i)
			}()
		}
		testutil.WaitGroupWithTimeout(t, &wg, time.Second)
		assert.Equal(t, numListeners*numEmitters, int(called.Load()), "should have called all listeners for each emit")
	})
}
