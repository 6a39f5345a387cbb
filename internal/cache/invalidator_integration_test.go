//go:build integration

package cache_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

func TestInvalidator_Integration(t *testing.T) {
	ctx := context.Background()

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	t.Run("Should deliver published realms to the listener", func(t *testing.T) {
		inv := cache.NewInvalidator(redisCtr.Client, logger)

		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			mu       sync.Mutex
			received []string
		)
		listenerUp := make(chan struct{})
		go func() {
			close(listenerUp)
			_ = inv.Listen(listenCtx, func(_ context.Context, realm string) {
				mu.Lock()
				received = append(received, realm)
				mu.Unlock()
			})
		}()
		<-listenerUp

		// Subscription confirmation happens inside Listen; give it a beat.
		time.Sleep(200 * time.Millisecond)

		require.NoError(t, inv.Publish(ctx, "acme"))
		require.NoError(t, inv.Publish(ctx, "globex"))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(received) == 2
		}, 5*time.Second, 20*time.Millisecond, "expected both invalidations to arrive")

		mu.Lock()
		assert.ElementsMatch(t, []string{"acme", "globex"}, received)
		mu.Unlock()
	})

	t.Run("Should stop listening when context is cancelled", func(t *testing.T) {
		inv := cache.NewInvalidator(redisCtr.Client, logger)

		listenCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- inv.Listen(listenCtx, func(context.Context, string) {})
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("listener did not stop after context cancellation")
		}
	})
}

// testWriter adapts t.Log so listener output lands in the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
