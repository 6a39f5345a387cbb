package watcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/watcher"
)

// recordingInvalidator captures Invalidate calls for assertions.
type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, realm, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, realm+"/"+source)
	return nil
}

func (r *recordingInvalidator) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// flakyInvalidator fails its first call and records successful calls
// afterwards.
type flakyInvalidator struct {
	mu        sync.Mutex
	attempts  int
	succeeded []string
}

func (f *flakyInvalidator) Invalidate(_ context.Context, realm, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts == 1 {
		return errors.New("transient store error")
	}
	f.succeeded = append(f.succeeded, realm)
	return nil
}

func (f *flakyInvalidator) state() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.succeeded))
	copy(out, f.succeeded)
	return f.attempts, out
}

func TestWatcher(t *testing.T) {
	t.Run("Should panic on nil repository", func(t *testing.T) {
		assert.Panics(t, func() {
			watcher.New(nil, watcher.Config{}, nil, &recordingInvalidator{})
		})
	})

	t.Run("Should panic on nil invalidator", func(t *testing.T) {
		assert.Panics(t, func() {
			watcher.New(nil, watcher.Config{}, store.NewMemoryStore(), nil)
		})
	})

	t.Run("Should invalidate realms whose stored version changes", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		repo := store.NewMemoryStore()
		doc := `{"attributes": []}`
		require.NoError(t, repo.SetConfig(ctx, "acme", &doc))

		target := &recordingInvalidator{}
		svc := watcher.New(nil, watcher.Config{Interval: time.Second}, repo, target)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = svc.Run(ctx)
		}()

		// The startup cycle primes the baseline; acme at version 1 must
		// not trigger an invalidation.
		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, target.snapshot())

		// Act: bump acme and add a new realm behind the watcher's back
		require.NoError(t, repo.SetConfig(ctx, "acme", &doc))
		require.NoError(t, repo.SetConfig(ctx, "globex", &doc))

		// Assert
		require.Eventually(t, func() bool {
			return len(target.snapshot()) == 2
		}, 5*time.Second, 20*time.Millisecond, "expected both realms invalidated")
		assert.ElementsMatch(t, []string{"acme/watcher", "globex/watcher"}, target.snapshot())

		// Act: delete a realm (reverts to built-in defaults)
		require.NoError(t, repo.SetConfig(ctx, "globex", nil))

		// Assert
		require.Eventually(t, func() bool {
			return len(target.snapshot()) == 3
		}, 5*time.Second, 20*time.Millisecond, "expected deletion to invalidate")
		assert.Equal(t, "globex/watcher", target.snapshot()[2])

		// Unchanged state must stay quiet.
		time.Sleep(1500 * time.Millisecond)
		assert.Len(t, target.snapshot(), 3)

		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop after context cancellation")
		}
	})

	t.Run("Should retry a change whose invalidation failed", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		repo := store.NewMemoryStore()
		target := &flakyInvalidator{}
		svc := watcher.New(nil, watcher.Config{Interval: time.Second}, repo, target)

		go func() { _ = svc.Run(ctx) }()

		// Let the startup cycle prime an empty baseline.
		time.Sleep(100 * time.Millisecond)

		// Act: a new realm appears; the first invalidation attempt fails.
		doc := `{"attributes": []}`
		require.NoError(t, repo.SetConfig(ctx, "acme", &doc))

		// Assert: the version is not recorded on failure, so a later cycle
		// retries and succeeds without any further store change.
		require.Eventually(t, func() bool {
			attempts, succeeded := target.state()
			return attempts >= 2 && len(succeeded) == 1
		}, 5*time.Second, 20*time.Millisecond, "expected a retry after the failed invalidation")

		_, succeeded := target.state()
		assert.Equal(t, []string{"acme"}, succeeded)
	})
}
