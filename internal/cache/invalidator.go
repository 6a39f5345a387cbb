package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/mimir/internal/validation"
)

// invalidationChannel carries realm names whose profile configuration
// changed. Every replica subscribes and drops its cached generation for
// the published realm.
const invalidationChannel = "mimir:profile-config:invalidated"

// Invalidator fans configuration changes out to all replicas via Redis
// pub/sub. The control plane publishes after a successful write; data
// plane replicas listen and reload the affected realm.
type Invalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewInvalidator creates a pub/sub invalidator.
// It panics if any dependency is nil (Fail Fast principle).
func NewInvalidator(client *redis.Client, logger *slog.Logger) *Invalidator {
	validation.AssertNotNil(client, "redis client")
	validation.AssertNotNil(logger, "logger")

	return &Invalidator{
		client: client,
		logger: logger,
	}
}

// Publish announces that the realm's profile configuration changed.
func (i *Invalidator) Publish(ctx context.Context, realm string) error {
	if err := i.client.Publish(ctx, invalidationChannel, realm).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation for realm %q: %w", realm, err)
	}
	return nil
}

// Listen subscribes to the invalidation channel and invokes handle for
// each received realm. It blocks until the context is cancelled, so it
// should run in its own goroutine.
func (i *Invalidator) Listen(ctx context.Context, handle func(ctx context.Context, realm string)) error {
	sub := i.client.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so callers can rely on
	// events published after Listen returns control to the scheduler.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", invalidationChannel, err)
	}

	ch := sub.Channel()
	i.logger.Info("invalidation listener started", slog.String("channel", invalidationChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			i.logger.Debug("invalidation received", slog.String("realm", msg.Payload))
			handle(ctx, msg.Payload)
		}
	}
}
