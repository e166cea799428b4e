// internal/service/notifier.go
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"finflow-lending/internal/cache"
	"finflow-lending/internal/events"
)

// Notifier runs the side effects of a committed unit of work: it moves the
// user's cached wallet and ledger views to a new generation and publishes events. Failures are
// logged and never reported to the caller, because the money has already moved.
type Notifier struct {
	cache     cache.Cache
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewNotifier creates a Notifier. Nil cache or publisher disables that effect.
func NewNotifier(c cache.Cache, publisher events.Publisher, logger logrus.FieldLogger) *Notifier {
	if c == nil {
		c = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Notifier{cache: c, publisher: publisher, logger: logger}
}

// Committed is called after a unit of work touching userID's wallet commits.
func (n *Notifier) Committed(ctx context.Context, userID int64, evts ...events.Event) {
	ctx = context.WithoutCancel(ctx)

	if _, err := n.cache.Bump(ctx, cache.GenerationKey(userID)); err != nil {
		n.logger.WithError(err).WithField("user_id", userID).Warn("Failed to invalidate cached wallet views")
	}
	for _, evt := range evts {
		if err := n.publisher.Publish(ctx, evt); err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":    userID,
				"event_id":   evt.ID,
				"event_type": evt.Type,
			}).Warn("Failed to publish event")
		}
	}
}

// cacheGeneration returns the user's cache generation. It must be read before
// the database is queried. ok is false when the cache cannot be trusted and the
// caller should bypass it.
func cacheGeneration(ctx context.Context, c cache.Cache, logger logrus.FieldLogger, userID int64) (int64, bool) {
	generation, err := c.Generation(ctx, cache.GenerationKey(userID))
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Warn("Cache generation read failed, bypassing cache")
		return 0, false
	}
	return generation, true
}
