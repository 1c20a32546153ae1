package service

import (
	"context"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.uber.org/zap"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }

// NoopPublisher drops events. Used when the broker is disabled.
var NoopPublisher domain.EventPublisher = noopPublisher{}

// announce publishes committed events. A broker failure is logged and
// never undoes or fails the mutation.
func announce(ctx context.Context, pub domain.EventPublisher, logger *zap.Logger, events ...domain.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		if err := pub.Publish(ctx, e); err != nil {
			logger.Error("failed to publish event",
				zap.String("event_id", e.ID),
				zap.String("type", string(e.Type)),
				zap.Error(err),
			)
		}
	}
}
