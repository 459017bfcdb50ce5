package events

import (
	"context"

	"git.home.luguber.info/inful/texsync/internal/config"
)

// Open returns a NATS publisher when events are enabled, otherwise a NopPublisher.
func Open(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(ctx, cfg)
}
