package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/texsync/internal/config"
)

const publishTimeout = 5 * time.Second

// NATSPublisher publishes events on core NATS, or through JetStream when a
// stream is configured.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// NewNATSPublisher connects to the configured server. With a stream name the
// stream is created (or updated) to capture every subject under the prefix.
func NewNATSPublisher(ctx context.Context, cfg config.EventsConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("texsync"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, prefix: cfg.Subject}
	if cfg.Stream == "" {
		slog.Info("NATS event publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
		return p, nil
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "texsync job events",
		Subjects:    []string{cfg.Subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}
	p.js = js

	slog.Info("NATS event publisher initialized",
		"url", cfg.URL,
		"subject", cfg.Subject,
		"stream", cfg.Stream)
	return p, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(p.prefix, e.Type)
	if p.js == nil {
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(pubCtx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
