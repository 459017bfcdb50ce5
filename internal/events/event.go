// Package events publishes job lifecycle events to NATS so other systems can
// react to compiled or failed documents.
package events

import (
	"context"
	"time"
)

// Type names an event kind. It is appended to the configured subject prefix.
type Type string

const (
	JobStarted       Type = "job.started"
	JobFinished      Type = "job.finished"
	DocumentCompiled Type = "document.compiled"
	DocumentFailed   Type = "document.failed"
	DocumentSkipped  Type = "document.skipped"
)

// Event is the JSON payload published for every lifecycle step.
type Event struct {
	Type       Type      `json:"type"`
	JobID      string    `json:"job_id"`
	DocumentID string    `json:"document_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status,omitempty"`
	Total      int       `json:"total,omitempty"`
	Failures   int       `json:"failures,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// Subject returns the NATS subject for an event type under prefix.
func Subject(prefix string, t Type) string {
	if prefix == "" {
		return string(t)
	}
	return prefix + "." + string(t)
}
