package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texsync/internal/config"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "texsync.events.document.failed", Subject("texsync.events", DocumentFailed))
	assert.Equal(t, "job.finished", Subject("", JobFinished))
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{
		Type:      JobStarted,
		JobID:     "job-1",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"job.started","job_id":"job-1","timestamp":"2024-01-02T03:04:05Z"}`, string(data))
}

func TestOpen_DisabledReturnsNop(t *testing.T) {
	p, err := Open(context.Background(), config.EventsConfig{Enabled: false, URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: JobStarted}))
	assert.NoError(t, p.Close())
}

func TestOpen_UnreachableServer(t *testing.T) {
	_, err := Open(context.Background(), config.EventsConfig{Enabled: true, URL: "nats://127.0.0.1:1", Subject: "x"})
	assert.Error(t, err)
}
