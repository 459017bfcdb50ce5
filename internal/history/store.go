// Package history persists job reports and per-document fingerprints so later
// jobs can skip unchanged documents and operators can list past runs.
package history

import (
	"context"
	"time"
)

// DocumentRecord is the stored outcome of one document within a job.
type DocumentRecord struct {
	DocumentID  string `json:"document_id" firestore:"document_id"`
	Title       string `json:"title,omitempty" firestore:"title"`
	Success     bool   `json:"success" firestore:"success"`
	Skipped     bool   `json:"skipped,omitempty" firestore:"skipped"`
	Stage       string `json:"stage,omitempty" firestore:"stage"`
	Message     string `json:"message,omitempty" firestore:"message"`
	Fingerprint string `json:"fingerprint,omitempty" firestore:"fingerprint"`
}

// JobRecord is the stored form of a job report.
type JobRecord struct {
	JobID          string           `json:"job_id" firestore:"job_id"`
	StartedAt      time.Time        `json:"started_at" firestore:"started_at"`
	FinishedAt     time.Time        `json:"finished_at" firestore:"finished_at"`
	TotalDocuments int              `json:"total_documents" firestore:"total_documents"`
	FailureCount   int              `json:"failure_count" firestore:"failure_count"`
	Status         string           `json:"status" firestore:"status"`
	Error          string           `json:"error,omitempty" firestore:"error"`
	Documents      []DocumentRecord `json:"documents,omitempty" firestore:"documents"`
}

// Store defines the interface for persisting and retrieving job history.
type Store interface {
	// SaveJob stores a finished job and updates the fingerprints of its
	// successfully compiled documents.
	SaveJob(ctx context.Context, job JobRecord) error

	// RecentJobs returns up to limit jobs, newest first.
	RecentJobs(ctx context.Context, limit int) ([]JobRecord, error)

	// Fingerprint returns the fingerprint of the last successful compilation of a document.
	Fingerprint(ctx context.Context, documentID string) (string, bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// NopStore discards everything. Used when history is disabled.
type NopStore struct{}

func (NopStore) SaveJob(context.Context, JobRecord) error { return nil }

func (NopStore) RecentJobs(context.Context, int) ([]JobRecord, error) { return nil, nil }

func (NopStore) Fingerprint(context.Context, string) (string, bool, error) { return "", false, nil }

func (NopStore) Close() error { return nil }
