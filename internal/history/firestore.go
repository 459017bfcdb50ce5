package history

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fingerprintSuffix = "_fingerprints"

// FirestoreStore implements Store on a Firestore collection. Jobs are stored
// as documents keyed by job id; fingerprints live in a sibling collection.
type FirestoreStore struct {
	client       *firestore.Client
	jobs         string
	fingerprints string
}

// NewFirestoreStore creates a Firestore client for projectID.
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id must be provided", ErrDatabaseOpenFailed)
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	return &FirestoreStore{
		client:       client,
		jobs:         collection,
		fingerprints: collection + fingerprintSuffix,
	}, nil
}

// SaveJob implements Store.
func (s *FirestoreStore) SaveJob(ctx context.Context, job JobRecord) error {
	batch := s.client.Batch()
	batch.Set(s.client.Collection(s.jobs).Doc(job.JobID), job)
	for _, d := range job.Documents {
		if d.Success && !d.Skipped && d.Fingerprint != "" {
			batch.Set(s.client.Collection(s.fingerprints).Doc(d.DocumentID), map[string]any{
				"fingerprint": d.Fingerprint,
				"updated_at":  time.Now(),
			})
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// RecentJobs implements Store.
func (s *FirestoreStore) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	iter := s.client.Collection(s.jobs).OrderBy("started_at", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var jobs []JobRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		var j JobRecord
		if err := snap.DataTo(&j); err != nil {
			return nil, fmt.Errorf("%w: decode job %s: %w", ErrQueryFailed, snap.Ref.ID, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Fingerprint implements Store.
func (s *FirestoreStore) Fingerprint(ctx context.Context, documentID string) (string, bool, error) {
	snap, err := s.client.Collection(s.fingerprints).Doc(documentID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	fp, ok := snap.Data()["fingerprint"].(string)
	return fp, ok && fp != "", nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
