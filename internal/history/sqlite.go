package history

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) a history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	// A single connection keeps ":memory:" databases shared between queries.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		total_documents INTEGER NOT NULL,
		failure_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		title TEXT,
		success INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		stage TEXT,
		message TEXT,
		fingerprint TEXT
	);
	CREATE TABLE IF NOT EXISTS fingerprints (
		document_id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_job_id ON documents(job_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveJob implements Store.
func (s *SQLiteStore) SaveJob(ctx context.Context, job JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO jobs (job_id, started_at, finished_at, total_documents, failure_count, status, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		job.JobID, job.StartedAt.UnixMilli(), job.FinishedAt.UnixMilli(), job.TotalDocuments, job.FailureCount, job.Status, job.Error,
	)
	if err != nil {
		return fmt.Errorf("%w: insert job: %w", ErrSaveFailed, err)
	}

	now := time.Now().UnixMilli()
	for _, d := range job.Documents {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO documents (job_id, document_id, title, success, skipped, stage, message, fingerprint) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			job.JobID, d.DocumentID, d.Title, d.Success, d.Skipped, d.Stage, d.Message, d.Fingerprint,
		)
		if err != nil {
			return fmt.Errorf("%w: insert document: %w", ErrSaveFailed, err)
		}
		if d.Success && !d.Skipped && d.Fingerprint != "" {
			_, err = tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO fingerprints (document_id, fingerprint, updated_at) VALUES (?, ?, ?)",
				d.DocumentID, d.Fingerprint, now,
			)
			if err != nil {
				return fmt.Errorf("%w: update fingerprint: %w", ErrSaveFailed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// RecentJobs implements Store.
func (s *SQLiteStore) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT job_id, started_at, finished_at, total_documents, failure_count, status, error FROM jobs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var (
			j                 JobRecord
			started, finished int64
			errText           sql.NullString
		)
		if err := rows.Scan(&j.JobID, &started, &finished, &j.TotalDocuments, &j.FailureCount, &j.Status, &errText); err != nil {
			return nil, fmt.Errorf("%w: scan job: %w", ErrQueryFailed, err)
		}
		j.StartedAt = time.UnixMilli(started)
		j.FinishedAt = time.UnixMilli(finished)
		j.Error = errText.String
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", ErrQueryFailed, err)
	}
	_ = rows.Close()

	for i := range jobs {
		docs, err := s.documents(ctx, jobs[i].JobID)
		if err != nil {
			return nil, err
		}
		jobs[i].Documents = docs
	}
	return jobs, nil
}

func (s *SQLiteStore) documents(ctx context.Context, jobID string) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT document_id, title, success, skipped, stage, message, fingerprint FROM documents WHERE job_id = ? ORDER BY id",
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var (
			d                                  DocumentRecord
			title, stage, message, fingerprint sql.NullString
		)
		if err := rows.Scan(&d.DocumentID, &title, &d.Success, &d.Skipped, &stage, &message, &fingerprint); err != nil {
			return nil, fmt.Errorf("%w: scan document: %w", ErrQueryFailed, err)
		}
		d.Title = title.String
		d.Stage = stage.String
		d.Message = message.String
		d.Fingerprint = fingerprint.String
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", ErrQueryFailed, err)
	}
	return docs, nil
}

// Fingerprint implements Store.
func (s *SQLiteStore) Fingerprint(ctx context.Context, documentID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fp string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint FROM fingerprints WHERE document_id = ?",
		documentID,
	).Scan(&fp)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return fp, true, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
