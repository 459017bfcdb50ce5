package history

import (
	"git.home.luguber.info/inful/texsync/internal/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.HistoryError("could not open history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.HistoryError("failed to initialize history schema").Build()

	// ErrSaveFailed indicates a job could not be written.
	ErrSaveFailed = errors.HistoryError("failed to save job to history").Build()

	// ErrQueryFailed indicates reading history failed.
	ErrQueryFailed = errors.HistoryError("failed to query history").Build()
)
