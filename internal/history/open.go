package history

import (
	"context"

	"git.home.luguber.info/inful/texsync/internal/config"
)

// Open returns the store selected by the history configuration.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch config.NormalizeHistoryBackend(string(cfg.Backend)) {
	case config.HistorySQLite:
		return NewSQLiteStore(cfg.Path)
	case config.HistoryFirestore:
		return NewFirestoreStore(ctx, cfg.ProjectID, cfg.Collection)
	default:
		return NopStore{}, nil
	}
}
