package config

import "strings"

// HistoryBackend selects the job history store.
type HistoryBackend string

const (
	HistoryNone      HistoryBackend = "none"
	HistorySQLite    HistoryBackend = "sqlite"
	HistoryFirestore HistoryBackend = "firestore"
)

// NormalizeHistoryBackend folds raw input; unknown or empty values disable history.
func NormalizeHistoryBackend(raw string) HistoryBackend {
	switch HistoryBackend(strings.ToLower(strings.TrimSpace(raw))) {
	case HistorySQLite:
		return HistorySQLite
	case HistoryFirestore:
		return HistoryFirestore
	default:
		return HistoryNone
	}
}
