package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/texsync/internal/logfields"
)

// Manager handles the job-level workspace directory.
type Manager struct {
	baseDir string

	mu      sync.Mutex
	tempDir string
	slots   int
}

// NewManager creates a workspace manager; an empty baseDir uses the OS temp dir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create creates the timestamped job directory.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}

	prefix := fmt.Sprintf("texsync-%s-", time.Now().Format("20060102-150405"))
	tempDir, err := os.MkdirTemp(m.baseDir, prefix)
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.mu.Lock()
	m.tempDir = tempDir
	m.mu.Unlock()
	slog.Debug("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the job directory, or "" before Create.
func (m *Manager) GetPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempDir
}

// Cleanup removes the job directory.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	dir := m.tempDir
	m.tempDir = ""
	m.mu.Unlock()

	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(dir))
	return nil
}

// CreateSubdir creates a subdirectory within the workspace
func (m *Manager) CreateSubdir(name string) (string, error) {
	root := m.GetPath()
	if root == "" {
		return "", fmt.Errorf("workspace not created")
	}

	subdir := filepath.Join(root, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}

// Slot is an isolated working directory for one document.
type Slot struct {
	path     string
	released bool
}

// AcquireSlot creates a fresh, empty directory for the given document.
// Slots are numbered so the same document id never reuses a directory within a job.
func (m *Manager) AcquireSlot(documentID string) (*Slot, error) {
	m.mu.Lock()
	root := m.tempDir
	m.slots++
	n := m.slots
	m.mu.Unlock()

	if root == "" {
		return nil, fmt.Errorf("workspace not created")
	}

	dir := filepath.Join(root, fmt.Sprintf("%03d-%s", n, sanitize(documentID)))
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear slot directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create slot directory: %w", err)
	}
	return &Slot{path: dir}, nil
}

// Path returns the slot directory.
func (s *Slot) Path() string {
	return s.path
}

// File returns the absolute path of name inside the slot.
func (s *Slot) File(name string) string {
	return filepath.Join(s.path, name)
}

// WriteFile writes data to name inside the slot.
func (s *Slot) WriteFile(name string, data []byte) error {
	return os.WriteFile(s.File(name), data, 0o600)
}

// Stage copies every entry of srcDir into the slot.
func (s *Slot) Stage(srcDir string) error {
	return CopyDir(srcDir, s.path)
}

// Release removes the slot directory. Calling it twice is a no-op.
func (s *Slot) Release() error {
	if s == nil || s.released {
		return nil
	}
	s.released = true
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", s.path, err)
	}
	return nil
}

func sanitize(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	if clean == "" {
		return "doc"
	}
	return clean
}
