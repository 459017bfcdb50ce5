// Package template keeps a local checkout of the publication template
// repository that every compilation copies into its working directory.
package template

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/metrics"
)

// Repository clones the template before each job, replacing any previous checkout.
type Repository struct {
	cfg      config.TemplateConfig
	recorder metrics.Recorder
	logger   *slog.Logger
}

// New creates a template repository manager.
func New(cfg config.TemplateConfig) *Repository {
	return &Repository{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithRecorder sets the metrics recorder.
func (r *Repository) WithRecorder(rec metrics.Recorder) *Repository {
	r.recorder = metrics.OrNoop(rec)
	return r
}

// SourceDir is the directory copied into every working directory.
func (r *Repository) SourceDir() string {
	return filepath.Join(r.cfg.Directory, r.cfg.SourceDir)
}

// TemplateFile is the pandoc template name relative to SourceDir.
func (r *Repository) TemplateFile() string {
	return r.cfg.File
}

// Sync clones the template repository (unless cloning is disabled) and checks
// that the template file is present.
func (r *Repository) Sync(ctx context.Context) error {
	if !r.cfg.SkipClone {
		start := time.Now()
		err := r.clone(ctx)
		r.recorder.ObserveTemplateCloneDuration(time.Since(start), err == nil)
		if err != nil {
			return err
		}
	}

	path := filepath.Join(r.SourceDir(), r.cfg.File)
	if _, err := os.Stat(path); err != nil {
		return errors.TemplateError("template file not found").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

func (r *Repository) clone(ctx context.Context) error {
	dir := r.cfg.Directory
	r.logger.Debug("Cloning template repository", logfields.URL(r.cfg.URL), slog.String("branch", r.cfg.Branch), logfields.Path(dir))

	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove previous template checkout").
			Fatal().
			WithContext("path", dir).
			Build()
	}

	opts := &git.CloneOptions{URL: r.cfg.URL}
	if r.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(r.cfg.Branch)
		opts.SingleBranch = true
	}
	if isRemote(r.cfg.URL) {
		opts.Depth = 1
	}
	if r.cfg.Token != "" {
		opts.Auth = &http.BasicAuth{
			Username: "token", // GitHub/GitLab use "token" as username
			Password: r.cfg.Token,
		}
	}

	repository, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return classifyCloneError(r.cfg.URL, err)
	}
	if ref, herr := repository.Head(); herr == nil {
		r.logger.Info("Template cloned", logfields.URL(r.cfg.URL), slog.String("commit", ref.Hash().String()[:8]))
	}
	return nil
}

// isRemote reports whether url uses a network transport; shallow clones are
// only requested there.
func isRemote(url string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git@", "git://"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

func classifyCloneError(url string, err error) error {
	l := strings.ToLower(err.Error())
	b := errors.TemplateError(fmt.Sprintf("Error while cloning repository from %s", url)).
		WithCause(err).
		WithContext("url", url)
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization"):
		b = b.WithContext("reason", "auth").UserAction()
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		b = b.WithContext("reason", "not_found").UserAction()
	case strings.Contains(l, "timeout") || strings.Contains(l, "connection refused"):
		b = b.WithContext("reason", "network").Retryable()
	}
	return b.Build()
}
