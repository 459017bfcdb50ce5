// Package app assembles a job pipeline from configuration.
package app

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/texsync/internal/compiler"
	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/events"
	"git.home.luguber.info/inful/texsync/internal/history"
	"git.home.luguber.info/inful/texsync/internal/job"
	"git.home.luguber.info/inful/texsync/internal/metadata"
	"git.home.luguber.info/inful/texsync/internal/metrics"
	"git.home.luguber.info/inful/texsync/internal/notion"
	"git.home.luguber.info/inful/texsync/internal/status"
	"git.home.luguber.info/inful/texsync/internal/template"
	"git.home.luguber.info/inful/texsync/internal/workspace"
)

const defaultToolTimeout = 5 * time.Minute

// Pipeline is a ready-to-run job runner plus the resources it holds open.
type Pipeline struct {
	Runner  *job.Runner
	History history.Store
	closers []io.Closer
}

// Run executes one job.
func (p *Pipeline) Run(ctx context.Context) (*job.Report, error) {
	return p.Runner.Run(ctx)
}

// Close releases every resource opened by Build, in reverse order.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

// Build wires every component from cfg. rec may be nil.
func Build(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*Pipeline, error) {
	rec = metrics.OrNoop(rec)
	p := &Pipeline{}
	fail := func(err error) (*Pipeline, error) {
		_ = p.Close()
		return nil, err
	}

	client := notion.NewClient(cfg.Notion, nil)
	tmpl := template.New(cfg.Template).WithRecorder(rec)

	comp := compiler.New(compiler.Options{
		Pandoc:            cfg.Toolchain.Pandoc,
		Xelatex:           cfg.Toolchain.Xelatex,
		TemplateSourceDir: tmpl.SourceDir(),
		TemplateFile:      tmpl.TemplateFile(),
		OutputDir:         cfg.Output.Directory,
		Timeout:           config.Duration(cfg.Toolchain.Timeout, defaultToolTimeout),
	}, compiler.ExecRunner{}).WithRecorder(rec)
	if cfg.Output.Verify {
		comp.WithVerifier(compiler.NewPDFVerifier())
	}
	if cfg.Output.Publish.Bucket != "" {
		publisher, err := compiler.NewGCSPublisher(ctx, cfg.Output.Publish.Bucket, cfg.Output.Publish.Prefix)
		if err != nil {
			return fail(fmt.Errorf("artifact publisher: %w", err))
		}
		p.closers = append(p.closers, publisher)
		comp.WithPublisher(publisher)
	}

	loc, err := time.LoadLocation(cfg.Output.Timezone)
	if err != nil {
		return fail(fmt.Errorf("timezone %q: %w", cfg.Output.Timezone, err))
	}

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return fail(err)
	}
	p.History = store
	p.closers = append(p.closers, store)

	publisher, err := events.Open(ctx, cfg.Events)
	if err != nil {
		return fail(fmt.Errorf("event publisher: %w", err))
	}
	p.closers = append(p.closers, publisher)

	p.Runner = job.NewRunner(job.Dependencies{
		Fetcher:   job.NewNotionFetcher(client, cfg.Notion.RootPageID),
		Exporter:  notion.NewExporter(client),
		Compiler:  comp,
		Reporter:  status.NewReporter(client, loc),
		Workspace: workspace.NewManager(cfg.Output.Workspace),
		Template:  tmpl,
		History:   store,
		Events:    publisher,
		Recorder:  rec,
		Logger:    slog.Default(),
	}, job.Options{
		Workers:       cfg.Job.Workers,
		SkipUnchanged: cfg.Job.SkipUnchanged,
		Schema:        metadata.NewSchema(cfg.Schema.Required, cfg.Schema.Forbidden),
	})
	return p, nil
}
