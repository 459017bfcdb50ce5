package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/texsync/internal/compiler"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/events"
	"git.home.luguber.info/inful/texsync/internal/history"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/metadata"
	"git.home.luguber.info/inful/texsync/internal/metrics"
	"git.home.luguber.info/inful/texsync/internal/notion"
	"git.home.luguber.info/inful/texsync/internal/workspace"
)

// Exporter renders a page into markdown and writes its assets into dir.
type Exporter interface {
	Export(ctx context.Context, pageID, dir string) (*notion.Export, error)
}

// Compiler turns a validated document into artifacts.
type Compiler interface {
	Compile(ctx context.Context, in compiler.Input, slot *workspace.Slot) compiler.Outcome
}

// StatusReporter writes the outcome of a document back to its referencing block.
type StatusReporter interface {
	Report(ctx context.Context, pageID, blockID string, success bool, message string) error
}

// TemplateSource makes the publication template available before documents are compiled.
type TemplateSource interface {
	Sync(ctx context.Context) error
}

// Dependencies are the collaborators of a Runner. Fetcher, Exporter, Compiler,
// Reporter and Workspace are required.
type Dependencies struct {
	Fetcher   Fetcher
	Exporter  Exporter
	Compiler  Compiler
	Reporter  StatusReporter
	Workspace *workspace.Manager
	Template  TemplateSource
	History   history.Store
	Events    events.Publisher
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// Options tune a Runner.
type Options struct {
	Workers       int
	SkipUnchanged bool
	Schema        metadata.Schema
}

// Runner executes jobs. Run may be called repeatedly but not concurrently.
type Runner struct {
	deps  Dependencies
	opts  Options
	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner, filling optional dependencies with no-op implementations.
func NewRunner(deps Dependencies, opts Options) *Runner {
	if deps.History == nil {
		deps.History = history.NopStore{}
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	deps.Recorder = metrics.OrNoop(deps.Recorder)
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.Schema.Required) == 0 {
		opts.Schema = metadata.DefaultSchema()
	}
	return &Runner{
		deps:  deps,
		opts:  opts,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run executes one job and always returns a report. The error is non-nil
// when the job was aborted.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		JobID:     r.newID(),
		StartedAt: r.now(),
	}
	log := r.deps.Logger.With(logfields.JobID(report.JobID))
	log.Info("Job started", logfields.JobStatus("RUNNING"))
	r.deps.Recorder.SetWorkers(r.opts.Workers)
	r.emit(ctx, events.Event{Type: events.JobStarted, JobID: report.JobID})

	if r.deps.Template != nil {
		if err := r.deps.Template.Sync(ctx); err != nil {
			return r.finish(ctx, log, report, err)
		}
	}

	refs, err := r.deps.Fetcher.Fetch(ctx)
	if err != nil {
		return r.finish(ctx, log, report, err)
	}
	report.TotalDocuments = len(refs)
	log.Info("Fetched documents", "count", len(refs))

	if err := r.deps.Workspace.Create(); err != nil {
		return r.finish(ctx, log, report, errors.WrapError(err, errors.CategoryFileSystem, "failed to create job workspace").Fatal().Build())
	}
	defer func() {
		if err := r.deps.Workspace.Cleanup(); err != nil {
			log.Warn("Failed to clean up job workspace", logfields.Error(err))
		}
	}()

	results := make([]*DocumentResult, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.process(gctx, log, ref)
			results[i] = &res
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.reportDocument(gctx, log, report.JobID, &res)
		})
	}
	runErr := g.Wait()

	for _, res := range results {
		if res == nil {
			continue
		}
		report.Documents = append(report.Documents, *res)
		if !res.Success {
			report.FailureCount++
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	return r.finish(ctx, log, report, runErr)
}

// process handles one document up to, but not including, the status write.
func (r *Runner) process(ctx context.Context, log *slog.Logger, ref DocumentRef) (res DocumentResult) {
	start := r.now()
	log = log.With(logfields.DocumentID(ref.PageID), logfields.BlockID(ref.BlockID()))
	res = DocumentResult{Ref: ref}
	defer func() {
		res.Duration = r.now().Sub(start)
	}()

	fail := func(stage, message string, err error) DocumentResult {
		res.Success = false
		res.Stage = stage
		res.Message = message
		res.Err = err
		log.Warn("Document failed", logfields.Stage(stage), logfields.Error(err))
		return res
	}

	slot, err := r.deps.Workspace.AcquireSlot(ref.PageID)
	if err != nil {
		return fail(StageWorkspace, MessageInternalFailed, errors.WrapError(err, errors.CategoryFileSystem, "failed to acquire working directory").Build())
	}
	defer func() {
		if err := slot.Release(); err != nil {
			log.Warn("Failed to release working directory", logfields.Path(slot.Path()), logfields.Error(err))
		}
	}()

	exported, err := r.deps.Exporter.Export(ctx, ref.PageID, slot.Path())
	if err != nil {
		return fail(StageExport, MessageExportFailed, err)
	}
	raw := RawDocument{ID: ref.PageID, Markdown: exported.Markdown, Assets: exported.Assets}

	fields, content, err := metadata.Extract(raw.Markdown)
	if err != nil {
		return fail(StageExtract, MessageBadHeader, err)
	}

	validated, err := r.opts.Schema.Validate(fields)
	if err != nil {
		return fail(StageValidate, validationMessage(err), err)
	}

	if fp, err := documentFingerprint(slot.Path(), fields, content, raw.Assets); err == nil {
		res.Fingerprint = fp
	} else {
		log.Debug("Failed to fingerprint document", logfields.Error(err))
	}
	if r.unchanged(ctx, log, ref.PageID, res.Fingerprint) {
		res.Success = true
		res.Skipped = true
		res.Title, _ = compiler.DeriveTitle(validated)
		log.Info("Document unchanged, skipping compilation", logfields.Fingerprint(res.Fingerprint))
		return res
	}

	outcome := r.deps.Compiler.Compile(ctx, compiler.Input{
		DocumentID: ref.PageID,
		Content:    content,
		Metadata:   validated,
	}, slot)
	res.Title = outcome.ArtifactTitle
	res.Artifacts = outcome.Artifacts
	if !outcome.Success {
		return fail(outcome.FailedStage.String(), MessageCompileFailed, outcome.Err)
	}

	res.Success = true
	log.Info("File compiled successfully", logfields.Title(res.Title))
	return res
}

func (r *Runner) unchanged(ctx context.Context, log *slog.Logger, documentID, fingerprint string) bool {
	if !r.opts.SkipUnchanged || fingerprint == "" {
		return false
	}
	previous, ok, err := r.deps.History.Fingerprint(ctx, documentID)
	if err != nil {
		log.Warn("Failed to read previous fingerprint", logfields.Error(err))
		return false
	}
	return ok && previous == fingerprint
}

// documentFingerprint hashes the document together with its exported assets, so an
// image change alone still triggers a rebuild.
func documentFingerprint(dir string, fields metadata.Metadata, content string, assets []string) (string, error) {
	digests, err := metadata.AssetDigests(dir, assets)
	if err != nil {
		return "", err
	}
	return metadata.Fingerprint(fields, content, digests...)
}

// reportDocument writes the annotation and publishes the document event.
// Skipped documents keep their previous annotation.
func (r *Runner) reportDocument(ctx context.Context, log *slog.Logger, jobID string, res *DocumentResult) error {
	label := metrics.ResultSuccess
	eventType := events.DocumentCompiled
	switch {
	case res.Skipped:
		label = metrics.ResultSkipped
		eventType = events.DocumentSkipped
	case !res.Success:
		label = metrics.ResultFailed
		eventType = events.DocumentFailed
	}
	r.deps.Recorder.IncDocumentResult(label)

	if !res.Skipped {
		message := ""
		if !res.Success {
			message = res.Message
		}
		if err := r.deps.Reporter.Report(ctx, res.Ref.PageID, res.Ref.BlockID(), res.Success, message); err != nil {
			log.Error("Failed to report document status",
				logfields.DocumentID(res.Ref.PageID),
				logfields.BlockID(res.Ref.BlockID()),
				logfields.Error(err))
			return err
		}
	}

	r.emit(ctx, events.Event{
		Type:       eventType,
		JobID:      jobID,
		DocumentID: res.Ref.PageID,
		Title:      res.Title,
		Stage:      res.Stage,
		Message:    res.Message,
	})
	return nil
}

func (r *Runner) finish(ctx context.Context, log *slog.Logger, report *Report, err error) (*Report, error) {
	report.FinishedAt = r.now()
	report.Err = err
	report.FinalStatus = FinalStatus(report.TotalDocuments, report.FailureCount, err != nil)

	r.deps.Recorder.ObserveJobDuration(report.Duration())
	r.deps.Recorder.IncJobOutcome(string(report.FinalStatus))

	log.Info(fmt.Sprintf("Compiled %d files", report.Compiled()),
		"total", report.TotalDocuments,
		"failures", report.FailureCount)

	saveCtx := context.WithoutCancel(ctx)
	if herr := r.deps.History.SaveJob(saveCtx, report.Record()); herr != nil {
		log.Warn("Failed to save job history", logfields.Error(herr))
	}
	r.emit(saveCtx, events.Event{
		Type:     events.JobFinished,
		JobID:    report.JobID,
		Status:   string(report.FinalStatus),
		Total:    report.TotalDocuments,
		Failures: report.FailureCount,
	})

	attrs := []any{logfields.JobStatus(string(report.FinalStatus)), logfields.DurationMS(float64(report.Duration().Milliseconds()))}
	if err != nil {
		log.Error("Job finished", append(attrs, logfields.Error(err))...)
		return report, err
	}
	log.Info("Job finished", attrs...)
	return report, nil
}

func (r *Runner) emit(ctx context.Context, e events.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if err := r.deps.Events.Publish(ctx, e); err != nil {
		r.deps.Logger.Warn("Failed to publish event", "event", string(e.Type), logfields.Error(err))
	}
}

// validationMessage names every violated field so the annotation tells the
// author what to fix.
func validationMessage(err error) string {
	violations := metadata.Violations(err)
	if len(violations) == 0 {
		return MessageBadHeader
	}
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return strings.TrimSuffix(MessageBadHeader, ".") + ": " + strings.Join(parts, ", ") + "."
}
