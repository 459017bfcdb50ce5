// Package daemon runs jobs on a schedule, exposes metrics and health over
// HTTP and reloads the configuration when its file changes.
package daemon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/job"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/metrics"
)

const (
	jobName         = "texsync-job"
	defaultInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

// JobRunner executes one job.
type JobRunner interface {
	Run(ctx context.Context) (*job.Report, error)
}

// Factory builds a job runner from configuration. The closer releases
// whatever the runner holds open and is called when the runner is replaced.
type Factory func(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (JobRunner, io.Closer, error)

// Daemon schedules jobs every daemon.interval.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	factory    Factory
	runner     JobRunner
	closer     io.Closer
	retired    []io.Closer // pipelines replaced while a job was still using them
	scheduleID string

	scheduler *Scheduler
	server    *http.Server
	watcher   *ConfigWatcher
	registry  *prom.Registry
	recorder  metrics.Recorder

	ctx        context.Context
	jobs       sync.WaitGroup
	running    atomic.Bool
	jobsRun    atomic.Int64
	startedAt  time.Time
	lastReport *job.Report
	lastErr    error
}

// New creates a daemon. configPath may be empty, which disables reloading.
func New(cfg *config.Config, configPath string, factory Factory) (*Daemon, error) {
	if factory == nil {
		return nil, errors.DaemonError("job factory is required").Build()
	}
	scheduler, err := NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create scheduler").Fatal().Build()
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		factory:    factory,
		scheduler:  scheduler,
		recorder:   metrics.NoopRecorder{},
	}
	if cfg.Metrics.Enabled {
		d.registry = metrics.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}
	return d, nil
}

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.ctx = ctx
	d.startedAt = time.Now()

	if err := d.swapRunner(ctx, d.cfg); err != nil {
		return err
	}
	defer d.closeRunner()

	if err := d.schedule(d.cfg, d.cfg.Daemon.RunOnStart); err != nil {
		return err
	}
	d.scheduler.Start()
	defer func() {
		if err := d.scheduler.Stop(context.Background()); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	if d.cfg.Daemon.HTTPAddr != "" {
		if err := d.startHTTP(d.cfg.Daemon.HTTPAddr); err != nil {
			return err
		}
		defer d.stopHTTP()
	}

	if d.cfg.Daemon.WatchConfig && d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d)
		if err != nil {
			return errors.WrapError(err, errors.CategoryDaemon, "failed to create config watcher").Build()
		}
		if err := watcher.Start(ctx); err != nil {
			return errors.WrapError(err, errors.CategoryDaemon, "failed to start config watcher").Build()
		}
		d.watcher = watcher
		defer func() { _ = watcher.Stop(context.Background()) }()
	}

	slog.Info("Daemon started", "interval", d.cfg.Daemon.Interval, "http_addr", d.cfg.Daemon.HTTPAddr)
	<-ctx.Done()
	slog.Info("Daemon stopping")
	return nil
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ReloadConfig replaces the job runner and reschedules when the interval changed.
func (d *Daemon) ReloadConfig(ctx context.Context, cfg *config.Config) error {
	if err := d.swapRunner(ctx, cfg); err != nil {
		return err
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	if old.Daemon.Interval != cfg.Daemon.Interval {
		return d.schedule(cfg, false)
	}
	return nil
}

// TriggerNow runs a job immediately in the background unless one is running.
func (d *Daemon) TriggerNow() bool {
	if d.running.Load() {
		return false
	}
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go d.runJob(ctx)
	return true
}

func (d *Daemon) schedule(cfg *config.Config, immediate bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduleID != "" {
		if err := d.scheduler.Remove(d.scheduleID); err != nil {
			slog.Warn("Failed to remove previous schedule", logfields.Error(err))
		}
		d.scheduleID = ""
	}

	interval := config.Duration(cfg.Daemon.Interval, defaultInterval)
	id, err := d.scheduler.ScheduleEvery(jobName, interval, immediate, func() {
		ctx := d.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		d.runJob(ctx)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to schedule job").Fatal().Build()
	}
	d.scheduleID = id
	return nil
}

func (d *Daemon) swapRunner(ctx context.Context, cfg *config.Config) error {
	runner, closer, err := d.factory(ctx, cfg, d.recorder)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to build job pipeline").Build()
	}

	d.mu.Lock()
	oldCloser := d.closer
	d.runner = runner
	d.closer = closer
	// running only drops under mu, so a job holding the old runner
	// is guaranteed to see the retired closer when it finishes.
	if oldCloser != nil && d.running.Load() {
		d.retired = append(d.retired, oldCloser)
		oldCloser = nil
	}
	d.mu.Unlock()

	if oldCloser != nil {
		closePipeline(oldCloser, "Failed to close previous pipeline")
	}
	return nil
}

// closeRunner waits for an in-flight job, then releases every pipeline.
func (d *Daemon) closeRunner() {
	d.jobs.Wait()

	d.mu.Lock()
	closers := append(d.retired, d.closer)
	d.retired = nil
	d.closer = nil
	d.mu.Unlock()

	for _, c := range closers {
		if c != nil {
			closePipeline(c, "Failed to close pipeline")
		}
	}
}

func closePipeline(c io.Closer, msg string) {
	if err := c.Close(); err != nil {
		slog.Warn(msg, logfields.Error(err))
	}
}

// runJob executes one job. Concurrent invocations are dropped.
func (d *Daemon) runJob(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		slog.Info("Job already running, skipping trigger")
		return
	}
	d.jobs.Add(1)
	defer d.jobs.Done()
	defer d.finishJob()

	d.mu.RLock()
	runner := d.runner
	d.mu.RUnlock()

	report, err := runner.Run(ctx)
	d.jobsRun.Add(1)

	d.mu.Lock()
	d.lastReport = report
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		slog.Error("Scheduled job failed", logfields.Error(err))
		return
	}
	if report != nil {
		slog.Info("Scheduled job finished",
			logfields.JobID(report.JobID),
			logfields.JobStatus(string(report.FinalStatus)))
	}
}

// finishJob clears the running flag and closes pipelines retired during the job.
func (d *Daemon) finishJob() {
	d.mu.Lock()
	retired := d.retired
	d.retired = nil
	d.running.Store(false)
	d.mu.Unlock()

	for _, c := range retired {
		closePipeline(c, "Failed to close previous pipeline")
	}
}

// Status summarizes the daemon for the status endpoint.
type Status struct {
	Running   bool       `json:"running"`
	JobsRun   int64      `json:"jobs_run"`
	StartedAt time.Time  `json:"started_at"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastJob   *JobStatus `json:"last_job,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// JobStatus is the public view of the most recent job report.
type JobStatus struct {
	JobID          string    `json:"job_id"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TotalDocuments int       `json:"total_documents"`
	FailureCount   int       `json:"failure_count"`
}

// Snapshot returns the current daemon status.
func (d *Daemon) Snapshot() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{
		Running:   d.running.Load(),
		JobsRun:   d.jobsRun.Load(),
		StartedAt: d.startedAt,
	}
	if d.scheduleID != "" {
		if next := d.scheduler.NextRun(d.scheduleID); !next.IsZero() {
			s.NextRun = &next
		}
	}
	if r := d.lastReport; r != nil {
		s.LastJob = &JobStatus{
			JobID:          r.JobID,
			Status:         string(r.FinalStatus),
			StartedAt:      r.StartedAt,
			FinishedAt:     r.FinishedAt,
			TotalDocuments: r.TotalDocuments,
			FailureCount:   r.FailureCount,
		}
	}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	return s
}
