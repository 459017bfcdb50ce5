package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/texsync/internal/app"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/job"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Workers       int  `short:"w" help:"Override job.workers"`
	SkipUnchanged bool `help:"Skip documents whose fingerprint matches the last successful build"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if r.Workers > 0 {
		cfg.Job.Workers = r.Workers
	}
	if r.SkipUnchanged {
		cfg.Job.SkipUnchanged = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := app.Build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pipeline.Close(); cerr != nil {
			g.Logger.Warn("Failed to release job resources", "error", cerr)
		}
	}()

	report, runErr := pipeline.Run(ctx)
	printReport(os.Stdout, report)
	return jobError(report, runErr)
}

// jobError maps a finished job onto the command's error. An aborted job keeps
// its classified cause; a job where every document failed gets a compile error.
func jobError(report *job.Report, runErr error) error {
	if runErr != nil {
		return runErr
	}
	if report != nil && report.FinalStatus == job.StatusError {
		return errors.NewError(errors.CategoryCompile, "job finished with status ERROR").
			WithContext("job_id", report.JobID).
			WithContext("failures", report.FailureCount).
			Build()
	}
	return nil
}

func printReport(w io.Writer, report *job.Report) {
	if report == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Job %s: %s (%d/%d compiled in %s)\n",
		report.JobID, report.FinalStatus, report.Compiled(), report.TotalDocuments, report.Duration().Round(time.Millisecond))
	for _, d := range report.Documents {
		switch {
		case d.Skipped:
			_, _ = fmt.Fprintf(w, "  - %s %s (unchanged)\n", d.Ref.PageID, d.Title)
		case d.Success:
			_, _ = fmt.Fprintf(w, "  ✓ %s %s\n", d.Ref.PageID, d.Title)
		default:
			_, _ = fmt.Fprintf(w, "  ✗ %s [%s] %s\n", d.Ref.PageID, d.Stage, d.Message)
		}
	}
}
