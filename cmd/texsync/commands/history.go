package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/texsync/internal/config"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit     int  `short:"n" help:"Number of jobs to show" default:"10"`
	JSON      bool `help:"Print raw JSON records"`
	Documents bool `short:"d" help:"Include per-document results"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.History.Backend == config.HistoryNone {
		return errors.ConfigError("job history is disabled (history.backend is none)").Build()
	}

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	jobs, err := store.RecentJobs(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}
	writeHistory(os.Stdout, jobs, h.Documents)
	return nil
}

func writeHistory(w io.Writer, jobs []history.JobRecord, documents bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "JOB\tSTARTED\tDURATION\tSTATUS\tDOCUMENTS\tFAILURES")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			j.JobID,
			j.StartedAt.Local().Format(time.DateTime),
			j.FinishedAt.Sub(j.StartedAt).Round(time.Millisecond),
			j.Status,
			j.TotalDocuments,
			j.FailureCount,
		)
		if !documents {
			continue
		}
		for _, d := range j.Documents {
			result := "ok"
			switch {
			case d.Skipped:
				result = "skipped"
			case !d.Success:
				result = d.Stage + ": " + d.Message
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t\t%s\t\t\n", d.DocumentID, d.Title, result)
		}
	}
	_ = tw.Flush()
}
