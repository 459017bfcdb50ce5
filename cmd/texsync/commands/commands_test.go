package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/history"
	"git.home.luguber.info/inful/texsync/internal/job"
	"git.home.luguber.info/inful/texsync/internal/metadata"
)

const wellFormed = "---\nclient: ACME\ntitre: Report\nphase_id: P1\nphase_nom: Draft\n---\n# Body\n"

func parse(t *testing.T, args ...string) (*kong.Context, *CLI, *Global) {
	t.Helper()
	cli := &CLI{}
	global := &Global{}
	parser, err := kong.New(cli, kong.Bind(global), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return ctx, cli, global
}

func TestCheckDocument(t *testing.T) {
	title, err := checkDocument(wellFormed, metadata.DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, "acme_report_p1_draft", title)
}

func TestCheckDocument_MissingField(t *testing.T) {
	raw := "---\nclient: ACME\ntitre: Report\nphase_id: P1\n---\nbody\n"
	_, err := checkDocument(raw, metadata.DefaultSchema())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 2, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestCheckDocument_NoHeader(t *testing.T) {
	_, err := checkDocument("# just a body\n", metadata.DefaultSchema())
	require.Error(t, err)
	assert.True(t, metadata.IsParseError(err))
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(file, []byte(wellFormed), 0o600))

	ctx, cli, global := parse(t, "--config", filepath.Join(dir, "absent.yaml"), "check", file)
	assert.Equal(t, "check <file>", ctx.Command())
	require.NoError(t, ctx.Run(global, cli))
	assert.NotNil(t, global.Logger)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texsync.yaml")

	ctx, cli, global := parse(t, "--config", path, "init")
	require.NoError(t, ctx.Run(global, cli))
	assert.FileExists(t, path)

	ctx, cli, global = parse(t, "--config", path, "init")
	err := ctx.Run(global, cli)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	ctx, cli, global = parse(t, "--config", path, "init", "--force")
	require.NoError(t, ctx.Run(global, cli))
}

func TestRunFlags(t *testing.T) {
	_, cli, _ := parse(t, "-v", "run", "--workers", "4", "--skip-unchanged")
	assert.True(t, cli.Verbose)
	assert.Equal(t, 4, cli.Run.Workers)
	assert.True(t, cli.Run.SkipUnchanged)
}

func TestJobError(t *testing.T) {
	assert.NoError(t, jobError(&job.Report{FinalStatus: job.StatusSuccess}, nil))

	aborted := errors.FetchError("Failed to get files from Notion.").Build()
	assert.Same(t, aborted, jobError(&job.Report{FinalStatus: job.StatusError}, aborted))

	err := jobError(&job.Report{JobID: "j1", FinalStatus: job.StatusError, TotalDocuments: 2, FailureCount: 2}, nil)
	require.Error(t, err)
	assert.Equal(t, 11, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestPrintReport(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	report := &job.Report{
		JobID:          "j1",
		StartedAt:      start,
		FinishedAt:     start.Add(1500 * time.Millisecond),
		TotalDocuments: 3,
		FailureCount:   1,
		FinalStatus:    job.StatusSuccess,
		Documents: []job.DocumentResult{
			{Ref: job.DocumentRef{PageID: "a"}, Success: true, Title: "acme_report_p1_draft"},
			{Ref: job.DocumentRef{PageID: "b"}, Success: true, Skipped: true, Title: "b_title"},
			{Ref: job.DocumentRef{PageID: "c"}, Stage: "validate", Message: "The markdown header is badly formatted."},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()
	assert.Contains(t, out, "Job j1: SUCCESS (2/3 compiled in 1.5s)")
	assert.Contains(t, out, "✓ a acme_report_p1_draft")
	assert.Contains(t, out, "b b_title (unchanged)")
	assert.Contains(t, out, "✗ c [validate] The markdown header is badly formatted.")

	buf.Reset()
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestWriteHistory(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	jobs := []history.JobRecord{{
		JobID:          "j1",
		StartedAt:      start,
		FinishedAt:     start.Add(2 * time.Second),
		TotalDocuments: 1,
		FailureCount:   1,
		Status:         "ERROR",
		Documents: []history.DocumentRecord{
			{DocumentID: "doc-1", Title: "t", Stage: "xelatex_first_pass", Message: "The compilation failed."},
		},
	}}

	var buf bytes.Buffer
	writeHistory(&buf, jobs, true)
	out := buf.String()
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "j1")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "xelatex_first_pass: The compilation failed.")

	buf.Reset()
	writeHistory(&buf, jobs, false)
	assert.NotContains(t, buf.String(), "doc-1")
}
