package job

import (
	"time"

	"github.com/jomei/notionapi"

	"git.home.luguber.info/inful/texsync/internal/history"
	"git.home.luguber.info/inful/texsync/internal/notion"
)

// Status is the final status of a job.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Per-document failure messages written back to Notion.
const (
	MessageBadHeader      = "The markdown header is badly formatted."
	MessageCompileFailed  = "The compilation failed."
	MessageExportFailed   = "The document could not be exported."
	MessageInternalFailed = "The document could not be processed."
)

// Stage names recorded for failures that happen before compilation.
const (
	StageWorkspace = "workspace"
	StageExport    = "export"
	StageExtract   = "extract"
	StageValidate  = "validate"
	StageReport    = "report"
)

// DocumentRef pairs a referenced page with the block that mentions it.
// The block is where the outcome annotation is written.
type DocumentRef struct {
	PageID string
	Block  notionapi.Block
}

// BlockID returns the id of the referencing block.
func (r DocumentRef) BlockID() string {
	return notion.BlockID(r.Block)
}

// RawDocument is an exported page before header processing.
type RawDocument struct {
	ID       string
	Markdown string
	Assets   []string
}

// DocumentResult is the outcome of one document within a job.
type DocumentResult struct {
	Ref         DocumentRef
	Success     bool
	Skipped     bool
	Title       string
	Stage       string
	Message     string
	Fingerprint string
	Artifacts   []string
	Duration    time.Duration
	Err         error
}

// Report aggregates a job.
type Report struct {
	JobID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	TotalDocuments int
	FailureCount   int
	FinalStatus    Status
	Documents      []DocumentResult
	Err            error
}

// Compiled returns the number of documents that did not fail.
func (r *Report) Compiled() int {
	return r.TotalDocuments - r.FailureCount
}

// Duration returns the wall time of the job.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record converts the report for the history store.
func (r *Report) Record() history.JobRecord {
	rec := history.JobRecord{
		JobID:          r.JobID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		TotalDocuments: r.TotalDocuments,
		FailureCount:   r.FailureCount,
		Status:         string(r.FinalStatus),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	for _, d := range r.Documents {
		rec.Documents = append(rec.Documents, history.DocumentRecord{
			DocumentID:  d.Ref.PageID,
			Title:       d.Title,
			Success:     d.Success,
			Skipped:     d.Skipped,
			Stage:       d.Stage,
			Message:     d.Message,
			Fingerprint: d.Fingerprint,
		})
	}
	return rec
}

// FinalStatus derives the job status. A job is ERROR when it was aborted
// (fetch, template or report failure) or when every document failed; an empty
// batch is a SUCCESS.
func FinalStatus(total, failures int, aborted bool) Status {
	if aborted {
		return StatusError
	}
	if total > 0 && failures == total {
		return StatusError
	}
	return StatusSuccess
}
