package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID       = "job_id"
	KeyJobStatus   = "job_status"
	KeyDocumentID  = "document_id"
	KeyBlockID     = "block_id"
	KeyTitle       = "title"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyExitCode    = "exit_code"
	KeySchedule    = "schedule_name"
	KeyPath        = "path"
	KeyURL         = "url"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyAttempt     = "attempt"
	KeyWorker      = "worker"
	KeyError       = "error"
	KeyFingerprint = "fingerprint"
)

// JobID returns the job identifier attribute.
func JobID(id string) slog.Attr {
	return slog.String(KeyJobID, id)
}

func JobStatus(s string) slog.Attr {
	return slog.String(KeyJobStatus, s)
}

// DocumentID identifies the knowledge-base page being processed.
func DocumentID(id string) slog.Attr {
	return slog.String(KeyDocumentID, id)
}

// BlockID identifies the block that referenced the document.
func BlockID(id string) slog.Attr {
	return slog.String(KeyBlockID, id)
}

func Title(t string) slog.Attr {
	return slog.String(KeyTitle, t)
}

func Stage(name string) slog.Attr {
	return slog.String(KeyStage, name)
}

func DurationMS(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMS, ms)
}

func ExitCode(code int) slog.Attr {
	return slog.Int(KeyExitCode, code)
}

func ScheduleName(n string) slog.Attr {
	return slog.String(KeySchedule, n)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Status is an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

func Worker(id int) slog.Attr {
	return slog.Int(KeyWorker, id)
}

func Fingerprint(fp string) slog.Attr {
	return slog.String(KeyFingerprint, fp)
}

// Error renders err as a string attribute; nil yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
