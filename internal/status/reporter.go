package status

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/notion"
)

const (
	markSuccess = "✅"
	markFailure = "❌"

	timestampLayout = "02/01/2006 15:04:05"
	pageURLPrefix   = "https://www.notion.so/"
)

// BlockUpdater patches a Notion block.
type BlockUpdater interface {
	UpdateBlock(ctx context.Context, blockID string, update *notionapi.BlockUpdateRequest) error
}

// Reporter annotates referencing blocks with the outcome of a document.
// Writes are serialized.
type Reporter struct {
	mu       sync.Mutex
	updater  BlockUpdater
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewReporter creates a reporter that formats timestamps in loc (UTC when nil).
func NewReporter(updater BlockUpdater, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{
		updater:  updater,
		location: loc,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// WithClock overrides the time source.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// WithLogger sets the logger.
func (r *Reporter) WithLogger(l *slog.Logger) *Reporter {
	if l != nil {
		r.logger = l
	}
	return r
}

// Annotation renders " ✅ DD/MM/YYYY HH:MM:SS[ - message]" (or ❌ on failure).
func Annotation(success bool, at time.Time, message string) string {
	mark := markFailure
	if success {
		mark = markSuccess
	}
	text := fmt.Sprintf(" %s %s", mark, at.Format(timestampLayout))
	if message != "" {
		text += " - " + message
	}
	return text
}

// Report replaces the content of blockID with a back-link to pageID followed
// by the annotation. Any failure is a ReportError.
func (r *Reporter) Report(ctx context.Context, pageID, blockID string, success bool, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := Annotation(success, r.now().In(r.location), message)
	if err := r.updater.UpdateBlock(ctx, blockID, Payload(pageID, text)); err != nil {
		return errors.ReportError("Error while updating Notion page.").
			WithCause(err).
			WithContext("block_id", blockID).
			WithContext("document_id", pageID).
			Build()
	}
	r.logger.Debug("Reported document status",
		logfields.DocumentID(pageID),
		logfields.BlockID(blockID),
		slog.Bool("success", success))
	return nil
}

// Payload builds the block update: a page mention followed by text.
func Payload(pageID, text string) *notionapi.BlockUpdateRequest {
	page := &notionapi.Mention{
		Type: notionapi.MentionTypePage,
		Page: &notionapi.PageMention{ID: notionapi.ObjectID(pageID)},
	}
	return &notionapi.BlockUpdateRequest{
		Paragraph: &notionapi.Paragraph{
			RichText: []notionapi.RichText{
				{
					Type:        notion.RichTextMention,
					Mention:     page,
					Annotations: &notionapi.Annotations{Color: notionapi.ColorDefault},
					Href:        pageURLPrefix + pageID,
				},
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: text},
				},
			},
		},
	}
}
