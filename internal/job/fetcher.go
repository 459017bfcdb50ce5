package job

import (
	"context"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/notion"
)

// Fetcher retrieves the batch of documents for a job.
type Fetcher interface {
	Fetch(ctx context.Context) ([]DocumentRef, error)
}

// NotionFetcher lists the children of a root page and returns one reference
// per page mentioned in a paragraph block.
type NotionFetcher struct {
	blocks     notion.BlockLister
	rootPageID string
}

// NewNotionFetcher creates a fetcher over rootPageID.
func NewNotionFetcher(blocks notion.BlockLister, rootPageID string) *NotionFetcher {
	return &NotionFetcher{blocks: blocks, rootPageID: rootPageID}
}

// Fetch implements Fetcher. Any listing failure is a FetchError.
func (f *NotionFetcher) Fetch(ctx context.Context) ([]DocumentRef, error) {
	blocks, err := f.blocks.ListChildren(ctx, f.rootPageID)
	if err != nil {
		return nil, errors.FetchError("Failed to get files from Notion.").
			WithCause(err).
			WithContext("root_page_id", f.rootPageID).
			Build()
	}

	var refs []DocumentRef
	for _, b := range blocks {
		for _, pageID := range notion.MentionedPages(b) {
			refs = append(refs, DocumentRef{PageID: pageID, Block: b})
		}
	}
	return refs, nil
}
