package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/jomei/notionapi"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/logfields"
)

// ImageExtensions lists the asset types exported next to a document.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".svg", ".gif"}

// BlockLister lists child blocks; *Client satisfies it.
type BlockLister interface {
	ListChildren(ctx context.Context, blockID string) ([]notionapi.Block, error)
}

// Downloader fetches a remote asset into a local file; *Client satisfies it.
type Downloader interface {
	Download(ctx context.Context, assetURL, dst string) error
}

// Export is the Markdown rendition of a page plus the asset files written next to it.
type Export struct {
	PageID   string
	Markdown string
	Assets   []string
}

// Exporter renders a page's block tree to Markdown and downloads its images.
type Exporter struct {
	blocks   BlockLister
	download Downloader
	maxDepth int
	logger   *slog.Logger
}

// NewExporter creates an exporter backed by the given client.
func NewExporter(client *Client) *Exporter {
	return NewExporterWith(client, client)
}

// NewExporterWith creates an exporter from separate listing and download backends.
func NewExporterWith(blocks BlockLister, download Downloader) *Exporter {
	return &Exporter{
		blocks:   blocks,
		download: download,
		maxDepth: 8,
		logger:   slog.Default().With("component", "exporter"),
	}
}

// Export renders pageID into Markdown and writes image assets into dir.
func (e *Exporter) Export(ctx context.Context, pageID, dir string) (*Export, error) {
	state := &exportState{dir: dir, pageID: pageID}
	md, err := e.renderChildren(ctx, state, pageID, 0)
	if err != nil {
		return nil, err
	}
	if md != "" {
		md += "\n"
	}
	return &Export{PageID: pageID, Markdown: md, Assets: state.assets}, nil
}

type exportState struct {
	dir    string
	pageID string
	assets []string
}

func (e *Exporter) renderChildren(ctx context.Context, state *exportState, blockID string, depth int) (string, error) {
	blocks, err := e.blocks.ListChildren(ctx, blockID)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(blocks))
	number := 0
	for _, block := range blocks {
		if _, ok := block.(*notionapi.NumberedListItemBlock); ok {
			number++
		} else {
			number = 0
		}

		md, err := e.renderBlock(ctx, state, block, number)
		if err != nil {
			return "", err
		}

		if block.GetHasChildren() && depth < e.maxDepth {
			children, err := e.renderChildren(ctx, state, BlockID(block), depth+1)
			if err != nil {
				return "", err
			}
			if children != "" {
				if isListItem(block) {
					children = indent(children, "  ")
				}
				if md == "" {
					md = children
				} else {
					md += "\n\n" + children
				}
			}
		}

		if md != "" {
			parts = append(parts, md)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func isListItem(b notionapi.Block) bool {
	switch b.(type) {
	case *notionapi.BulletedListItemBlock, *notionapi.NumberedListItemBlock, *notionapi.ToDoBlock:
		return true
	}
	return false
}

func (e *Exporter) renderBlock(ctx context.Context, state *exportState, b notionapi.Block, number int) (string, error) {
	text := RenderRichText(RichTextOf(b))

	switch v := b.(type) {
	case *notionapi.ParagraphBlock:
		return text, nil
	case *notionapi.Heading1Block:
		return "# " + text, nil
	case *notionapi.Heading2Block:
		return "## " + text, nil
	case *notionapi.Heading3Block:
		return "### " + text, nil
	case *notionapi.BulletedListItemBlock:
		return "- " + text, nil
	case *notionapi.NumberedListItemBlock:
		return fmt.Sprintf("%d. %s", number, text), nil
	case *notionapi.ToDoBlock:
		box := "[ ]"
		if v.ToDo.Checked {
			box = "[x]"
		}
		return "- " + box + " " + text, nil
	case *notionapi.QuoteBlock, *notionapi.CalloutBlock:
		return indent(text, "> "), nil
	case *notionapi.CodeBlock:
		return "```" + v.Code.Language + "\n" + PlainText(v.Code.RichText) + "\n```", nil
	case *notionapi.EquationBlock:
		if v.Equation.Expression == "" {
			return "", nil
		}
		return "$$\n" + v.Equation.Expression + "\n$$", nil
	case *notionapi.DividerBlock:
		return "---", nil
	case *notionapi.ImageBlock:
		return e.renderImage(ctx, state, v.Image)
	default:
		e.logger.Debug("Skipping unsupported block", logfields.DocumentID(state.pageID), "block_type", b.GetType())
		return "", nil
	}
}

func (e *Exporter) renderImage(ctx context.Context, state *exportState, img notionapi.Image) (string, error) {
	src := img.GetURL()
	if src == "" {
		return "", nil
	}

	name := fmt.Sprintf("image-%d%s", len(state.assets)+1, imageExtension(src))
	dst := filepath.Join(state.dir, name)
	if err := e.download.Download(ctx, src, dst); err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "failed to download image").
			WithContext("url", src).
			Build()
	}
	state.assets = append(state.assets, name)

	caption := PlainText(img.Caption)
	return fmt.Sprintf("![%s](%s)", caption, name), nil
}

// imageExtension picks the asset extension from the URL path, defaulting to .png.
func imageExtension(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	for _, known := range ImageExtensions {
		if ext == known {
			return ext
		}
	}
	return ".png"
}
