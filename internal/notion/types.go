package notion

import "github.com/jomei/notionapi"

// Rich text run types the library has no constants for.
const (
	RichTextMention  notionapi.ObjectType = "mention"
	RichTextEquation notionapi.ObjectType = "equation"
)

// BlockID returns the id of b, or "" for a nil block.
func BlockID(b notionapi.Block) string {
	if b == nil {
		return ""
	}
	return b.GetID().String()
}

// RichTextOf returns the rich text of any text-carrying block.
func RichTextOf(b notionapi.Block) []notionapi.RichText {
	switch v := b.(type) {
	case *notionapi.ParagraphBlock:
		return v.Paragraph.RichText
	case *notionapi.Heading1Block:
		return v.Heading1.RichText
	case *notionapi.Heading2Block:
		return v.Heading2.RichText
	case *notionapi.Heading3Block:
		return v.Heading3.RichText
	case *notionapi.BulletedListItemBlock:
		return v.BulletedListItem.RichText
	case *notionapi.NumberedListItemBlock:
		return v.NumberedListItem.RichText
	case *notionapi.ToDoBlock:
		return v.ToDo.RichText
	case *notionapi.QuoteBlock:
		return v.Quote.RichText
	case *notionapi.CalloutBlock:
		return v.Callout.RichText
	case *notionapi.CodeBlock:
		return v.Code.RichText
	}
	return nil
}

// MentionedPages returns the ids of pages mentioned in a paragraph block, in order.
// Other block types never reference documents.
func MentionedPages(b notionapi.Block) []string {
	p, ok := b.(*notionapi.ParagraphBlock)
	if !ok || p == nil {
		return nil
	}
	var ids []string
	for _, rt := range p.Paragraph.RichText {
		if rt.Type == RichTextMention && rt.Mention != nil &&
			rt.Mention.Type == notionapi.MentionTypePage && rt.Mention.Page != nil {
			ids = append(ids, rt.Mention.Page.ID.String())
		}
	}
	return ids
}
