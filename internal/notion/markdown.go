package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// RenderRichText converts inline rich text into Markdown.
func RenderRichText(runs []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range runs {
		b.WriteString(renderRun(rt))
	}
	return b.String()
}

// PlainText concatenates the unstyled text of runs.
func PlainText(runs []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range runs {
		b.WriteString(runText(rt))
	}
	return b.String()
}

func runText(rt notionapi.RichText) string {
	if rt.Type == notionapi.ObjectTypeText && rt.Text != nil {
		return rt.Text.Content
	}
	return rt.PlainText
}

func renderRun(rt notionapi.RichText) string {
	if rt.Type == RichTextEquation && rt.Equation != nil {
		return "$" + rt.Equation.Expression + "$"
	}

	text := runText(rt)
	if text == "" {
		return ""
	}

	if a := rt.Annotations; a != nil {
		// Markers must hug the text; surrounding spaces stay outside.
		lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
		trail := text[len(strings.TrimRight(text, " ")):]
		core := strings.TrimSpace(text)
		if core == "" {
			return text
		}
		if a.Code {
			core = "`" + core + "`"
		}
		if a.Bold {
			core = "**" + core + "**"
		}
		if a.Italic {
			core = "*" + core + "*"
		}
		if a.Strikethrough {
			core = "~~" + core + "~~"
		}
		text = lead + core + trail
	}

	if rt.Type == notionapi.ObjectTypeText && rt.Text != nil && rt.Text.Link != nil && rt.Text.Link.Url != "" {
		return "[" + text + "](" + rt.Text.Link.Url + ")"
	}
	return text
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
