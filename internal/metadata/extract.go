package metadata

import (
	stdErrors "errors"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/frontmatter"
)

const (
	listItemPrefix   = "- nom"
	contactPrefix    = "email"
	listItemIndent   = "  "
	contactIndent    = "    "
	badHeaderMessage = "The markdown header is badly formatted."
)

// Extract parses the header of raw and returns its fields together with the
// reconstructed document (normalized header followed by the untouched body).
//
// A document without a leading delimiter line, or whose header is never closed,
// yields a parse error and the original text.
func Extract(raw string) (Metadata, string, error) {
	header, body, had, style, err := frontmatter.Split(raw)
	if err != nil {
		if stdErrors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
			return nil, raw, errors.WrapError(err, errors.CategoryParse, badHeaderMessage).
				WithContext("reason", "missing closing delimiter").
				Build()
		}
		return nil, raw, errors.WrapError(err, errors.CategoryParse, badHeaderMessage).Build()
	}
	if !had {
		return nil, raw, errors.WrapError(frontmatter.ErrNoHeader, errors.CategoryParse, badHeaderMessage).
			WithContext("reason", "no header").
			Build()
	}

	fields := make(Metadata)
	lines := collapseBlankRuns(frontmatter.Lines(header, style))
	rewritten := make([]string, 0, len(lines))

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, listItemPrefix):
			line = listItemIndent + line
		case strings.HasPrefix(line, contactPrefix):
			line = contactIndent + line
		default:
			if key, value, ok := strings.Cut(line, ":"); ok {
				if key = strings.TrimSpace(key); key != "" {
					fields[key] = strings.TrimSpace(value)
				}
			}
		}
		rewritten = append(rewritten, line)
	}

	newHeader := ""
	if len(rewritten) > 0 {
		newHeader = strings.Join(rewritten, style.Newline) + style.Newline
	}
	if _, yerr := frontmatter.ParseYAML(newHeader); yerr != nil {
		slog.Warn("Rewritten header is not valid YAML; pandoc may reject it", "error", yerr)
	}

	return fields, frontmatter.Join(newHeader, body, true, style), nil
}

// collapseBlankRuns drops leading blank lines and reduces every run of blank
// lines to a single one.
func collapseBlankRuns(lines []string) []string {
	out := make([]string, 0, len(lines))
	prevBlank := true
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, line)
		prevBlank = blank
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}

// IsParseError reports whether err came from Extract.
func IsParseError(err error) bool {
	return errors.HasCategory(err, errors.CategoryParse)
}
