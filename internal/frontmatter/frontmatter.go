package frontmatter

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a document header.
const Delimiter = "---"

// Style captures the newline shape of a document so it can be reassembled unchanged.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// ErrNoHeader indicates the document does not start with a header delimiter line.
var ErrNoHeader = errors.New("document does not start with a header delimiter")

// ErrMissingClosingDelimiter indicates the document opened a header but never closed it.
var ErrMissingClosingDelimiter = errors.New("header start delimiter found but closing delimiter is missing")

// Split separates the `---` delimited header from the body.
//
// The header is present iff the first line is exactly the delimiter; it ends at
// the next delimiter line, which may be the last line of the document. If the
// document has no header, had is false and body is the full input.
func Split(content string) (header string, body string, had bool, style Style, err error) {
	style = detectStyle(content)
	nl := style.Newline

	first, rest, found := strings.Cut(content, nl)
	if strings.TrimRight(first, " \t") != Delimiter {
		return "", content, false, style, nil
	}
	if !found {
		return "", "", false, style, ErrMissingClosingDelimiter
	}

	offset := 0
	for offset <= len(rest) {
		line, _, more := strings.Cut(rest[offset:], nl)
		if strings.TrimRight(line, " \t") == Delimiter {
			header = rest[:offset]
			bodyStart := offset + len(line)
			if more {
				bodyStart += len(nl)
			}
			return header, rest[bodyStart:], true, style, nil
		}
		if !more {
			break
		}
		offset += len(line) + len(nl)
	}
	return "", "", false, style, ErrMissingClosingDelimiter
}

// Join reassembles a document from a raw header and body.
//
// If had is false, Join returns body as-is. A header without a trailing newline
// gets one before the closing delimiter.
func Join(header string, body string, had bool, style Style) string {
	if !had {
		return body
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	var b strings.Builder
	b.Grow(len(header) + len(body) + 2*(len(Delimiter)+len(nl)) + len(nl))
	b.WriteString(Delimiter)
	b.WriteString(nl)
	b.WriteString(header)
	if header != "" && !strings.HasSuffix(header, nl) {
		b.WriteString(nl)
	}
	b.WriteString(Delimiter)
	b.WriteString(nl)
	b.WriteString(body)
	return b.String()
}

// Lines splits a header into its lines using the captured newline style.
// A trailing newline does not produce an empty final line.
func Lines(header string, style Style) []string {
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}
	header = strings.TrimSuffix(header, nl)
	if header == "" {
		return nil
	}
	return strings.Split(header, nl)
}

// ParseYAML parses a raw header (without delimiters) into a map.
func ParseYAML(header string) (map[string]any, error) {
	if strings.TrimSpace(header) == "" {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(header), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content string) Style {
	newline := "\n"
	if idx := strings.IndexByte(content, '\n'); idx > 0 && content[idx-1] == '\r' {
		newline = "\r\n"
	}
	return Style{
		Newline:            newline,
		HasTrailingNewline: strings.HasSuffix(content, "\n"),
	}
}
