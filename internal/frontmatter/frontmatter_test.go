package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoHeader_ReturnsBodyOnly(t *testing.T) {
	input := "# Title\n\nHello\n"

	header, body, had, _, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, header)
	require.Equal(t, input, body)
}

func TestSplit_Header_SplitsHeaderAndBody(t *testing.T) {
	input := "---\nclient: Acme\n---\n# Title\n"

	header, body, had, _, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "client: Acme\n", header)
	require.Equal(t, "# Title\n", body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	header, body, had, _, err := Split("---\nclient: Acme\n---")
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "client: Acme\n", header)
	require.Empty(t, body)
}

func TestSplit_DelimiterWithTrailingSpaces(t *testing.T) {
	header, body, had, _, err := Split("--- \nclient: Acme\n---  \nbody")
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "client: Acme\n", header)
	require.Equal(t, "body", body)
}

func TestSplit_DelimiterInsideLineIsNotAHeaderEnd(t *testing.T) {
	_, _, _, _, err := Split("---\nclient: a---b\n# Title\n")
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, _, err := Split("---\nclient: Acme\n# Title\n")
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))

	_, _, _, _, err = Split("---")
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsHeaderAndBody(t *testing.T) {
	input := "---\r\nclient: Acme\r\n---\r\n# Title\r\n"

	header, body, had, style, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "\r\n", style.Newline)
	require.Equal(t, "client: Acme\r\n", header)
	require.Equal(t, "# Title\r\n", body)
}

func TestSplit_EmptyHeaderBlock(t *testing.T) {
	header, body, had, _, err := Split("---\n---\n# Title\n")
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, header)
	require.Equal(t, "# Title\n", body)
}

func TestJoin_RoundTrip_ReconstructsOriginal(t *testing.T) {
	inputs := []string{
		"---\nclient: Acme\n---\n# Title\n",
		"---\r\nclient: Acme\r\n---\r\nbody\r\n",
		"no header\n",
	}
	for _, input := range inputs {
		header, body, had, style, err := Split(input)
		require.NoError(t, err)
		require.Equal(t, input, Join(header, body, had, style))
	}
}

func TestJoin_AddsMissingNewlineBeforeClosingDelimiter(t *testing.T) {
	out := Join("client: Acme", "body\n", true, Style{Newline: "\n"})
	require.Equal(t, "---\nclient: Acme\n---\nbody\n", out)
}

func TestLines(t *testing.T) {
	require.Equal(t, []string{"a: 1", "", "b: 2"}, Lines("a: 1\n\nb: 2\n", Style{Newline: "\n"}))
	require.Nil(t, Lines("", Style{}))
}

func TestParseYAML(t *testing.T) {
	fields, err := ParseYAML("client: Acme\nphase_id: 3\n")
	require.NoError(t, err)
	require.Equal(t, "Acme", fields["client"])
	require.Equal(t, 3, fields["phase_id"])

	fields, err = ParseYAML("  \n")
	require.NoError(t, err)
	require.Empty(t, fields)

	_, err = ParseYAML("client: [unterminated\n")
	require.Error(t, err)
}
