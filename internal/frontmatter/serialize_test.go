package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeYAML_EmptyMap_ReturnsEmpty(t *testing.T) {
	out, err := SerializeYAML(map[string]string{}, Style{Newline: "\n"})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSerializeYAML_DeterministicOrder(t *testing.T) {
	fields := map[string]string{"titre": "Rapport", "client": "Acme", "phase_id": "kickoff"}

	out, err := SerializeYAML(fields, Style{Newline: "\n"})
	require.NoError(t, err)
	require.Equal(t, "client: Acme\nphase_id: kickoff\ntitre: Rapport\n", out)
}

func TestSerializeYAML_NewlineStyle_CRLF(t *testing.T) {
	out, err := SerializeYAML(map[string]string{"a": "x", "b": "y"}, Style{Newline: "\r\n"})
	require.NoError(t, err)
	require.Equal(t, "a: x\r\nb: y\r\n", out)
}
