package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_StableAcrossInsertionOrder(t *testing.T) {
	a := Metadata{}
	a["client"] = "Acme"
	a["titre"] = "Report"

	b := Metadata{}
	b["titre"] = "Report"
	b["client"] = "Acme"

	fpA, err := Fingerprint(a, "body")
	require.NoError(t, err)
	fpB, err := Fingerprint(b, "body")
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
	assert.NotEmpty(t, fpA)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	m := validFields()
	fp1, err := Fingerprint(m, "body")
	require.NoError(t, err)

	fp2, err := Fingerprint(m, "body v2")
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)

	m["phase_nom"] = "Final"
	fp3, err := Fingerprint(m, "body")
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestFingerprint_IgnoresStoredFingerprint(t *testing.T) {
	m := validFields()
	fp, err := Fingerprint(m, "body")
	require.NoError(t, err)

	m[mdfp.FingerprintField] = fp
	again, err := Fingerprint(m, "body")
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestFingerprint_ChangesWithAssetContent(t *testing.T) {
	dir := t.TempDir()
	m := validFields()
	body := "![Figure](image-1.png)"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image-1.png"), []byte("v1"), 0o600))

	assets, err := AssetDigests(dir, []string{"image-1.png"})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	fp1, err := Fingerprint(m, body, assets...)
	require.NoError(t, err)

	bare, err := Fingerprint(m, body)
	require.NoError(t, err)
	assert.NotEqual(t, bare, fp1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image-1.png"), []byte("v2"), 0o600))
	assets, err = AssetDigests(dir, []string{"image-1.png"})
	require.NoError(t, err)
	fp2, err := Fingerprint(m, body, assets...)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}

func TestAssetDigests_MissingFile(t *testing.T) {
	_, err := AssetDigests(t.TempDir(), []string{"gone.png"})
	require.Error(t, err)
}
