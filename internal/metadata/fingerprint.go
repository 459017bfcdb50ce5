package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/texsync/internal/frontmatter"
)

// Fingerprint computes a stable content hash of a document's fields, body and
// asset digests (see AssetDigests). The fingerprint field itself is excluded so
// a stored value does not feed back into the hash.
func Fingerprint(m Metadata, body string, assets ...string) (string, error) {
	fields := make(map[string]string, len(m))
	for k, v := range m {
		if k == mdfp.FingerprintField {
			continue
		}
		fields[k] = v
	}

	serialized, err := frontmatter.SerializeYAML(fields, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", err
	}
	if len(assets) > 0 {
		body += "\n\x00assets\n" + strings.Join(assets, "\n")
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(serialized, "\n"), body), nil
}

// AssetDigests hashes the named files under dir, returning "name digest" per
// asset in the given order.
func AssetDigests(dir string, names []string) ([]string, error) {
	digests := make([]string, 0, len(names))
	for _, name := range names {
		digest, err := fileDigest(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		digests = append(digests, name+" "+digest)
	}
	return digests, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return mdfp.CalculateFingerprintReader(f)
}
