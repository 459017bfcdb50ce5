package compiler

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New()

// LocalImages returns the destinations of images in markdown that point at
// local files, in document order without duplicates.
func LocalImages(markdown string) []string {
	source := []byte(markdown)
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	seen := make(map[string]bool)
	var images []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if isLocal(dest) && !seen[dest] {
			seen[dest] = true
			images = append(images, dest)
		}
		return ast.WalkContinue, nil
	})
	return images
}

func isLocal(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "#") {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return true
	}
	return u.Scheme == ""
}

// CheckAssets verifies every local image referenced by markdown exists under dir.
func CheckAssets(markdown, dir string) error {
	var missing []string
	for _, dest := range LocalImages(markdown) {
		rel := dest
		if unescaped, err := url.PathUnescape(dest); err == nil {
			rel = unescaped
		}
		rel = filepath.Clean(filepath.FromSlash(rel))
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			missing = append(missing, dest)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			missing = append(missing, dest)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAsset, strings.Join(missing, ", "))
	}
	return nil
}
