package compiler

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/texsync/internal/metadata"
)

// TitleFields are joined, in order, to form the artifact title.
var TitleFields = []string{"client", "titre", "phase_id", "phase_nom"}

const titleSeparator = "_"

// Letters that do not decompose under NFD but have a conventional ASCII spelling.
var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "oe",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
)

// apostrophes are dropped from titles.
var apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "")

// pathSeparators would otherwise escape the output directory.
var pathSeparators = strings.NewReplacer("/", "-", "\\", "-")

// Normalize strips diacritics, lower-cases and removes apostrophes.
// It is idempotent.
func Normalize(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, ligatures.Replace(value))
	if err != nil {
		stripped = value
	}
	return apostrophes.Replace(strings.ToLower(stripped))
}

// DeriveTitle joins the normalized title fields with "_" and replaces spaces with "-".
func DeriveTitle(m metadata.Metadata) (string, error) {
	parts := make([]string, len(TitleFields))
	for i, field := range TitleFields {
		v := strings.TrimSpace(Normalize(m.Get(field)))
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrIncompleteMetadata, field)
		}
		parts[i] = v
	}
	title := strings.ReplaceAll(strings.Join(parts, titleSeparator), " ", "-")
	return pathSeparators.Replace(title), nil
}
