// Package align implements the real-time transcript-to-script alignment core:
// word normalization, tiered fuzzy word matching, the incremental alignment
// cursor that consumes noisy partial transcript snapshots, and the hesitation
// monitor that keeps a turn from stalling on a single word.
package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, turning
// "prière" into "priere" and "Glück" into "Gluck". Built once; Transformer
// values are safe for concurrent use via transform.String.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a token for language-agnostic comparison: it
// lowercases, strips diacritics, and removes every rune that is not a letter
// or digit. The result may be empty (e.g. for punctuation-only tokens).
// Normalize is idempotent and never fails.
func Normalize(token string) string {
	lowered := strings.ToLower(token)
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		// transform.String only errors on malformed input; fall back to the
		// lowered token so the filter below still applies.
		stripped = lowered
	}
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
