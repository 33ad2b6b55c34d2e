package align

import (
	"github.com/antzucaro/matchr"
)

// Strictness selects how tolerant word matching is. The three tiers trade the
// risk of a false negative (learner penalized for a correct word the
// recognizer misheard) against a false positive (learner credited for a word
// never said): hidden words are being tested and bias strict; visible words
// bias lenient; proper nouns get the loosest tier because recognizers
// reliably mangle names.
type Strictness int

const (
	// StrictnessHidden requires near-exact agreement — the learner must prove recall.
	StrictnessHidden Strictness = iota

	// StrictnessVisible tolerates near-miss transcriptions of words the
	// learner is not being tested on.
	StrictnessVisible

	// StrictnessLenient accepts loose prefix, character-overlap, or phonetic
	// agreement. Used for proper nouns and other recognizer-hostile tokens.
	StrictnessLenient
)

const (
	defaultShortExactLen  = 2
	defaultVisibleOverlap = 0.60
	defaultLenientOverlap = 0.35
)

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithShortExactLen sets the normalized token length at or below which hidden
// words require an exact match. Default: 2.
func WithShortExactLen(n int) MatcherOption {
	return func(m *Matcher) {
		m.shortExactLen = n
	}
}

// WithVisibleOverlap sets the character-overlap ratio required by the visible
// tier. Default: 0.60.
func WithVisibleOverlap(ratio float64) MatcherOption {
	return func(m *Matcher) {
		m.visibleOverlap = ratio
	}
}

// WithLenientOverlap sets the character-overlap ratio accepted by the lenient
// tier. Default: 0.35.
func WithLenientOverlap(ratio float64) MatcherOption {
	return func(m *Matcher) {
		m.lenientOverlap = ratio
	}
}

// Matcher decides whether a spoken token counts as a match for an expected
// script token at a given strictness. Each tier is a strict superset of the
// one above it: anything the hidden tier accepts, the visible tier accepts,
// and anything the visible tier accepts, the lenient tier accepts.
//
// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	shortExactLen  int
	visibleOverlap float64
	lenientOverlap float64
}

// NewMatcher returns a Matcher configured with the supplied options.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		shortExactLen:  defaultShortExactLen,
		visibleOverlap: defaultVisibleOverlap,
		lenientOverlap: defaultLenientOverlap,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Matches reports whether spoken counts as a match for expected under the
// given strictness. Both tokens are normalized first; tokens that normalize
// to the empty string never match (guards against punctuation-only tokens).
func (m *Matcher) Matches(spoken, expected string, strictness Strictness) bool {
	a := Normalize(spoken)
	b := Normalize(expected)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	switch strictness {
	case StrictnessHidden:
		return m.hiddenMatch(a, b)
	case StrictnessVisible:
		return m.hiddenMatch(a, b) || m.visibleMatch(a, b)
	default:
		return m.hiddenMatch(a, b) || m.visibleMatch(a, b) || m.lenientMatch(a, b)
	}
}

// hiddenMatch applies the strict tier to normalized, non-equal tokens: short
// expected tokens require exact agreement (already ruled out by the caller),
// longer tokens allow a single character of slack measured by positional
// comparison over the shared length. A fixed-width Hamming-style tolerance is
// deliberate — transcript tokens are rarely length-shifted by more than one
// character, and it is much cheaper than full edit distance on the hot path.
func (m *Matcher) hiddenMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(rb) <= m.shortExactLen {
		return false
	}
	shared := min(len(ra), len(rb))
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	mismatches := diff
	for i := 0; i < shared; i++ {
		if ra[i] != rb[i] {
			mismatches++
			if mismatches > 1 {
				return false
			}
		}
	}
	return mismatches <= 1
}

// visibleMatch applies the middle tier: first-letter agreement plus a looser
// unordered character-overlap ratio.
func (m *Matcher) visibleMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if ra[0] != rb[0] {
		return false
	}
	return overlapRatio(ra, rb) >= m.visibleOverlap
}

// lenientMatch applies the loosest tier: shared first letter, a shared
// two-character prefix, a low unordered character-overlap ratio, or Double
// Metaphone phonetic agreement.
func (m *Matcher) lenientMatch(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if ra[0] == rb[0] {
		return true
	}
	if overlapRatio(ra, rb) >= m.lenientOverlap {
		return true
	}
	return phoneticOverlap(a, b)
}

// overlapRatio returns the unordered multiset character overlap between two
// tokens, divided by the longer token's length.
func overlapRatio(a, b []rune) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 0
	}
	counts := make(map[rune]int, len(a))
	for _, r := range a {
		counts[r]++
	}
	shared := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}
	return float64(shared) / float64(longer)
}

// phoneticOverlap reports whether the two tokens share a Double Metaphone
// code. Empty codes (tokens too short or without consonants) never overlap.
func phoneticOverlap(a, b string) bool {
	pa, sa := matchr.DoubleMetaphone(a)
	pb, sb := matchr.DoubleMetaphone(b)
	for _, ca := range []string{pa, sa} {
		if ca == "" {
			continue
		}
		if ca == pb || (sb != "" && ca == sb) {
			return true
		}
	}
	return false
}
