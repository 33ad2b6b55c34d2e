// Package fade decides which script word disappears next and how many words
// are hidden per successful turn. The selection policy hides low-information
// words first so the learner's attention lands on content words early, and it
// saves previously-failed words for last so struggle is revisited only after
// everything else is internalized.
package fade

import (
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/script"
)

// DefaultStoplist is the built-in set of common English function words that
// are hidden before anything else.
var DefaultStoplist = []string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at",
	"by", "for", "with", "from", "as", "is", "are", "was", "were", "be",
	"it", "he", "she", "they", "we", "you", "i", "his", "her", "their",
	"that", "this", "not", "so", "then", "there", "will", "shall",
}

const (
	defaultShortMin = 2
	defaultShortMax = 4
)

// Option is a functional option for configuring a [Scheduler].
type Option func(*Scheduler)

// WithStoplist replaces the default stoplist. Words are normalized before
// lookup, so casing and punctuation in the list do not matter.
func WithStoplist(words []string) Option {
	return func(s *Scheduler) {
		s.stoplist = make(map[string]struct{}, len(words))
		for _, w := range words {
			if n := align.Normalize(w); n != "" {
				s.stoplist[n] = struct{}{}
			}
		}
	}
}

// WithShortRange sets the normalized word length range treated as "short"
// by the second priority rule. Default: 2 to 4 letters.
func WithShortRange(minLen, maxLen int) Option {
	return func(s *Scheduler) {
		s.shortMin = minLen
		s.shortMax = maxLen
	}
}

// Scheduler picks the next word index to hide. It is read-only after
// construction and safe for concurrent use.
type Scheduler struct {
	stoplist map[string]struct{}
	shortMin int
	shortMax int
}

// NewScheduler returns a Scheduler with the default stoplist and short-word
// range, adjusted by the supplied options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		shortMin: defaultShortMin,
		shortMax: defaultShortMax,
	}
	WithStoplist(DefaultStoplist)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// NextToHide returns the next word index to hide in scr, given the currently
// hidden set and the protected set (words the learner previously failed,
// which must disappear last). It reports false when every word is already
// hidden.
//
// Priority over visible, non-protected indices: stoplist words, then short
// words, then the first middle word (neither the first nor the last token),
// then the first visible index. Only when no non-protected candidate remains
// is the same priority order applied to the protected words.
func (s *Scheduler) NextToHide(scr script.Script, hidden, protected map[int]struct{}) (int, bool) {
	unprotected := s.candidates(scr, hidden, protected, false)
	if idx, ok := s.pick(scr, unprotected); ok {
		return idx, true
	}
	fallback := s.candidates(scr, hidden, protected, true)
	return s.pick(scr, fallback)
}

// candidates returns the visible indices, filtered to protected or
// unprotected ones, in script order.
func (s *Scheduler) candidates(scr script.Script, hidden, protected map[int]struct{}, wantProtected bool) []int {
	var out []int
	for i := 0; i < scr.Len(); i++ {
		if _, ok := hidden[i]; ok {
			continue
		}
		_, isProtected := protected[i]
		if isProtected != wantProtected {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (s *Scheduler) pick(scr script.Script, candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	for _, i := range candidates {
		if _, ok := s.stoplist[align.Normalize(scr.Word(i).Text)]; ok {
			return i, true
		}
	}
	for _, i := range candidates {
		n := len([]rune(align.Normalize(scr.Word(i).Text)))
		if n >= s.shortMin && n <= s.shortMax {
			return i, true
		}
	}
	last := scr.Len() - 1
	for _, i := range candidates {
		if i != 0 && i != last {
			return i, true
		}
	}
	return candidates[0], true
}
