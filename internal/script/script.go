// Package script builds the ordered word sequence for the text a learner is
// currently rehearsing. A [Script] is derived state: it is recomputed whenever
// the active phase changes (one sub-sentence, a concatenation of several, or
// the whole beat) and word index i refers to the same token for the lifetime
// of one turn.
package script

import (
	"strings"
	"unicode"
)

// Word is a single whitespace-delimited token of the rehearsed text.
type Word struct {
	// Text is the token exactly as it appears in the source, punctuation included.
	Text string

	// SentenceStart marks the first word of a sub-sentence. Natural speech
	// pauses at sentence boundaries, so hesitation detection skips these.
	SentenceStart bool

	// Lenient marks words that transcription engines reliably mangle (proper
	// nouns and other capitalized mid-sentence tokens). Lenient words are
	// matched with the loosest strictness tier and are never recorded as missed.
	Lenient bool
}

// Script is the ordered word sequence for one turn.
type Script struct {
	words []Word
}

// New builds a Script from one or more sub-sentences. Sentences are tokenized
// by whitespace; the first token of each sentence is flagged as a sentence
// start, and capitalized tokens that are not sentence-initial are flagged
// lenient.
func New(sentences ...string) Script {
	var words []Word
	for _, sentence := range sentences {
		for i, tok := range strings.Fields(sentence) {
			words = append(words, Word{
				Text:          tok,
				SentenceStart: i == 0,
				Lenient:       i > 0 && startsUpper(tok),
			})
		}
	}
	return Script{words: words}
}

// Len returns the number of words in the script.
func (s Script) Len() int { return len(s.words) }

// Word returns the word at index i. Panics if i is out of range, matching
// slice semantics — callers index with cursor positions they already bound.
func (s Script) Word(i int) Word { return s.words[i] }

// Words returns the full word slice. The returned slice must not be mutated.
func (s Script) Words() []Word { return s.words }

// Texts returns the raw token strings in order.
func (s Script) Texts() []string {
	out := make([]string, len(s.words))
	for i, w := range s.words {
		out[i] = w.Text
	}
	return out
}

// startsUpper reports whether the first letter rune of tok is upper case.
// Leading punctuation (quotes, brackets) is skipped.
func startsUpper(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return unicode.IsUpper(r)
		}
	}
	return false
}
