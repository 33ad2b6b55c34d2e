// Package practice drives a learner through the memorization curriculum for
// one unit: clean read-throughs first, then progressive word fading, sentence
// by sentence, then the combined text, ending in mastery. A separate recall
// mode re-tests an already-mastered unit with aggressive fading.
package practice

import "fmt"

// Stage is the within-scope learning stage.
type Stage int

const (
	// StageLearning shows the full text; the learner reads it through until
	// the required number of clean repetitions is reached.
	StageLearning Stage = iota

	// StageFading hides more words after every clean turn until the whole
	// scope is recited from memory.
	StageFading
)

// String implements [fmt.Stringer].
func (s Stage) String() string {
	switch s {
	case StageLearning:
		return "learning"
	case StageFading:
		return "fading"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	return s == StageLearning || s == StageFading
}

// Scope is the extent of text the learner currently works on.
type Scope int

const (
	// ScopeSentence works on one sub-sentence of the unit.
	ScopeSentence Scope = iota

	// ScopeBeat works on the concatenation of all sub-sentences.
	ScopeBeat
)

// String implements [fmt.Stringer].
func (s Scope) String() string {
	switch s {
	case ScopeSentence:
		return "sentence"
	case ScopeBeat:
		return "beat"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// SessionMode selects the top-level session kind.
type SessionMode int

const (
	// ModePractice runs the full learning curriculum toward mastery.
	ModePractice SessionMode = iota

	// ModeRecall re-tests a mastered unit: fully visible start, aggressive
	// fading, two consecutive clean full-hidden turns to succeed.
	ModeRecall

	// ModePreBeatRecall warms up an already-mastered unit immediately before
	// its successor is learned. Runs like [ModeRecall] but completion does
	// not advance the spaced-repetition schedule.
	ModePreBeatRecall

	// ModeRest is a timed pause between units. No alignment runs while
	// resting.
	ModeRest

	// ModeComplete is the terminal state once the session's last unit is
	// done. Practice input is rejected until a new session starts.
	ModeComplete
)

// String implements [fmt.Stringer].
func (m SessionMode) String() string {
	switch m {
	case ModePractice:
		return "practice"
	case ModeRecall:
		return "recall"
	case ModePreBeatRecall:
		return "pre_beat_recall"
	case ModeRest:
		return "rest"
	case ModeComplete:
		return "session_complete"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// IsValid reports whether m is a known session mode.
func (m SessionMode) IsValid() bool {
	return m >= ModePractice && m <= ModeComplete
}

// Recalls reports whether m re-tests a mastered unit rather than teaching a
// new one.
func (m SessionMode) Recalls() bool {
	return m == ModeRecall || m == ModePreBeatRecall
}
