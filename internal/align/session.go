package align

import (
	"sort"
	"strings"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/script"
)

// EventKind identifies what happened to a word (or the turn) during alignment.
type EventKind int

const (
	// EventWordSpoken fires when a script word is confirmed matched.
	EventWordSpoken EventKind = iota

	// EventWordMissed fires when a hidden, non-lenient word is skipped by a
	// lookahead match.
	EventWordMissed

	// EventMissCleared fires when a word previously flagged missed is
	// subsequently matched directly. This covers the transient false miss an
	// interim transcript can cause before the recognizer finalizes.
	EventMissCleared

	// EventWordHesitated fires when the learner stalls on a hidden word past
	// the hesitation threshold.
	EventWordHesitated

	// EventWordForced fires when the cursor is force-advanced past a stuck
	// word. The word is also marked spoken so the turn can finish.
	EventWordForced

	// EventTurnCompleted fires exactly once per turn when the cursor reaches
	// the end of the script.
	EventTurnCompleted
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventWordSpoken:
		return "spoken"
	case EventWordMissed:
		return "missed"
	case EventMissCleared:
		return "miss_cleared"
	case EventWordHesitated:
		return "hesitated"
	case EventWordForced:
		return "forced"
	case EventTurnCompleted:
		return "turn_completed"
	}
	return "unknown"
}

// Event is a single alignment outcome. Index is the affected word index, or
// -1 for [EventTurnCompleted]. Turn is the turn id the event belongs to.
type Event struct {
	Kind  EventKind
	Index int
	Turn  int
}

// SessionConfig holds the timing thresholds of one alignment session. Zero
// values are replaced with defaults by [NewSession].
type SessionConfig struct {
	// HesitateAfter is how long the cursor may sit on a hidden word before it
	// is flagged hesitated. Default: 3s.
	HesitateAfter time.Duration

	// ForceAdvanceAfter is how long before the cursor is pushed past a stuck
	// word so the session never hangs on a single token. Default: 6s.
	ForceAdvanceAfter time.Duration

	// LenientForceAfter is the force-advance window for lenient (proper noun)
	// words, which stall learner and recognizer alike. Default: 3s.
	LenientForceAfter time.Duration
}

const (
	defaultHesitateAfter     = 3 * time.Second
	defaultForceAdvanceAfter = 6 * time.Second
	defaultLenientForceAfter = 3 * time.Second
)

// Session is the owned mutable alignment state for one practice turn over one
// script. It consumes cumulative transcript snapshots, advances a cursor
// through the script, and maintains the hidden/spoken/hesitated/missed word
// index sets.
//
// Session is not safe for concurrent use: snapshot events and the hesitation
// tick must be serialized by the caller (the coach runs both on one loop).
type Session struct {
	cfg     SessionConfig
	matcher *Matcher
	scr     script.Script

	// turnID is a monotonically increasing generation counter. Events carrying
	// any other id are stale — they belong to a superseded turn — and are
	// discarded, which is the session's cancellation mechanism.
	turnID            int
	lastCompletedTurn int

	cursor      int
	prevTokens  []string
	lastAdvance time.Time

	hidden      map[int]struct{}
	hiddenOrder []int
	spoken      map[int]struct{}
	hesitated   map[int]struct{}
	missed      map[int]struct{}
}

// NewSession creates a Session over scr starting at turn 1 with all words
// visible.
func NewSession(scr script.Script, m *Matcher, cfg SessionConfig, now time.Time) *Session {
	if cfg.HesitateAfter <= 0 {
		cfg.HesitateAfter = defaultHesitateAfter
	}
	if cfg.ForceAdvanceAfter <= 0 {
		cfg.ForceAdvanceAfter = defaultForceAdvanceAfter
	}
	if cfg.LenientForceAfter <= 0 {
		cfg.LenientForceAfter = defaultLenientForceAfter
	}
	s := &Session{
		cfg:     cfg,
		matcher: m,
		scr:     scr,
		turnID:  1,
		hidden:  make(map[int]struct{}),
	}
	s.resetTurnState(now)
	return s
}

// TurnID returns the live turn id. Transcript events must carry this id to be
// processed; anything else is ignored.
func (s *Session) TurnID() int { return s.turnID }

// Script returns the script this session aligns against.
func (s *Session) Script() script.Script { return s.scr }

// ResetTurn abandons the current turn and starts a new one, returning the new
// turn id. All in-flight recognition tagged with the old id becomes inert.
// The hidden set persists across turns; spoken/hesitated/missed are cleared.
func (s *Session) ResetTurn(now time.Time) int {
	s.turnID++
	s.resetTurnState(now)
	return s.turnID
}

// SetScript replaces the script (phase or session-mode change), clears the
// hidden set, and starts a new turn.
func (s *Session) SetScript(scr script.Script, now time.Time) int {
	s.scr = scr
	s.hidden = make(map[int]struct{})
	s.hiddenOrder = nil
	return s.ResetTurn(now)
}

func (s *Session) resetTurnState(now time.Time) {
	s.cursor = 0
	s.prevTokens = nil
	s.lastAdvance = now
	s.spoken = make(map[int]struct{})
	s.hesitated = make(map[int]struct{})
	s.missed = make(map[int]struct{})
}

// Hide masks the word at index i. Appends to the hiding order, which records
// the sequence words were hidden in so the most recent can be restored first
// on failure.
func (s *Session) Hide(i int) {
	if i < 0 || i >= s.scr.Len() {
		return
	}
	if _, ok := s.hidden[i]; ok {
		return
	}
	s.hidden[i] = struct{}{}
	s.hiddenOrder = append(s.hiddenOrder, i)
}

// Reveal unmasks the word at index i without otherwise affecting cursor
// state. Used both by the fading scheduler's restore policy and by manual
// reveal-on-tap.
func (s *Session) Reveal(i int) {
	if _, ok := s.hidden[i]; !ok {
		return
	}
	delete(s.hidden, i)
	for k, idx := range s.hiddenOrder {
		if idx == i {
			s.hiddenOrder = append(s.hiddenOrder[:k], s.hiddenOrder[k+1:]...)
			break
		}
	}
}

// IsHidden reports whether word i is currently masked.
func (s *Session) IsHidden(i int) bool {
	_, ok := s.hidden[i]
	return ok
}

// HiddenIndexes returns the hidden word indices in the order they were
// hidden. The caller owns the returned slice.
func (s *Session) HiddenIndexes() []int {
	out := make([]int, len(s.hiddenOrder))
	copy(out, s.hiddenOrder)
	return out
}

// HiddenCount returns the number of currently hidden words.
func (s *Session) HiddenCount() int { return len(s.hidden) }

// AllHidden reports whether every script word is masked.
func (s *Session) AllHidden() bool { return len(s.hidden) == s.scr.Len() && s.scr.Len() > 0 }

// Missed returns the sorted indices of hidden words skipped this turn.
func (s *Session) Missed() []int { return sortedIndexes(s.missed) }

// Hesitated returns the sorted indices of words hesitated over this turn.
func (s *Session) Hesitated() []int { return sortedIndexes(s.hesitated) }

// Cursor returns the next expected word index. Non-decreasing within a turn.
func (s *Session) Cursor() int { return s.cursor }

// Completed reports whether the live turn has already fired its completion.
func (s *Session) Completed() bool { return s.lastCompletedTurn == s.turnID }

// Advance consumes a cumulative transcript snapshot for the given turn.
// Snapshots tagged with a stale turn id produce no state mutation. The
// returned events describe every word-level outcome plus at most one
// [EventTurnCompleted].
func (s *Session) Advance(text string, final bool, turnID int, now time.Time) []Event {
	if turnID != s.turnID {
		return nil
	}

	tokens := strings.Fields(text)
	fresh := s.deltaTokens(tokens)
	s.prevTokens = tokens
	if final {
		// The utterance is closed; the next snapshot starts a new cumulative
		// text and every token in it is new.
		s.prevTokens = nil
	}

	var events []Event
	for _, tok := range fresh {
		if s.cursor >= s.scr.Len() {
			break
		}
		events = append(events, s.consume(tok, now)...)
	}

	if s.cursor >= s.scr.Len() && s.scr.Len() > 0 {
		events = append(events, s.complete()...)
	}
	return events
}

// CheckHesitation measures the time since the last successful cursor advance
// and flags or rescues the current word. It is a pure state-transition
// function driven by an external ticker, so the detection logic is testable
// without real timers.
func (s *Session) CheckHesitation(now time.Time) []Event {
	if s.scr.Len() == 0 || s.cursor >= s.scr.Len() {
		return nil
	}

	elapsed := now.Sub(s.lastAdvance)
	c := s.cursor
	w := s.scr.Word(c)
	var events []Event

	// Sentence-initial words are exempt: natural speech pauses at sentence
	// boundaries must not be penalized.
	if elapsed >= s.cfg.HesitateAfter && s.IsHidden(c) && !w.SentenceStart {
		if _, already := s.hesitated[c]; !already {
			s.hesitated[c] = struct{}{}
			events = append(events, Event{Kind: EventWordHesitated, Index: c, Turn: s.turnID})
		}
	}

	force := s.cfg.ForceAdvanceAfter
	if w.Lenient {
		force = s.cfg.LenientForceAfter
	}
	if elapsed >= force {
		// Liveness guarantee: the session must never block forever on one word.
		events = append(events, Event{Kind: EventWordForced, Index: c, Turn: s.turnID})
		events = append(events, s.markSpoken(c, now)...)
		if s.cursor >= s.scr.Len() {
			events = append(events, s.complete()...)
		}
	}
	return events
}

// States returns the per-word presentation state for the UI.
func (s *Session) States() []WordState {
	states := make([]WordState, s.scr.Len())
	for i := range states {
		_, spoken := s.spoken[i]
		_, hesitated := s.hesitated[i]
		_, missed := s.missed[i]
		states[i] = WordState{
			Text:      s.scr.Word(i).Text,
			Hidden:    s.IsHidden(i),
			Spoken:    spoken,
			Hesitated: hesitated,
			Missed:    missed,
			Current:   i == s.cursor && s.cursor < s.scr.Len(),
		}
	}
	return states
}

// WordState is the presentation view of one script word.
type WordState struct {
	Text      string `json:"text"`
	Hidden    bool   `json:"hidden"`
	Spoken    bool   `json:"spoken"`
	Hesitated bool   `json:"hesitated"`
	Missed    bool   `json:"missed"`
	Current   bool   `json:"current"`
}

// deltaTokens determines which snapshot tokens are new relative to the
// previous snapshot processed this turn. Growth means the tail is new; equal
// length with a revised final one or two tokens means just that tail is
// reprocessed (the recognizer revising its last word as it finalizes); a
// shorter snapshot means a new utterance began and everything is new.
func (s *Session) deltaTokens(tokens []string) []string {
	prev := s.prevTokens
	switch {
	case len(tokens) == 0:
		return nil
	case len(prev) == 0:
		return tokens
	case len(tokens) > len(prev):
		return tokens[len(prev):]
	case len(tokens) < len(prev):
		return tokens
	}

	n := len(tokens)
	if n >= 2 && tokens[n-2] != prev[n-2] {
		return tokens[n-2:]
	}
	if tokens[n-1] != prev[n-1] {
		return tokens[n-1:]
	}
	return nil
}

// consume aligns a single new token against the script starting at the
// cursor: miss-rescue, exact position, lookahead 1, lookahead 2 (only past
// visible or lenient words), otherwise the token is discarded as noise and
// the cursor does not move.
func (s *Session) consume(tok string, now time.Time) []Event {
	var events []Event

	// A direct match against a word flagged missed clears the transient miss
	// an interim transcript can cause.
	for idx := range s.missed {
		if s.matcher.Matches(tok, s.scr.Word(idx).Text, s.strictnessFor(idx)) {
			delete(s.missed, idx)
			s.spoken[idx] = struct{}{}
			events = append(events,
				Event{Kind: EventMissCleared, Index: idx, Turn: s.turnID},
				Event{Kind: EventWordSpoken, Index: idx, Turn: s.turnID},
			)
			return events
		}
	}

	c := s.cursor
	if s.matcher.Matches(tok, s.scr.Word(c).Text, s.strictnessFor(c)) {
		return append(events, s.markSpoken(c, now)...)
	}

	if c+1 < s.scr.Len() && s.matcher.Matches(tok, s.scr.Word(c+1).Text, s.strictnessFor(c+1)) {
		events = append(events, s.recordSkip(c)...)
		return append(events, s.markSpoken(c+1, now)...)
	}

	current := s.scr.Word(c)
	if (!s.IsHidden(c) || current.Lenient) && c+2 < s.scr.Len() &&
		s.matcher.Matches(tok, s.scr.Word(c+2).Text, s.strictnessFor(c+2)) {
		events = append(events, s.recordSkip(c)...)
		events = append(events, s.recordSkip(c+1)...)
		return append(events, s.markSpoken(c+2, now)...)
	}

	// Noise or filler: discard.
	return events
}

// strictnessFor returns the matching tier for word i: lenient words always
// use the lenient tier, hidden words the strict tier, visible words the
// middle tier.
func (s *Session) strictnessFor(i int) Strictness {
	w := s.scr.Word(i)
	switch {
	case w.Lenient:
		return StrictnessLenient
	case s.IsHidden(i):
		return StrictnessHidden
	default:
		return StrictnessVisible
	}
}

// markSpoken records word i as spoken and moves the cursor past it.
func (s *Session) markSpoken(i int, now time.Time) []Event {
	s.spoken[i] = struct{}{}
	delete(s.missed, i)
	s.cursor = i + 1
	s.lastAdvance = now
	return []Event{{Kind: EventWordSpoken, Index: i, Turn: s.turnID}}
}

// recordSkip flags a word jumped over by a lookahead match. Only hidden,
// non-lenient words count as missed.
func (s *Session) recordSkip(i int) []Event {
	w := s.scr.Word(i)
	if !s.IsHidden(i) || w.Lenient {
		return nil
	}
	if _, already := s.missed[i]; already {
		return nil
	}
	s.missed[i] = struct{}{}
	return []Event{{Kind: EventWordMissed, Index: i, Turn: s.turnID}}
}

// complete fires the turn-completion event exactly once per turn id. Multiple
// near-simultaneous final transcript batches can each reach the end of the
// script; the last-completed-turn guard makes the duplicates inert.
func (s *Session) complete() []Event {
	if s.lastCompletedTurn == s.turnID {
		return nil
	}
	s.lastCompletedTurn = s.turnID
	return []Event{{Kind: EventTurnCompleted, Index: -1, Turn: s.turnID}}
}

func sortedIndexes(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
