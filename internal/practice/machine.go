package practice

import (
	"sort"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/fade"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/script"
)

// Board is the word-visibility surface the machine manipulates. It is the
// subset of the alignment session's API the progression logic needs.
type Board interface {
	Hide(i int)
	Reveal(i int)
	IsHidden(i int) bool
	HiddenIndexes() []int
	AllHidden() bool
}

// Params holds the tunable progression thresholds.
type Params struct {
	// LearningReps is the number of clean read-throughs required before
	// fading begins.
	LearningReps int

	// HideFloor and HideCap bound the per-turn hide count in practice mode.
	HideFloor int
	HideCap   int

	// RecallHideFloor and RecallHideCap bound the per-turn hide count in
	// recall mode, which fades in larger chunks.
	RecallHideFloor int
	RecallHideCap   int

	// CleanTurnsToAdvance is the number of consecutive clean full-hidden
	// turns required to finish a scope.
	CleanTurnsToAdvance int
}

// DefaultParams returns the standard thresholds.
func DefaultParams() Params {
	return Params{
		LearningReps:        3,
		HideFloor:           1,
		HideCap:             3,
		RecallHideFloor:     3,
		RecallHideCap:       5,
		CleanTurnsToAdvance: 2,
	}
}

func (p Params) sanitized() Params {
	if p.LearningReps < 1 {
		p.LearningReps = 1
	}
	if p.HideFloor < 1 {
		p.HideFloor = 1
	}
	if p.RecallHideFloor < 1 {
		p.RecallHideFloor = 1
	}
	if p.CleanTurnsToAdvance < 1 {
		p.CleanTurnsToAdvance = 1
	}
	return p
}

// Report describes what one turn outcome did to the progression. It is
// serialized as-is onto the gateway channel.
type Report struct {
	// Clean is true when the turn had no missed or hesitated words.
	Clean bool `json:"clean"`

	// FadingStarted is true on the turn that completes the learning reps.
	FadingStarted bool `json:"fading_started,omitempty"`

	// ScriptChanged is true when the machine advanced to a new scope. The
	// caller must install [Machine.CurrentScript] on its session.
	ScriptChanged bool `json:"script_changed,omitempty"`

	// Mastered is true when the beat scope finished in practice mode.
	Mastered bool `json:"mastered,omitempty"`

	// RecallComplete is true when the required clean full-hidden turns were
	// reached in recall mode.
	RecallComplete bool `json:"recall_complete,omitempty"`

	// NewlyHidden and Revealed list the word indices the machine hid or
	// restored in response to this turn.
	NewlyHidden []int `json:"newly_hidden,omitempty"`
	Revealed    []int `json:"revealed,omitempty"`
}

// Machine is the practice progression state machine for one unit. It consumes
// per-turn outcomes, mutates the hidden set on a [Board], and reports phase
// transitions. Not safe for concurrent use; the coach serializes access.
type Machine struct {
	unit   *Unit
	mode   SessionMode
	params Params
	sched  *fade.Scheduler
	esc    *fade.Escalator

	stage       Stage
	scope       Scope
	sentence    int
	reps        int
	cleanStreak int
	protected   map[int]struct{}
	done        bool
}

// NewMachine creates a machine for unit in the given mode. A nil scheduler
// gets the default policy. Practice mode starts at the first sub-sentence's
// learning stage; recall mode starts at the fading stage over the whole beat,
// fully visible.
func NewMachine(unit *Unit, mode SessionMode, params Params, sched *fade.Scheduler) *Machine {
	if sched == nil {
		sched = fade.NewScheduler()
	}
	params = params.sanitized()
	m := &Machine{
		unit:      unit,
		mode:      mode,
		params:    params,
		sched:     sched,
		protected: make(map[int]struct{}),
	}
	if mode.Recalls() {
		m.stage = StageFading
		m.scope = ScopeBeat
		m.esc = fade.NewEscalator(params.RecallHideFloor, params.RecallHideCap)
	} else {
		m.stage = StageLearning
		m.scope = ScopeSentence
		m.esc = fade.NewEscalator(params.HideFloor, params.HideCap)
	}
	return m
}

// Resume creates a machine restored from a persisted checkpoint. The caller
// must also install [Machine.CurrentScript] and replay cp.Hidden onto its
// board.
func Resume(unit *Unit, params Params, sched *fade.Scheduler, cp Checkpoint) *Machine {
	m := NewMachine(unit, cp.Mode, params, sched)
	m.stage = cp.Stage
	m.scope = cp.Scope
	m.sentence = cp.Sentence
	m.reps = cp.Reps
	m.cleanStreak = cp.CleanStreak
	m.esc.Restore(cp.HideCount)
	for _, i := range cp.Protected {
		m.protected[i] = struct{}{}
	}
	return m
}

// Mode returns the machine's session mode.
func (m *Machine) Mode() SessionMode { return m.mode }

// Stage returns the current learning stage.
func (m *Machine) Stage() Stage { return m.stage }

// Scope returns the current text scope.
func (m *Machine) Scope() Scope { return m.scope }

// Sentence returns the current sub-sentence index. Meaningful only in
// [ScopeSentence].
func (m *Machine) Sentence() int { return m.sentence }

// Done reports whether the machine reached mastery or recall completion.
func (m *Machine) Done() bool { return m.done }

// CurrentScript builds the script for the current scope.
func (m *Machine) CurrentScript() script.Script {
	if m.scope == ScopeBeat {
		return script.New(m.unit.Sentences...)
	}
	return script.New(m.unit.Sentences[m.sentence])
}

// Checkpoint captures the resumable progression state, reading the hidden set
// from board.
func (m *Machine) Checkpoint(board Board) Checkpoint {
	return Checkpoint{
		Mode:        m.mode,
		Stage:       m.stage,
		Scope:       m.scope,
		Sentence:    m.sentence,
		Reps:        m.reps,
		CleanStreak: m.cleanStreak,
		HideCount:   m.esc.Current(),
		Hidden:      board.HiddenIndexes(),
		Protected:   sortedSet(m.protected),
	}
}

// Apply consumes one finished turn's outcome and advances the progression.
// missed and hesitated are the word indices recorded during the turn. After a
// completed machine, Apply is a no-op.
func (m *Machine) Apply(board Board, missed, hesitated []int) Report {
	if m.done {
		return Report{}
	}

	failed := failedHidden(board, missed, hesitated)
	clean := len(missed) == 0 && len(hesitated) == 0
	rep := Report{Clean: clean}

	if !clean {
		m.fail(board, failed, &rep)
		return rep
	}

	switch m.stage {
	case StageLearning:
		m.reps++
		if m.reps >= m.params.LearningReps {
			m.stage = StageFading
			rep.FadingStarted = true
			m.hideNext(board, &rep)
		}
	case StageFading:
		if board.AllHidden() {
			m.cleanStreak++
			if m.cleanStreak >= m.params.CleanTurnsToAdvance {
				m.advance(&rep)
			}
		} else {
			m.hideNext(board, &rep)
		}
	}
	return rep
}

// fail handles a turn with errors: the progressive hide count resets, failed
// hidden words become protected, and the hidden set shrinks instead of
// growing. An error never terminates the session, it only slows it down.
func (m *Machine) fail(board Board, failed []int, rep *Report) {
	m.cleanStreak = 0
	m.esc.Reset()
	for _, i := range failed {
		m.protected[i] = struct{}{}
	}

	if m.mode.Recalls() {
		// Recall reveals exactly the words that failed and keeps going.
		for _, i := range failed {
			board.Reveal(i)
			rep.Revealed = append(rep.Revealed, i)
		}
		return
	}
	if m.stage != StageFading {
		return
	}
	// Practice restores the most recently hidden words, one per failure.
	n := len(failed)
	if n < 1 {
		n = 1
	}
	order := board.HiddenIndexes()
	for k := 0; k < n && len(order) > 0; k++ {
		last := order[len(order)-1]
		order = order[:len(order)-1]
		board.Reveal(last)
		rep.Revealed = append(rep.Revealed, last)
	}
}

// hideNext hides the next batch of words per the scheduler's policy and
// escalates the batch size for the following clean turn.
func (m *Machine) hideNext(board Board, rep *Report) {
	scr := m.CurrentScript()
	hidden := make(map[int]struct{})
	for _, i := range board.HiddenIndexes() {
		hidden[i] = struct{}{}
	}
	for k := 0; k < m.esc.Current(); k++ {
		idx, ok := m.sched.NextToHide(scr, hidden, m.protected)
		if !ok {
			break
		}
		board.Hide(idx)
		hidden[idx] = struct{}{}
		rep.NewlyHidden = append(rep.NewlyHidden, idx)
	}
	m.esc.Escalate()
}

// advance moves to the next scope: the next sub-sentence, then the combined
// beat, then mastery (or recall completion in recall mode).
func (m *Machine) advance(rep *Report) {
	if m.mode.Recalls() {
		m.done = true
		rep.RecallComplete = true
		return
	}
	if m.scope == ScopeBeat {
		m.done = true
		rep.Mastered = true
		return
	}
	if m.sentence+1 < len(m.unit.Sentences) {
		m.sentence++
	} else {
		m.scope = ScopeBeat
	}
	m.stage = StageLearning
	m.reps = 0
	m.cleanStreak = 0
	m.esc.Reset()
	m.protected = make(map[int]struct{})
	rep.ScriptChanged = true
}

func failedHidden(board Board, missed, hesitated []int) []int {
	set := make(map[int]struct{})
	for _, i := range missed {
		if board.IsHidden(i) {
			set[i] = struct{}{}
		}
	}
	for _, i := range hesitated {
		if board.IsHidden(i) {
			set[i] = struct{}{}
		}
	}
	return sortedSet(set)
}

func sortedSet(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
