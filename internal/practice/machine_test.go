package practice

import (
	"testing"
)

// fakeBoard is a minimal Board for exercising the progression logic without
// a full alignment session.
type fakeBoard struct {
	size   int
	hidden map[int]struct{}
	order  []int
}

func newFakeBoard(size int) *fakeBoard {
	return &fakeBoard{size: size, hidden: make(map[int]struct{})}
}

func (b *fakeBoard) Hide(i int) {
	if _, ok := b.hidden[i]; ok {
		return
	}
	b.hidden[i] = struct{}{}
	b.order = append(b.order, i)
}

func (b *fakeBoard) Reveal(i int) {
	if _, ok := b.hidden[i]; !ok {
		return
	}
	delete(b.hidden, i)
	for k, idx := range b.order {
		if idx == i {
			b.order = append(b.order[:k], b.order[k+1:]...)
			break
		}
	}
}

func (b *fakeBoard) IsHidden(i int) bool {
	_, ok := b.hidden[i]
	return ok
}

func (b *fakeBoard) HiddenIndexes() []int {
	out := make([]int, len(b.order))
	copy(out, b.order)
	return out
}

func (b *fakeBoard) AllHidden() bool { return len(b.hidden) == b.size }

func testUnit(sentences ...string) *Unit {
	return &Unit{ID: "u1", Title: "test", Sentences: sentences}
}

func TestMachine_LearningRepsThenFading(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("consider the lilies"), ModePractice, DefaultParams(), nil)
	b := newFakeBoard(3)

	for i := 0; i < 2; i++ {
		rep := m.Apply(b, nil, nil)
		if rep.FadingStarted || len(rep.NewlyHidden) != 0 {
			t.Fatalf("rep %d: fading must not start before the required reps: %+v", i+1, rep)
		}
	}
	rep := m.Apply(b, nil, nil)
	if !rep.FadingStarted {
		t.Fatal("expected fading to start on the third clean read-through")
	}
	if len(rep.NewlyHidden) != 1 || rep.NewlyHidden[0] != 1 {
		t.Errorf("expected stoplist word 1 hidden first, got %v", rep.NewlyHidden)
	}
	if m.Stage() != StageFading {
		t.Errorf("expected stage fading, got %v", m.Stage())
	}
}

func TestMachine_UncleanLearningTurnDoesNotCount(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("consider the lilies"), ModePractice, DefaultParams(), nil)
	b := newFakeBoard(3)

	m.Apply(b, nil, nil)
	m.Apply(b, nil, []int{0}) // hesitation, does not increment reps
	m.Apply(b, nil, nil)
	rep := m.Apply(b, nil, nil)
	if !rep.FadingStarted {
		t.Error("expected fading after three clean reps regardless of the unclean turn")
	}
}

func TestMachine_HideCountEscalates(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("alpha beta gamma delta epsilon zeta eta"), ModePractice, DefaultParams(), nil)
	b := newFakeBoard(7)

	for i := 0; i < 3; i++ {
		m.Apply(b, nil, nil) // learning reps
	}
	if got := len(b.hidden); got != 1 {
		t.Fatalf("expected 1 hidden after fading starts, got %d", got)
	}
	rep := m.Apply(b, nil, nil)
	if len(rep.NewlyHidden) != 2 {
		t.Errorf("expected 2 newly hidden on second fading turn, got %v", rep.NewlyHidden)
	}
	rep = m.Apply(b, nil, nil)
	if len(rep.NewlyHidden) != 3 {
		t.Errorf("expected 3 newly hidden at the cap, got %v", rep.NewlyHidden)
	}
	rep = m.Apply(b, nil, nil)
	if len(rep.NewlyHidden) != 1 {
		t.Errorf("expected cap to hold with only 1 word left, got %v", rep.NewlyHidden)
	}
}

func TestMachine_FailureRestoresAndResets(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("alpha beta gamma delta epsilon zeta eta"), ModePractice, DefaultParams(), nil)
	b := newFakeBoard(7)

	for i := 0; i < 4; i++ {
		m.Apply(b, nil, nil) // fading starts on the third clean turn and hides 1, then 2
	}
	if got := len(b.hidden); got != 3 {
		t.Fatalf("expected 3 hidden before the failure, got %d", got)
	}
	mostRecent := b.order[len(b.order)-1]
	failed := b.order[0]

	rep := m.Apply(b, []int{failed}, nil)
	if rep.Clean {
		t.Fatal("expected unclean report")
	}
	if len(rep.Revealed) != 1 || rep.Revealed[0] != mostRecent {
		t.Errorf("expected most recently hidden word %d restored, got %v", mostRecent, rep.Revealed)
	}

	// The hide count snapped back to the floor.
	rep = m.Apply(b, nil, nil)
	if len(rep.NewlyHidden) != 1 {
		t.Errorf("expected hide count reset to floor after failure, got %v", rep.NewlyHidden)
	}
}

func TestMachine_FailedWordsProtected(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("alpha beta gamma delta"), ModePractice, DefaultParams(), nil)
	b := newFakeBoard(4)

	for i := 0; i < 3; i++ {
		m.Apply(b, nil, nil) // fading starts on the third clean turn, one word hidden
	}
	failed := b.order[0]

	rep := m.Apply(b, []int{failed}, nil)
	if len(rep.Revealed) != 1 || rep.Revealed[0] != failed {
		t.Fatalf("expected failed word %d restored, got %v", failed, rep.Revealed)
	}

	cp := m.Checkpoint(b)
	if len(cp.Protected) != 1 || cp.Protected[0] != failed {
		t.Errorf("expected failed word %d protected, got %v", failed, cp.Protected)
	}

	// Re-hide everything: the protected word must come back last.
	for !b.AllHidden() {
		rep := m.Apply(b, nil, nil)
		if len(rep.NewlyHidden) == 0 {
			t.Fatal("scheduler stalled before full hiding")
		}
	}
	if last := b.order[len(b.order)-1]; last != failed {
		t.Errorf("expected protected word %d hidden last, got order %v", failed, b.order)
	}
}

func TestMachine_SentenceAdvanceAndMastery(t *testing.T) {
	t.Parallel()

	params := DefaultParams()
	params.LearningReps = 1
	params.CleanTurnsToAdvance = 2
	m := NewMachine(testUnit("one two.", "three four."), ModePractice, params, nil)
	b := newFakeBoard(2)

	runScope := func(size int) Report {
		t.Helper()
		*b = *newFakeBoard(size)
		for i := 0; i < 100; i++ {
			rep := m.Apply(b, nil, nil)
			if rep.ScriptChanged || rep.Mastered {
				return rep
			}
		}
		t.Fatal("scope never finished")
		return Report{}
	}

	rep := runScope(2)
	if !rep.ScriptChanged || m.Sentence() != 1 || m.Scope() != ScopeSentence {
		t.Fatalf("expected advance to sentence 1, got %+v (sentence=%d scope=%v)", rep, m.Sentence(), m.Scope())
	}
	rep = runScope(2)
	if !rep.ScriptChanged || m.Scope() != ScopeBeat {
		t.Fatalf("expected advance to beat scope, got %+v (scope=%v)", rep, m.Scope())
	}
	rep = runScope(4)
	if !rep.Mastered || !m.Done() {
		t.Fatalf("expected mastery at the end of the beat scope, got %+v", rep)
	}

	// A finished machine ignores further outcomes.
	if rep := m.Apply(b, nil, nil); rep.Clean || rep.Mastered {
		t.Errorf("expected no-op after completion, got %+v", rep)
	}
}

func TestMachine_RecallMode(t *testing.T) {
	t.Parallel()

	m := NewMachine(testUnit("seek first the kingdom"), ModeRecall, DefaultParams(), nil)
	b := newFakeBoard(4)

	if m.Stage() != StageFading || m.Scope() != ScopeBeat {
		t.Fatalf("recall must start fading over the beat, got stage=%v scope=%v", m.Stage(), m.Scope())
	}

	// First clean turn fades aggressively.
	rep := m.Apply(b, nil, nil)
	if len(rep.NewlyHidden) != 3 {
		t.Fatalf("expected 3 hidden on first recall turn, got %v", rep.NewlyHidden)
	}

	// An error reveals exactly the failed words, nothing else.
	failed := rep.NewlyHidden[0]
	rep = m.Apply(b, []int{failed}, nil)
	if len(rep.Revealed) != 1 || rep.Revealed[0] != failed {
		t.Fatalf("expected only failed word %d revealed, got %v", failed, rep.Revealed)
	}

	for !b.AllHidden() {
		rep = m.Apply(b, nil, nil)
		if len(rep.NewlyHidden) == 0 {
			t.Fatal("recall fading stalled")
		}
	}

	m.Apply(b, nil, nil)
	rep = m.Apply(b, nil, nil)
	if !rep.RecallComplete || !m.Done() {
		t.Errorf("expected recall complete after two clean full-hidden turns, got %+v", rep)
	}
}

func TestMachine_ResumeFromCheckpoint(t *testing.T) {
	t.Parallel()

	unit := testUnit("one two.", "three four.")
	m := NewMachine(unit, ModePractice, DefaultParams(), nil)
	b := newFakeBoard(2)
	for i := 0; i < 4; i++ {
		m.Apply(b, nil, nil)
	}
	cp := m.Checkpoint(b)

	restored := Resume(unit, DefaultParams(), nil, cp)
	if restored.Stage() != m.Stage() || restored.Scope() != m.Scope() || restored.Sentence() != m.Sentence() {
		t.Errorf("resumed machine diverged: stage=%v scope=%v sentence=%d",
			restored.Stage(), restored.Scope(), restored.Sentence())
	}
	b2 := newFakeBoard(2)
	for _, i := range cp.Hidden {
		b2.Hide(i)
	}
	rep := restored.Apply(b2, nil, nil)
	if len(rep.NewlyHidden) != len(m.Apply(b, nil, nil).NewlyHidden) {
		t.Error("resumed machine hid a different batch size than the original")
	}
}
