package feedback

import (
	"strings"
	"testing"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	stats := SessionStats{
		UnitTitle:      "Daniel 3 opening",
		Mode:           "practice",
		Turns:          6,
		CleanTurns:     4,
		MissedWords:    []string{"kingdom", "glory"},
		HesitatedWords: []string{"Nebuchadnezzar"},
		Mastered:       true,
	}

	prompt := BuildPrompt(stats)
	for _, want := range []string{
		"Daniel 3 opening",
		"practice",
		"6 (4 clean)",
		"kingdom, glory",
		"Nebuchadnezzar",
		"fully mastered",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "had to push past") {
		t.Error("prompt should omit empty failure lists")
	}
}

func TestBuildPrompt_IncompleteOutcome(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(SessionStats{UnitTitle: "u", Mode: "practice", Turns: 1})
	if !strings.Contains(prompt, "before mastery") {
		t.Errorf("prompt missing incomplete outcome line:\n%s", prompt)
	}
}

func TestCollectorAggregates(t *testing.T) {
	t.Parallel()

	c := NewCollector("unit", "practice", nil)

	c.StatesChanged([]align.WordState{
		{Text: "blessed"}, {Text: "are"}, {Text: "the"}, {Text: "peacemakers"},
	})
	c.WordEvent(align.Event{Kind: align.EventWordMissed, Index: 3, Turn: 1})
	c.WordEvent(align.Event{Kind: align.EventWordMissed, Index: 3, Turn: 2})
	c.WordEvent(align.Event{Kind: align.EventWordHesitated, Index: 0, Turn: 2})
	c.WordEvent(align.Event{Kind: align.EventWordSpoken, Index: 1, Turn: 2})
	c.TurnOutcome(practice.Report{Clean: false})
	c.TurnOutcome(practice.Report{Clean: true})
	c.UnitMastered(practice.Unit{ID: "u1"})

	stats := c.Stats()
	if stats.Turns != 2 || stats.CleanTurns != 1 {
		t.Errorf("turns = %d/%d clean, want 2/1", stats.Turns, stats.CleanTurns)
	}
	if len(stats.MissedWords) != 1 || stats.MissedWords[0] != "peacemakers" {
		t.Errorf("missed = %v, want deduplicated [peacemakers]", stats.MissedWords)
	}
	if len(stats.HesitatedWords) != 1 || stats.HesitatedWords[0] != "blessed" {
		t.Errorf("hesitated = %v, want [blessed]", stats.HesitatedWords)
	}
	if !stats.Mastered {
		t.Error("mastery flag not set")
	}
}

func TestCollectorForwards(t *testing.T) {
	t.Parallel()

	inner := &countingSink{}
	c := NewCollector("unit", "recall", inner)

	c.StatesChanged(nil)
	c.WordEvent(align.Event{Kind: align.EventWordSpoken})
	c.TurnOutcome(practice.Report{})
	c.PhaseChanged(practice.StageFading, practice.ScopeBeat, 0)
	c.RecallCompleted(practice.Unit{}, time.Time{})

	if inner.calls != 5 {
		t.Errorf("forwarded calls = %d, want 5", inner.calls)
	}
	if !c.Stats().RecallCompleted {
		t.Error("recall completion flag not set")
	}
}

type countingSink struct{ calls int }

func (s *countingSink) WordEvent(align.Event)                            { s.calls++ }
func (s *countingSink) StatesChanged([]align.WordState)                  { s.calls++ }
func (s *countingSink) TurnOutcome(practice.Report)                      { s.calls++ }
func (s *countingSink) PhaseChanged(practice.Stage, practice.Scope, int) { s.calls++ }
func (s *countingSink) UnitMastered(practice.Unit)                       { s.calls++ }
func (s *countingSink) RecallCompleted(practice.Unit, time.Time)         { s.calls++ }

func TestNewSummariserRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewSummariser(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
