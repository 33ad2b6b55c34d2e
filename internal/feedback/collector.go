package feedback

import (
	"sync"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/coach"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

// Collector is a [coach.Sink] that aggregates session statistics while
// forwarding every event to an inner sink. Wrap the gateway's sink with it to
// have summary material ready when the session ends.
type Collector struct {
	inner coach.Sink

	mu     sync.Mutex
	stats  SessionStats
	states []align.WordState
	seen   map[string]map[string]struct{}
}

var _ coach.Sink = (*Collector)(nil)

// NewCollector creates a Collector for the named unit forwarding to inner. A
// nil inner sink discards the forwarded events.
func NewCollector(unitTitle, mode string, inner coach.Sink) *Collector {
	if inner == nil {
		inner = coach.NopSink{}
	}
	return &Collector{
		inner: inner,
		stats: SessionStats{UnitTitle: unitTitle, Mode: mode},
		seen:  make(map[string]map[string]struct{}),
	}
}

// Stats returns a copy of the aggregated statistics.
func (c *Collector) Stats() SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.MissedWords = append([]string(nil), c.stats.MissedWords...)
	out.HesitatedWords = append([]string(nil), c.stats.HesitatedWords...)
	out.ForcedWords = append([]string(nil), c.stats.ForcedWords...)
	return out
}

// WordEvent implements [coach.Sink].
func (c *Collector) WordEvent(ev align.Event) {
	c.mu.Lock()
	switch ev.Kind {
	case align.EventWordMissed:
		c.stats.MissedWords = c.record("missed", ev.Index, c.stats.MissedWords)
	case align.EventWordHesitated:
		c.stats.HesitatedWords = c.record("hesitated", ev.Index, c.stats.HesitatedWords)
	case align.EventWordForced:
		c.stats.ForcedWords = c.record("forced", ev.Index, c.stats.ForcedWords)
	}
	c.mu.Unlock()
	c.inner.WordEvent(ev)
}

// record deduplicates by word text within one failure kind. Must be called
// with c.mu held.
func (c *Collector) record(kind string, index int, list []string) []string {
	if index < 0 || index >= len(c.states) {
		return list
	}
	text := c.states[index].Text
	set, ok := c.seen[kind]
	if !ok {
		set = make(map[string]struct{})
		c.seen[kind] = set
	}
	if _, dup := set[text]; dup {
		return list
	}
	set[text] = struct{}{}
	return append(list, text)
}

// StatesChanged implements [coach.Sink], caching the word texts so later
// events can be named.
func (c *Collector) StatesChanged(states []align.WordState) {
	c.mu.Lock()
	c.states = states
	c.mu.Unlock()
	c.inner.StatesChanged(states)
}

// TurnOutcome implements [coach.Sink].
func (c *Collector) TurnOutcome(rep practice.Report) {
	c.mu.Lock()
	c.stats.Turns++
	if rep.Clean {
		c.stats.CleanTurns++
	}
	c.mu.Unlock()
	c.inner.TurnOutcome(rep)
}

// PhaseChanged implements [coach.Sink].
func (c *Collector) PhaseChanged(stage practice.Stage, scope practice.Scope, sentence int) {
	c.inner.PhaseChanged(stage, scope, sentence)
}

// UnitMastered implements [coach.Sink].
func (c *Collector) UnitMastered(unit practice.Unit) {
	c.mu.Lock()
	c.stats.Mastered = true
	c.mu.Unlock()
	c.inner.UnitMastered(unit)
}

// RecallCompleted implements [coach.Sink].
func (c *Collector) RecallCompleted(unit practice.Unit, nextAt time.Time) {
	c.mu.Lock()
	c.stats.RecallCompleted = true
	c.mu.Unlock()
	c.inner.RecallCompleted(unit, nextAt)
}
