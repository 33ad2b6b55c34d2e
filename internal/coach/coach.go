// Package coach runs one live coaching session: it wires a transcription
// [stt.Source] to an alignment [align.Session] and a practice
// [practice.Machine], drives the hesitation monitor from a ticker, persists
// progression checkpoints, and pushes presentation events to a [Sink].
//
// All session state is guarded by a single mutex; transcript snapshots and
// hesitation ticks are serialized on one event loop in [Coach.Run].
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/fade"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/observe"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/recall"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/script"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
)

// The alignment session is the machine's visibility board.
var _ practice.Board = (*align.Session)(nil)

const (
	defaultTickInterval = 500 * time.Millisecond
	defaultPauseWindow  = 400 * time.Millisecond
	persistTimeout      = 5 * time.Second
	keywordBoost        = 2.0
)

// Config holds the per-session parameters. Zero values are replaced with
// defaults by [New].
type Config struct {
	// Language is the BCP-47 tag passed to the transcription source. Empty
	// lets the provider pick its default.
	Language string

	// TickInterval is how often the hesitation monitor runs. Default: 500ms.
	TickInterval time.Duration

	// PauseWindow is how long transcript snapshots are ignored after a turn
	// reset, on top of the turn-id guard. Default: 400ms.
	PauseWindow time.Duration

	// HesitateAfter, ForceAdvanceAfter, and LenientForceAfter are forwarded
	// to the alignment session. See [align.SessionConfig].
	HesitateAfter     time.Duration
	ForceAdvanceAfter time.Duration
	LenientForceAfter time.Duration
}

// Sink receives presentation events from a running coach, in event-loop
// order. Implementations must not block; the gateway buffers and serializes.
type Sink interface {
	// WordEvent delivers one word-level alignment outcome.
	WordEvent(ev align.Event)

	// StatesChanged delivers a full word-state refresh after any visibility
	// or script change.
	StatesChanged(states []align.WordState)

	// TurnOutcome delivers the progression result of a completed turn.
	TurnOutcome(rep practice.Report)

	// PhaseChanged fires when the machine moves to a new stage or scope.
	PhaseChanged(stage practice.Stage, scope practice.Scope, sentence int)

	// UnitMastered fires once when the unit reaches beat mastery.
	UnitMastered(unit practice.Unit)

	// RecallCompleted fires when a recall session finishes, with the next
	// scheduled recall time.
	RecallCompleted(unit practice.Unit, nextAt time.Time)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) WordEvent(align.Event)                            {}
func (NopSink) StatesChanged([]align.WordState)                  {}
func (NopSink) TurnOutcome(practice.Report)                      {}
func (NopSink) PhaseChanged(practice.Stage, practice.Scope, int) {}
func (NopSink) UnitMastered(practice.Unit)                       {}
func (NopSink) RecallCompleted(practice.Unit, time.Time)         {}

var _ Sink = NopSink{}

// Option is a functional option for configuring a [Coach].
type Option func(*Coach)

// WithConfig sets the timing parameters.
func WithConfig(cfg Config) Option {
	return func(c *Coach) { c.cfg = cfg }
}

// WithStore enables checkpoint and recall persistence. Without it progression
// state lives only in memory.
func WithStore(st store.UnitStore) Option {
	return func(c *Coach) { c.st = st }
}

// WithSink sets the presentation event sink. Default: [NopSink].
func WithSink(sink Sink) Option {
	return func(c *Coach) { c.sink = sink }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coach) { c.metrics = m }
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coach) { c.logger = logger }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coach) { c.now = now }
}

// WithMatcher sets the word matcher. Default: [align.NewMatcher] defaults.
func WithMatcher(m *align.Matcher) Option {
	return func(c *Coach) { c.matcher = m }
}

// WithParams sets the progression thresholds. Default: [practice.DefaultParams].
func WithParams(p practice.Params) Option {
	return func(c *Coach) { c.params = p }
}

// WithFadeScheduler sets the hiding policy. Default: [fade.NewScheduler] defaults.
func WithFadeScheduler(s *fade.Scheduler) Option {
	return func(c *Coach) { c.fadeSched = s }
}

// WithRecallScheduler sets the recall scheduler. Default: [recall.NewScheduler]
// defaults.
func WithRecallScheduler(s *recall.Scheduler) Option {
	return func(c *Coach) { c.recSched = s }
}

// WithCheckpoint resumes the progression from a persisted checkpoint instead
// of starting fresh. The checkpoint's mode overrides the mode passed to [New].
func WithCheckpoint(cp practice.Checkpoint) Option {
	return func(c *Coach) { c.resume = &cp }
}

// Coach coordinates one live session over one unit.
type Coach struct {
	cfg     Config
	source  stt.Source
	st      store.UnitStore
	sink    Sink
	metrics *observe.Metrics
	logger  *slog.Logger
	now     func() time.Time

	matcher   *align.Matcher
	params    practice.Params
	fadeSched *fade.Scheduler
	recSched  *recall.Scheduler
	resume    *practice.Checkpoint

	mu          sync.Mutex
	unit        *practice.Unit
	machine     *practice.Machine
	session     *align.Session
	pauseUntil  time.Time
	turnStarted time.Time

	persistWG sync.WaitGroup
}

// New creates a coach for unit in the given mode, reading transcripts from
// source. The unit must have at least one sentence.
func New(unit *practice.Unit, mode practice.SessionMode, source stt.Source, opts ...Option) (*Coach, error) {
	if len(unit.Sentences) == 0 {
		return nil, fmt.Errorf("coach: unit %q has no sentences", unit.ID)
	}
	c := &Coach{
		source: source,
		sink:   NopSink{},
		logger: slog.Default(),
		now:    time.Now,
		params: practice.DefaultParams(),
		unit:   unit,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cfg.TickInterval <= 0 {
		c.cfg.TickInterval = defaultTickInterval
	}
	if c.cfg.PauseWindow <= 0 {
		c.cfg.PauseWindow = defaultPauseWindow
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.matcher == nil {
		c.matcher = align.NewMatcher()
	}
	if c.recSched == nil {
		c.recSched = recall.NewScheduler()
	}
	c.logger = c.logger.With("component", "coach", "unit", unit.ID)

	if c.resume != nil {
		c.machine = practice.Resume(unit, c.params, c.fadeSched, *c.resume)
	} else {
		c.machine = practice.NewMachine(unit, mode, c.params, c.fadeSched)
	}

	now := c.now()
	c.session = align.NewSession(c.machine.CurrentScript(), c.matcher, align.SessionConfig{
		HesitateAfter:     c.cfg.HesitateAfter,
		ForceAdvanceAfter: c.cfg.ForceAdvanceAfter,
		LenientForceAfter: c.cfg.LenientForceAfter,
	}, now)
	if c.resume != nil {
		for _, i := range c.resume.Hidden {
			c.session.Hide(i)
		}
	}
	c.turnStarted = now
	return c, nil
}

// Run starts the transcription source and processes its snapshots together
// with the hesitation ticker until ctx is cancelled or the source's snapshot
// channel closes. It blocks; callers run it in a goroutine.
func (c *Coach) Run(ctx context.Context) error {
	if err := c.source.Start(ctx, c.sttConfig()); err != nil {
		return fmt.Errorf("coach: start source: %w", err)
	}
	defer func() {
		if err := c.source.Stop(); err != nil {
			c.logger.Warn("stopping source", "error", err)
		}
	}()

	c.metrics.ActiveSessions.Add(ctx, 1)
	defer c.metrics.ActiveSessions.Add(ctx, -1)
	defer c.persistWG.Wait()

	c.sink.StatesChanged(c.States())
	c.logger.Info("session started", "mode", c.machine.Mode().String())

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-c.source.Snapshots():
			if !ok {
				c.logger.Info("transcription source closed")
				return nil
			}
			c.HandleSnapshot(ctx, snap)
		case <-ticker.C:
			c.HandleTick(ctx)
		}
	}
}

// sttConfig builds the recognition config, boosting the unit's proper nouns
// so the recognizer stands a chance on them.
func (c *Coach) sttConfig() stt.Config {
	full := script.New(c.unit.Sentences...)
	seen := make(map[string]struct{})
	var keywords []stt.KeywordBoost
	for i := 0; i < full.Len(); i++ {
		w := full.Word(i)
		if !w.Lenient {
			continue
		}
		if _, ok := seen[w.Text]; ok {
			continue
		}
		seen[w.Text] = struct{}{}
		keywords = append(keywords, stt.KeywordBoost{Keyword: w.Text, Boost: keywordBoost})
	}
	return stt.Config{Language: c.cfg.Language, Keywords: keywords}
}

// HandleSnapshot feeds one transcript snapshot through the alignment session.
// Snapshots arriving inside the post-reset pause window are dropped.
func (c *Coach) HandleSnapshot(ctx context.Context, snap stt.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Before(c.pauseUntil) {
		return
	}
	events := c.session.Advance(snap.Text, snap.Final, c.session.TurnID(), now)
	c.dispatch(ctx, events, now)
}

// HandleTick runs one hesitation check.
func (c *Coach) HandleTick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	events := c.session.CheckHesitation(now)
	c.dispatch(ctx, events, now)
}

// Reveal unmasks word i on user request and pushes the refreshed states.
func (c *Coach) Reveal(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Reveal(i)
	c.sink.StatesChanged(c.session.States())
}

// StartTurn abandons the current turn on user request and returns the new
// turn id.
func (c *Coach) StartTurn() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resetTurn(c.now())
}

// States returns the current per-word presentation states.
func (c *Coach) States() []align.WordState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.States()
}

// Unit returns a copy of the unit's current state.
func (c *Coach) Unit() practice.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.unit
}

// Done reports whether the progression has finished.
func (c *Coach) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Done()
}

// dispatch forwards alignment events to metrics and the sink, and finishes
// the turn when completion fires. Callers hold the mutex.
func (c *Coach) dispatch(ctx context.Context, events []align.Event, now time.Time) {
	for _, ev := range events {
		switch ev.Kind {
		case align.EventWordSpoken:
			c.metrics.WordsMatched.Add(ctx, 1)
		case align.EventWordMissed:
			c.metrics.WordsMissed.Add(ctx, 1)
		case align.EventWordHesitated:
			c.metrics.WordsHesitated.Add(ctx, 1)
		case align.EventWordForced:
			c.metrics.WordsForced.Add(ctx, 1)
		}
		if ev.Kind == align.EventTurnCompleted {
			c.finishTurn(ctx, now)
			continue
		}
		c.sink.WordEvent(ev)
	}
}

// finishTurn applies the turn outcome to the progression machine and handles
// the resulting transitions. Callers hold the mutex.
func (c *Coach) finishTurn(ctx context.Context, now time.Time) {
	mode := c.machine.Mode().String()
	missed := c.session.Missed()
	hesitated := c.session.Hesitated()

	rep := c.machine.Apply(c.session, missed, hesitated)

	c.metrics.TurnDuration.Record(ctx, now.Sub(c.turnStarted).Seconds(),
		metric.WithAttributes(observe.Attr("mode", mode)))
	c.metrics.RecordTurnCompleted(ctx, mode, rep.Clean)
	c.logger.Info("turn completed",
		"turn", c.session.TurnID(),
		"clean", rep.Clean,
		"missed", len(missed),
		"hesitated", len(hesitated),
	)
	c.sink.TurnOutcome(rep)

	switch {
	case rep.Mastered:
		c.handleMastery(ctx, now)
		return
	case rep.RecallComplete:
		c.handleRecallComplete(ctx, now)
		return
	case rep.ScriptChanged:
		c.session.SetScript(c.machine.CurrentScript(), now)
		c.sink.PhaseChanged(c.machine.Stage(), c.machine.Scope(), c.machine.Sentence())
	default:
		c.session.ResetTurn(now)
	}

	c.unit.Checkpoint = c.machine.Checkpoint(c.session)
	cp := c.unit.Checkpoint
	c.persist(ctx, "save_checkpoint", func(ctx context.Context) error {
		return c.st.SaveCheckpoint(ctx, c.unit.ID, cp)
	})

	c.afterReset(now)
}

// handleMastery records beat mastery and kicks off the short-term recall
// schedule. Callers hold the mutex.
func (c *Coach) handleMastery(ctx context.Context, now time.Time) {
	c.unit.Mastered = true
	c.unit.MasteredAt = now
	c.unit.RecallSession = 0
	schedule := c.recSched.Upcoming(now, 0, now, c.unit.Deadline)
	c.unit.RecallTimes = schedule
	c.unit.NextRecallAt = schedule[0]

	c.metrics.UnitsMastered.Add(ctx, 1)
	c.logger.Info("unit mastered", "next_recall", schedule[0])

	id := c.unit.ID
	c.persist(ctx, "mark_mastered", func(ctx context.Context) error {
		return c.st.MarkMastered(ctx, id, now)
	})
	c.persist(ctx, "update_recall", func(ctx context.Context) error {
		return c.st.UpdateRecall(ctx, id, 0, time.Time{}, schedule)
	})
	c.sink.UnitMastered(*c.unit)
}

// handleRecallComplete records the finished recall. A scheduled recall
// advances the session counter and recomputes the upcoming schedule,
// compressed toward the deadline; a pre-beat warm-up only stamps the recall
// time, leaving the spaced schedule untouched. Callers hold the mutex.
func (c *Coach) handleRecallComplete(ctx context.Context, now time.Time) {
	c.unit.LastRecallAt = now
	if c.machine.Mode() != practice.ModePreBeatRecall {
		c.unit.RecallSession++
		c.unit.RecallTimes = c.recSched.Upcoming(c.unit.MasteredAt, c.unit.RecallSession, now, c.unit.Deadline)
		c.unit.NextRecallAt = c.unit.RecallTimes[0]
	}

	c.metrics.RecallsCompleted.Add(ctx, 1)
	c.logger.Info("recall completed",
		"mode", c.machine.Mode().String(),
		"session", c.unit.RecallSession,
		"next_recall", c.unit.NextRecallAt,
	)

	id, session := c.unit.ID, c.unit.RecallSession
	schedule := c.unit.RecallTimes
	c.persist(ctx, "update_recall", func(ctx context.Context) error {
		return c.st.UpdateRecall(ctx, id, session, now, schedule)
	})
	c.sink.RecallCompleted(*c.unit, c.unit.NextRecallAt)
}

// resetTurn starts a fresh turn, drops any buffered recognition, and opens
// the pause window. Callers hold the mutex.
func (c *Coach) resetTurn(now time.Time) int {
	turn := c.session.ResetTurn(now)
	c.afterReset(now)
	return turn
}

// afterReset is the shared tail of every turn boundary: abort buffered
// recognition and arm the pause window. Callers hold the mutex.
func (c *Coach) afterReset(now time.Time) {
	if err := c.source.Abort(); err != nil {
		c.logger.Warn("aborting source buffer", "error", err)
	}
	c.pauseUntil = now.Add(c.cfg.PauseWindow)
	c.turnStarted = now
	c.sink.StatesChanged(c.session.States())
}

// persist runs a store operation fire-and-forget: failures are logged and
// counted, never surfaced to the session flow. No-op without a store.
func (c *Coach) persist(ctx context.Context, op string, fn func(context.Context) error) {
	if c.st == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.persistWG.Add(1)
	go func() {
		defer c.persistWG.Done()
		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.logger.Error("persistence failed", "op", op, "error", err)
			c.metrics.RecordStoreError(ctx, op)
		}
	}()
}
