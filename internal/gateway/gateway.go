// Package gateway exposes live coaching sessions over a WebSocket channel.
//
// A client opens one connection per session, starts it with a "start"
// message, and then exchanges JSON frames: inbound transcript snapshots
// (when the browser runs its own recognizer), reveal taps, and turn
// restarts; outbound word events, state refreshes, turn outcomes, phase
// changes, and mastery notifications. Binary frames carry raw audio and are
// forwarded to the transcription source when it accepts audio.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/coach"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/feedback"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/observe"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
)

// ClientMessage is one inbound frame.
type ClientMessage struct {
	// Type selects the action: "start", "transcript", "reveal", "restart",
	// or "finish".
	Type string `json:"type"`

	// UnitID and Mode configure a "start" message. Mode is "practice",
	// "recall", "pre_beat_recall", or "rest" (alias "coffee_break"); empty
	// defaults to practice.
	UnitID string `json:"unit_id,omitempty"`
	Mode   string `json:"mode,omitempty"`

	// RestSeconds overrides the configured break length when starting a
	// rest session.
	RestSeconds int `json:"rest_seconds,omitempty"`

	// Text and Final carry a "transcript" snapshot.
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`

	// Index is the word index of a "reveal" tap.
	Index int `json:"index,omitempty"`
}

// ServerMessage is one outbound frame.
type ServerMessage struct {
	// Type is one of "word", "states", "turn", "turn_started", "phase",
	// "mastered", "recall", "rest", "summary", or "error".
	Type string `json:"type"`

	Event string `json:"event,omitempty"`
	Index int    `json:"index,omitempty"`
	Turn  int    `json:"turn,omitempty"`

	// Seconds is the length of a started rest break.
	Seconds int `json:"seconds,omitempty"`

	States []align.WordState `json:"states,omitempty"`

	Report *practice.Report `json:"report,omitempty"`

	Stage    string `json:"stage,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Sentence int    `json:"sentence,omitempty"`

	Unit         *practice.Unit `json:"unit,omitempty"`
	NextRecallAt *time.Time     `json:"next_recall_at,omitempty"`

	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// defaultRestDuration is the break length when neither the handler nor the
// client sets one.
const defaultRestDuration = 5 * time.Minute

// SourceFactory builds the transcription source for one session. Handlers
// serving browser-side recognition return a source that never emits (the
// client pushes "transcript" frames instead).
type SourceFactory func() (stt.Source, error)

// Summariser turns aggregated session statistics into a short coaching note.
// Satisfied by [feedback.Summariser].
type Summariser interface {
	Summarise(ctx context.Context, stats feedback.SessionStats) (string, error)
}

// Option is a functional option for configuring a [Handler].
type Option func(*Handler)

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithCoachConfig sets the timing parameters passed to every session.
func WithCoachConfig(cfg coach.Config) Option {
	return func(h *Handler) { h.coachCfg = cfg }
}

// WithCoachOptions appends extra options passed to every session's coach,
// such as matcher thresholds or progression parameters.
func WithCoachOptions(opts ...coach.Option) Option {
	return func(h *Handler) { h.coachOpts = append(h.coachOpts, opts...) }
}

// WithOriginPatterns sets the allowed WebSocket origins. Default: same
// origin only.
func WithOriginPatterns(patterns []string) Option {
	return func(h *Handler) { h.origins = patterns }
}

// WithSummariser enables post-session feedback. Sessions then aggregate
// statistics and answer "finish" messages with a generated summary.
func WithSummariser(s Summariser) Option {
	return func(h *Handler) { h.summariser = s }
}

// WithRestDuration sets the default length of a rest session. Default: 5
// minutes. Clients may override it per break via RestSeconds.
func WithRestDuration(d time.Duration) Option {
	return func(h *Handler) { h.restDuration = d }
}

// Handler upgrades HTTP requests to WebSocket coaching sessions.
type Handler struct {
	st           store.UnitStore
	newSource    SourceFactory
	logger       *slog.Logger
	metrics      *observe.Metrics
	coachCfg     coach.Config
	coachOpts    []coach.Option
	origins      []string
	summariser   Summariser
	restDuration time.Duration
}

// New creates a Handler loading units from st and building a transcription
// source per session via newSource.
func New(st store.UnitStore, newSource SourceFactory, opts ...Option) *Handler {
	h := &Handler{
		st:        st,
		newSource: newSource,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	if h.restDuration <= 0 {
		h.restDuration = defaultRestDuration
	}
	h.logger = h.logger.With("component", "gateway")
	return h
}

// Register adds the WebSocket and unit catalogue routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /units", h.ListUnits)
	mux.HandleFunc("GET /units/{id}", h.GetUnit)
}

// ServeWS upgrades the request and runs one coaching session until the
// client disconnects or the context ends.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	if err := h.serve(r.Context(), conn); err != nil {
		h.logger.Info("session closed", "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := newConnSink(ctx, conn, h.logger)

	var start ClientMessage
	if err := wsjson.Read(ctx, conn, &start); err != nil {
		return fmt.Errorf("gateway: read start message: %w", err)
	}
	if start.Type != "start" {
		err := fmt.Errorf("gateway: first message must be start, got %q", start.Type)
		sink.sendError(err)
		return err
	}
	mode, err := parseMode(start.Mode)
	if err != nil {
		sink.sendError(err)
		return err
	}
	if mode == practice.ModeRest {
		return h.serveRest(ctx, sink, start)
	}

	c, source, col, err := h.startSession(ctx, start, mode, sink)
	if err != nil {
		sink.sendError(err)
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	audio, _ := source.(stt.AudioSink)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			cancel()
			<-runErr
			return fmt.Errorf("gateway: read: %w", err)
		}
		if typ == websocket.MessageBinary {
			if audio == nil {
				continue
			}
			if err := audio.SendAudio(data); err != nil {
				h.logger.Warn("forwarding audio", "error", err)
			}
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sink.sendError(fmt.Errorf("gateway: malformed message: %w", err))
			continue
		}
		h.handleMessage(ctx, c, sink, col, msg)
	}
}

// serveRest runs a timed pause. No coach, alignment, or transcription is
// active; the break ends with a normal close.
func (h *Handler) serveRest(ctx context.Context, sink *connSink, msg ClientMessage) error {
	d := h.restDuration
	if msg.RestSeconds > 0 {
		d = time.Duration(msg.RestSeconds) * time.Second
	}
	h.logger.Info("rest started", "duration", d)
	sink.send(ServerMessage{Type: "rest", Event: "started", Seconds: int(d / time.Second)})

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	sink.send(ServerMessage{Type: "rest", Event: "over"})
	return nil
}

// startSession loads the unit named by the client's "start" message and
// builds its coach. The returned collector is nil unless a summariser is
// configured.
func (h *Handler) startSession(ctx context.Context, msg ClientMessage, mode practice.SessionMode, sink *connSink) (*coach.Coach, stt.Source, *feedback.Collector, error) {
	unit, err := h.st.GetUnit(ctx, msg.UnitID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gateway: load unit %q: %w", msg.UnitID, err)
	}

	source, err := h.newSource()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gateway: build source: %w", err)
	}

	var coachSink coach.Sink = sink
	var col *feedback.Collector
	if h.summariser != nil {
		col = feedback.NewCollector(unit.Title, mode.String(), sink)
		coachSink = col
	}

	opts := []coach.Option{
		coach.WithConfig(h.coachCfg),
		coach.WithStore(h.st),
		coach.WithSink(coachSink),
		coach.WithMetrics(h.metrics),
		coach.WithLogger(h.logger),
	}
	if mode == practice.ModePractice && unit.Checkpoint.Mode == practice.ModePractice &&
		(unit.Checkpoint.Reps > 0 || len(unit.Checkpoint.Hidden) > 0 || unit.Checkpoint.Sentence > 0) {
		opts = append(opts, coach.WithCheckpoint(unit.Checkpoint))
	}
	opts = append(opts, h.coachOpts...)

	c, err := coach.New(&unit, mode, source, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	h.logger.Info("session started", "unit", unit.ID, "mode", mode.String())
	return c, source, col, nil
}

func (h *Handler) handleMessage(ctx context.Context, c *coach.Coach, sink *connSink, col *feedback.Collector, msg ClientMessage) {
	// Once the unit is mastered or recalled the session is complete;
	// practice input is refused until the client starts a new session.
	if c.Done() && (msg.Type == "transcript" || msg.Type == "reveal" || msg.Type == "restart") {
		sink.sendError(fmt.Errorf("gateway: session complete, start a new session"))
		return
	}
	switch msg.Type {
	case "transcript":
		c.HandleSnapshot(ctx, stt.Snapshot{Text: msg.Text, Final: msg.Final})
	case "reveal":
		c.Reveal(msg.Index)
	case "restart":
		turn := c.StartTurn()
		sink.send(ServerMessage{Type: "turn_started", Turn: turn})
	case "finish":
		h.sendSummary(ctx, sink, col)
	case "start":
		sink.sendError(fmt.Errorf("gateway: session already started"))
	default:
		sink.sendError(fmt.Errorf("gateway: unknown message type %q", msg.Type))
	}
}

// sendSummary answers a "finish" message with a generated coaching note.
func (h *Handler) sendSummary(ctx context.Context, sink *connSink, col *feedback.Collector) {
	if col == nil {
		sink.sendError(fmt.Errorf("gateway: feedback summaries not enabled"))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	text, err := h.summariser.Summarise(ctx, col.Stats())
	if err != nil {
		h.logger.Warn("summarising session", "error", err)
		sink.sendError(fmt.Errorf("gateway: summary unavailable"))
		return
	}
	sink.send(ServerMessage{Type: "summary", Summary: text})
}

func parseMode(s string) (practice.SessionMode, error) {
	switch s {
	case "", "practice":
		return practice.ModePractice, nil
	case "recall":
		return practice.ModeRecall, nil
	case "pre_beat_recall":
		return practice.ModePreBeatRecall, nil
	case "rest", "coffee_break":
		return practice.ModeRest, nil
	}
	return 0, fmt.Errorf("gateway: unknown mode %q", s)
}

// connSink serializes coach events onto one WebSocket connection. Writes are
// mutex-guarded: the coach loop and the read loop both emit.
type connSink struct {
	ctx    context.Context
	conn   *websocket.Conn
	logger *slog.Logger

	mu sync.Mutex
}

func newConnSink(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) *connSink {
	return &connSink{ctx: ctx, conn: conn, logger: logger}
}

var _ coach.Sink = (*connSink)(nil)

func (s *connSink) send(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		s.logger.Debug("dropping outbound message", "type", msg.Type, "error", err)
	}
}

func (s *connSink) sendError(err error) {
	s.send(ServerMessage{Type: "error", Error: err.Error()})
}

func (s *connSink) WordEvent(ev align.Event) {
	s.send(ServerMessage{Type: "word", Event: ev.Kind.String(), Index: ev.Index, Turn: ev.Turn})
}

func (s *connSink) StatesChanged(states []align.WordState) {
	s.send(ServerMessage{Type: "states", States: states})
}

func (s *connSink) TurnOutcome(rep practice.Report) {
	s.send(ServerMessage{Type: "turn", Report: &rep})
}

func (s *connSink) PhaseChanged(stage practice.Stage, scope practice.Scope, sentence int) {
	s.send(ServerMessage{
		Type:     "phase",
		Stage:    stage.String(),
		Scope:    scope.String(),
		Sentence: sentence,
	})
}

func (s *connSink) UnitMastered(unit practice.Unit) {
	next := unit.NextRecallAt
	s.send(ServerMessage{Type: "mastered", Unit: &unit, NextRecallAt: &next})
}

func (s *connSink) RecallCompleted(unit practice.Unit, nextAt time.Time) {
	s.send(ServerMessage{Type: "recall", Unit: &unit, NextRecallAt: &nextAt})
}
