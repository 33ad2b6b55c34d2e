// Package deepgram provides a Deepgram-backed transcription source using the
// Deepgram streaming WebSocket API. It implements the stt.Source interface
// and accepts raw PCM audio through stt.AudioSink.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-2"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Source.
type Option func(*Source)

// WithModel sets the Deepgram model to use (e.g., "nova-2", "base").
func WithModel(model string) Option {
	return func(s *Source) {
		s.model = model
	}
}

// WithEndpoint overrides the streaming endpoint URL. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(s *Source) {
		s.endpoint = endpoint
	}
}

// Source implements stt.Source backed by the Deepgram streaming API.
type Source struct {
	apiKey   string
	model    string
	endpoint string

	mu        sync.Mutex
	conn      *websocket.Conn
	snapshots chan stt.Snapshot
	audio     chan []byte
	done      chan struct{}
	closeOnce *sync.Once
	wg        sync.WaitGroup
	aborting  bool
}

// New creates a Deepgram Source. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Source, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	s := &Source{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Start opens the streaming WebSocket session and begins forwarding
// recognition results as snapshots.
func (s *Source) Start(ctx context.Context, cfg stt.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errors.New("deepgram: source already started")
	}

	wsURL, err := s.buildURL(cfg)
	if err != nil {
		return fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+s.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return fmt.Errorf("deepgram: dial: %w", err)
	}

	s.conn = conn
	s.snapshots = make(chan stt.Snapshot, 64)
	s.audio = make(chan []byte, 256)
	s.done = make(chan struct{})
	s.closeOnce = &sync.Once{}

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
	return nil
}

func (s *Source) buildURL(cfg stt.Config) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", s.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	for _, kw := range cfg.Keywords {
		// Deepgram keyword format: word:boost (e.g., "Nebuchadnezzar:5")
		q.Add("keywords", fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram. It implements
// [stt.AudioSink].
func (s *Source) SendAudio(chunk []byte) error {
	s.mu.Lock()
	audio, done := s.audio, s.done
	s.mu.Unlock()
	if audio == nil {
		return errors.New("deepgram: source is not started")
	}
	select {
	case <-done:
		return errors.New("deepgram: source is closed")
	case audio <- chunk:
		return nil
	}
}

// Snapshots returns the channel of recognition updates.
func (s *Source) Snapshots() <-chan stt.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

// Abort asks Deepgram to finalize the in-flight utterance and drops any
// snapshots already buffered but not yet consumed. Best-effort; the caller's
// turn-id guard covers whatever slips through.
func (s *Source) Abort() error {
	s.mu.Lock()
	conn, snapshots := s.conn, s.snapshots
	s.aborting = true
	s.mu.Unlock()
	if conn == nil {
		return errors.New("deepgram: source is not started")
	}

	for {
		select {
		case <-snapshots:
		default:
			return conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"Finalize"}`))
		}
	}
}

// Stop terminates the session cleanly, flushing pending audio first.
func (s *Source) Stop() error {
	s.mu.Lock()
	conn, once := s.conn, s.closeOnce
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	once.Do(func() {
		close(s.done)
		_ = conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		conn.Close(websocket.StatusNormalClosure, "source stopped")
	})
	return nil
}

func (s *Source) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain buffered audio before exiting.
			for {
				select {
				case chunk := <-s.audio:
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

func (s *Source) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.snapshots)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		snap, ok := ParseResult(msg)
		if !ok {
			continue
		}

		s.mu.Lock()
		dropping := s.aborting
		if dropping && snap.Final {
			// The finalize landed; resume delivery with the next utterance.
			s.aborting = false
		}
		s.mu.Unlock()
		if dropping {
			continue
		}

		select {
		case s.snapshots <- snap:
		case <-s.done:
		}
	}
}

// result is the JSON structure Deepgram sends for a Results event.
type result struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// ParseResult parses a raw Deepgram WebSocket message into a Snapshot.
// Returns false if the message should be ignored.
func ParseResult(data []byte) (stt.Snapshot, bool) {
	var resp result
	if err := json.Unmarshal(data, &resp); err != nil {
		return stt.Snapshot{}, false
	}
	if resp.Type != "Results" || len(resp.Channel.Alternatives) == 0 {
		return stt.Snapshot{}, false
	}

	alt := resp.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return stt.Snapshot{}, false
	}
	return stt.Snapshot{
		Text:       alt.Transcript,
		Final:      resp.IsFinal,
		Confidence: alt.Confidence,
	}, true
}

// Ensure Source implements the interfaces at compile time.
var (
	_ stt.Source    = (*Source)(nil)
	_ stt.AudioSink = (*Source)(nil)
)
