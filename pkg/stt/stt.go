// Package stt defines the transcription Source interface the coaching core
// consumes.
//
// A Source wraps a continuous speech recognizer and emits Snapshot values:
// each snapshot carries the recognizer's cumulative best-guess text for the
// current utterance, not a diff. The core derives new tokens itself, so a
// Source only has to forward what the recognizer says, as often as it
// changes.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Snapshot is one recognition update. Text is the cumulative utterance text
// so far; Final marks the recognizer's committed result, after which the
// next snapshot starts a fresh utterance.
type Snapshot struct {
	Text       string
	Final      bool
	Confidence float64
}

// KeywordBoost is a vocabulary hint raising recognition probability for an
// uncommon word, such as a proper noun from the script being practiced.
type KeywordBoost struct {
	// Keyword is the exact word to boost.
	Keyword string

	// Boost is the intensity. Provider-specific scale; 1.0 is a mild boost.
	Boost float64
}

// Config describes a recognition session.
type Config struct {
	// Language is the BCP-47 tag recognition runs in (e.g., "en-US").
	// An empty string lets the provider pick its default.
	Language string

	// SampleRate is the audio sample rate in Hz for sources that accept raw
	// audio. Sources without an audio path ignore it.
	SampleRate int

	// Keywords lists vocabulary hints, typically the lenient words of the
	// active script. Providers without keyword support ignore them.
	Keywords []KeywordBoost
}

// Source is a continuous transcription stream.
//
// Callers must call Stop when the source is no longer needed; failing to do
// so may leak goroutines and network connections.
type Source interface {
	// Start begins continuous listening. The returned error covers only
	// session establishment; recognition errors end the Snapshots channel.
	Start(ctx context.Context, cfg Config) error

	// Stop ends listening and closes the Snapshots channel. Calling Stop
	// more than once is safe and returns nil.
	Stop() error

	// Abort discards any buffered partial results, best-effort. Used when
	// the core must guarantee no stale tokens leak into the next turn; the
	// core's turn-id guard is the second line of defense.
	Abort() error

	// Snapshots returns the channel of recognition updates. Closed when the
	// session ends.
	Snapshots() <-chan Snapshot
}

// AudioSink is implemented by sources that transcribe raw audio pushed by
// the caller (as opposed to sources fed transcripts directly).
type AudioSink interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for transcription.
	SendAudio(chunk []byte) error
}
