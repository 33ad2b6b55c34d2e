// Package config provides the configuration schema and loader for the
// sermable coaching server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ValidSTTProviders lists the known transcription provider names. Used by
// [Validate] to warn about unrecognised names.
var ValidSTTProviders = []string{"deepgram", "gateway", "mock"}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	STT      STTConfig      `yaml:"stt"`
	Coach    CoachConfig    `yaml:"coach"`
	Match    MatchConfig    `yaml:"match"`
	Practice PracticeConfig `yaml:"practice"`
	Fade     FadeConfig     `yaml:"fade"`
	Recall   RecallConfig   `yaml:"recall"`
	Store    StoreConfig    `yaml:"store"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// STTConfig selects and configures the transcription source.
type STTConfig struct {
	// Provider selects the transcription source implementation. With
	// "gateway" the browser pushes transcript snapshots over the WebSocket
	// channel and no server-side recognizer runs.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a recognition model (e.g., "nova-2").
	Model string `yaml:"model"`

	// Language is the BCP 47 language tag recognition runs in.
	Language string `yaml:"language"`
}

// CoachConfig holds the timing parameters of a live coaching session.
type CoachConfig struct {
	// TickInterval is how often hesitation is checked. Default: 500ms.
	TickInterval time.Duration `yaml:"tick_interval"`

	// PauseWindow is how long incoming transcript events are ignored after
	// a turn reset, on top of the turn-id guard. Default: 400ms.
	PauseWindow time.Duration `yaml:"pause_window"`

	// HesitateAfter is the stall time before a hidden word is flagged
	// hesitated. Default: 3s.
	HesitateAfter time.Duration `yaml:"hesitate_after"`

	// ForceAdvanceAfter is the stall time before the cursor is pushed past
	// a stuck word. Default: 6s.
	ForceAdvanceAfter time.Duration `yaml:"force_advance_after"`

	// LenientForceAfter is the force-advance window for proper-noun words.
	// Default: 3s.
	LenientForceAfter time.Duration `yaml:"lenient_force_after"`
}

// MatchConfig holds word-matching thresholds.
type MatchConfig struct {
	// ShortExactLen is the normalized length at or below which hidden words
	// require exact matches. Default: 2.
	ShortExactLen int `yaml:"short_exact_len"`

	// VisibleOverlap is the character-overlap ratio the visible tier
	// requires. Default: 0.60.
	VisibleOverlap float64 `yaml:"visible_overlap"`

	// LenientOverlap is the character-overlap ratio the lenient tier
	// accepts. Default: 0.35.
	LenientOverlap float64 `yaml:"lenient_overlap"`
}

// PracticeConfig holds the progression thresholds.
type PracticeConfig struct {
	// LearningReps is the clean read-throughs required before fading.
	// Default: 3.
	LearningReps int `yaml:"learning_reps"`

	// HideFloor and HideCap bound the per-turn hide count in practice mode.
	// Defaults: 1 and 3.
	HideFloor int `yaml:"hide_floor"`
	HideCap   int `yaml:"hide_cap"`

	// RecallHideFloor and RecallHideCap bound the per-turn hide count in
	// recall mode. Defaults: 3 and 5.
	RecallHideFloor int `yaml:"recall_hide_floor"`
	RecallHideCap   int `yaml:"recall_hide_cap"`

	// CleanTurnsToAdvance is the consecutive clean full-hidden turns needed
	// to finish a scope. Default: 2.
	CleanTurnsToAdvance int `yaml:"clean_turns_to_advance"`
}

// FadeConfig holds the hiding-policy parameters.
type FadeConfig struct {
	// Stoplist replaces the built-in function-word list when non-empty.
	Stoplist []string `yaml:"stoplist"`

	// ShortMin and ShortMax bound the word length treated as "short" by the
	// hiding policy. Defaults: 2 and 4.
	ShortMin int `yaml:"short_min"`
	ShortMax int `yaml:"short_max"`
}

// RecallConfig holds the spaced-recall schedule parameters.
type RecallConfig struct {
	// Intervals replaces the built-in day-interval table when non-empty.
	Intervals []int `yaml:"intervals"`

	// EveningHour and MorningHour are the local clock hours of the
	// same-evening and next-morning short-term recalls. Defaults: 20 and 8.
	EveningHour int `yaml:"evening_hour"`
	MorningHour int `yaml:"morning_hour"`

	// ReminderInterval is how often due recalls are polled. Default: 1m.
	ReminderInterval time.Duration `yaml:"reminder_interval"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// PostgresDSN is the connection string for the unit store. Empty
	// disables persistence; progression state then lives only in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// UnitsFile is an optional YAML file of practice units seeded into the
	// store at startup. Existing units with the same id are not overwritten.
	UnitsFile string `yaml:"units_file"`
}

// FeedbackConfig configures the post-session feedback summariser.
type FeedbackConfig struct {
	// Enabled turns the summariser on.
	Enabled bool `yaml:"enabled"`

	// APIKey authenticates against the OpenAI API.
	APIKey string `yaml:"api_key"`

	// Model selects the completion model (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`
}
