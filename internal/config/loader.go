package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.STT.Provider != "" && !slices.Contains(ValidSTTProviders, cfg.STT.Provider) {
		slog.Warn("unrecognised stt provider name", "name", cfg.STT.Provider, "known", ValidSTTProviders)
	}
	if cfg.STT.Provider == "deepgram" && cfg.STT.APIKey == "" {
		errs = append(errs, errors.New("stt.api_key is required for the deepgram provider"))
	}

	for name, d := range map[string]int64{
		"coach.tick_interval":       int64(cfg.Coach.TickInterval),
		"coach.pause_window":        int64(cfg.Coach.PauseWindow),
		"coach.hesitate_after":      int64(cfg.Coach.HesitateAfter),
		"coach.force_advance_after": int64(cfg.Coach.ForceAdvanceAfter),
		"coach.lenient_force_after": int64(cfg.Coach.LenientForceAfter),
		"recall.reminder_interval":  int64(cfg.Recall.ReminderInterval),
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if cfg.Coach.HesitateAfter > 0 && cfg.Coach.ForceAdvanceAfter > 0 &&
		cfg.Coach.ForceAdvanceAfter < cfg.Coach.HesitateAfter {
		errs = append(errs, errors.New("coach.force_advance_after must not be shorter than coach.hesitate_after"))
	}

	for name, ratio := range map[string]float64{
		"match.visible_overlap": cfg.Match.VisibleOverlap,
		"match.lenient_overlap": cfg.Match.LenientOverlap,
	} {
		if ratio < 0 || ratio > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", name, ratio))
		}
	}
	if cfg.Match.ShortExactLen < 0 {
		errs = append(errs, errors.New("match.short_exact_len must not be negative"))
	}

	for name, v := range map[string]int{
		"practice.learning_reps":          cfg.Practice.LearningReps,
		"practice.hide_floor":             cfg.Practice.HideFloor,
		"practice.hide_cap":               cfg.Practice.HideCap,
		"practice.recall_hide_floor":      cfg.Practice.RecallHideFloor,
		"practice.recall_hide_cap":        cfg.Practice.RecallHideCap,
		"practice.clean_turns_to_advance": cfg.Practice.CleanTurnsToAdvance,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if cfg.Practice.HideCap > 0 && cfg.Practice.HideFloor > cfg.Practice.HideCap {
		errs = append(errs, errors.New("practice.hide_floor must not exceed practice.hide_cap"))
	}
	if cfg.Practice.RecallHideCap > 0 && cfg.Practice.RecallHideFloor > cfg.Practice.RecallHideCap {
		errs = append(errs, errors.New("practice.recall_hide_floor must not exceed practice.recall_hide_cap"))
	}

	if cfg.Fade.ShortMin < 0 || cfg.Fade.ShortMax < 0 {
		errs = append(errs, errors.New("fade.short_min and fade.short_max must not be negative"))
	}
	if cfg.Fade.ShortMax > 0 && cfg.Fade.ShortMin > cfg.Fade.ShortMax {
		errs = append(errs, errors.New("fade.short_min must not exceed fade.short_max"))
	}

	for i, d := range cfg.Recall.Intervals {
		if d < 0 {
			errs = append(errs, fmt.Errorf("recall.intervals[%d] must not be negative", i))
		}
	}
	for name, h := range map[string]int{
		"recall.evening_hour": cfg.Recall.EveningHour,
		"recall.morning_hour": cfg.Recall.MorningHour,
	} {
		if h < 0 || h > 23 {
			errs = append(errs, fmt.Errorf("%s %d is out of range [0, 23]", name, h))
		}
	}

	if cfg.Feedback.Enabled && cfg.Feedback.APIKey == "" {
		errs = append(errs, errors.New("feedback.api_key is required when feedback is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}
