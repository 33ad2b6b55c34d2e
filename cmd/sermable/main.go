// Command sermable is the spoken-text memorization coaching server.
//
// It serves live coaching sessions over a WebSocket gateway, persists
// practice progression, and reminds the learner when spaced recalls fall
// due. Configuration comes from a YAML file plus environment variables
// (optionally loaded from a .env file).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/align"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/coach"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/config"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/fade"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/feedback"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/gateway"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/health"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/observe"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/recall"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/resilience"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store/memory"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store/postgres"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/pkg/stt/deepgram"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Optional .env for local development; absence is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "sermable: loading .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sermable: %v\n", err)
		return 1
	}
	applyEnvOverrides(cfg)

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "sermable",
	})
	if err != nil {
		slog.Error("initialising telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("initialising store", "error", err)
		return 1
	}
	defer st.Close()

	if cfg.Store.UnitsFile != "" {
		if err := seedUnits(ctx, st, cfg.Store.UnitsFile); err != nil {
			slog.Error("seeding units", "error", err)
			return 1
		}
	}

	gwOpts := []gateway.Option{
		gateway.WithMetrics(metrics),
		gateway.WithCoachConfig(coachConfig(cfg)),
		gateway.WithCoachOptions(coachOptions(cfg)...),
	}
	if cfg.Feedback.Enabled {
		var sumOpts []feedback.Option
		if cfg.Feedback.Model != "" {
			sumOpts = append(sumOpts, feedback.WithModel(cfg.Feedback.Model))
		}
		summariser, err := feedback.NewSummariser(cfg.Feedback.APIKey, sumOpts...)
		if err != nil {
			slog.Error("initialising feedback summariser", "error", err)
			return 1
		}
		gwOpts = append(gwOpts, gateway.WithSummariser(summariser))
	}
	gw := gateway.New(st, sourceFactory(cfg), gwOpts...)

	reminder := recall.NewReminder(st,
		recall.NotifierFunc(func(_ context.Context, unit practice.Unit) error {
			slog.Info("recall due", "unit", unit.ID, "title", unit.Title, "scheduled_for", unit.NextRecallAt)
			return nil
		}),
		cfg.Recall.ReminderInterval, logger)
	if err := reminder.Start(); err != nil {
		slog.Error("starting recall reminder", "error", err)
		return 1
	}
	defer reminder.Stop()

	mux := http.NewServeMux()
	gw.Register(mux)
	health.New([]health.Checker{
		{Name: "store", Check: func(ctx context.Context) error {
			_, err := st.ListUnits(ctx)
			return err
		}},
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("sermable starting",
		"listen_addr", addr,
		"stt_provider", cfg.STT.Provider,
		"persistent", cfg.Store.PostgresDSN != "",
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("DEEPGRAM_API_KEY"); v != "" {
		cfg.STT.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Feedback.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
}

// buildStore picks Postgres when a DSN is configured and falls back to the
// in-memory store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (store.UnitStore, error) {
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("no postgres_dsn configured, progression state lives in memory only")
		return memory.NewUnitStore(), nil
	}
	return postgres.NewStore(ctx, cfg.Store.PostgresDSN)
}

// seedUnits loads the units file and inserts units the store does not know
// yet. Known ids keep their stored progression.
func seedUnits(ctx context.Context, st store.UnitStore, path string) error {
	units, err := practice.LoadUnitFile(path)
	if err != nil {
		return err
	}
	seeded := 0
	for _, unit := range units {
		if _, err := st.GetUnit(ctx, unit.ID); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := st.SaveUnit(ctx, unit); err != nil {
			return err
		}
		seeded++
	}
	slog.Info("units seeded", "file", path, "new", seeded, "total", len(units))
	return nil
}

// sourceFactory builds the per-session transcription source. Deepgram is
// wrapped in a fallback to a passive source, so a recognizer outage degrades
// to client-pushed transcripts instead of killing sessions.
func sourceFactory(cfg *config.Config) gateway.SourceFactory {
	switch cfg.STT.Provider {
	case "deepgram":
		return func() (stt.Source, error) {
			var opts []deepgram.Option
			if cfg.STT.Model != "" {
				opts = append(opts, deepgram.WithModel(cfg.STT.Model))
			}
			if cfg.STT.BaseURL != "" {
				opts = append(opts, deepgram.WithEndpoint(cfg.STT.BaseURL))
			}
			primary, err := deepgram.New(cfg.STT.APIKey, opts...)
			if err != nil {
				return nil, err
			}
			f := resilience.NewSourceFallback(primary, "deepgram")
			f.AddFallback("passive", stt.NewPassiveSource())
			return f, nil
		}
	default:
		return func() (stt.Source, error) {
			return stt.NewPassiveSource(), nil
		}
	}
}

func coachConfig(cfg *config.Config) coach.Config {
	return coach.Config{
		Language:          cfg.STT.Language,
		TickInterval:      cfg.Coach.TickInterval,
		PauseWindow:       cfg.Coach.PauseWindow,
		HesitateAfter:     cfg.Coach.HesitateAfter,
		ForceAdvanceAfter: cfg.Coach.ForceAdvanceAfter,
		LenientForceAfter: cfg.Coach.LenientForceAfter,
	}
}

// coachOptions translates the tuning sections of the config into per-session
// coach options. Zero values keep the built-in defaults.
func coachOptions(cfg *config.Config) []coach.Option {
	var matcherOpts []align.MatcherOption
	if cfg.Match.ShortExactLen > 0 {
		matcherOpts = append(matcherOpts, align.WithShortExactLen(cfg.Match.ShortExactLen))
	}
	if cfg.Match.VisibleOverlap > 0 {
		matcherOpts = append(matcherOpts, align.WithVisibleOverlap(cfg.Match.VisibleOverlap))
	}
	if cfg.Match.LenientOverlap > 0 {
		matcherOpts = append(matcherOpts, align.WithLenientOverlap(cfg.Match.LenientOverlap))
	}

	params := practice.DefaultParams()
	if cfg.Practice.LearningReps > 0 {
		params.LearningReps = cfg.Practice.LearningReps
	}
	if cfg.Practice.HideFloor > 0 {
		params.HideFloor = cfg.Practice.HideFloor
	}
	if cfg.Practice.HideCap > 0 {
		params.HideCap = cfg.Practice.HideCap
	}
	if cfg.Practice.RecallHideFloor > 0 {
		params.RecallHideFloor = cfg.Practice.RecallHideFloor
	}
	if cfg.Practice.RecallHideCap > 0 {
		params.RecallHideCap = cfg.Practice.RecallHideCap
	}
	if cfg.Practice.CleanTurnsToAdvance > 0 {
		params.CleanTurnsToAdvance = cfg.Practice.CleanTurnsToAdvance
	}

	var fadeOpts []fade.Option
	if len(cfg.Fade.Stoplist) > 0 {
		fadeOpts = append(fadeOpts, fade.WithStoplist(cfg.Fade.Stoplist))
	}
	if cfg.Fade.ShortMin > 0 && cfg.Fade.ShortMax > 0 {
		fadeOpts = append(fadeOpts, fade.WithShortRange(cfg.Fade.ShortMin, cfg.Fade.ShortMax))
	}

	var recallOpts []recall.Option
	if len(cfg.Recall.Intervals) > 0 {
		recallOpts = append(recallOpts, recall.WithIntervals(cfg.Recall.Intervals))
	}
	if cfg.Recall.EveningHour > 0 && cfg.Recall.MorningHour > 0 {
		recallOpts = append(recallOpts, recall.WithShortTermHours(cfg.Recall.EveningHour, cfg.Recall.MorningHour))
	}

	return []coach.Option{
		coach.WithMatcher(align.NewMatcher(matcherOpts...)),
		coach.WithParams(params),
		coach.WithFadeScheduler(fade.NewScheduler(fadeOpts...)),
		coach.WithRecallScheduler(recall.NewScheduler(recallOpts...)),
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
