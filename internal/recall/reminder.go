package recall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

// DueLister returns the units whose next recall time has passed.
type DueLister interface {
	DueRecalls(ctx context.Context, now time.Time) ([]practice.Unit, error)
}

// Notifier receives a due unit. Implementations push to the presentation
// gateway or any other channel; errors are logged, never retried here.
type Notifier interface {
	NotifyDue(ctx context.Context, unit practice.Unit) error
}

// NotifierFunc adapts a function to the [Notifier] interface.
type NotifierFunc func(ctx context.Context, unit practice.Unit) error

// NotifyDue implements [Notifier].
func (f NotifierFunc) NotifyDue(ctx context.Context, unit practice.Unit) error {
	return f(ctx, unit)
}

// Reminder periodically polls for due recalls and notifies about each one.
type Reminder struct {
	scheduler *gocron.Scheduler
	lister    DueLister
	notifier  Notifier
	interval  time.Duration
	logger    *slog.Logger
}

// NewReminder creates a Reminder that checks for due recalls every interval.
// An interval of zero defaults to one minute.
func NewReminder(lister DueLister, notifier Notifier, interval time.Duration, logger *slog.Logger) *Reminder {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		scheduler: gocron.NewScheduler(time.UTC),
		lister:    lister,
		notifier:  notifier,
		interval:  interval,
		logger:    logger.With("component", "recall.reminder"),
	}
}

// Start begins the polling loop in the background.
func (r *Reminder) Start() error {
	_, err := r.scheduler.Every(r.interval).Do(r.check)
	if err != nil {
		return fmt.Errorf("recall: schedule reminder job: %w", err)
	}
	r.scheduler.StartAsync()
	return nil
}

// Stop halts the polling loop. Safe to call more than once.
func (r *Reminder) Stop() {
	r.scheduler.Stop()
}

func (r *Reminder) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	units, err := r.lister.DueRecalls(ctx, time.Now())
	if err != nil {
		r.logger.Error("listing due recalls failed", "error", err)
		return
	}
	for _, unit := range units {
		if err := r.notifier.NotifyDue(ctx, unit); err != nil {
			r.logger.Warn("recall notification failed", "unit", unit.ID, "error", err)
		}
	}
}
