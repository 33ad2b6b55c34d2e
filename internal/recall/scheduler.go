// Package recall schedules the spaced re-testing of mastered units: a burst
// of short-term recalls right after mastery, then multi-day intervals from a
// fixed table, compressed proportionally as a performance deadline
// approaches so recalls are never scheduled past it.
package recall

import (
	"math"
	"time"
)

// DefaultIntervals is the day-interval table indexed by completed recall
// session count. The leading zero entries are covered by the short-term
// schedule; the table's last entry repeats for all later sessions.
var DefaultIntervals = []int{0, 0, 2, 3, 5, 7, 7, 7}

const (
	defaultFirstRecallDelay = 10 * time.Minute
	defaultEveningHour      = 20
	defaultMorningHour      = 8
)

// Option is a functional option for configuring a [Scheduler].
type Option func(*Scheduler)

// WithIntervals replaces the day-interval table. Empty tables are ignored.
func WithIntervals(days []int) Option {
	return func(s *Scheduler) {
		if len(days) > 0 {
			s.intervals = append([]int(nil), days...)
		}
	}
}

// WithShortTermHours sets the local clock hours used for the same-evening
// and next-morning short-term recalls. Defaults: 20 and 8.
func WithShortTermHours(evening, morning int) Option {
	return func(s *Scheduler) {
		s.eveningHour = evening
		s.morningHour = morning
	}
}

// Scheduler computes recall dates. Read-only after construction and safe for
// concurrent use.
type Scheduler struct {
	intervals   []int
	eveningHour int
	morningHour int
}

// NewScheduler returns a Scheduler with the default interval table, adjusted
// by the supplied options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		intervals:   DefaultIntervals,
		eveningHour: defaultEveningHour,
		morningHour: defaultMorningHour,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// threshold is the first session number whose interval comes from the day
// table; sessions below it are covered by [Scheduler.ShortTerm].
func (s *Scheduler) threshold() int {
	for i, d := range s.intervals {
		if d > 0 {
			return i
		}
	}
	return len(s.intervals)
}

// ShortTerm returns the near-term recall times for a unit mastered at
// masteredAt: ten minutes later, the same evening, and the next morning.
// Entries that would land before the ten-minute mark are dropped (mastering
// late at night skips the same-evening slot).
func (s *Scheduler) ShortTerm(masteredAt time.Time) []time.Time {
	first := masteredAt.Add(defaultFirstRecallDelay)
	evening := time.Date(masteredAt.Year(), masteredAt.Month(), masteredAt.Day(),
		s.eveningHour, 0, 0, 0, masteredAt.Location())
	morning := time.Date(masteredAt.Year(), masteredAt.Month(), masteredAt.Day(),
		s.morningHour, 0, 0, 0, masteredAt.Location()).AddDate(0, 0, 1)

	out := []time.Time{first}
	if evening.After(first) {
		out = append(out, evening)
	}
	if morning.After(first) {
		out = append(out, morning)
	}
	return out
}

// NextRecallAt computes the date of the next scheduled recall after the
// learner completes recall session number session (a count of finished
// recalls since mastery). It reports false for sessions below the scheduling
// threshold, which the short-term schedule covers.
//
// A non-zero deadline compresses the interval proportionally when the days
// remaining are fewer than the sum of all remaining table intervals, floored
// at one day, so the cadence degrades to daily review instead of scheduling
// recalls past the deadline.
func (s *Scheduler) NextRecallAt(session int, now, deadline time.Time) (time.Time, bool) {
	if session < s.threshold() {
		return time.Time{}, false
	}
	idx := session
	if idx >= len(s.intervals) {
		idx = len(s.intervals) - 1
	}
	days := s.intervals[idx]

	if !deadline.IsZero() {
		days = s.compress(days, idx, now, deadline)
	}
	if days < 1 {
		days = 1
	}
	return now.AddDate(0, 0, days), true
}

// Upcoming returns the unit's future recall schedule, soonest first, for a
// unit mastered at masteredAt that has completed session recalls: the
// remaining short-term slots while the session count is below the day-table
// threshold, followed by the next day-table date. Never empty.
func (s *Scheduler) Upcoming(masteredAt time.Time, session int, now, deadline time.Time) []time.Time {
	var out []time.Time
	if session < s.threshold() {
		for _, at := range s.ShortTerm(masteredAt) {
			if at.After(now) {
				out = append(out, at)
			}
		}
	}
	idx := session
	if idx < s.threshold() {
		idx = s.threshold()
	}
	if at, ok := s.NextRecallAt(idx, now, deadline); ok {
		out = append(out, at)
	}
	return out
}

// NextAfter returns the next recall time strictly after now for a unit
// mastered at masteredAt that has completed session recalls. Sessions below
// the day-table threshold draw from the short-term schedule; once its slots
// are exhausted, or for sessions at or past the threshold, the day table
// applies.
func (s *Scheduler) NextAfter(masteredAt time.Time, session int, now, deadline time.Time) time.Time {
	return s.Upcoming(masteredAt, session, now, deadline)[0]
}

// compress scales the interval by daysRemaining over the sum of remaining
// table intervals, never stretching it.
func (s *Scheduler) compress(days, idx int, now, deadline time.Time) int {
	remaining := deadline.Sub(now).Hours() / 24
	if remaining < 0 {
		remaining = 0
	}
	sum := 0
	for _, d := range s.intervals[idx:] {
		sum += d
	}
	if sum == 0 {
		return days
	}
	factor := remaining / float64(sum)
	if factor > 1 {
		factor = 1
	}
	return int(math.Round(float64(days) * factor))
}
