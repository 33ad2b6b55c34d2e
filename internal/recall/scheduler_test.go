package recall

import (
	"context"
	"testing"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestScheduler_BelowThresholdNotScheduled(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	for session := 0; session < 2; session++ {
		if _, ok := s.NextRecallAt(session, now, time.Time{}); ok {
			t.Errorf("session %d is below the threshold and must not be scheduled", session)
		}
	}
	if _, ok := s.NextRecallAt(2, now, time.Time{}); !ok {
		t.Error("session 2 must be scheduled from the day table")
	}
}

func TestScheduler_TableIntervals(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	tests := []struct {
		session  int
		wantDays int
	}{
		{2, 2}, {3, 3}, {4, 5}, {5, 7}, {6, 7},
		{7, 7}, {12, 7}, // past the table, last entry repeats
	}
	for _, tt := range tests {
		got, ok := s.NextRecallAt(tt.session, now, time.Time{})
		if !ok {
			t.Fatalf("session %d: expected a date", tt.session)
		}
		want := now.AddDate(0, 0, tt.wantDays)
		if !got.Equal(want) {
			t.Errorf("session %d: got %v, want %v", tt.session, got, want)
		}
	}
}

func TestScheduler_DeadlineCompression(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	// Remaining table intervals from session 2: 2+3+5+7+7+7 = 31 days.
	// With 10 days to the deadline, the 2-day interval compresses to
	// round(2 * 10/31) = 1.
	deadline := now.AddDate(0, 0, 10)
	got, ok := s.NextRecallAt(2, now, deadline)
	if !ok {
		t.Fatal("expected a date")
	}
	if want := now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScheduler_CompressionNeverPassesDeadline(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	for _, daysLeft := range []int{1, 3, 8, 15, 30} {
		deadline := now.AddDate(0, 0, daysLeft)
		for session := 2; session < 10; session++ {
			got, ok := s.NextRecallAt(session, now, deadline)
			if !ok {
				continue
			}
			if got.After(deadline) {
				t.Errorf("session %d with %d days left: %v is past the deadline %v",
					session, daysLeft, got, deadline)
			}
		}
	}
}

func TestScheduler_CompressionFlooredAtOneDay(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	// Deadline already passed: the cadence degrades to daily review, never
	// to same-instant or negative intervals.
	got, ok := s.NextRecallAt(5, now, now.AddDate(0, 0, -2))
	if !ok {
		t.Fatal("expected a date")
	}
	if want := now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScheduler_DistantDeadlineDoesNotStretch(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	got, ok := s.NextRecallAt(2, now, now.AddDate(1, 0, 0))
	if !ok {
		t.Fatal("expected a date")
	}
	if want := now.AddDate(0, 0, 2); !got.Equal(want) {
		t.Errorf("a distant deadline must leave the table interval alone: got %v, want %v", got, want)
	}
}

func TestScheduler_ShortTerm(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	mastered := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
	got := s.ShortTerm(mastered)
	if len(got) != 3 {
		t.Fatalf("expected 3 short-term recalls, got %v", got)
	}
	if want := mastered.Add(10 * time.Minute); !got[0].Equal(want) {
		t.Errorf("first recall: got %v, want %v", got[0], want)
	}
	if got[1].Hour() != 20 || got[1].Day() != 1 {
		t.Errorf("second recall should be the same evening, got %v", got[1])
	}
	if got[2].Hour() != 8 || got[2].Day() != 2 {
		t.Errorf("third recall should be the next morning, got %v", got[2])
	}
}

func TestScheduler_ShortTermLateNightSkipsEvening(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	mastered := time.Date(2026, 5, 1, 22, 30, 0, 0, time.UTC)
	got := s.ShortTerm(mastered)
	if len(got) != 2 {
		t.Fatalf("expected the evening slot dropped, got %v", got)
	}
	if got[1].Hour() != 8 || got[1].Day() != 2 {
		t.Errorf("expected next-morning slot, got %v", got[1])
	}
}

func TestScheduler_CustomIntervals(t *testing.T) {
	t.Parallel()

	s := NewScheduler(WithIntervals([]int{0, 1, 4}))
	if _, ok := s.NextRecallAt(0, now, time.Time{}); ok {
		t.Error("session 0 is below the custom threshold")
	}
	got, ok := s.NextRecallAt(1, now, time.Time{})
	if !ok || !got.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("expected 1-day interval for session 1, got %v (ok=%v)", got, ok)
	}
}

func TestScheduler_DeadlineInsideOneDay(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	// With the deadline less than a day away the daily floor wins: the
	// recall lands tomorrow, past the deadline, rather than collapsing into
	// a same-instant recall. The final rehearsal happens on deadline day
	// either way.
	deadline := now.Add(6 * time.Hour)
	got, ok := s.NextRecallAt(2, now, deadline)
	if !ok {
		t.Fatal("expected a date")
	}
	if want := now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("got %v, want the daily floor %v", got, want)
	}
	if !got.After(deadline) {
		t.Errorf("expected the floor to overshoot the imminent deadline, got %v with deadline %v", got, deadline)
	}
}

func TestScheduler_Upcoming(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	mastered := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)

	t.Run("fresh mastery lists the full near-term schedule", func(t *testing.T) {
		t.Parallel()
		got := s.Upcoming(mastered, 0, mastered, time.Time{})
		if len(got) != 4 {
			t.Fatalf("expected 3 short-term slots plus the first table date, got %v", got)
		}
		if want := mastered.Add(10 * time.Minute); !got[0].Equal(want) {
			t.Errorf("first slot: got %v, want %v", got[0], want)
		}
		if want := mastered.AddDate(0, 0, 2); !got[3].Equal(want) {
			t.Errorf("last slot: got %v, want the first table date %v", got[3], want)
		}
	})

	t.Run("past slots drop off", func(t *testing.T) {
		t.Parallel()
		got := s.Upcoming(mastered, 1, mastered.Add(11*time.Minute), time.Time{})
		if len(got) != 3 {
			t.Fatalf("expected evening, morning, and the table date, got %v", got)
		}
		if got[0].Hour() != 20 {
			t.Errorf("expected the same-evening slot first, got %v", got[0])
		}
	})

	t.Run("at the threshold only the table remains", func(t *testing.T) {
		t.Parallel()
		got := s.Upcoming(mastered, 2, now, time.Time{})
		if len(got) != 1 || !got[0].Equal(now.AddDate(0, 0, 2)) {
			t.Errorf("expected just the 2-day table date, got %v", got)
		}
	})

	t.Run("never empty", func(t *testing.T) {
		t.Parallel()
		for session := 0; session < 12; session++ {
			if got := s.Upcoming(mastered, session, now, time.Time{}); len(got) == 0 {
				t.Errorf("session %d: empty schedule", session)
			}
		}
	})
}

func TestScheduler_NextAfter(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	mastered := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)

	t.Run("short-term slots while below threshold", func(t *testing.T) {
		t.Parallel()
		// One recall done ten minutes after mastery: the same evening is next.
		got := s.NextAfter(mastered, 1, mastered.Add(11*time.Minute), time.Time{})
		want := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want the same-evening slot %v", got, want)
		}
	})

	t.Run("threshold session uses the day table", func(t *testing.T) {
		t.Parallel()
		got := s.NextAfter(mastered, 2, now, time.Time{})
		if want := now.AddDate(0, 0, 2); !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("exhausted short-term schedule falls through to the table", func(t *testing.T) {
		t.Parallel()
		// Session 1 but the next morning has already passed: no short-term
		// slot is in the future, so the first table interval applies.
		late := mastered.AddDate(0, 0, 3)
		got := s.NextAfter(mastered, 1, late, time.Time{})
		if want := late.AddDate(0, 0, 2); !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("deadline compression carries through", func(t *testing.T) {
		t.Parallel()
		got := s.NextAfter(mastered, 2, now, now.AddDate(0, 0, 10))
		if want := now.AddDate(0, 0, 1); !got.Equal(want) {
			t.Errorf("got %v, want the compressed interval %v", got, want)
		}
	})
}

type staticLister struct{ units []practice.Unit }

func (l staticLister) DueRecalls(context.Context, time.Time) ([]practice.Unit, error) {
	return l.units, nil
}

func TestReminder_NotifiesDueUnits(t *testing.T) {
	t.Parallel()

	due := []practice.Unit{{ID: "u1"}, {ID: "u2"}}
	var notified []string
	r := NewReminder(staticLister{units: due}, NotifierFunc(func(_ context.Context, u practice.Unit) error {
		notified = append(notified, u.ID)
		return nil
	}), time.Minute, nil)

	r.check()
	if len(notified) != 2 || notified[0] != "u1" || notified[1] != "u2" {
		t.Errorf("expected both due units notified in order, got %v", notified)
	}
}
