package fade

// Escalator tracks how many words are hidden after each successful turn. The
// count grows by one per clean turn up to a cap and snaps back to the floor
// whenever a turn has errors, so the fading pace never outruns the learner's
// actual recall.
type Escalator struct {
	floor int
	cap   int
	n     int
}

// NewEscalator returns an Escalator starting at floor. A cap below the floor
// is raised to it.
func NewEscalator(floor, cap int) *Escalator {
	if floor < 1 {
		floor = 1
	}
	if cap < floor {
		cap = floor
	}
	return &Escalator{floor: floor, cap: cap, n: floor}
}

// Current returns the number of words to hide on the next successful turn.
func (e *Escalator) Current() int { return e.n }

// Escalate raises the count by one, up to the cap. Call after a clean turn.
func (e *Escalator) Escalate() {
	if e.n < e.cap {
		e.n++
	}
}

// Reset snaps the count back to the floor. Call after a turn with errors.
func (e *Escalator) Reset() { e.n = e.floor }

// Restore sets the count directly, clamped to the floor/cap range. Used when
// resuming from a persisted checkpoint.
func (e *Escalator) Restore(n int) {
	switch {
	case n < e.floor:
		e.n = e.floor
	case n > e.cap:
		e.n = e.cap
	default:
		e.n = n
	}
}
