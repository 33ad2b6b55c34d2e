package practice

import "time"

// Unit is one memorizable passage (a "beat"): a short sequence of
// sub-sentences practiced together and mastered as a whole.
type Unit struct {
	ID string `json:"id"`

	// Position is the unit's 1-based ordinal within the full text.
	Position int `json:"position"`

	Title     string   `json:"title"`
	Sentences []string `json:"sentences"`

	Mastered   bool      `json:"mastered"`
	MasteredAt time.Time `json:"mastered_at,omitzero"`

	// RecallSession counts completed scheduled recalls since mastery and
	// indexes into the recall interval table.
	RecallSession int `json:"recall_session"`

	// LastRecallAt is when the unit last completed a recall.
	LastRecallAt time.Time `json:"last_recall_at,omitzero"`

	// RecallTimes is the upcoming recall schedule, soonest first.
	// NextRecallAt mirrors its first entry so due queries stay cheap.
	RecallTimes  []time.Time `json:"recall_times,omitempty"`
	NextRecallAt time.Time   `json:"next_recall_at,omitzero"`

	// Deadline is the date the unit must be performance-ready. The recall
	// scheduler compresses intervals as it approaches. Zero means none.
	Deadline time.Time `json:"deadline,omitzero"`

	Checkpoint Checkpoint `json:"checkpoint"`
}

// Checkpoint is the resumable progression state of a unit, persisted after
// every phase transition so a practice session can continue where it left
// off.
type Checkpoint struct {
	Mode        SessionMode `json:"mode"`
	Stage       Stage       `json:"stage"`
	Scope       Scope       `json:"scope"`
	Sentence    int         `json:"sentence"`
	Reps        int         `json:"reps"`
	CleanStreak int         `json:"clean_streak"`
	HideCount   int         `json:"hide_count"`
	Hidden      []int       `json:"hidden,omitempty"`
	Protected   []int       `json:"protected,omitempty"`
}
