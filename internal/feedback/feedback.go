// Package feedback turns a finished coaching session into a short spoken-
// style summary for the learner: which words kept slipping, where the
// hesitations clustered, and what to focus on next. The summary text is
// produced by an LLM; [BuildPrompt] is pure and deterministic so the prompt
// content stays testable without network access.
package feedback

import (
	"fmt"
	"strings"
)

// SessionStats aggregates one session's outcomes for the summariser.
type SessionStats struct {
	// UnitTitle names the practiced text.
	UnitTitle string

	// Mode is "practice" or "recall".
	Mode string

	// Turns and CleanTurns count completed turns and the error-free subset.
	Turns      int
	CleanTurns int

	// MissedWords, HesitatedWords, and ForcedWords list the distinct script
	// words involved in each failure kind, in first-occurrence order.
	MissedWords    []string
	HesitatedWords []string
	ForcedWords    []string

	// Mastered and RecallCompleted record how the session ended.
	Mastered        bool
	RecallCompleted bool
}

// systemPrompt frames the model as a memorization coach. The output contract
// keeps summaries short enough to read between takes.
const systemPrompt = `You are a coach helping someone memorize a spoken text (a speech, sermon, or script).
You receive statistics from one rehearsal session. Write a short, encouraging summary:
two or three sentences on overall progress, then, if there were problem words, one
sentence naming them and a concrete tip for the next session. Never invent words or
numbers not present in the statistics. Address the learner directly.`

// BuildPrompt renders stats as the user message for the summariser.
func BuildPrompt(stats SessionStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Unit: %s\n", stats.UnitTitle)
	fmt.Fprintf(&sb, "Session mode: %s\n", stats.Mode)
	fmt.Fprintf(&sb, "Turns completed: %d (%d clean)\n", stats.Turns, stats.CleanTurns)

	writeList := func(label string, words []string) {
		if len(words) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, strings.Join(words, ", "))
	}
	writeList("Words skipped while hidden", stats.MissedWords)
	writeList("Words hesitated on", stats.HesitatedWords)
	writeList("Words the session had to push past", stats.ForcedWords)

	switch {
	case stats.Mastered:
		sb.WriteString("Outcome: the unit was fully mastered this session.\n")
	case stats.RecallCompleted:
		sb.WriteString("Outcome: the scheduled recall was completed successfully.\n")
	default:
		sb.WriteString("Outcome: the session ended before mastery.\n")
	}
	return sb.String()
}
