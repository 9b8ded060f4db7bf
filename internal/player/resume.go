package player

import "math"

// minResumeSeconds is the least persisted progress worth prompting about.
// Anything below is treated as no meaningful progress.
const minResumeSeconds = 5

// ResumeDecision is the outcome of resume negotiation at content open.
type ResumeDecision struct {
	Prompt          bool    `json:"prompt"`
	AtSeconds       float64 `json:"at_seconds"`
	ProgressPercent int     `json:"progress_percent"`
}

// EvaluateResume decides whether to offer "resume from last position" or
// silently start at zero. Evaluated exactly once per content open; the
// caller owns that guarantee (Session does it in Open).
func EvaluateResume(persistedWatchedTime, contentDuration float64) ResumeDecision {
	if persistedWatchedTime < minResumeSeconds {
		return ResumeDecision{}
	}
	percent := 0
	if contentDuration > 0 {
		percent = int(math.Floor(100 * persistedWatchedTime / contentDuration))
	}
	return ResumeDecision{
		Prompt:          true,
		AtSeconds:       persistedWatchedTime,
		ProgressPercent: percent,
	}
}
