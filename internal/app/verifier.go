package app

import (
	"time"

	"vocab-quiz-service/internal/domain"
)

// verifyAttempt judges a submitted choice against the live answer key. It is
// a pure function: recording the outcome is the caller's separate step.
// An empty expected label means no question is live; that fails closed with
// ErrNoLiveQuestion and never awards points.
func verifyAttempt(submitted, expected domain.Label, basePoints int, now time.Time) (domain.AttemptResult, error) {
	if expected == "" {
		return domain.AttemptResult{}, domain.ErrNoLiveQuestion
	}
	if !submitted.Valid() {
		return domain.AttemptResult{}, domain.ErrInvalidLabel
	}

	res := domain.AttemptResult{
		IsCorrect: submitted == expected,
		WeekID:    domain.WeekID(now),
	}
	if res.IsCorrect {
		res.Points = basePoints
	}
	return res, nil
}
