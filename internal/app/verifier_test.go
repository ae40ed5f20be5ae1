package app

import (
	"testing"
	"time"

	"vocab-quiz-service/internal/domain"
)

func TestVerifyAttempt(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	for _, submitted := range domain.Labels {
		for _, expected := range domain.Labels {
			res, err := verifyAttempt(submitted, expected, 10, now)
			if err != nil {
				t.Fatalf("verify(%s,%s): %v", submitted, expected, err)
			}
			wantCorrect := submitted == expected
			if res.IsCorrect != wantCorrect {
				t.Fatalf("verify(%s,%s): correct=%v, want %v", submitted, expected, res.IsCorrect, wantCorrect)
			}
			if (res.Points > 0) != res.IsCorrect {
				t.Fatalf("verify(%s,%s): points=%d with correct=%v", submitted, expected, res.Points, res.IsCorrect)
			}
			if res.WeekID != "2026-W06" {
				t.Fatalf("verify(%s,%s): weekId=%s, want 2026-W06", submitted, expected, res.WeekID)
			}
		}
	}
}

func TestVerifyAttemptFailsClosedWithoutLiveQuestion(t *testing.T) {
	res, err := verifyAttempt(domain.LabelA, "", 10, time.Now())
	if err != domain.ErrNoLiveQuestion {
		t.Fatalf("expected ErrNoLiveQuestion, got %v", err)
	}
	if res.Points != 0 || res.IsCorrect {
		t.Fatalf("no points may be awarded without a live question: %+v", res)
	}
}

func TestVerifyAttemptRejectsInvalidLabel(t *testing.T) {
	if _, err := verifyAttempt("E", domain.LabelA, 10, time.Now()); err != domain.ErrInvalidLabel {
		t.Fatalf("expected ErrInvalidLabel, got %v", err)
	}
}
