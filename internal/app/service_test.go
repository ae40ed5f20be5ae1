package app_test

import (
	"context"
	"testing"
	"time"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/domain"
	"vocab-quiz-service/internal/infra/memory"
	"vocab-quiz-service/internal/rank"
)

type staticVocab struct {
	items []domain.VocabularyItem
}

func (v *staticVocab) Items(_ context.Context) []domain.VocabularyItem {
	return v.items
}

func fourWords() []domain.VocabularyItem {
	return []domain.VocabularyItem{
		{Word: "w1", Meaning: "m1", Level: 1},
		{Word: "w2", Meaning: "m2", Level: 1},
		{Word: "w3", Meaning: "m3", Level: 1},
		{Word: "w4", Meaning: "m4", Level: 1},
	}
}

// correctLabel recovers the answer key from the visible choices, since the
// key itself is never exposed to clients.
func correctLabel(t *testing.T, q domain.Question, pool []domain.VocabularyItem) domain.Label {
	t.Helper()
	var meaning string
	for _, it := range pool {
		if it.Word == q.Word {
			meaning = it.Meaning
		}
	}
	for _, l := range domain.Labels {
		if q.Choice(l) == meaning {
			return l
		}
	}
	t.Fatalf("no choice matches the correct meaning for %+v", q)
	return ""
}

func wrongLabel(t *testing.T, q domain.Question, pool []domain.VocabularyItem) domain.Label {
	t.Helper()
	right := correctLabel(t, q, pool)
	for _, l := range domain.Labels {
		if l != right {
			return l
		}
	}
	return ""
}

func newTestService(ledger app.ScoreLedger) (*app.GameService, []domain.VocabularyItem) {
	pool := fourWords()
	service := app.NewGameService(ledger, nil, &staticVocab{items: pool}, app.SessionConfig{
		BasePoints:   10,
		RoundSeconds: 60,
	})
	return service, pool
}

func TestRoundFlowScoresAndAdvances(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	service, pool := newTestService(ledger)

	session := service.Session("u1", "Alice")
	q, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// First correct answer: base award, no combo bonus yet.
	out, err := session.SubmitAnswer(ctx, correctLabel(t, q, pool))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Correct || out.Awarded != 10 || out.Score != 10 || out.Combo != 1 {
		t.Fatalf("unexpected first outcome %+v", out)
	}
	if !out.Recorded {
		t.Fatalf("expected attempt recorded")
	}
	if out.Next == nil {
		t.Fatalf("expected a follow-up question")
	}

	// Second correct answer: combo bonus of 1 on top of base.
	out, err = session.SubmitAnswer(ctx, correctLabel(t, *out.Next, pool))
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if out.Awarded != 11 || out.Score != 21 || out.Combo != 2 {
		t.Fatalf("unexpected combo outcome %+v", out)
	}

	// A wrong answer resets the combo but not the score.
	out, err = session.SubmitAnswer(ctx, wrongLabel(t, *out.Next, pool))
	if err != nil {
		t.Fatalf("submit 3: %v", err)
	}
	if out.Correct || out.Combo != 0 || out.Score != 21 {
		t.Fatalf("unexpected wrong outcome %+v", out)
	}

	// Only base points reach the ledger; combo bonuses are session-local.
	board, err := ledger.Weekly(ctx, service.CurrentWeekID())
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	rec, ok := board.Get("u1")
	if !ok {
		t.Fatalf("expected ledger record for u1")
	}
	if rec.Points != 20 || rec.Correct != 2 || rec.Wrong != 1 {
		t.Fatalf("unexpected ledger record %+v", rec)
	}
}

func TestStartLevelHoldsForWholeRound(t *testing.T) {
	ctx := context.Background()
	pool := []domain.VocabularyItem{
		{Word: "e1", Meaning: "easy one", Level: 1},
		{Word: "e2", Meaning: "easy two", Level: 1},
		{Word: "e3", Meaning: "easy three", Level: 1},
		{Word: "e4", Meaning: "easy four", Level: 1},
		{Word: "h1", Meaning: "hard one", Level: 2},
		{Word: "h2", Meaning: "hard two", Level: 2},
		{Word: "h3", Meaning: "hard three", Level: 2},
		{Word: "h4", Meaning: "hard four", Level: 2},
	}
	service := app.NewGameService(memory.NewLedger(), nil, &staticVocab{items: pool}, app.SessionConfig{
		RoundSeconds: 60,
	})

	session := service.Session("u1", "Alice")
	q, err := session.Start(ctx, 2)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 10; i++ {
		if l := levelOf(pool, q.Word); l != 2 {
			t.Fatalf("question %d used level-%d word %q, want level 2", i, l, q.Word)
		}
		out, err := session.SubmitAnswer(ctx, correctLabel(t, q, pool))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if out.Next == nil {
			t.Fatalf("round ended early at question %d", i)
		}
		q = *out.Next
	}
}

func levelOf(pool []domain.VocabularyItem, word string) int {
	for _, it := range pool {
		if it.Word == word {
			return it.Level
		}
	}
	return 0
}

func TestRankingReflectsAttemptImmediately(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	pool := fourWords()
	// A long-TTL cache: only invalidation can make the new attempt visible.
	boards := rank.NewBoardRepository(ledger, time.Hour)
	service := app.NewGameService(ledger, boards, &staticVocab{items: pool}, app.SessionConfig{
		BasePoints:   10,
		RoundSeconds: 60,
	})
	weekID := service.CurrentWeekID()

	// Prime the cache with the empty pre-round board.
	rows, err := service.WeeklyTop(ctx, weekID, 10)
	if err != nil {
		t.Fatalf("weekly top: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty board before any attempt, got %v", rows)
	}
	if total, err := service.TotalTop(ctx, 10); err != nil || len(total) != 0 {
		t.Fatalf("expected empty total board, got %v (err %v)", total, err)
	}

	session := service.Session("u1", "Alice")
	q, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.SubmitAnswer(ctx, correctLabel(t, q, pool)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rows, err = service.WeeklyTop(ctx, weekID, 10)
	if err != nil {
		t.Fatalf("weekly top after attempt: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].Points != 10 {
		t.Fatalf("attempt not visible through the board cache: %v", rows)
	}
	total, err := service.TotalTop(ctx, 10)
	if err != nil {
		t.Fatalf("total top: %v", err)
	}
	if len(total) != 1 || total[0].Points != 10 {
		t.Fatalf("attempt not visible on the total board: %v", total)
	}
}

func TestStartWhilePlayingFails(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(memory.NewLedger())

	session := service.Session("u1", "Alice")
	if _, err := session.Start(ctx, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.Start(ctx, 0); err != domain.ErrSessionActive {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestStopEndsRound(t *testing.T) {
	ctx := context.Background()
	service, pool := newTestService(memory.NewLedger())

	session := service.Session("u1", "Alice")
	q, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	out, err := session.SubmitAnswer(ctx, correctLabel(t, q, pool))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := session.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.Score != out.Score || result.Correct != 1 || result.Wrong != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := session.SubmitAnswer(ctx, domain.LabelA); err != domain.ErrSessionNotActive {
		t.Fatalf("expected ErrSessionNotActive after stop, got %v", err)
	}
}

type blockingLedger struct {
	app.ScoreLedger
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLedger) ApplyAttempt(ctx context.Context, userID, weekID string, res domain.AttemptResult) error {
	l.entered <- struct{}{}
	<-l.release
	return l.ScoreLedger.ApplyAttempt(ctx, userID, weekID, res)
}

func TestSecondSubmissionDroppedWhileRecording(t *testing.T) {
	ctx := context.Background()
	ledger := &blockingLedger{
		ScoreLedger: memory.NewLedger(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	service, pool := newTestService(ledger)

	session := service.Session("u1", "Alice")
	q, err := session.Start(ctx, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan app.AnswerOutcome, 1)
	go func() {
		out, err := session.SubmitAnswer(ctx, correctLabel(t, q, pool))
		if err != nil {
			t.Errorf("first submit: %v", err)
		}
		done <- out
	}()

	<-ledger.entered // first submission is now mid-recording

	if _, err := session.SubmitAnswer(ctx, domain.LabelA); err != domain.ErrAnswerInFlight {
		t.Fatalf("expected ErrAnswerInFlight, got %v", err)
	}

	close(ledger.release)
	out := <-done
	if !out.Correct || out.Next == nil {
		t.Fatalf("first submission should have completed normally: %+v", out)
	}
}

func TestWeekOptionsAlwaysIncludeCurrentWeek(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(memory.NewLedger())

	weeks, err := service.WeekOptions(ctx)
	if err != nil {
		t.Fatalf("week options: %v", err)
	}
	if len(weeks) == 0 || weeks[0] != service.CurrentWeekID() {
		t.Fatalf("expected current week first, got %v", weeks)
	}
}

func TestRankingUsesSessionDisplayNames(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	service, _ := newTestService(ledger)

	service.Session("u1", "Alice")
	weekID := service.CurrentWeekID()
	attempt := domain.AttemptResult{IsCorrect: true, Points: 10, WeekID: weekID}
	if err := ledger.ApplyAttempt(ctx, "u1", weekID, attempt); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := ledger.ApplyAttempt(ctx, "u2", weekID, attempt); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rows, err := service.WeeklyTop(ctx, weekID, 10)
	if err != nil {
		t.Fatalf("weekly top: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	names := map[string]string{}
	for _, row := range rows {
		names[row.UserID] = row.DisplayName
	}
	if names["u1"] != "Alice" {
		t.Fatalf("expected session display name for u1, got %q", names["u1"])
	}
	if names["u2"] != "u2" {
		t.Fatalf("expected user id fallback for u2, got %q", names["u2"])
	}

	row, err := service.MyWeeklyRank(ctx, weekID, "u3")
	if err != nil {
		t.Fatalf("my rank: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil rank for user without records, got %+v", row)
	}
}
