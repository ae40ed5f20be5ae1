package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
)

// SessionConfig tunes one game round.
type SessionConfig struct {
	Selector      SelectorConfig
	BasePoints    int // award per correct answer
	RoundSeconds  int // countdown length
	ComboBonusCap int // cap on the per-answer combo bonus
	Level         int // default word-selection level, 0 = all levels
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.BasePoints <= 0 {
		c.BasePoints = 10
	}
	if c.RoundSeconds <= 0 {
		c.RoundSeconds = 30
	}
	if c.ComboBonusCap <= 0 {
		c.ComboBonusCap = 20
	}
	return c
}

// AnswerOutcome reports what one submission did to the running round.
type AnswerOutcome struct {
	QuestionID string
	Submitted  domain.Label
	Correct    bool
	Awarded    int // session points including the combo bonus
	Combo      int
	Score      int
	Recorded   bool // false when the ledger write failed; play continues
	Next       *domain.Question
	Finished   *domain.SessionResult // set when this answer closed the round
}

// GameSession drives one player's timed round: question issuance, answer
// verification, score recording, and the countdown. A session is single-player
// and strictly request/response; the only concurrency it handles is the
// re-entrancy guard on submissions and the countdown firing mid-answer.
type GameSession struct {
	userID      string
	displayName string
	cfg         SessionConfig
	ledger      ScoreLedger
	vocab       VocabProvider
	clock       func() time.Time

	mu         sync.Mutex
	selector   *questionSelector
	level      int
	playing    bool
	answering  bool
	pendingEnd bool
	live       *domain.Question
	answerKey  domain.Label
	timer      *time.Timer
	onExpire   func(domain.SessionResult)

	score    int
	combo    int
	maxCombo int
	correct  int
	wrong    int
}

func newGameSession(userID, displayName string, cfg SessionConfig, ledger ScoreLedger, vocab VocabProvider, clock func() time.Time, seed int64) *GameSession {
	cfg = cfg.withDefaults()
	return &GameSession{
		userID:      userID,
		displayName: displayName,
		cfg:         cfg,
		ledger:      ledger,
		vocab:       vocab,
		clock:       clock,
		selector:    newQuestionSelector(cfg.Selector, rand.New(rand.NewSource(seed))),
	}
}

// UserID returns the owning player's ID.
func (s *GameSession) UserID() string { return s.userID }

// DisplayName returns the player's display name.
func (s *GameSession) DisplayName() string { return s.displayName }

// SetExpireFunc registers the callback invoked when the countdown ends the
// round on its own. Must be set before Start.
func (s *GameSession) SetExpireFunc(fn func(domain.SessionResult)) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

// Start resets state and issues the first question. level picks the word
// difficulty for the whole round (0 falls back to the configured default,
// which itself defaults to all levels). The countdown runs independently of
// answer handling and ends the round when it fires.
func (s *GameSession) Start(ctx context.Context, level int) (domain.Question, error) {
	pool := s.vocab.Items(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return domain.Question{}, domain.ErrSessionActive
	}
	if level <= 0 {
		level = s.cfg.Level
	}

	q, key, err := s.selector.next(pool, level)
	if err != nil {
		return domain.Question{}, err
	}

	s.level = level
	s.playing = true
	s.answering = false
	s.pendingEnd = false
	s.score, s.combo, s.maxCombo, s.correct, s.wrong = 0, 0, 0, 0, 0
	s.live = &q
	s.answerKey = key
	s.timer = time.AfterFunc(time.Duration(s.cfg.RoundSeconds)*time.Second, s.expire)
	return q, nil
}

// SubmitAnswer verifies the submission against the live question, records the
// outcome, and issues the next question. A submission arriving while a prior
// one is still being recorded is dropped with ErrAnswerInFlight; the guard is
// released only after recording finished and the next question (or the final
// result) is ready.
func (s *GameSession) SubmitAnswer(ctx context.Context, label domain.Label) (AnswerOutcome, error) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return AnswerOutcome{}, domain.ErrSessionNotActive
	}
	if s.answering {
		s.mu.Unlock()
		return AnswerOutcome{}, domain.ErrAnswerInFlight
	}
	if s.live == nil || s.answerKey == "" {
		s.mu.Unlock()
		return AnswerOutcome{}, domain.ErrNoLiveQuestion
	}
	s.answering = true
	questionID := s.live.ID
	key := s.answerKey
	s.mu.Unlock()

	res, err := verifyAttempt(label, key, s.cfg.BasePoints, s.clock())
	if err != nil {
		s.mu.Lock()
		s.answering = false
		s.mu.Unlock()
		return AnswerOutcome{}, err
	}

	recorded := true
	if err := s.ledger.ApplyAttempt(ctx, s.userID, res.WeekID, res); err != nil {
		// Session tallies stay authoritative; the caller sees Recorded=false
		// and decides whether to warn or retry.
		log.Printf("score recording failed for %s: %v", s.userID, err)
		recorded = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := AnswerOutcome{
		QuestionID: questionID,
		Submitted:  label,
		Correct:    res.IsCorrect,
		Recorded:   recorded,
	}
	if res.IsCorrect {
		bonus := s.combo
		if bonus > s.cfg.ComboBonusCap {
			bonus = s.cfg.ComboBonusCap
		}
		out.Awarded = res.Points + bonus
		s.score += out.Awarded
		s.combo++
		if s.combo > s.maxCombo {
			s.maxCombo = s.combo
		}
		s.correct++
	} else {
		s.combo = 0
		s.wrong++
	}
	out.Combo = s.combo
	out.Score = s.score

	switch {
	case s.pendingEnd:
		// The countdown fired while this answer was in flight; the attempt
		// applies, then the round closes.
		result := s.finalizeLocked()
		out.Finished = &result
	case !s.playing:
		// Explicitly stopped underneath us; nothing more to issue.
	default:
		q, nextKey, err := s.selector.next(s.vocab.Items(ctx), s.level)
		if err != nil {
			result := s.finalizeLocked()
			out.Finished = &result
		} else {
			s.live = &q
			s.answerKey = nextKey
			out.Next = &q
		}
	}
	s.answering = false
	return out, nil
}

// Stop ends the round early. Any in-flight question is discarded.
func (s *GameSession) Stop() (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return domain.SessionResult{}, domain.ErrSessionNotActive
	}
	return s.finalizeLocked(), nil
}

// Playing reports whether a round is running.
func (s *GameSession) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// expire handles the countdown firing. An answer in flight is allowed to
// finish and apply before the round closes.
func (s *GameSession) expire() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	if s.answering {
		s.pendingEnd = true
		s.mu.Unlock()
		return
	}
	result := s.finalizeLocked()
	cb := s.onExpire
	s.mu.Unlock()

	if cb != nil {
		cb(result)
	}
}

func (s *GameSession) finalizeLocked() domain.SessionResult {
	s.playing = false
	s.pendingEnd = false
	s.live = nil
	s.answerKey = ""
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return domain.SessionResult{
		Score:    s.score,
		MaxCombo: s.maxCombo,
		Correct:  s.correct,
		Wrong:    s.wrong,
		WeekID:   domain.WeekID(s.clock()),
	}
}
