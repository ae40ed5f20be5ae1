package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
	"vocab-quiz-service/internal/rank"
)

// ScoreLedger is the durable per-user, per-week aggregate store. Local and
// remote implementations must honor the same contract; callers never branch
// on which backend is active. The caller guarantees at-most-once ApplyAttempt
// per real attempt.
type ScoreLedger interface {
	ApplyAttempt(ctx context.Context, userID, weekID string, res domain.AttemptResult) error
	Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error)
	Total(ctx context.Context) (*domain.ScoreBoard, error)
	WeekIDs(ctx context.Context) ([]string, error)
}

// BoardReader serves ranking reads. A ScoreLedger satisfies it directly; a
// caching layer (rank.BoardRepository) can be interposed.
type BoardReader interface {
	Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error)
	Total(ctx context.Context) (*domain.ScoreBoard, error)
}

// BoardInvalidator drops cached board snapshots for a week (and the total
// board). rank.BoardRepository satisfies it.
type BoardInvalidator interface {
	Invalidate(weekID string)
}

// VocabProvider supplies the current vocabulary pool.
type VocabProvider interface {
	Items(ctx context.Context) []domain.VocabularyItem
}

// invalidatingLedger drops the cached boards once an attempt has landed, so
// a ranking request right after a round reflects it instead of waiting out
// the cache TTL.
type invalidatingLedger struct {
	ScoreLedger
	boards BoardInvalidator
}

func (l invalidatingLedger) ApplyAttempt(ctx context.Context, userID, weekID string, res domain.AttemptResult) error {
	if err := l.ScoreLedger.ApplyAttempt(ctx, userID, weekID, res); err != nil {
		return err
	}
	l.boards.Invalidate(weekID)
	return nil
}

// GameService owns the per-player sessions and answers ranking queries.
type GameService struct {
	ledger ScoreLedger
	boards BoardReader
	vocab  VocabProvider
	cfg    SessionConfig
	clock  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*GameSession
	names    map[string]string
}

// NewGameService wires the service. boards may be nil, in which case ranking
// reads go straight to the ledger. A caching boards layer that supports
// invalidation gets invalidated after every recorded attempt.
func NewGameService(ledger ScoreLedger, boards BoardReader, vocab VocabProvider, cfg SessionConfig) *GameService {
	if boards == nil {
		boards = ledger
	}
	if inv, ok := boards.(BoardInvalidator); ok {
		ledger = invalidatingLedger{ScoreLedger: ledger, boards: inv}
	}
	return &GameService{
		ledger:   ledger,
		boards:   boards,
		vocab:    vocab,
		cfg:      cfg.withDefaults(),
		clock:    time.Now,
		sessions: make(map[string]*GameSession),
		names:    make(map[string]string),
	}
}

// Session returns or creates the player's session and remembers the display
// name for ranking rows.
func (s *GameService) Session(userID, displayName string) *GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if displayName != "" {
		s.names[userID] = displayName
	}
	if session, ok := s.sessions[userID]; ok {
		return session
	}
	session := newGameSession(userID, displayName, s.cfg, s.ledger, s.vocab, s.clock, s.clock().UnixNano())
	s.sessions[userID] = session
	return session
}

// Drop removes a player's session (e.g. on disconnect).
func (s *GameService) Drop(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// WeeklyTop returns the top-n weekly leaderboard for weekID.
func (s *GameService) WeeklyTop(ctx context.Context, weekID string, n int) ([]domain.RankingRow, error) {
	board, err := s.boards.Weekly(ctx, weekID)
	if err != nil {
		return nil, err
	}
	return s.named(rank.TopN(board, n)), nil
}

// TotalTop returns the top-n all-time leaderboard.
func (s *GameService) TotalTop(ctx context.Context, n int) ([]domain.RankingRow, error) {
	board, err := s.boards.Total(ctx)
	if err != nil {
		return nil, err
	}
	return s.named(rank.TopN(board, n)), nil
}

// MyWeeklyRank returns the player's row for weekID, or nil when the player
// has no recorded attempts that week.
func (s *GameService) MyWeeklyRank(ctx context.Context, weekID, userID string) (*domain.RankingRow, error) {
	board, err := s.boards.Weekly(ctx, weekID)
	if err != nil {
		return nil, err
	}
	row := rank.RankOf(board, userID)
	if row == nil {
		return nil, nil
	}
	rows := s.named([]domain.RankingRow{*row})
	return &rows[0], nil
}

// WeekOptions lists known week IDs, most recent first, always including the
// current week.
func (s *GameService) WeekOptions(ctx context.Context) ([]string, error) {
	weeks, err := s.ledger.WeekIDs(ctx)
	if err != nil {
		return nil, err
	}
	now := domain.WeekID(s.clock())
	seen := make(map[string]bool, len(weeks)+1)
	out := make([]string, 0, len(weeks)+1)
	for _, w := range append(weeks, now) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// CurrentWeekID returns the ISO week of now.
func (s *GameService) CurrentWeekID() string {
	return domain.WeekID(s.clock())
}

func (s *GameService) named(rows []domain.RankingRow) []domain.RankingRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range rows {
		if name, ok := s.names[rows[i].UserID]; ok && name != "" {
			rows[i].DisplayName = name
		} else {
			rows[i].DisplayName = rows[i].UserID
		}
	}
	return rows
}
