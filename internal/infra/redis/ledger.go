package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"vocab-quiz-service/internal/domain"
)

// Ledger stores score aggregates in Redis:
//
//	HINCRBY score:weekly:{weekID}:{userID} points|correct|wrong
//	HINCRBY score:total:{userID}           points|correct|wrong
//	SADD    score:weeks   {weekID}
//	SADD    score:users:{weekID} / score:users   {userID}
//
// Increments are atomic per field, so independent sessions for different
// users can write concurrently without read-modify-write races.
type Ledger struct {
	client *redis.Client
	clock  func() time.Time
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client, clock: time.Now}
}

func (l *Ledger) ApplyAttempt(ctx context.Context, userID, weekID string, res domain.AttemptResult) error {
	pipe := l.client.TxPipeline()
	weeklyKey := weeklyRecordKey(weekID, userID)
	totalKey := totalRecordKey(userID)
	if res.IsCorrect {
		pipe.HIncrBy(ctx, weeklyKey, "points", int64(res.Points))
		pipe.HIncrBy(ctx, weeklyKey, "correct", 1)
		pipe.HIncrBy(ctx, totalKey, "points", int64(res.Points))
		pipe.HIncrBy(ctx, totalKey, "correct", 1)
	} else {
		pipe.HIncrBy(ctx, weeklyKey, "wrong", 1)
		pipe.HIncrBy(ctx, totalKey, "wrong", 1)
	}
	pipe.SAdd(ctx, "score:weeks", weekID)
	pipe.SAdd(ctx, "score:users:"+weekID, userID)
	pipe.SAdd(ctx, "score:users", userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: apply attempt: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

func (l *Ledger) Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error) {
	return l.board(ctx, "score:users:"+weekID, func(userID string) string {
		return weeklyRecordKey(weekID, userID)
	})
}

func (l *Ledger) Total(ctx context.Context) (*domain.ScoreBoard, error) {
	return l.board(ctx, "score:users", totalRecordKey)
}

func (l *Ledger) WeekIDs(ctx context.Context) ([]string, error) {
	weeks, err := l.client.SMembers(ctx, "score:weeks").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list weeks: %v", domain.ErrRemoteUnavailable, err)
	}
	now := domain.WeekID(l.clock())
	found := false
	for _, w := range weeks {
		if w == now {
			found = true
			break
		}
	}
	if !found {
		weeks = append(weeks, now)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

// board reads every member's record hash. Members are sorted by user ID so
// the snapshot order, and therefore ranking tie-breaks, stay deterministic.
func (l *Ledger) board(ctx context.Context, membersKey string, recordKey func(string) string) (*domain.ScoreBoard, error) {
	userIDs, err := l.client.SMembers(ctx, membersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrRemoteUnavailable, err)
	}
	sort.Strings(userIDs)

	pipe := l.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, recordKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: read records: %v", domain.ErrRemoteUnavailable, err)
	}

	board := domain.NewScoreBoard()
	for i, userID := range userIDs {
		board.Set(userID, recordFromHash(cmds[i].Val()))
	}
	return board, nil
}

func recordFromHash(fields map[string]string) domain.ScoreRecord {
	return domain.ScoreRecord{
		Points:  atoi(fields["points"]),
		Correct: atoi(fields["correct"]),
		Wrong:   atoi(fields["wrong"]),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func weeklyRecordKey(weekID, userID string) string {
	return "score:weekly:" + weekID + ":" + userID
}

func totalRecordKey(userID string) string {
	return "score:total:" + userID
}
