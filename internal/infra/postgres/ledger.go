package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vocab-quiz-service/internal/domain"
)

// Ledger stores score aggregates in Postgres. Increments are applied with
// ON CONFLICT upserts inside one transaction, so the weekly and total rows
// move together and concurrent writers for different users cannot interleave
// a read-modify-write.
type Ledger struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool, clock: time.Now}
}

func (l *Ledger) ApplyAttempt(ctx context.Context, userID, weekID string, res domain.AttemptResult) error {
	points, correct, wrong := 0, 0, 1
	if res.IsCorrect {
		points, correct, wrong = res.Points, 1, 0
	}

	err := l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO score_weekly (user_id, week_id, points, correct, wrong)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, week_id) DO UPDATE SET
				points  = score_weekly.points  + EXCLUDED.points,
				correct = score_weekly.correct + EXCLUDED.correct,
				wrong   = score_weekly.wrong   + EXCLUDED.wrong`,
			userID, weekID, points, correct, wrong); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO score_total (user_id, points, correct, wrong)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				points  = score_total.points  + EXCLUDED.points,
				correct = score_total.correct + EXCLUDED.correct,
				wrong   = score_total.wrong   + EXCLUDED.wrong`,
			userID, points, correct, wrong)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: apply attempt: %v", domain.ErrRemoteUnavailable, err)
	}
	return nil
}

func (l *Ledger) Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT user_id, points, correct, wrong
		FROM score_weekly
		WHERE week_id = $1
		ORDER BY user_id`, weekID)
	if err != nil {
		return nil, fmt.Errorf("%w: weekly board: %v", domain.ErrRemoteUnavailable, err)
	}
	return scanBoard(rows)
}

func (l *Ledger) Total(ctx context.Context) (*domain.ScoreBoard, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT user_id, points, correct, wrong
		FROM score_total
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: total board: %v", domain.ErrRemoteUnavailable, err)
	}
	return scanBoard(rows)
}

func (l *Ledger) WeekIDs(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT DISTINCT week_id FROM score_weekly`)
	if err != nil {
		return nil, fmt.Errorf("%w: list weeks: %v", domain.ErrRemoteUnavailable, err)
	}
	defer rows.Close()

	now := domain.WeekID(l.clock())
	seen := map[string]bool{now: true}
	weeks := []string{now}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("%w: list weeks: %v", domain.ErrRemoteUnavailable, err)
		}
		if !seen[w] {
			seen[w] = true
			weeks = append(weeks, w)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list weeks: %v", domain.ErrRemoteUnavailable, err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

func scanBoard(rows pgx.Rows) (*domain.ScoreBoard, error) {
	defer rows.Close()
	board := domain.NewScoreBoard()
	for rows.Next() {
		var userID string
		var rec domain.ScoreRecord
		if err := rows.Scan(&userID, &rec.Points, &rec.Correct, &rec.Wrong); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", domain.ErrRemoteUnavailable, err)
		}
		board.Set(userID, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read board: %v", domain.ErrRemoteUnavailable, err)
	}
	return board, nil
}
