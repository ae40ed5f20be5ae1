package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"vocab-quiz-service/internal/domain"
)

// VocabSource loads vocabulary rows from Postgres.
type VocabSource struct {
	pool *pgxpool.Pool
}

func NewVocabSource(pool *pgxpool.Pool) *VocabSource {
	return &VocabSource{pool: pool}
}

func (s *VocabSource) Load(ctx context.Context) ([]domain.VocabularyItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT word, meaning, level FROM vocab_items ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("%w: load vocab: %v", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var items []domain.VocabularyItem
	for rows.Next() {
		var it domain.VocabularyItem
		if err := rows.Scan(&it.Word, &it.Meaning, &it.Level); err != nil {
			return nil, fmt.Errorf("%w: scan vocab row: %v", domain.ErrSourceUnavailable, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read vocab: %v", domain.ErrSourceUnavailable, err)
	}
	return items, nil
}
