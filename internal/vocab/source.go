package vocab

import (
	"context"

	"vocab-quiz-service/internal/domain"
)

// Source supplies vocabulary rows from a backing feed (CSV file, database).
type Source interface {
	Load(ctx context.Context) ([]domain.VocabularyItem, error)
}

// StaticSource serves a fixed item list (useful for tests and demos).
type StaticSource struct {
	items []domain.VocabularyItem
}

func NewStaticSource(items []domain.VocabularyItem) *StaticSource {
	return &StaticSource{items: items}
}

func (s *StaticSource) Load(_ context.Context) ([]domain.VocabularyItem, error) {
	out := make([]domain.VocabularyItem, len(s.items))
	copy(out, s.items)
	return out, nil
}
