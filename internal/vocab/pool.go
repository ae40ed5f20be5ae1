package vocab

import (
	"strings"
	"sync"

	"vocab-quiz-service/internal/domain"
)

// MinPoolSize is the smallest pool that can back a 4-way choice set.
const MinPoolSize = 4

// Pool holds the current vocabulary entries. Replacement is all-or-nothing:
// an incoming list takes effect only when it still has at least MinPoolSize
// valid rows, otherwise the existing pool is kept unchanged.
type Pool struct {
	mu    sync.RWMutex
	items []domain.VocabularyItem
}

// NewPool returns a pool seeded with the built-in fallback set, so question
// issuance works before any external source has been loaded.
func NewPool() *Pool {
	return &Pool{items: FallbackItems()}
}

// Replace swaps in a new item list after validation. Rows with an empty word
// or meaning are dropped; a non-positive level defaults to 1. When fewer than
// MinPoolSize rows survive, the swap is rejected with ErrPoolTooSmall and the
// prior pool stays active.
func (p *Pool) Replace(items []domain.VocabularyItem) error {
	valid := Sanitize(items)
	if len(valid) < MinPoolSize {
		return domain.ErrPoolTooSmall
	}

	p.mu.Lock()
	p.items = valid
	p.mu.Unlock()
	return nil
}

// Items returns a copy of the current entries. Never fewer than MinPoolSize.
func (p *Pool) Items() []domain.VocabularyItem {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.VocabularyItem, len(p.items))
	copy(out, p.items)
	return out
}

// Size returns the current pool size.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Sanitize trims fields, drops rows missing a word or meaning, and defaults
// the level to 1.
func Sanitize(items []domain.VocabularyItem) []domain.VocabularyItem {
	valid := make([]domain.VocabularyItem, 0, len(items))
	for _, it := range items {
		it.Word = strings.TrimSpace(it.Word)
		it.Meaning = strings.TrimSpace(it.Meaning)
		if it.Word == "" || it.Meaning == "" {
			continue
		}
		if it.Level < 1 {
			it.Level = 1
		}
		valid = append(valid, it)
	}
	return valid
}

// FallbackItems is the hardcoded minimum set used when no source is usable.
func FallbackItems() []domain.VocabularyItem {
	return []domain.VocabularyItem{
		{Word: "憂慮", Meaning: "心配して気にかけること", Level: 1},
		{Word: "端緒", Meaning: "物事のはじまり・きっかけ", Level: 1},
		{Word: "恣意的", Meaning: "自分勝手で根拠がないさま", Level: 1},
		{Word: "形骸化", Meaning: "中身が失われ形だけ残ること", Level: 1},
	}
}
