package app

import (
	"math/rand"

	"github.com/google/uuid"

	"vocab-quiz-service/internal/domain"
)

// history is a bounded FIFO of recently seen values.
type history struct {
	capacity int
	values   []string
}

func newHistory(capacity int) *history {
	return &history{capacity: capacity}
}

func (h *history) contains(v string) bool {
	for _, x := range h.values {
		if x == v {
			return true
		}
	}
	return false
}

// allEqual reports whether the buffer is full and every entry equals v.
func (h *history) allEqual(v string) bool {
	if h.capacity == 0 || len(h.values) < h.capacity {
		return false
	}
	for _, x := range h.values {
		if x != v {
			return false
		}
	}
	return true
}

func (h *history) push(v string) {
	if h.capacity == 0 {
		return
	}
	h.values = append(h.values, v)
	if len(h.values) > h.capacity {
		h.values = h.values[1:]
	}
}

// SelectorConfig tunes question selection and de-bias behavior.
type SelectorConfig struct {
	RecentWords       int    // word anti-repeat window, K
	RecentLabels      int    // correct-slot de-bias window, M
	ReshuffleAttempts int    // bounded retries against slot repetition
	Prompt            string // prompt text shown with every question
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.RecentWords <= 0 {
		c.RecentWords = 6
	}
	if c.RecentLabels <= 0 {
		c.RecentLabels = 3
	}
	if c.ReshuffleAttempts <= 0 {
		c.ReshuffleAttempts = 10
	}
	if c.Prompt == "" {
		c.Prompt = "意味として正しいものは？"
	}
	return c
}

// questionSelector builds 4-way choice questions from a pool, avoiding recent
// word repeats and damping correct-slot bias. State is private to one session.
type questionSelector struct {
	cfg          SelectorConfig
	rnd          *rand.Rand
	recentWords  *history
	recentLabels *history
}

func newQuestionSelector(cfg SelectorConfig, rnd *rand.Rand) *questionSelector {
	cfg = cfg.withDefaults()
	return &questionSelector{
		cfg:          cfg,
		rnd:          rnd,
		recentWords:  newHistory(cfg.RecentWords),
		recentLabels: newHistory(cfg.RecentLabels),
	}
}

// next issues one question and returns it with its answer key. level > 0
// restricts word selection to items of that level; the filter falls back to
// the whole pool when it leaves fewer than 4 items. Distractors always draw
// from the full pool so the choice set stays well mixed.
func (s *questionSelector) next(pool []domain.VocabularyItem, level int) (domain.Question, domain.Label, error) {
	if len(pool) < 4 {
		return domain.Question{}, "", domain.ErrPoolTooSmall
	}

	chosen := s.pickWord(byLevel(pool, level))
	s.recentWords.push(chosen.Word)

	distractors, degraded := s.pickDistractors(pool, chosen)

	meanings := append([]string{chosen.Meaning}, distractors...)
	label := s.placeCorrect(meanings, chosen.Meaning)
	s.recentLabels.push(string(label))

	q := domain.Question{
		ID:       uuid.NewString(),
		Word:     chosen.Word,
		Prompt:   s.cfg.Prompt,
		ChoiceA:  meanings[0],
		ChoiceB:  meanings[1],
		ChoiceC:  meanings[2],
		ChoiceD:  meanings[3],
		Degraded: degraded,
	}
	return q, label, nil
}

// byLevel filters the pool to one difficulty level. level <= 0 means all
// levels; a filtered set too small for a 4-way choice falls back to the
// whole pool rather than blocking issuance.
func byLevel(pool []domain.VocabularyItem, level int) []domain.VocabularyItem {
	if level <= 0 {
		return pool
	}
	filtered := make([]domain.VocabularyItem, 0, len(pool))
	for _, it := range pool {
		if it.Level == level {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) < 4 {
		return pool
	}
	return filtered
}

// pickWord selects uniformly among pool items not in the recent-word window,
// falling back to the whole pool when the window excludes everything.
func (s *questionSelector) pickWord(pool []domain.VocabularyItem) domain.VocabularyItem {
	candidates := make([]domain.VocabularyItem, 0, len(pool))
	for _, it := range pool {
		if !s.recentWords.contains(it.Word) {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}
	return candidates[s.rnd.Intn(len(candidates))]
}

// pickDistractors draws 3 meanings from items with a different word, shuffled
// without replacement, preferring distinct meaning texts. Duplicate meanings
// are used only as a last resort; the second return flags that degraded case.
func (s *questionSelector) pickDistractors(pool []domain.VocabularyItem, chosen domain.VocabularyItem) ([]string, bool) {
	others := make([]domain.VocabularyItem, 0, len(pool)-1)
	for _, it := range pool {
		if it.Word != chosen.Word {
			others = append(others, it)
		}
	}
	s.rnd.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	seen := map[string]bool{chosen.Meaning: true}
	distractors := make([]string, 0, 3)
	for _, it := range others {
		if len(distractors) == 3 {
			break
		}
		if seen[it.Meaning] {
			continue
		}
		seen[it.Meaning] = true
		distractors = append(distractors, it.Meaning)
	}
	if len(distractors) == 3 {
		return distractors, false
	}

	// Distractor starvation: reuse meanings rather than refusing to issue.
	for i := 0; len(distractors) < 3 && len(others) > 0; i++ {
		distractors = append(distractors, others[i%len(others)].Meaning)
	}
	for len(distractors) < 3 {
		distractors = append(distractors, chosen.Meaning)
	}
	return distractors, true
}

// placeCorrect shuffles the four meanings onto labels A-D. When the correct
// slot would repeat the single label seen across the whole de-bias window it
// reshuffles, a bounded number of times; repetition is damped, not prevented.
func (s *questionSelector) placeCorrect(meanings []string, correct string) domain.Label {
	label := s.shuffleOnce(meanings, correct)
	for attempt := 0; attempt < s.cfg.ReshuffleAttempts && s.recentLabels.allEqual(string(label)); attempt++ {
		label = s.shuffleOnce(meanings, correct)
	}
	return label
}

func (s *questionSelector) shuffleOnce(meanings []string, correct string) domain.Label {
	s.rnd.Shuffle(len(meanings), func(i, j int) { meanings[i], meanings[j] = meanings[j], meanings[i] })
	for i, m := range meanings {
		if m == correct {
			return domain.Labels[i]
		}
	}
	return domain.LabelA // unreachable: correct is always present
}
