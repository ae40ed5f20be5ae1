package vocab

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vocab-quiz-service/internal/domain"
)

// CSVSource reads vocabulary rows from a CSV file with header-named columns
// word,meaning,level (level optional). Fields are trimmed, blank lines are
// ignored, and rows missing word or meaning are dropped.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Load(_ context.Context) ([]domain.VocabularyItem, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrSourceUnavailable, s.path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", domain.ErrSourceUnavailable, s.path)
	}

	idxWord, idxMeaning, idxLevel := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "word":
			idxWord = i
		case "meaning":
			idxMeaning = i
		case "level":
			idxLevel = i
		}
	}
	if idxWord < 0 || idxMeaning < 0 {
		return nil, fmt.Errorf("%w: %s header must name word,meaning columns", domain.ErrSourceUnavailable, s.path)
	}

	items := make([]domain.VocabularyItem, 0, len(rows)-1)
	for _, cols := range rows[1:] {
		item := domain.VocabularyItem{Level: 1}
		if idxWord < len(cols) {
			item.Word = strings.TrimSpace(cols[idxWord])
		}
		if idxMeaning < len(cols) {
			item.Meaning = strings.TrimSpace(cols[idxMeaning])
		}
		if idxLevel >= 0 && idxLevel < len(cols) {
			if lv, err := strconv.Atoi(strings.TrimSpace(cols[idxLevel])); err == nil && lv > 0 {
				item.Level = lv
			}
		}
		items = append(items, item)
	}
	return Sanitize(items), nil
}
