package domain

// Label identifies one of the four answer slots of a question.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"
)

// Labels lists the answer slots in presentation order.
var Labels = [4]Label{LabelA, LabelB, LabelC, LabelD}

// Valid reports whether the label is one of A-D.
func (l Label) Valid() bool {
	switch l {
	case LabelA, LabelB, LabelC, LabelD:
		return true
	}
	return false
}

// VocabularyItem is one word/meaning entry of the quiz pool.
// Items are immutable once loaded; the pool is replaced wholesale, never patched.
type VocabularyItem struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Level   int    `json:"level"` // defaults to 1 when the source omits it
}

// Question is a 4-way multiple choice round as shown to clients.
// The correct label is tracked by the issuing session, not carried here.
type Question struct {
	ID      string `json:"id"`
	Word    string `json:"word"`
	Prompt  string `json:"prompt"`
	ChoiceA string `json:"choiceA"`
	ChoiceB string `json:"choiceB"`
	ChoiceC string `json:"choiceC"`
	ChoiceD string `json:"choiceD"`
	// Degraded marks a question built with duplicate distractor text because
	// the pool had too few distinct meanings left.
	Degraded bool `json:"degraded,omitempty"`
}

// Choice returns the text shown under a label.
func (q Question) Choice(l Label) string {
	switch l {
	case LabelA:
		return q.ChoiceA
	case LabelB:
		return q.ChoiceB
	case LabelC:
		return q.ChoiceC
	case LabelD:
		return q.ChoiceD
	}
	return ""
}

// AttemptResult is the outcome of verifying one submitted answer.
// It is consumed immediately by score recording and never stored as-is.
type AttemptResult struct {
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
	WeekID    string `json:"weekId"`
}

// ScoreRecord is the per-user aggregate for one week or for all time.
type ScoreRecord struct {
	Points  int `json:"points"`
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// Apply folds one attempt outcome into the record.
func (r *ScoreRecord) Apply(res AttemptResult) {
	if res.IsCorrect {
		r.Points += res.Points
		r.Correct++
	} else {
		r.Wrong++
	}
}

// RankingRow is a derived leaderboard line; never persisted.
type RankingRow struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"`
	Correct     int    `json:"correct"`
	Wrong       int    `json:"wrong"`
	Rank        int    `json:"rank"`
}

// SessionResult summarizes a finished game round.
type SessionResult struct {
	Score    int    `json:"score"`
	MaxCombo int    `json:"maxCombo"`
	Correct  int    `json:"correct"`
	Wrong    int    `json:"wrong"`
	WeekID   string `json:"weekId"`
}
