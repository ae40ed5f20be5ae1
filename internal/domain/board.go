package domain

// ScoreBoard is an ordered snapshot of per-user score records. The order is
// fixed at snapshot time (insertion order for in-memory ledgers, user ID order
// for shared stores) so that ranking tie-breaks stay deterministic across
// repeated reads of the same data.
type ScoreBoard struct {
	order   []string
	records map[string]ScoreRecord
}

func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{records: make(map[string]ScoreRecord)}
}

// Set stores the record for userID, appending to the order on first sight.
func (b *ScoreBoard) Set(userID string, rec ScoreRecord) {
	if _, ok := b.records[userID]; !ok {
		b.order = append(b.order, userID)
	}
	b.records[userID] = rec
}

// Get returns the record for userID and whether one exists.
func (b *ScoreBoard) Get(userID string) (ScoreRecord, bool) {
	rec, ok := b.records[userID]
	return rec, ok
}

// Users returns the user IDs in snapshot order.
func (b *ScoreBoard) Users() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *ScoreBoard) Len() int {
	return len(b.order)
}
