package memory

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
)

const ledgerKey = "score_ledger_v1"

// Ledger is the in-memory ScoreLedger with optional snapshot persistence to a
// KVStore. The in-memory aggregates stay authoritative: a failed persistence
// write is logged and swallowed, never rolled back.
type Ledger struct {
	store KVStore // nil disables persistence
	clock func() time.Time

	mu     sync.Mutex
	weekly map[string]*boardState
	total  *boardState
}

// boardState keeps records plus their insertion order for deterministic
// snapshots.
type boardState struct {
	order   []string
	records map[string]domain.ScoreRecord
}

func newBoardState() *boardState {
	return &boardState{records: make(map[string]domain.ScoreRecord)}
}

func (b *boardState) apply(userID string, res domain.AttemptResult) {
	rec, ok := b.records[userID]
	if !ok {
		b.order = append(b.order, userID)
	}
	rec.Apply(res)
	b.records[userID] = rec
}

func (b *boardState) snapshot() *domain.ScoreBoard {
	board := domain.NewScoreBoard()
	for _, userID := range b.order {
		board.Set(userID, b.records[userID])
	}
	return board
}

// NewLedger returns a purely in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		clock:  time.Now,
		weekly: make(map[string]*boardState),
		total:  newBoardState(),
	}
}

// NewPersistentLedger loads any prior snapshot from store and writes one back
// after every applied attempt, best effort.
func NewPersistentLedger(store KVStore) *Ledger {
	l := NewLedger()
	l.store = store
	l.restore()
	return l
}

func (l *Ledger) ApplyAttempt(_ context.Context, userID, weekID string, res domain.AttemptResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	week, ok := l.weekly[weekID]
	if !ok {
		week = newBoardState()
		l.weekly[weekID] = week
	}
	week.apply(userID, res)
	l.total.apply(userID, res)

	// Persisting under the lock keeps snapshot writes in apply order; an
	// unlocked write could let an older snapshot land last.
	if l.store != nil {
		if err := l.store.Set(ledgerKey, l.marshalLocked()); err != nil {
			log.Printf("score snapshot write failed (keeping in-memory state): %v", err)
		}
	}
	return nil
}

func (l *Ledger) Weekly(_ context.Context, weekID string) (*domain.ScoreBoard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	week, ok := l.weekly[weekID]
	if !ok {
		return domain.NewScoreBoard(), nil
	}
	return week.snapshot(), nil
}

func (l *Ledger) Total(_ context.Context) (*domain.ScoreBoard, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total.snapshot(), nil
}

func (l *Ledger) WeekIDs(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := domain.WeekID(l.clock())
	seen := map[string]bool{now: true}
	weeks := []string{now}
	for w := range l.weekly {
		if !seen[w] {
			seen[w] = true
			weeks = append(weeks, w)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

// snapshot wire format; order slices preserve insertion order across restarts.
type ledgerSnapshot struct {
	Weekly map[string][]userRecord `json:"weekly"`
	Total  []userRecord            `json:"total"`
}

type userRecord struct {
	UserID string `json:"userId"`
	domain.ScoreRecord
}

func (l *Ledger) marshalLocked() []byte {
	snap := ledgerSnapshot{Weekly: make(map[string][]userRecord, len(l.weekly))}
	for weekID, week := range l.weekly {
		snap.Weekly[weekID] = week.toRecords()
	}
	snap.Total = l.total.toRecords()
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("score snapshot marshal failed: %v", err)
		return nil
	}
	return data
}

func (b *boardState) toRecords() []userRecord {
	out := make([]userRecord, 0, len(b.order))
	for _, userID := range b.order {
		out = append(out, userRecord{UserID: userID, ScoreRecord: b.records[userID]})
	}
	return out
}

func (b *boardState) fromRecords(recs []userRecord) {
	for _, r := range recs {
		if _, ok := b.records[r.UserID]; !ok {
			b.order = append(b.order, r.UserID)
		}
		b.records[r.UserID] = r.ScoreRecord
	}
}

func (l *Ledger) restore() {
	data, ok, err := l.store.Get(ledgerKey)
	if err != nil {
		log.Printf("score snapshot read failed, starting empty: %v", err)
		return
	}
	if !ok {
		return
	}
	var snap ledgerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("score snapshot corrupt, starting empty: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for weekID, recs := range snap.Weekly {
		week := newBoardState()
		week.fromRecords(recs)
		l.weekly[weekID] = week
	}
	l.total.fromRecords(snap.Total)
}
