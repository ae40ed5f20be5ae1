// Package rank derives leaderboards from score ledger snapshots. Rankings are
// computed on demand and never persisted.
package rank

import (
	"sort"

	"vocab-quiz-service/internal/domain"
)

// TopN returns the n best rows of the board sorted by points desc, correct
// desc. Ties keep the board's snapshot order so that repeated calls on the
// same data yield identical output. Ranks are 1-based. n <= 0 returns all.
func TopN(board *domain.ScoreBoard, n int) []domain.RankingRow {
	rows := sortedRows(board)
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// RankOf returns the row for userID, or nil when the user has no record in
// the snapshot. Absence is a normal "no data yet" condition, not an error.
func RankOf(board *domain.ScoreBoard, userID string) *domain.RankingRow {
	for _, row := range sortedRows(board) {
		if row.UserID == userID {
			r := row
			return &r
		}
	}
	return nil
}

func sortedRows(board *domain.ScoreBoard) []domain.RankingRow {
	if board == nil {
		return nil
	}
	rows := make([]domain.RankingRow, 0, board.Len())
	for _, userID := range board.Users() {
		rec, _ := board.Get(userID)
		rows = append(rows, domain.RankingRow{
			UserID:  userID,
			Points:  rec.Points,
			Correct: rec.Correct,
			Wrong:   rec.Wrong,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Correct > rows[j].Correct
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
