package model

import "time"

// Match is a finished duel persisted to the database.
type Match struct {
	ID        int64     `db:"id" json:"id"`
	Room      string    `db:"room" json:"room"`
	P1ID      string    `db:"p1_id" json:"p1Id"`
	P2ID      string    `db:"p2_id" json:"p2Id"`
	ScoreP1   int       `db:"score_p1" json:"scoreP1"`
	ScoreP2   int       `db:"score_p2" json:"scoreP2"`
	WinnerID  *string   `db:"winner_id" json:"winnerId,omitempty"`
	Duration  int       `db:"duration" json:"duration"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateMatchParams struct {
	Room     string
	P1ID     string
	P2ID     string
	ScoreP1  int
	ScoreP2  int
	WinnerID *string
	Duration int
}
