package model

import "time"

type User struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	TotalGames int       `db:"total_games" json:"totalGames"`
	TotalWins  int       `db:"total_wins" json:"totalWins"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// WinRate is the user's win percentage over all recorded games.
func (u *User) WinRate() float64 {
	if u.TotalGames == 0 {
		return 0.0
	}
	return float64(u.TotalWins) / float64(u.TotalGames) * 100
}
