package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/wordbattle/duel-server-go/internal/errors"
	"github.com/wordbattle/duel-server-go/internal/httputil"
	"github.com/wordbattle/duel-server-go/internal/repository"
)

const leaderboardSize = 10

// LeaderboardHandler serves the public top-players list. No auth required.
type LeaderboardHandler struct {
	users repository.UserRepository
}

func NewLeaderboardHandler(users repository.UserRepository) *LeaderboardHandler {
	return &LeaderboardHandler{users: users}
}

func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.TopByWins(r.Context(), leaderboardSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to load leaderboard")
		httputil.WriteError(w, apperrors.Internal("Failed to load leaderboard"))
		return
	}

	entries := make([]map[string]any, 0, len(users))
	for _, user := range users {
		entries = append(entries, map[string]any{
			"username":    user.Username,
			"total_games": user.TotalGames,
			"total_wins":  user.TotalWins,
			"win_rate":    user.WinRate(),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, entries)
}
