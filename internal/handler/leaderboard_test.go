package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordbattle/duel-server-go/internal/model"
)

type leaderboardUserRepo struct {
	fakeUserRepo
	top []model.User
	err error
}

func (f *leaderboardUserRepo) TopByWins(ctx context.Context, limit int) ([]model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func TestLeaderboard(t *testing.T) {
	t.Run("lists players by wins", func(t *testing.T) {
		repo := &leaderboardUserRepo{top: []model.User{
			{ID: "alice", Username: "alice", TotalGames: 10, TotalWins: 8},
			{ID: "bob", Username: "bob", TotalGames: 10, TotalWins: 5},
		}}
		h := NewLeaderboardHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var entries []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0]["username"])
		assert.Equal(t, float64(80), entries[0]["win_rate"])
		assert.Equal(t, "bob", entries[1]["username"])
	})

	t.Run("empty leaderboard is an empty list", func(t *testing.T) {
		h := NewLeaderboardHandler(&leaderboardUserRepo{})

		req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("repository failure is a 500", func(t *testing.T) {
		h := NewLeaderboardHandler(&leaderboardUserRepo{err: errors.New("db down")})

		req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
