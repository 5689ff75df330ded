package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/matchmaker"
	"github.com/wordbattle/duel-server-go/internal/middleware"
	"github.com/wordbattle/duel-server-go/internal/model"
	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
	"github.com/wordbattle/duel-server-go/internal/repository"
)

type fakeCompleter struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeCompleter) Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, room)
	return f.err
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) BumpStats(ctx context.Context, id string, won bool) error { return nil }

func (f *fakeUserRepo) TopByWins(ctx context.Context, limit int) ([]model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository { return f }

type handlerFixture struct {
	router    chi.Router
	queue     *matchmaker.Queue
	presence  *matchmaker.Presence
	store     *game.Store
	completer *fakeCompleter
	users     *fakeUserRepo
}

// asUser stamps every request with an authenticated identity, standing in for
// the auth middleware.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setupHandler(t *testing.T, userID string) *handlerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	counter := 0
	store := game.NewStore(client, func() string {
		counter++
		return fmt.Sprintf("WORD%d", counter)
	})
	queue := matchmaker.NewQueue(client)
	presence := matchmaker.NewPresence(client, time.Minute)
	completer := &fakeCompleter{}
	users := &fakeUserRepo{users: map[string]*model.User{}}

	h := NewGameHandler(queue, presence, store, completer, users)

	router := chi.NewRouter()
	router.Use(asUser(userID))
	router.Mount("/", h.Routes())

	return &handlerFixture{
		router:    router,
		queue:     queue,
		presence:  presence,
		store:     store,
		completer: completer,
		users:     users,
	}
}

func doRequest(t *testing.T, router chi.Router, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestJoinQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("queues the caller and refreshes presence", func(t *testing.T) {
		f := setupHandler(t, "alice")

		rec, body := doRequest(t, f.router, http.MethodPost, "/queue")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["queued"])
		assert.Equal(t, "alice", body["user_id"])

		assert.True(t, f.presence.IsOnline(ctx, "alice"))
		n, err := f.queue.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("double join conflicts", func(t *testing.T) {
		f := setupHandler(t, "alice")

		rec, _ := doRequest(t, f.router, http.MethodPost, "/queue")
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body := doRequest(t, f.router, http.MethodPost, "/queue")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_QUEUED", body["code"])
	})
}

func TestLeaveQueue(t *testing.T) {
	ctx := context.Background()
	f := setupHandler(t, "alice")

	require.NoError(t, f.queue.Enqueue(ctx, "alice"))

	rec, body := doRequest(t, f.router, http.MethodDelete, "/queue")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["queued"])

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Leaving when not queued is still fine.
	rec, _ = doRequest(t, f.router, http.MethodDelete, "/queue")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActiveMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("404 when unassigned", func(t *testing.T) {
		f := setupHandler(t, "alice")

		rec, body := doRequest(t, f.router, http.MethodGet, "/match/active")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})

	t.Run("returns the assignment", func(t *testing.T) {
		f := setupHandler(t, "alice")
		require.NoError(t, f.store.SetActiveMatch(ctx, "alice", "room-1", model.SlotP2))

		rec, body := doRequest(t, f.router, http.MethodGet, "/match/active")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "room-1", body["room"])
		assert.Equal(t, "p2", body["slot"])
	})
}

func TestForfeit(t *testing.T) {
	t.Run("concedes the game", func(t *testing.T) {
		f := setupHandler(t, "alice")

		rec, body := doRequest(t, f.router, http.MethodPost, "/match/room-1/forfeit")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, []string{"room-1"}, f.completer.calls)
	})

	t.Run("maps domain errors to statuses", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"missing room", game.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
			{"outsider", game.ErrNotParticipant, http.StatusUnauthorized, "UNAUTHORIZED"},
			{"corrupt metadata", game.ErrCorruptState, http.StatusInternalServerError, "CORRUPT_STATE"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setupHandler(t, "alice")
				f.completer.err = tt.err

				rec, body := doRequest(t, f.router, http.MethodPost, "/match/room-1/forfeit")
				assert.Equal(t, tt.wantStatus, rec.Code)
				assert.Equal(t, tt.wantCode, body["code"])
			})
		}
	})
}

func TestStats(t *testing.T) {
	t.Run("returns the caller's record", func(t *testing.T) {
		f := setupHandler(t, "alice")
		f.users.users["alice"] = &model.User{
			ID:         "alice",
			Username:   "alice",
			TotalGames: 4,
			TotalWins:  3,
		}

		rec, body := doRequest(t, f.router, http.MethodGet, "/stats")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, float64(4), body["total_games"])
		assert.Equal(t, float64(3), body["total_wins"])
		assert.Equal(t, float64(75), body["win_rate"])
	})

	t.Run("404 for an unknown user", func(t *testing.T) {
		f := setupHandler(t, "nobody")

		rec, body := doRequest(t, f.router, http.MethodGet, "/stats")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})
}
