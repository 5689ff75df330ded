package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/wordbattle/duel-server-go/internal/errors"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/httputil"
	"github.com/wordbattle/duel-server-go/internal/matchmaker"
	"github.com/wordbattle/duel-server-go/internal/middleware"
	"github.com/wordbattle/duel-server-go/internal/model"
	"github.com/wordbattle/duel-server-go/internal/repository"
)

// Completer finishes a room. *arena.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error
}

// GameHandler exposes the matchmaking and match HTTP surface.
type GameHandler struct {
	queue     *matchmaker.Queue
	presence  *matchmaker.Presence
	store     *game.Store
	completer Completer
	users     repository.UserRepository
}

func NewGameHandler(
	queue *matchmaker.Queue,
	presence *matchmaker.Presence,
	store *game.Store,
	completer Completer,
	users repository.UserRepository,
) *GameHandler {
	return &GameHandler{
		queue:     queue,
		presence:  presence,
		store:     store,
		completer: completer,
		users:     users,
	}
}

func (h *GameHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/queue", h.JoinQueue)
	r.Delete("/queue", h.LeaveQueue)
	r.Get("/match/active", h.ActiveMatch)
	r.Post("/match/{room}/forfeit", h.Forfeit)
	r.Get("/stats", h.Stats)
	return r
}

// JoinQueue enters the caller into matchmaking.
func (h *GameHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// Queueing counts as a liveness signal; without a lease the
	// matchmaker would discard this entry immediately.
	h.presence.Touch(r.Context(), userID)

	if err := h.queue.Enqueue(r.Context(), userID); err != nil {
		if errors.Is(err, matchmaker.ErrAlreadyQueued) {
			httputil.WriteError(w, apperrors.AlreadyQueued())
			return
		}
		log.Error().Err(err).Str("user", userID).Msg("failed to enqueue user")
		httputil.WriteError(w, apperrors.StoreUnavailable(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"queued":  true,
		"user_id": userID,
	})
}

// LeaveQueue removes the caller from matchmaking.
func (h *GameHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.queue.Remove(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to dequeue user")
		httputil.WriteError(w, apperrors.StoreUnavailable(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"queued": false})
}

// ActiveMatch returns the caller's current assignment so a reloaded page can
// rejoin its room without having seen the match_found push.
func (h *GameHandler) ActiveMatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	active, err := h.store.ActiveMatch(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, apperrors.StoreUnavailable(err))
		return
	}
	if active == nil {
		httputil.WriteError(w, apperrors.NotFound("Active match"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, active)
}

// Forfeit concedes the game to the opponent. Forfeiting a room that already
// ended is a no-op, not an error.
func (h *GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	room := chi.URLParam(r, "room")

	err := h.completer.Complete(r.Context(), room, model.ReasonForfeit, userID)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	case errors.Is(err, game.ErrNotFound):
		httputil.WriteError(w, apperrors.NotFound("Game"))
	case errors.Is(err, game.ErrNotParticipant):
		httputil.WriteError(w, apperrors.Unauthorized("Not a participant in this game"))
	case errors.Is(err, game.ErrCorruptState):
		httputil.WriteError(w, apperrors.CorruptState(room))
	default:
		log.Error().Err(err).Str("room", room).Msg("forfeit failed")
		httputil.WriteError(w, err)
	}
}

// Stats returns the caller's cumulative record.
func (h *GameHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load user stats")
		httputil.WriteError(w, apperrors.Internal("Failed to load stats"))
		return
	}
	if user == nil {
		httputil.WriteError(w, apperrors.NotFound("User"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"username":    user.Username,
		"total_games": user.TotalGames,
		"total_wins":  user.TotalWins,
		"win_rate":    user.WinRate(),
	})
}
