package arena

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/database"
	apperrors "github.com/wordbattle/duel-server-go/internal/errors"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/model"
	"github.com/wordbattle/duel-server-go/internal/repository"
)

// TxRunner runs a function inside one database transaction. *database.DB
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// Completer ends games exactly once. Timer expiry and forfeit both funnel
// into Complete; the guard key in the store decides which trigger wins, and
// the loser returns without side effects.
type Completer struct {
	store   *game.Store
	db      TxRunner
	matches repository.MatchRepository
	users   repository.UserRepository
	bus     *bus.Bus
}

func NewCompleter(
	store *game.Store,
	db TxRunner,
	matches repository.MatchRepository,
	users repository.UserRepository,
	eventBus *bus.Bus,
) *Completer {
	return &Completer{
		store:   store,
		db:      db,
		matches: matches,
		users:   users,
		bus:     eventBus,
	}
}

// Complete persists and announces the room's outcome. forfeiterID is set
// only when reason is ReasonForfeit. Completing a room whose guard is
// already claimed is a silent no-op.
func (c *Completer) Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error {
	if reason == model.ReasonForfeit {
		if err := c.validateForfeit(ctx, room, forfeiterID); err != nil {
			return err
		}
	}

	claimed, err := c.store.ClaimEnd(ctx, room, reason)
	if err != nil {
		return apperrors.StoreUnavailable(err)
	}
	if !claimed {
		log.Debug().Str("room", room).Str("reason", string(reason)).Msg("completion already claimed by another trigger")
		return nil
	}

	meta, err := c.store.Meta(ctx, room)
	if err != nil {
		// Metadata vanished between the claim and the read. Hand the
		// guard back so nothing is left half-ended.
		if relErr := c.store.ReleaseEnd(ctx, room); relErr != nil {
			log.Error().Err(relErr).Str("room", room).Msg("failed to release completion guard")
		}
		return err
	}

	scores, err := c.store.Scores(ctx, room)
	if err != nil {
		if relErr := c.store.ReleaseEnd(ctx, room); relErr != nil {
			log.Error().Err(relErr).Str("room", room).Msg("failed to release completion guard")
		}
		return apperrors.StoreUnavailable(err)
	}

	winnerID := Winner(meta, scores, reason, forfeiterID)

	if err := c.persist(ctx, meta, scores, winnerID); err != nil {
		// Roll the guard back: the room stays intact for a later
		// trigger (the reaper sweep revisits it).
		if relErr := c.store.ReleaseEnd(ctx, room); relErr != nil {
			log.Error().Err(relErr).Str("room", room).Msg("failed to release completion guard after persistence failure")
		}
		log.Error().Err(err).Str("room", room).Msg("failed to persist match result")
		return apperrors.PersistenceFailure(err)
	}

	if err := c.store.MarkEnded(ctx, room); err != nil {
		log.Warn().Err(err).Str("room", room).Msg("failed to mark game ended")
	}

	c.announce(ctx, room, scores, winnerID, reason, forfeiterID)

	if err := c.store.Cleanup(ctx, room); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to clean up game state")
	}

	log.Info().
		Str("room", room).
		Str("reason", string(reason)).
		Int("scoreP1", scores.P1).
		Int("scoreP2", scores.P2).
		Msg("game completed")

	return nil
}

// validateForfeit runs before the guard is touched: the requester must be a
// participant of an existing room.
func (c *Completer) validateForfeit(ctx context.Context, room, forfeiterID string) error {
	meta, err := c.store.Meta(ctx, room)
	if err != nil {
		return err
	}
	if _, ok := meta.SlotOf(forfeiterID); !ok {
		return game.ErrNotParticipant
	}
	return nil
}

// persist writes the match row and both players' cumulative stats as one
// logical unit.
func (c *Completer) persist(ctx context.Context, meta *model.GameMeta, scores model.Scores, winnerID *string) error {
	return c.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		matches := c.matches.WithTx(tx)
		users := c.users.WithTx(tx)

		if _, err := matches.Create(ctx, model.CreateMatchParams{
			Room:     meta.Room,
			P1ID:     meta.P1,
			P2ID:     meta.P2,
			ScoreP1:  scores.P1,
			ScoreP2:  scores.P2,
			WinnerID: winnerID,
			Duration: meta.Duration,
		}); err != nil {
			return err
		}

		if err := users.BumpStats(ctx, meta.P1, winnerID != nil && *winnerID == meta.P1); err != nil {
			return err
		}
		return users.BumpStats(ctx, meta.P2, winnerID != nil && *winnerID == meta.P2)
	})
}

func (c *Completer) announce(ctx context.Context, room string, scores model.Scores, winnerID *string, reason model.EndReason, forfeiterID string) {
	if err := c.bus.Publish(ctx, bus.Event{
		Type:     bus.TypeMatchResultSaved,
		Room:     room,
		WinnerID: winnerID,
		Scores:   &scores,
	}); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to publish match_result_saved")
	}

	if err := c.bus.Publish(ctx, bus.Event{
		Type:          bus.TypeGameOver,
		Room:          room,
		FinalScores:   &scores,
		WinnerID:      winnerID,
		Reason:        string(reason),
		SurrenderedBy: forfeiterID,
	}); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to publish game_over")
	}
}

// Winner applies the outcome rules: a forfeit hands the win to the opponent
// regardless of score, otherwise the higher score wins and equal scores tie
// (nil winner).
func Winner(meta *model.GameMeta, scores model.Scores, reason model.EndReason, forfeiterID string) *string {
	if reason == model.ReasonForfeit && forfeiterID != "" {
		opponent := meta.Opponent(forfeiterID)
		return &opponent
	}

	switch {
	case scores.P1 > scores.P2:
		return &meta.P1
	case scores.P2 > scores.P1:
		return &meta.P2
	default:
		return nil
	}
}
