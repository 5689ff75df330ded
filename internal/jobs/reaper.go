package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/model"
)

// Completer finishes a room. *arena.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error
}

// ReaperJob sweeps up rooms whose timer died before completing them: a
// persistence failure rolls the completion guard back, but by then the timer
// task has already exited and no forfeit may ever arrive. The sweep finds
// rooms past their expected end with no guard set and retries completion.
type ReaperJob struct {
	store     *game.Store
	completer Completer
	interval  time.Duration
	grace     time.Duration
	done      chan struct{}
}

func NewReaperJob(store *game.Store, completer Completer, interval, grace time.Duration) *ReaperJob {
	return &ReaperJob{
		store:     store,
		completer: completer,
		interval:  interval,
		grace:     grace,
		done:      make(chan struct{}),
	}
}

func (j *ReaperJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reaper job started")
}

func (j *ReaperJob) Stop() {
	close(j.done)
	log.Info().Msg("reaper job stopped")
}

func (j *ReaperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			j.Sweep(ctx, time.Now())
			cancel()
		}
	}
}

// Sweep examines every room in the active set once.
func (j *ReaperJob) Sweep(ctx context.Context, now time.Time) {
	rooms, err := j.store.ActiveRooms(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reaper failed to list active rooms")
		return
	}

	for _, room := range rooms {
		j.sweepRoom(ctx, room, now)
	}
}

func (j *ReaperJob) sweepRoom(ctx context.Context, room string, now time.Time) {
	meta, err := j.store.Meta(ctx, room)
	if errors.Is(err, game.ErrNotFound) {
		// State expired or was cleaned without touching the set entry.
		if err := j.store.ForgetRoom(ctx, room); err != nil {
			log.Warn().Err(err).Str("room", room).Msg("failed to drop stale room from active set")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("reaper failed to read room")
		return
	}

	deadline := time.Unix(meta.StartTime, 0).Add(time.Duration(meta.Duration) * time.Second).Add(j.grace)
	if now.Before(deadline) {
		return
	}

	ended, err := j.store.Ended(ctx, room)
	if err != nil || ended {
		return
	}

	log.Warn().Str("room", room).Time("deadline", deadline).Msg("reaping stuck room")
	if err := j.completer.Complete(ctx, room, model.ReasonExpired, ""); err != nil {
		log.Error().Err(err).Str("room", room).Msg("reaper completion failed")
	}
}
