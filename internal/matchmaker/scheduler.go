package matchmaker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/model"
)

// firstPopWait bounds each blocking pop so the loop can notice shutdown.
const firstPopWait = time.Second

// Scheduler is the single matchmaking consumer. Exactly one instance may run
// against a queue: two schedulers popping the same list could pair one user
// into two rooms.
type Scheduler struct {
	queue      *Queue
	presence   *Presence
	store      *game.Store
	bus        *bus.Bus
	clock      clockwork.Clock
	duration   int
	secondWait time.Duration
}

func NewScheduler(
	queue *Queue,
	presence *Presence,
	store *game.Store,
	eventBus *bus.Bus,
	clock clockwork.Clock,
	gameDuration int,
	secondWait time.Duration,
) *Scheduler {
	return &Scheduler{
		queue:      queue,
		presence:   presence,
		store:      store,
		bus:        eventBus,
		clock:      clock,
		duration:   gameDuration,
		secondWait: secondWait,
	}
}

// Run loops until ctx is cancelled. Transient store errors are logged and
// retried after a short backoff; the loop never exits on them.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().
		Int("gameDuration", s.duration).
		Dur("secondWait", s.secondWait).
		Msg("matchmaker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("matchmaker stopped")
			return
		default:
		}

		if err := s.pairOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("matchmaking iteration failed")
			s.clock.Sleep(config.MatchmakerErrorBackoff)
		}
	}
}

// pairOnce attempts a single pairing. Returning nil with no pairing made is
// normal (empty queue, lone candidate pushed back, self-match abort).
func (s *Scheduler) pairOnce(ctx context.Context) error {
	p1, ok, err := s.popValid(ctx, firstPopWait)
	if err != nil || !ok {
		return err
	}
	log.Debug().Str("user", p1).Msg("first candidate pulled from queue")

	p2, ok, err := s.popValid(ctx, s.secondWait)
	if err != nil {
		return err
	}
	if !ok {
		// Lone candidate: push back on the consuming side so they keep
		// their place, then let the queue refill.
		log.Debug().Str("user", p1).Msg("no opponent available, requeueing")
		if err := s.queue.Requeue(ctx, p1); err != nil {
			return err
		}
		s.clock.Sleep(config.MatchmakerRetrySleep)
		return nil
	}

	if p1 == p2 {
		log.Warn().Str("user", p1).Msg("self-match detected, requeueing")
		return s.queue.Requeue(ctx, p1)
	}

	return s.createMatch(ctx, p1, p2)
}

// popValid pops candidates until it finds one who is online and not already
// assigned to a room. Invalid candidates are discarded, not requeued: stale
// entries from disconnected clients must not block matchmaking.
func (s *Scheduler) popValid(ctx context.Context, timeout time.Duration) (string, bool, error) {
	for {
		userID, ok, err := s.queue.Pop(ctx, timeout)
		if err != nil || !ok {
			return "", false, err
		}

		if !s.presence.IsOnline(ctx, userID) {
			log.Info().Str("user", userID).Msg("discarding offline queued user")
			continue
		}

		active, err := s.store.ActiveMatch(ctx, userID)
		if err != nil {
			return "", false, err
		}
		if active != nil {
			log.Info().Str("user", userID).Str("room", active.Room).Msg("discarding already-matched queued user")
			continue
		}

		return userID, true, nil
	}
}

func (s *Scheduler) createMatch(ctx context.Context, p1, p2 string) error {
	room, err := s.store.CreateGame(ctx, p1, p2, s.duration)
	if err != nil {
		return err
	}

	if err := s.store.SetActiveMatch(ctx, p1, room, model.SlotP1); err != nil {
		return err
	}
	if err := s.store.SetActiveMatch(ctx, p2, room, model.SlotP2); err != nil {
		return err
	}
	if err := s.store.MarkActive(ctx, room); err != nil {
		return err
	}

	log.Info().Str("room", room).Str("p1", p1).Str("p2", p2).Msg("match created")

	players := []string{p1, p2}
	if err := s.bus.Publish(ctx, bus.Event{
		Type:    bus.TypeMatchFound,
		Room:    room,
		Players: players,
	}); err != nil {
		return err
	}

	return s.bus.PublishStartGame(ctx, bus.StartGame{Room: room, Players: players})
}
