package timer

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/model"
)

// Completer finishes a room. *arena.Completer satisfies it.
type Completer interface {
	Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error
}

// Service runs one countdown task per active room. Tasks share nothing with
// each other; each one talks only to its own room's counters. Cancellation
// is by observation: a task notices the guard key or the metadata is gone
// and exits within one tick.
type Service struct {
	store     *game.Store
	bus       *bus.Bus
	completer Completer
	clock     clockwork.Clock

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

func NewService(store *game.Store, eventBus *bus.Bus, completer Completer, clock clockwork.Clock) *Service {
	return &Service{
		store:     store,
		bus:       eventBus,
		completer: completer,
		clock:     clock,
		running:   make(map[string]struct{}),
	}
}

// Run consumes start signals until ctx is cancelled, spawning one timer task
// per room.
func (s *Service) Run(ctx context.Context) {
	log.Info().Msg("timer service started")

	for signal := range s.bus.SubscribeStartGame(ctx) {
		s.StartRoom(ctx, signal.Room)
	}

	log.Info().Msg("timer service stopped, waiting for timer tasks")
}

// StartRoom launches the room's countdown task. Returns false when a task
// for the room is already running, so a replayed start signal cannot double
// the tick rate.
func (s *Service) StartRoom(ctx context.Context, room string) bool {
	s.mu.Lock()
	if _, exists := s.running[room]; exists {
		s.mu.Unlock()
		log.Warn().Str("room", room).Msg("timer already running for room")
		return false
	}
	s.running[room] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runTimer(ctx, room)
	return true
}

// Running reports whether the room currently has a live timer task.
func (s *Service) Running(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.running[room]
	return exists
}

// Wait blocks until every timer task has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) runTimer(ctx context.Context, room string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.running, room)
		s.mu.Unlock()
	}()

	meta, err := s.store.Meta(ctx, room)
	if err != nil {
		log.Warn().Err(err).Str("room", room).Msg("not starting timer, room unreadable")
		return
	}
	if err := s.store.InitTimer(ctx, room, meta.Duration); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to init countdown")
		return
	}

	log.Info().Str("room", room).Int("duration", meta.Duration).Msg("timer started")

	ticker := s.clock.NewTicker(config.TimerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			done, err := s.tick(ctx, room)
			if err != nil {
				// Transient store errors must not kill the task;
				// skip the tick and try again.
				log.Error().Err(err).Str("room", room).Msg("timer tick failed")
				continue
			}
			if done {
				return
			}
		}
	}
}

// tick advances the room's clock by one step. It returns done=true when the
// task should exit: the room was completed elsewhere, the counter ran past
// zero, or this tick hit zero and triggered completion.
func (s *Service) tick(ctx context.Context, room string) (bool, error) {
	ended, err := s.store.Ended(ctx, room)
	if err != nil {
		return false, err
	}
	if ended {
		log.Debug().Str("room", room).Msg("timer exiting, game already ended")
		return true, nil
	}

	exists, err := s.store.MetaExists(ctx, room)
	if err != nil {
		return false, err
	}
	if !exists {
		log.Debug().Str("room", room).Msg("timer exiting, game cleaned up")
		return true, nil
	}

	timeLeft, err := s.store.DecrementTime(ctx, room)
	if err != nil {
		return false, err
	}
	if timeLeft < 0 {
		// A slow tick raced past zero; someone else finished the game.
		return true, nil
	}

	remaining := int(timeLeft)
	if err := s.bus.Publish(ctx, bus.Event{
		Type:     bus.TypeTimerUpdate,
		Room:     room,
		TimeLeft: &remaining,
	}); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to publish timer update")
	}

	if timeLeft == 0 {
		log.Info().Str("room", room).Msg("time expired")
		if err := s.completer.Complete(ctx, room, model.ReasonExpired, ""); err != nil {
			log.Error().Err(err).Str("room", room).Msg("expiry completion failed")
		}
		return true, nil
	}

	return false, nil
}
