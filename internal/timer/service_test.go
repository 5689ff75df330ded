package timer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/model"
	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

type completion struct {
	room      string
	reason    model.EndReason
	forfeiter string
}

type mockCompleter struct {
	mu    sync.Mutex
	calls []completion
}

func (m *mockCompleter) Complete(ctx context.Context, room string, reason model.EndReason, forfeiterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, completion{room: room, reason: reason, forfeiter: forfeiterID})
	return nil
}

func (m *mockCompleter) all() []completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]completion(nil), m.calls...)
}

type timerFixture struct {
	service   *Service
	store     *game.Store
	bus       *bus.Bus
	completer *mockCompleter
	clock     *clockwork.FakeClock
}

func setupTimer(t *testing.T) *timerFixture {
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
	eventBus := bus.New(client)
	completer := &mockCompleter{}
	clock := clockwork.NewFakeClock()

	return &timerFixture{
		service:   NewService(store, eventBus, completer, clock),
		store:     store,
		bus:       eventBus,
		completer: completer,
		clock:     clock,
	}
}

func (f *timerFixture) createGame(t *testing.T, duration int) string {
	t.Helper()
	room, err := f.store.CreateGame(context.Background(), "alice", "bob", duration)
	require.NoError(t, err)
	return room
}

func nextTimerUpdate(t *testing.T, ch <-chan bus.Event) int {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			require.True(t, ok, "event channel closed")
			if event.Type == bus.TypeTimerUpdate {
				require.NotNil(t, event.TimeLeft)
				return *event.TimeLeft
			}
		case <-deadline:
			t.Fatal("timed out waiting for timer update")
		}
	}
}

func TestTimerCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := setupTimer(t)
	room := f.createGame(t, 3)

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	events := f.bus.Subscribe(subCtx)

	require.True(t, f.service.StartRoom(ctx, room))
	f.clock.BlockUntil(1)

	for want := 2; want >= 0; want-- {
		f.clock.Advance(time.Second)
		assert.Equal(t, want, nextTimerUpdate(t, events))
	}

	require.Eventually(t, func() bool {
		return len(f.completer.all()) == 1 && !f.service.Running(room)
	}, 3*time.Second, 10*time.Millisecond)

	calls := f.completer.all()
	assert.Equal(t, room, calls[0].room)
	assert.Equal(t, model.ReasonExpired, calls[0].reason)
	assert.Empty(t, calls[0].forfeiter)
}

func TestTimerDuplicateStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := setupTimer(t)
	room := f.createGame(t, 300)

	require.True(t, f.service.StartRoom(ctx, room))
	f.clock.BlockUntil(1)
	assert.False(t, f.service.StartRoom(ctx, room))
}

func TestTimerStopsOnClaimedGuard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := setupTimer(t)
	room := f.createGame(t, 100)

	require.True(t, f.service.StartRoom(ctx, room))
	f.clock.BlockUntil(1)

	claimed, err := f.store.ClaimEnd(ctx, room, model.ReasonForfeit)
	require.NoError(t, err)
	require.True(t, claimed)

	f.clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return !f.service.Running(room)
	}, 3*time.Second, 10*time.Millisecond)

	timeLeft, err := f.store.TimeLeft(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, int64(100), timeLeft, "ended room must not keep counting down")
	assert.Empty(t, f.completer.all())
}

func TestTimerStopsOnCleanedRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := setupTimer(t)
	room := f.createGame(t, 100)

	require.True(t, f.service.StartRoom(ctx, room))
	f.clock.BlockUntil(1)

	require.NoError(t, f.store.Cleanup(ctx, room))
	f.clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return !f.service.Running(room)
	}, 3*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.completer.all())
}

func TestTimerRunConsumesStartSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := setupTimer(t)
	room := f.createGame(t, 300)

	go f.service.Run(ctx)

	// Republish until the subscription is live; the duplicate-start
	// registry makes replays harmless.
	require.Eventually(t, func() bool {
		require.NoError(t, f.bus.PublishStartGame(ctx, bus.StartGame{Room: room, Players: []string{"alice", "bob"}}))
		return f.service.Running(room)
	}, 3*time.Second, 20*time.Millisecond)
}
