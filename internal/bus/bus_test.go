package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordbattle/duel-server-go/internal/model"
	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

func setupBus(t *testing.T) *Bus {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return New(client)
}

func TestBusEvents(t *testing.T) {
	t.Run("round-trips an event", func(t *testing.T) {
		b := setupBus(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events := b.Subscribe(ctx)

		winner := "alice"
		timeLeft := 42
		sent := Event{
			Type:     TypeGameOver,
			Room:     "room-1",
			Players:  []string{"alice", "bob"},
			TimeLeft: &timeLeft,
			FinalScores: &model.Scores{
				P1: 3,
				P2: 1,
			},
			WinnerID:      &winner,
			Reason:        "forfeit",
			SurrenderedBy: "bob",
		}

		// The subscriber goroutine needs a moment to attach.
		require.Eventually(t, func() bool {
			require.NoError(t, b.Publish(ctx, sent))
			select {
			case got := <-events:
				assert.Equal(t, sent, got)
				return true
			default:
				return false
			}
		}, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("channel closes on context cancel", func(t *testing.T) {
		b := setupBus(t)
		ctx, cancel := context.WithCancel(context.Background())

		events := b.Subscribe(ctx)
		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(3 * time.Second):
			t.Fatal("event channel did not close after cancel")
		}
	})
}

func TestBusStartGame(t *testing.T) {
	b := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := b.SubscribeStartGame(ctx)

	sent := StartGame{Room: "room-1", Players: []string{"alice", "bob"}}
	require.Eventually(t, func() bool {
		require.NoError(t, b.PublishStartGame(ctx, sent))
		select {
		case got := <-signals:
			assert.Equal(t, sent, got)
			return true
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}
