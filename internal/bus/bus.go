package bus

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/model"
	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

// Event type tags carried on the events channel.
const (
	TypeMatchFound       = "match_found"
	TypeTimerUpdate      = "timer_update"
	TypeScoreUpdate      = "score_update"
	TypeGameOver         = "game_over"
	TypeMatchResultSaved = "match_result_saved"
)

// Event is the transient wire format for the shared events channel. Delivery
// is at-most-once; reconnect recovery goes through the store, not the bus.
type Event struct {
	Type          string        `json:"type"`
	Room          string        `json:"room,omitempty"`
	Players       []string      `json:"players,omitempty"`
	TimeLeft      *int          `json:"time_left,omitempty"`
	Scores        *model.Scores `json:"scores,omitempty"`
	FinalScores   *model.Scores `json:"final_scores,omitempty"`
	WinnerID      *string       `json:"winner_id,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	SurrenderedBy string        `json:"surrendered_by,omitempty"`
}

// StartGame is the signal that tells the game worker to begin a room's countdown.
type StartGame struct {
	Room    string   `json:"room"`
	Players []string `json:"players"`
}

type Bus struct {
	redis *redisclient.Client
}

func New(redisClient *redisclient.Client) *Bus {
	return &Bus{redis: redisClient}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, redisclient.EventsChannel, data).Err()
}

func (b *Bus) PublishStartGame(ctx context.Context, signal StartGame) error {
	data, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, redisclient.StartGameChannel, data).Err()
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled. Malformed payloads are logged and skipped.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, 64)
	pubsub := b.redis.Subscribe(ctx, redisclient.EventsChannel)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Str("channel", redisclient.EventsChannel).Msg("failed to unmarshal event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// SubscribeStartGame yields start signals for the timer service.
func (b *Bus) SubscribeStartGame(ctx context.Context) <-chan StartGame {
	out := make(chan StartGame, 64)
	pubsub := b.redis.Subscribe(ctx, redisclient.StartGameChannel)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var signal StartGame
				if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
					log.Error().Err(err).Str("channel", redisclient.StartGameChannel).Msg("failed to unmarshal start signal")
					continue
				}
				select {
				case out <- signal:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
