package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/model"
)

// Relay bridges the shared events channel to this process's connections.
// Producers (matchmaker, timer, completion) run in other processes and have
// no idea which process holds a given user's socket, so every
// connection-holding process subscribes and re-publishes locally.
type Relay struct {
	bus *bus.Bus
	hub *Hub
}

func NewRelay(eventBus *bus.Bus, hub *Hub) *Relay {
	return &Relay{bus: eventBus, hub: hub}
}

// Run consumes bus events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Info().Msg("event relay started")
	for event := range r.bus.Subscribe(ctx) {
		r.dispatch(event)
	}
	log.Info().Msg("event relay stopped")
}

// dispatch routes one event to the groups it concerns: match_found goes to
// each player's private group with their slot, everything else to the room
// group.
func (r *Relay) dispatch(event bus.Event) {
	switch event.Type {
	case bus.TypeMatchFound:
		for i, userID := range event.Players {
			slot := model.SlotP1
			if i == 1 {
				slot = model.SlotP2
			}
			r.hub.Publish(UserGroup(userID), "match_found", map[string]any{
				"room": event.Room,
				"slot": slot,
			})
		}

	case bus.TypeTimerUpdate:
		r.hub.Publish(RoomGroup(event.Room), "timer_update", map[string]any{
			"time_left": event.TimeLeft,
		})

	case bus.TypeScoreUpdate:
		r.hub.Publish(RoomGroup(event.Room), "score_update", event.Scores)

	case bus.TypeGameOver:
		payload := map[string]any{
			"room":         event.Room,
			"final_scores": event.FinalScores,
			"winner_id":    event.WinnerID,
			"reason":       event.Reason,
		}
		if event.SurrenderedBy != "" {
			payload["surrendered_by"] = event.SurrenderedBy
		}
		r.hub.Publish(RoomGroup(event.Room), "game_over", payload)

	case bus.TypeMatchResultSaved:
		r.hub.Publish(RoomGroup(event.Room), "match_saved", map[string]any{
			"winner_id": event.WinnerID,
			"scores":    event.Scores,
		})

	default:
		log.Debug().Str("type", event.Type).Msg("ignoring unknown event type")
	}
}
