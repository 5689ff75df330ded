package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wordbattle/duel-server-go/internal/bus"
	"github.com/wordbattle/duel-server-go/internal/game"
	"github.com/wordbattle/duel-server-go/internal/matchmaker"
	"github.com/wordbattle/duel-server-go/internal/middleware"
	"github.com/wordbattle/duel-server-go/internal/words"
)

// clientMessage is the inbound frame from browsers.
type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room,omitempty"`
	Guess  string `json:"guess,omitempty"`
}

// Service owns the websocket surface: connection upgrades, inbound gameplay
// messages (join_room, guess, heartbeat) and presence refreshes. Outbound
// traffic arrives via the Relay and the Hub.
type Service struct {
	hub      *Hub
	store    *game.Store
	presence *matchmaker.Presence
	queue    *matchmaker.Queue
	bus      *bus.Bus
	upgrader websocket.Upgrader
}

func NewService(
	hub *Hub,
	store *game.Store,
	presence *matchmaker.Presence,
	queue *matchmaker.Queue,
	eventBus *bus.Bus,
) *Service {
	return &Service{
		hub:      hub,
		store:    store,
		presence: presence,
		queue:    queue,
		bus:      eventBus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and runs the connection until it drops.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(userID, conn)
	s.hub.Join(UserGroup(userID), client)
	s.presence.Touch(r.Context(), userID)

	log.Info().Str("user", userID).Msg("websocket connected")
	client.Send("connected", map[string]string{"user_id": userID})

	done := make(chan struct{})
	go client.writePump(done)

	s.readPump(client)

	close(done)
	s.hub.Remove(client)

	// Dequeue on disconnect so a vanished client does not linger in
	// matchmaking.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.queue.Remove(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("failed to dequeue on disconnect")
	}

	log.Info().Str("user", userID).Msg("websocket disconnected")
}

func (s *Service) readPump(client *Client) {
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		s.presence.Touch(context.Background(), client.UserID)
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			client.Send("error", map[string]string{"error": "Malformed message"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s.handleMessage(ctx, client, msg)
		cancel()
	}
}

func (s *Service) handleMessage(ctx context.Context, client *Client, msg clientMessage) {
	switch msg.Action {
	case "heartbeat":
		s.presence.Touch(ctx, client.UserID)
	case "join_room":
		s.handleJoinRoom(ctx, client, msg.Room)
	case "guess":
		s.handleGuess(ctx, client, msg.Room, msg.Guess)
	default:
		client.Send("error", map[string]string{"error": "Unknown action"})
	}
}

// handleJoinRoom admits the client into the room's delivery group, but only
// into the room the store says they are assigned to.
func (s *Service) handleJoinRoom(ctx context.Context, client *Client, room string) {
	if room == "" {
		return
	}

	active, err := s.store.ActiveMatch(ctx, client.UserID)
	if err != nil {
		log.Error().Err(err).Str("user", client.UserID).Msg("failed to read active match")
		return
	}
	if active == nil || active.Room != room {
		client.Send("error", map[string]string{"error": "Not assigned to this room"})
		return
	}

	s.hub.Join(RoomGroup(room), client)
	s.hub.Publish(RoomGroup(room), "player_joined", map[string]string{"user_id": client.UserID})
}

func (s *Service) handleGuess(ctx context.Context, client *Client, room, guess string) {
	guess = strings.ToUpper(strings.TrimSpace(guess))

	if len(guess) != words.Length {
		client.Send("guess_error", map[string]string{"error": "Guess must be 5 letters"})
		return
	}
	if !isAlpha(guess) {
		client.Send("guess_error", map[string]string{"error": "Guess must contain only letters"})
		return
	}
	if !words.Valid(guess) {
		client.Send("guess_error", map[string]string{"error": "Not a valid word"})
		return
	}

	secret, err := s.store.PlayerWord(ctx, room, client.UserID)
	if err != nil {
		client.Send("guess_error", map[string]string{"error": "Game not started properly"})
		return
	}

	result := words.Evaluate(secret, guess)
	client.Send("guess_feedback", map[string]any{
		"guess":  guess,
		"colors": result.Colors,
		"solved": result.Solved,
	})

	if !result.Solved {
		return
	}

	if err := s.store.IncrementScore(ctx, room, client.UserID); err != nil {
		// The room may have ended between the read and the solve;
		// the score must not move then.
		log.Debug().Err(err).Str("room", room).Str("user", client.UserID).Msg("score increment rejected")
		return
	}

	scores, err := s.store.Scores(ctx, room)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to read scores")
		return
	}

	// Both players may be connected to different processes, so the update
	// travels over the bus and comes back through the relay.
	if err := s.bus.Publish(ctx, bus.Event{
		Type:   bus.TypeScoreUpdate,
		Room:   room,
		Scores: &scores,
	}); err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to publish score update")
	}

	newWord, err := s.store.AssignNewWord(ctx, room, client.UserID)
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("user", client.UserID).Msg("failed to assign new word")
		return
	}
	client.Send("new_word", map[string]any{
		"word_length": len(newWord),
		"message":     "Correct! New word assigned",
	})
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
