package game

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wordbattle/duel-server-go/internal/config"
	"github.com/wordbattle/duel-server-go/internal/model"
	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

// Store owns all per-game state in Redis. It is the single source of truth
// shared by the web, matchmaker and game worker processes; every mutation of
// contended fields (scores, time_left, the completion guard) goes through a
// Redis atomic primitive, never read-modify-write.
type Store struct {
	redis      *redisclient.Client
	randomWord func() string
}

func NewStore(redisClient *redisclient.Client, randomWord func() string) *Store {
	return &Store{redis: redisClient, randomWord: randomWord}
}

// CreateGame writes a fresh room: metadata hash, both players' secret words
// and the countdown counter. Every key carries a TTL as a leak guard in case
// cleanup never runs.
func (s *Store) CreateGame(ctx context.Context, p1, p2 string, duration int) (string, error) {
	if p1 == p2 {
		return "", ErrSamePlayer
	}
	if p1 == "" || p2 == "" {
		return "", ErrSamePlayer
	}

	room := uuid.NewString()
	now := time.Now().Unix()

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, redisclient.GameMetaKey(room), map[string]any{
		"p1":         p1,
		"p2":         p2,
		"score_p1":   0,
		"score_p2":   0,
		"start_time": now,
		"duration":   duration,
		"state":      string(model.StateCreated),
	})
	pipe.Expire(ctx, redisclient.GameMetaKey(room), config.GameStateTTL)
	pipe.Set(ctx, redisclient.PlayerWordKey(room, p1), s.randomWord(), config.GameStateTTL)
	pipe.Set(ctx, redisclient.PlayerWordKey(room, p2), s.randomWord(), config.GameStateTTL)
	pipe.Set(ctx, redisclient.GameTimeLeftKey(room), duration, config.GameStateTTL)
	pipe.SAdd(ctx, redisclient.ActiveGamesKey, room)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}

	return room, nil
}

// Meta reads and validates the room's metadata hash.
func (s *Store) Meta(ctx context.Context, room string) (*model.GameMeta, error) {
	fields, err := s.redis.HGetAll(ctx, redisclient.GameMetaKey(room)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	p1, p2 := fields["p1"], fields["p2"]
	if p1 == "" || p2 == "" || fields["duration"] == "" {
		return nil, ErrCorruptState
	}

	duration, err := strconv.Atoi(fields["duration"])
	if err != nil {
		return nil, ErrCorruptState
	}
	startTime, _ := strconv.ParseInt(fields["start_time"], 10, 64)
	scoreP1, _ := strconv.Atoi(fields["score_p1"])
	scoreP2, _ := strconv.Atoi(fields["score_p2"])

	return &model.GameMeta{
		Room:      room,
		P1:        p1,
		P2:        p2,
		ScoreP1:   scoreP1,
		ScoreP2:   scoreP2,
		StartTime: startTime,
		Duration:  duration,
		State:     model.GameState(fields["state"]),
	}, nil
}

// MetaExists is the cheap liveness probe used by the timer loop.
func (s *Store) MetaExists(ctx context.Context, room string) (bool, error) {
	n, err := s.redis.Exists(ctx, redisclient.GameMetaKey(room)).Result()
	return n > 0, err
}

// MarkActive transitions the room from created to active. Called by the
// scheduler once both pointers are written, before the match is announced.
func (s *Store) MarkActive(ctx context.Context, room string) error {
	return s.redis.HSet(ctx, redisclient.GameMetaKey(room), "state", string(model.StateActive)).Err()
}

// MarkEnded tags the metadata as terminal. Cleanup deletes the hash shortly
// after, this exists so a half-cleaned room is still recognizably over.
func (s *Store) MarkEnded(ctx context.Context, room string) error {
	return s.redis.HSet(ctx, redisclient.GameMetaKey(room), "state", string(model.StateEnded)).Err()
}

// PlayerWord returns the player's current secret word.
func (s *Store) PlayerWord(ctx context.Context, room, playerID string) (string, error) {
	word, err := s.redis.Get(ctx, redisclient.PlayerWordKey(room, playerID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return word, err
}

// AssignNewWord draws a fresh secret word for the player and stores it.
func (s *Store) AssignNewWord(ctx context.Context, room, playerID string) (string, error) {
	word := s.randomWord()
	err := s.redis.Set(ctx, redisclient.PlayerWordKey(room, playerID), word, config.GameStateTTL).Err()
	if err != nil {
		return "", err
	}
	return word, nil
}

// IncrementScore atomically bumps the solver's counter. Concurrent guesses
// from both players race here, HINCRBY makes lost updates impossible. Rooms
// whose completion guard is set no longer score.
func (s *Store) IncrementScore(ctx context.Context, room, playerID string) error {
	ended, err := s.Ended(ctx, room)
	if err != nil {
		return err
	}
	if ended {
		return ErrEnded
	}

	meta, err := s.Meta(ctx, room)
	if err != nil {
		return err
	}

	field := "score_p1"
	if slot, ok := meta.SlotOf(playerID); !ok {
		return ErrNotParticipant
	} else if slot == model.SlotP2 {
		field = "score_p2"
	}

	return s.redis.HIncrBy(ctx, redisclient.GameMetaKey(room), field, 1).Err()
}

// Scores reads both counters.
func (s *Store) Scores(ctx context.Context, room string) (model.Scores, error) {
	vals, err := s.redis.HMGet(ctx, redisclient.GameMetaKey(room), "score_p1", "score_p2").Result()
	if err != nil {
		return model.Scores{}, err
	}

	parse := func(v any) int {
		str, ok := v.(string)
		if !ok {
			return 0
		}
		n, _ := strconv.Atoi(str)
		return n
	}
	return model.Scores{P1: parse(vals[0]), P2: parse(vals[1])}, nil
}

// InitTimer makes sure the countdown counter exists, without clobbering an
// already-ticking one.
func (s *Store) InitTimer(ctx context.Context, room string, duration int) error {
	return s.redis.SetNX(ctx, redisclient.GameTimeLeftKey(room), duration, config.GameStateTTL).Err()
}

// DecrementTime atomically counts the room's clock down by one second and
// returns the new value.
func (s *Store) DecrementTime(ctx context.Context, room string) (int64, error) {
	return s.redis.Decr(ctx, redisclient.GameTimeLeftKey(room)).Result()
}

// TimeLeft reads the countdown without mutating it.
func (s *Store) TimeLeft(ctx context.Context, room string) (int64, error) {
	val, err := s.redis.Get(ctx, redisclient.GameTimeLeftKey(room)).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// ClaimEnd is the exactly-once completion gate: a conditional create of the
// guard key. Returns false when another trigger already owns completion.
func (s *Store) ClaimEnd(ctx context.Context, room string, reason model.EndReason) (bool, error) {
	return s.redis.SetNX(ctx, redisclient.GameEndedKey(room), string(reason), config.EndGuardTTL).Result()
}

// ReleaseEnd rolls the guard back after a failed persistence attempt so a
// later trigger can retry.
func (s *Store) ReleaseEnd(ctx context.Context, room string) error {
	return s.redis.Del(ctx, redisclient.GameEndedKey(room)).Err()
}

// Ended reports whether the completion guard is set.
func (s *Store) Ended(ctx context.Context, room string) (bool, error) {
	n, err := s.redis.Exists(ctx, redisclient.GameEndedKey(room)).Result()
	return n > 0, err
}

// SetActiveMatch writes the user's reconnect pointer.
func (s *Store) SetActiveMatch(ctx context.Context, userID, room string, slot model.PlayerSlot) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, redisclient.UserActiveRoomKey(userID), room, config.GameStateTTL)
	pipe.Set(ctx, redisclient.UserActiveSlotKey(userID), string(slot), config.GameStateTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveMatch returns the user's current assignment, or nil when they have
// none. Lets a reconnecting client recover without replaying bus events.
func (s *Store) ActiveMatch(ctx context.Context, userID string) (*model.ActiveMatch, error) {
	room, err := s.redis.Get(ctx, redisclient.UserActiveRoomKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slot, err := s.redis.Get(ctx, redisclient.UserActiveSlotKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return &model.ActiveMatch{Room: room, Slot: model.PlayerSlot(slot)}, nil
}

// ActiveRooms lists rooms that still hold state, for the reaper sweep.
func (s *Store) ActiveRooms(ctx context.Context) ([]string, error) {
	return s.redis.SMembers(ctx, redisclient.ActiveGamesKey).Result()
}

// ForgetRoom drops a room from the active set. Used by the reaper when it
// finds a set entry whose state is already gone.
func (s *Store) ForgetRoom(ctx context.Context, room string) error {
	return s.redis.SRem(ctx, redisclient.ActiveGamesKey, room).Err()
}

// Cleanup removes every key belonging to the room, including both players'
// reconnect pointers. Deletes are idempotent; calling this twice is a no-op.
func (s *Store) Cleanup(ctx context.Context, room string) error {
	meta, _ := s.redis.HGetAll(ctx, redisclient.GameMetaKey(room)).Result()

	keys := []string{
		redisclient.GameMetaKey(room),
		redisclient.GameTimeLeftKey(room),
		redisclient.GameEndedKey(room),
	}
	for _, field := range []string{"p1", "p2"} {
		if playerID := meta[field]; playerID != "" {
			keys = append(keys,
				redisclient.PlayerWordKey(room, playerID),
				redisclient.UserActiveRoomKey(playerID),
				redisclient.UserActiveSlotKey(playerID),
			)
		}
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, redisclient.ActiveGamesKey, room)
	_, err := pipe.Exec(ctx)
	return err
}
