package matchmaker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

// ErrAlreadyQueued rejects a second concurrent enqueue for the same user.
var ErrAlreadyQueued = errors.New("user already in matchmaking queue")

// enqueueScript appends a user to the queue only if they are not already in
// it. Checking and pushing in one script closes the race two concurrent
// enqueue requests would otherwise have.
var enqueueScript = redis.NewScript(`
local entries = redis.call('LRANGE', KEYS[1], 0, -1)
for _, entry in ipairs(entries) do
    if entry == ARGV[1] then
        return 0
    end
end
redis.call('LPUSH', KEYS[1], ARGV[1])
return 1
`)

// Queue is the FIFO matchmaking queue. Users enter at the left end and the
// scheduler consumes from the right, so the longest-waiting user is popped
// first.
type Queue struct {
	redis *redisclient.Client
}

func NewQueue(redisClient *redisclient.Client) *Queue {
	return &Queue{redis: redisClient}
}

// Enqueue appends the user, rejecting duplicates with ErrAlreadyQueued.
func (q *Queue) Enqueue(ctx context.Context, userID string) error {
	added, err := enqueueScript.Run(ctx, q.redis, []string{redisclient.MatchmakingQueueKey}, userID).Int()
	if err != nil {
		return err
	}
	if added == 0 {
		return ErrAlreadyQueued
	}
	return nil
}

// Remove drops the user from the queue, e.g. on disconnect. Removing an
// absent user is a no-op.
func (q *Queue) Remove(ctx context.Context, userID string) error {
	return q.redis.LRem(ctx, redisclient.MatchmakingQueueKey, 0, userID).Err()
}

// Pop blocks up to timeout for the next candidate. The second return value
// is false when the wait timed out.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	result, err := q.redis.BRPop(ctx, timeout, redisclient.MatchmakingQueueKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// BRPOP returns [key, value]
	return result[1], true, nil
}

// Requeue puts a candidate back at the consuming end so the still-waiting
// player is popped first on the next attempt. This is what keeps FIFO
// fairness when no opponent shows up in time.
func (q *Queue) Requeue(ctx context.Context, userID string) error {
	return q.redis.RPush(ctx, redisclient.MatchmakingQueueKey, userID).Err()
}

// Len reports the number of waiting users.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, redisclient.MatchmakingQueueKey).Result()
}
