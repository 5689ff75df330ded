package matchmaker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/wordbattle/duel-server-go/internal/redis"
)

// Presence tracks which users are currently reachable over the realtime
// transport. Leases are short and refreshed by connection events and
// heartbeats; presence gates matchmaking quality only, so lease writes are
// fire-and-forget.
type Presence struct {
	redis *redisclient.Client
	ttl   time.Duration
}

func NewPresence(redisClient *redisclient.Client, ttl time.Duration) *Presence {
	return &Presence{redis: redisClient, ttl: ttl}
}

// Touch refreshes the user's lease. Failures are swallowed: a missed refresh
// only makes the user temporarily invisible to the matchmaker.
func (p *Presence) Touch(ctx context.Context, userID string) {
	if err := p.redis.Set(ctx, redisclient.UserOnlineKey(userID), "1", p.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("failed to refresh presence lease")
	}
}

// IsOnline reports whether a non-expired lease exists. Store errors read as
// offline.
func (p *Presence) IsOnline(ctx context.Context, userID string) bool {
	n, err := p.redis.Exists(ctx, redisclient.UserOnlineKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}
