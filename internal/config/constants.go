package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Leak guard on every per-game Redis key. Cleanup normally removes them
// long before this fires.
const GameStateTTL = time.Hour

// TTL on the completion guard key. Bounds how long a finished room can
// block re-completion if cleanup never ran.
const EndGuardTTL = time.Hour

// Countdown tick interval. One decrement of time_left per tick.
const TimerTickInterval = time.Second

// Matchmaker pacing: sleep after a failed pairing attempt, backoff after
// a store error.
const (
	MatchmakerRetrySleep   = time.Second
	MatchmakerErrorBackoff = time.Second
)

// Reaper sweep for rooms whose timer died before completing them.
const (
	ReaperInterval = time.Minute
	ReaperGrace    = 30 * time.Second
)
