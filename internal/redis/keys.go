package redis

import "fmt"

// Pub/sub channels shared by all processes.
const (
	EventsChannel    = "events"
	StartGameChannel = "start_game"
)

// MatchmakingQueueKey is the FIFO list the scheduler consumes.
const MatchmakingQueueKey = "matchmaking_queue"

// ActiveGamesKey is the set of rooms with live state, consulted by the reaper.
const ActiveGamesKey = "games:active"

func GameMetaKey(room string) string {
	return fmt.Sprintf("game:%s:meta", room)
}

func GameTimeLeftKey(room string) string {
	return fmt.Sprintf("game:%s:time_left", room)
}

func GameEndedKey(room string) string {
	return fmt.Sprintf("game:%s:ended", room)
}

func PlayerWordKey(room, playerID string) string {
	return fmt.Sprintf("game:%s:player:%s:word", room, playerID)
}

func UserOnlineKey(userID string) string {
	return fmt.Sprintf("user:%s:online", userID)
}

func UserActiveRoomKey(userID string) string {
	return fmt.Sprintf("user:%s:active_room", userID)
}

func UserActiveSlotKey(userID string) string {
	return fmt.Sprintf("user:%s:active_slot", userID)
}
