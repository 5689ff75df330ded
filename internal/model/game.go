package model

// GameState is the explicit lifecycle tag stored in the game metadata hash.
// Rooms move created -> active -> ended; ended rooms are deleted shortly after.
type GameState string

const (
	StateCreated GameState = "created"
	StateActive  GameState = "active"
	StateEnded   GameState = "ended"
)

// PlayerSlot identifies which side of the duel a user occupies.
type PlayerSlot string

const (
	SlotP1 PlayerSlot = "p1"
	SlotP2 PlayerSlot = "p2"
)

// GameMeta is the shared metadata record for one room.
type GameMeta struct {
	Room      string
	P1        string
	P2        string
	ScoreP1   int
	ScoreP2   int
	StartTime int64
	Duration  int
	State     GameState
}

// SlotOf reports which slot the given user occupies, if any.
func (m *GameMeta) SlotOf(userID string) (PlayerSlot, bool) {
	switch userID {
	case m.P1:
		return SlotP1, true
	case m.P2:
		return SlotP2, true
	}
	return "", false
}

// Opponent returns the other participant's ID.
func (m *GameMeta) Opponent(userID string) string {
	if userID == m.P1 {
		return m.P2
	}
	return m.P1
}

// Scores holds both players' counters for one room.
type Scores struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// EndReason explains which trigger completed a game.
type EndReason string

const (
	ReasonExpired EndReason = "expired"
	ReasonForfeit EndReason = "forfeit"
)

// ActiveMatch is the per-user reconnect pointer written at pairing time.
type ActiveMatch struct {
	Room string     `json:"room"`
	Slot PlayerSlot `json:"slot"`
}
