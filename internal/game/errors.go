package game

import "errors"

var (
	// ErrNotFound means the room's metadata does not exist or was already
	// cleaned up.
	ErrNotFound = errors.New("game not found")

	// ErrSamePlayer rejects a pairing of a user with themselves.
	ErrSamePlayer = errors.New("players must be distinct")

	// ErrNotParticipant rejects an operation from a user outside the room.
	ErrNotParticipant = errors.New("user is not a participant in this game")

	// ErrCorruptState means the metadata hash exists but is missing
	// required fields.
	ErrCorruptState = errors.New("game metadata is incomplete")

	// ErrEnded means the completion guard is already set for the room.
	ErrEnded = errors.New("game already ended")
)
