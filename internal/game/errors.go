package game

import "errors"

// Recoverable errors surfaced to the requesting caller only, never
// broadcast to the room.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotEnoughPlayers = errors.New("need at least 3 players")
)
