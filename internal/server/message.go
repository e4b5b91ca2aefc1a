package server

import (
	"encoding/json"
	"time"

	"github.com/martinpz/impostor/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes []byte
	if data != nil {
		var err error
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinRoomData struct {
	RoomCode   string `json:"roomCode,omitempty"`
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	RoomCode string `json:"roomCode"`
	Category string `json:"category,omitempty"`
}

type VoteData struct {
	RoomCode string `json:"roomCode"`
	TargetID string `json:"targetId"`
}

type SendMessageData struct {
	RoomCode string `json:"roomCode"`
	Text     string `json:"text"`
}

type RestartGameData struct {
	RoomCode string `json:"roomCode"`
}

type QuickGameData struct {
	PlayerName string `json:"playerName"`
}

// Server → Client Messages

type ConnectedData struct {
	PlayerID string `json:"playerId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStartedData is the private per-player deal. It is only ever sent to
// the player it belongs to, never broadcast.
type GameStartedData struct {
	Role     game.Role `json:"role"`
	Word     string    `json:"word"`
	Category string    `json:"category"`
}

// GameUpdateData carries the public room state after a vote, with an
// optional human-readable note about the round outcome.
type GameUpdateData struct {
	State   *game.RoomView `json:"state"`
	Message string         `json:"message,omitempty"`
}

// GameOverData announces the end of a game. The final view still hides
// the secret word; the reveal is limited to the impostor's identity.
type GameOverData struct {
	Results *game.Results  `json:"results"`
	State   *game.RoomView `json:"state"`
}
