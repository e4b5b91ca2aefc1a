package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants used for the client-server protocol.
const (
	// Client to server messages
	MessageTypeJoinRoom    MessageType = "join_room"
	MessageTypeStartGame   MessageType = "start_game"
	MessageTypeVote        MessageType = "vote"
	MessageTypeSendMessage MessageType = "send_message"
	MessageTypeRestartGame MessageType = "restart_game"
	MessageTypeQuickGame   MessageType = "quick_game"

	// Server to client messages
	MessageTypeConnected   MessageType = "connected"
	MessageTypeRoomUpdate  MessageType = "room_update"
	MessageTypeGameStarted MessageType = "game_started"
	MessageTypeGameUpdate  MessageType = "game_update"
	MessageTypeGameOver    MessageType = "game_over"
	MessageTypeChatMessage MessageType = "chat_message"
	MessageTypeGameReset   MessageType = "game_reset"
	MessageTypeError       MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
