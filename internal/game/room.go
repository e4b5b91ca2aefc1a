package game

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
)

// chatLogCap bounds a room's chat log; the oldest messages are evicted first.
const chatLogCap = 50

// Room is one game session. All fields are guarded by mu; every mutation of
// a room goes through exactly this lock so that human votes, bot votes and
// disconnects never interleave their read-modify-write cycles.
type Room struct {
	mu         sync.Mutex
	code       string
	closed     bool // set when the registry deletes the room
	phase      Phase
	players    []*Player // insertion order = join order
	category   string
	secretWord string
	impostorID string
	chat       []ChatMessage
}

func newRoom(code string) *Room {
	return &Room{
		code:  code,
		phase: PhaseLobby,
	}
}

// findPlayerLocked returns the player with the given id, or nil.
func (rm *Room) findPlayerLocked(id string) *Player {
	for _, p := range rm.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// alivePlayersLocked returns the players still in the game, in join order.
func (rm *Room) alivePlayersLocked() []*Player {
	var alive []*Player
	for _, p := range rm.players {
		if !p.IsDead {
			alive = append(alive, p)
		}
	}
	return alive
}

// addPlayerLocked appends a player, de-duplicating the display name with a
// random numeric suffix. Joins are never rejected over a name collision.
func (rm *Room) addPlayerLocked(id, name string, isBot bool, rng *rand.Rand) *Player {
	for rm.nameTakenLocked(name) {
		name = fmt.Sprintf("%s_%d", name, rng.IntN(100))
	}

	p := &Player{
		ID:     id,
		Name:   name,
		IsHost: len(rm.players) == 0,
		IsBot:  isBot,
	}
	rm.players = append(rm.players, p)
	return p
}

func (rm *Room) nameTakenLocked(name string) bool {
	for _, p := range rm.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// removePlayerLocked removes a player and keeps the host invariant: if the
// host left, the first remaining player by join order is promoted.
func (rm *Room) removePlayerLocked(id string) bool {
	idx := -1
	for i, p := range rm.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	rm.players = append(rm.players[:idx], rm.players[idx+1:]...)
	if len(rm.players) == 0 {
		return true
	}

	hasHost := false
	for _, p := range rm.players {
		if p.IsHost {
			hasHost = true
			break
		}
	}
	if !hasHost {
		rm.players[0].IsHost = true
	}
	return true
}

// clearVotesLocked starts a fresh voting round for the same alive set.
func (rm *Room) clearVotesLocked() {
	for _, p := range rm.players {
		p.VotedFor = ""
	}
}

// resetLocked returns the room to the lobby. Roster and host are untouched.
func (rm *Room) resetLocked() {
	rm.phase = PhaseLobby
	rm.category = ""
	rm.secretWord = ""
	rm.impostorID = ""
	rm.chat = nil
	for _, p := range rm.players {
		p.Role = ""
		p.SecretWord = ""
		p.VotedFor = ""
		p.IsDead = false
	}
}

// appendChatLocked appends a message and drops the oldest entries beyond
// the log capacity.
func (rm *Room) appendChatLocked(msg ChatMessage) {
	rm.chat = append(rm.chat, msg)
	if len(rm.chat) > chatLogCap {
		rm.chat = rm.chat[len(rm.chat)-chatLogCap:]
	}
}

// publicViewLocked builds the broadcast-safe projection of the room.
func (rm *Room) publicViewLocked() *RoomView {
	players := make([]PlayerView, len(rm.players))
	for i, p := range rm.players {
		players[i] = PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			IsDead:   p.IsDead,
			VotedFor: p.VotedFor,
		}
	}

	chat := make([]ChatMessage, len(rm.chat))
	copy(chat, rm.chat)

	return &RoomView{
		RoomCode: rm.code,
		Players:  players,
		Phase:    rm.phase,
		Category: rm.category,
		ChatLog:  chat,
	}
}
