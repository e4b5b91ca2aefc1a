// Package game implements the authoritative state machine for the impostor
// party game: rooms, rosters, secret word assignment, the voting and
// elimination protocol, bot vote generation and per-room chat.
//
// One deliberate information leak is preserved from the original design:
// the public room view exposes each player's current vote before the round
// closes, so clients can watch intent build up in real time.
package game

import (
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/martinpz/impostor/internal/roomcode"
	"github.com/martinpz/impostor/internal/wordbank"
)

// MinPlayers is the smallest viable round: one impostor and two citizens.
const MinPlayers = 3

// Registry owns every live room. It is safe for concurrent use: the rooms
// map is guarded by mu, each room serializes its own mutations, and the
// shared RNG is guarded by rngMu.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	rng   *rand.Rand
	rngMu sync.Mutex

	bank   *wordbank.Bank
	clock  quartz.Clock
	logger *log.Logger
}

// NewRegistry creates an empty registry. The rng drives every random choice
// (codes, name suffixes, word and role assignment, bot votes) so a seeded
// rng makes a whole server deterministic. The clock stamps chat messages.
func NewRegistry(logger *log.Logger, rng *rand.Rand, bank *wordbank.Bank, clock quartz.Clock) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		rng:    rng,
		bank:   bank,
		clock:  clock,
		logger: logger.WithPrefix("game"),
	}
}

// withRNG executes fn with exclusive access to the registry's RNG.
func (r *Registry) withRNG(fn func(*rand.Rand)) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	fn(r.rng)
}

// lookup resolves a normalized room code to a live room.
func (r *Registry) lookup(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomcode.Normalize(code)]
	return rm, ok
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// JoinResult reports a successful join.
type JoinResult struct {
	RoomCode string
	View     *RoomView
}

// Join adds a player to a room. An empty code creates a fresh room with the
// caller as host; otherwise the code is resolved case-insensitively and the
// join fails if the room is missing or mid-game. A joining player whose id
// is already present is treated as a no-op re-join.
func (r *Registry) Join(code, name, playerID string) (*JoinResult, error) {
	if code == "" {
		return r.createAndJoin(name, playerID)
	}
	if err := roomcode.Validate(roomcode.Normalize(code)); err != nil {
		return nil, ErrRoomNotFound
	}

	rm, ok := r.lookup(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.joinRoom(rm, name, playerID)
}

func (r *Registry) joinRoom(rm *Room, name, playerID string) (*JoinResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// The room may have emptied and been deleted between lookup and lock.
	if rm.closed {
		return nil, ErrRoomNotFound
	}

	if existing := rm.findPlayerLocked(playerID); existing != nil {
		return &JoinResult{RoomCode: rm.code, View: rm.publicViewLocked()}, nil
	}
	if rm.phase != PhaseLobby {
		return nil, ErrGameInProgress
	}

	var p *Player
	r.withRNG(func(rng *rand.Rand) {
		p = rm.addPlayerLocked(playerID, name, false, rng)
	})
	r.logger.Info("player joined", "room", rm.code, "player", p.Name, "players", len(rm.players))

	return &JoinResult{RoomCode: rm.code, View: rm.publicViewLocked()}, nil
}

func (r *Registry) createAndJoin(name, playerID string) (*JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	var rm *Room
	var p *Player
	r.withRNG(func(rng *rand.Rand) {
		gen := roomcode.NewGenerator(rng)
		for {
			code = gen.Generate()
			if _, taken := r.rooms[code]; !taken {
				break
			}
		}
		rm = newRoom(code)
		p = rm.addPlayerLocked(playerID, name, false, rng)
	})
	r.rooms[code] = rm

	r.logger.Info("room created", "room", code, "host", p.Name)
	return &JoinResult{RoomCode: code, View: rm.publicViewLocked()}, nil
}

// LeaveResult reports the room affected by a player leaving.
type LeaveResult struct {
	RoomCode    string
	RoomDeleted bool
	View        *RoomView // nil when the room was deleted
}

// Leave removes a player after their connection went away. A player belongs
// to at most one room, found by scanning all live rooms. Removing the last
// player deletes the room; removing the host promotes the next remaining
// player in join order.
func (r *Registry) Leave(playerID string) (*LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for code, rm := range r.rooms {
		rm.mu.Lock()
		if !rm.removePlayerLocked(playerID) {
			rm.mu.Unlock()
			continue
		}

		if len(rm.players) == 0 {
			rm.closed = true
			rm.mu.Unlock()
			delete(r.rooms, code)
			r.logger.Info("room deleted", "room", code)
			return &LeaveResult{RoomCode: code, RoomDeleted: true}, true
		}

		view := rm.publicViewLocked()
		rm.mu.Unlock()
		r.logger.Info("player left", "room", code, "remaining", len(view.Players))
		return &LeaveResult{RoomCode: code, View: view}, true
	}

	return nil, false
}

// AddBots appends count synthetic players to a lobby. Bot ids carry a
// "bot-" prefix so they can never collide with human connection ids.
func (r *Registry) AddBots(code string, count int) (*RoomView, error) {
	rm, ok := r.lookup(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.addBots(rm, count)
}

func (r *Registry) addBots(rm *Room, count int) (*RoomView, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.closed {
		return nil, ErrRoomNotFound
	}
	if rm.phase != PhaseLobby {
		return nil, ErrGameInProgress
	}

	r.withRNG(func(rng *rand.Rand) {
		for i := 0; i < count; i++ {
			id := "bot-" + uuid.NewString()
			rm.addPlayerLocked(id, rm.nextBotNameLocked(), true, rng)
		}
	})

	r.logger.Info("bots added", "room", rm.code, "count", count, "players", len(rm.players))
	return rm.publicViewLocked(), nil
}

// Start deals a new game: pick category and word, assign exactly one
// impostor, reset votes and deaths, clear the chat and move to PLAYING.
// The returned assignments carry each player's secret and must only ever
// be delivered to that player privately.
func (r *Registry) Start(code, requestedCategory string) ([]Assignment, *RoomView, error) {
	rm, ok := r.lookup(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.players) < MinPlayers {
		return nil, nil, ErrNotEnoughPlayers
	}

	var category, word string
	var impostorIdx int
	r.withRNG(func(rng *rand.Rand) {
		category, word = r.bank.Pick(requestedCategory, rng)
		impostorIdx = rng.IntN(len(rm.players))
	})

	rm.phase = PhasePlaying
	rm.category = category
	rm.secretWord = word
	rm.impostorID = rm.players[impostorIdx].ID
	rm.chat = nil

	assignments := make([]Assignment, len(rm.players))
	for i, p := range rm.players {
		p.VotedFor = ""
		p.IsDead = false
		if i == impostorIdx {
			p.Role = RoleImpostor
			p.SecretWord = wordbank.ImpostorWord
		} else {
			p.Role = RoleCitizen
			p.SecretWord = word
		}
		assignments[i] = Assignment{
			PlayerID: p.ID,
			IsBot:    p.IsBot,
			Role:     p.Role,
			Word:     p.SecretWord,
		}
	}

	r.logger.Info("game started", "room", rm.code, "category", category, "players", len(rm.players))
	return assignments, rm.publicViewLocked(), nil
}

// Restart returns a room to the lobby from any phase, clearing every trace
// of the previous game while keeping roster and host. Unknown codes are a
// silent no-op, matching the stale-event policy for late restarts.
func (r *Registry) Restart(code string) (*RoomView, bool) {
	rm, ok := r.lookup(code)
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.resetLocked()
	r.logger.Info("room reset", "room", rm.code)
	return rm.publicViewLocked(), true
}

// Summary is lightweight room metadata for listings.
type Summary struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   Phase  `json:"phase"`
}

// Summaries lists every live room, sorted by code.
func (r *Registry) Summaries() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.rooms))
	for code, rm := range r.rooms {
		rm.mu.Lock()
		out = append(out, Summary{Code: code, Players: len(rm.players), Phase: rm.phase})
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// PublicView returns the broadcast-safe state of a room.
func (r *Registry) PublicView(code string) (*RoomView, bool) {
	rm, ok := r.lookup(code)
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.publicViewLocked(), true
}

// SendChat appends a message to the room's chat log, stamped with the
// sender's liveness at send time. Unknown rooms or players are a silent
// no-op: late chat after a room changed state is expected, not an error.
func (r *Registry) SendChat(code, playerID, text string) (*ChatMessage, bool) {
	rm, ok := r.lookup(code)
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	p := rm.findPlayerLocked(playerID)
	if p == nil {
		return nil, false
	}

	msg := ChatMessage{
		ID:         uuid.NewString(),
		AuthorID:   p.ID,
		AuthorName: p.Name,
		Text:       text,
		AuthorDead: p.IsDead,
		SentAt:     r.clock.Now(),
	}
	rm.appendChatLocked(msg)
	return &msg, true
}
