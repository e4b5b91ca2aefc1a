package game

import "time"

// Phase is the lifecycle state of a room. It gates which operations are
// legal: rooms accept joins only in the lobby, votes only while playing.
type Phase string

const (
	PhaseLobby   Phase = "LOBBY"
	PhasePlaying Phase = "PLAYING"
	PhaseResults Phase = "RESULTS"
)

// Role is a player's secret assignment for the current game.
type Role string

const (
	RoleImpostor Role = "impostor"
	RoleCitizen  Role = "citizen"
)

// Winner identifies which side won a finished game.
type Winner string

const (
	WinnerCitizens Winner = "CITIZENS"
	WinnerImpostor Winner = "IMPOSTOR"
)

// Player is a member of a room. ID is the connection-scoped identifier for
// humans and a generated "bot-" prefixed id for bots.
type Player struct {
	ID         string
	Name       string
	IsHost     bool
	IsBot      bool
	Role       Role   // unset until a game starts
	SecretWord string // unset outside PLAYING/RESULTS
	IsDead     bool
	VotedFor   string // unset until this round's vote is cast
}

// ChatMessage is one entry in a room's chat log. Immutable once created.
type ChatMessage struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	AuthorDead bool      `json:"authorWasDead"`
	SentAt     time.Time `json:"sentAt"`
}

// PlayerView is the public projection of a player. It never carries the
// role or secret word.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	IsDead   bool   `json:"isDead"`
	VotedFor string `json:"votedFor,omitempty"`
}

// RoomView is the public projection of a room, safe to broadcast to every
// member. VotedFor is exposed mid-round on purpose; see the registry docs.
type RoomView struct {
	RoomCode string        `json:"roomCode"`
	Players  []PlayerView  `json:"players"`
	Phase    Phase         `json:"phase"`
	Category string        `json:"category,omitempty"`
	ChatLog  []ChatMessage `json:"chatLog"`
}

// Assignment is one player's secret deal at game start. Delivered privately
// to that player only; bots get an entry but no delivery.
type Assignment struct {
	PlayerID string
	IsBot    bool
	Role     Role
	Word     string
}

// Results is the payload of a decided game.
type Results struct {
	Winner         Winner `json:"winner"`
	ImpostorName   string `json:"impostorName"`
	EliminatedName string `json:"eliminatedName"`
	Reason         string `json:"reason,omitempty"`
}

// BotVote is one synthetic vote produced by the bot simulator.
type BotVote struct {
	VoterID  string
	TargetID string
}

// VoteResult describes what changed after a vote landed. Exactly one of the
// following shapes applies:
//
//   - Ignored: stale or illegal vote, nothing changed, broadcast nothing.
//   - round still open: only View is set.
//   - RoundClosed without GameOver: the round resolved in a tie or a
//     non-final elimination; votes were cleared and NeedBotVotes asks the
//     caller to schedule a fresh round of bot votes.
//   - GameOver: the room moved to RESULTS and Results is set.
type VoteResult struct {
	Ignored      bool
	RoundClosed  bool
	Tie          bool
	Eliminated   string // display name of the player voted out this round
	NeedBotVotes bool
	Message      string
	GameOver     bool
	Results      *Results
	View         *RoomView
}
