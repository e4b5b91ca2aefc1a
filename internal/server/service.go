package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/martinpz/impostor/internal/game"
)

// quickGameBots is the roster a solo player gets: three bots plus the
// human makes the minimum viable round with one spare.
const quickGameBots = 3

// GameService wires client messages to the room registry and fans the
// resulting state changes back out over the server. Bot votes are
// scheduled on the clock so tests can drive them deterministically.
type GameService struct {
	registry *game.Registry
	server   *Server
	clock    quartz.Clock
	botDelay time.Duration
	logger   *log.Logger
}

// NewGameService creates a game service bound to a server
func NewGameService(registry *game.Registry, server *Server, clock quartz.Clock, botDelay time.Duration, logger *log.Logger) *GameService {
	return &GameService{
		registry: registry,
		server:   server,
		clock:    clock,
		botDelay: botDelay,
		logger:   logger.WithPrefix("service"),
	}
}

// JoinRoom joins the connection's player to a room, creating one when no
// code is given, and broadcasts the updated roster.
func (s *GameService) JoinRoom(c *Connection, data JoinRoomData) {
	name := strings.TrimSpace(data.PlayerName)
	if name == "" {
		c.sendError("invalid_name", "Player name required")
		return
	}

	result, err := s.registry.Join(data.RoomCode, name, c.PlayerID())
	if err != nil {
		s.sendGameError(c, err)
		return
	}

	c.SetRoom(result.RoomCode)
	s.broadcastRoomState(result.RoomCode, MessageTypeRoomUpdate, result.View)
}

// StartGame deals a new game and delivers each human player their secret
// role and word privately. Bots receive nothing; their votes are driven
// by the scheduler.
func (s *GameService) StartGame(c *Connection, data StartGameData) {
	assignments, view, err := s.registry.Start(data.RoomCode, data.Category)
	if err != nil {
		s.sendGameError(c, err)
		return
	}

	s.broadcastRoomState(view.RoomCode, MessageTypeRoomUpdate, view)

	for _, a := range assignments {
		if a.IsBot {
			continue
		}
		msg, _ := NewMessage(MessageTypeGameStarted, GameStartedData{
			Role:     a.Role,
			Word:     a.Word,
			Category: view.Category,
		})
		if err := s.server.SendToPlayer(a.PlayerID, msg); err != nil {
			s.logger.Warn("Failed to deliver role", "room", view.RoomCode, "player", a.PlayerID, "error", err)
		}
	}

	s.ScheduleBotVotes(view.RoomCode)
}

// HandleVote records the connection's vote and publishes the outcome.
func (s *GameService) HandleVote(c *Connection, data VoteData) {
	res := s.registry.Vote(data.RoomCode, c.PlayerID(), data.TargetID)
	s.dispatchVoteResult(data.RoomCode, res)
}

// SendChat appends a chat message and broadcasts it to the room.
func (s *GameService) SendChat(c *Connection, data SendMessageData) {
	text := strings.TrimSpace(data.Text)
	if text == "" {
		return
	}

	chatMsg, ok := s.registry.SendChat(data.RoomCode, c.PlayerID(), text)
	if !ok {
		return
	}

	msg, _ := NewMessage(MessageTypeChatMessage, chatMsg)
	s.server.BroadcastToRoom(data.RoomCode, msg)
}

// RestartGame returns a room to the lobby. Clients first get a reset
// signal to drop any in-game state, then the fresh lobby roster.
func (s *GameService) RestartGame(c *Connection, data RestartGameData) {
	view, ok := s.registry.Restart(data.RoomCode)
	if !ok {
		return
	}

	s.broadcastRoomState(data.RoomCode, MessageTypeGameReset, view)
	s.broadcastRoomState(data.RoomCode, MessageTypeRoomUpdate, view)
}

// QuickGame creates a room for a solo player, fills it with bots and
// starts immediately.
func (s *GameService) QuickGame(c *Connection, data QuickGameData) {
	name := strings.TrimSpace(data.PlayerName)
	if name == "" {
		c.sendError("invalid_name", "Player name required")
		return
	}

	result, err := s.registry.Join("", name, c.PlayerID())
	if err != nil {
		s.sendGameError(c, err)
		return
	}
	c.SetRoom(result.RoomCode)

	if _, err := s.registry.AddBots(result.RoomCode, quickGameBots); err != nil {
		s.sendGameError(c, err)
		return
	}

	s.StartGame(c, StartGameData{RoomCode: result.RoomCode})
}

// Disconnect removes the connection's player from their room and informs
// the remaining players.
func (s *GameService) Disconnect(c *Connection) {
	res, ok := s.registry.Leave(c.PlayerID())
	if !ok || res.RoomDeleted {
		return
	}

	s.broadcastRoomState(res.RoomCode, MessageTypeRoomUpdate, res.View)
}

// ScheduleBotVotes arms a timer that casts every pending bot vote once
// the delay elapses. The timer is a no-op when the room is gone or no
// round is open by then.
func (s *GameService) ScheduleBotVotes(roomCode string) {
	s.clock.AfterFunc(s.botDelay, func() {
		s.runBotVotes(roomCode)
	})
}

func (s *GameService) runBotVotes(roomCode string) {
	votes := s.registry.GenerateBotVotes(roomCode)
	if len(votes) == 0 {
		return
	}

	s.logger.Debug("Casting bot votes", "room", roomCode, "count", len(votes))
	for _, v := range votes {
		res := s.registry.Vote(roomCode, v.VoterID, v.TargetID)
		s.dispatchVoteResult(roomCode, res)
		if res.RoundClosed || res.GameOver {
			// Remaining votes were cleared with the round.
			return
		}
	}
}

// dispatchVoteResult publishes the outcome of a single vote: nothing for
// stale votes, a final reveal when the game ended, otherwise the updated
// public state. A closed round with survivors re-arms the bot scheduler.
func (s *GameService) dispatchVoteResult(roomCode string, res game.VoteResult) {
	switch {
	case res.Ignored:
		return

	case res.GameOver:
		msg, _ := NewMessage(MessageTypeGameOver, GameOverData{
			Results: res.Results,
			State:   res.View,
		})
		s.server.BroadcastToRoom(roomCode, msg)
		s.logger.Info("game over", "room", roomCode, "winner", res.Results.Winner)

	case res.RoundClosed:
		msg, _ := NewMessage(MessageTypeGameUpdate, GameUpdateData{
			State:   res.View,
			Message: res.Message,
		})
		s.server.BroadcastToRoom(roomCode, msg)
		if res.NeedBotVotes {
			s.ScheduleBotVotes(roomCode)
		}

	default:
		s.broadcastRoomState(roomCode, MessageTypeGameUpdate, res.View)
	}
}

func (s *GameService) broadcastRoomState(roomCode string, msgType MessageType, view *game.RoomView) {
	msg, err := NewMessage(msgType, GameUpdateData{State: view})
	if err != nil {
		s.logger.Error("Failed to encode room state", "room", roomCode, "error", err)
		return
	}
	s.server.BroadcastToRoom(roomCode, msg)
}

func (s *GameService) sendGameError(c *Connection, err error) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		c.sendError("room_not_found", "Room not found")
	case errors.Is(err, game.ErrGameInProgress):
		c.sendError("game_in_progress", "The game has already started")
	case errors.Is(err, game.ErrNotEnoughPlayers):
		c.sendError("not_enough_players", fmt.Sprintf("Need at least %d players to start", game.MinPlayers))
	default:
		c.sendError("internal_error", err.Error())
	}
}
