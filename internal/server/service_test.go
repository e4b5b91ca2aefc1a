package server

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinpz/impostor/internal/game"
	"github.com/martinpz/impostor/internal/randutil"
	"github.com/martinpz/impostor/internal/wordbank"
)

const testBotDelay = 200 * time.Millisecond

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type serviceHarness struct {
	registry *game.Registry
	server   *Server
	service  *GameService
	clock    *quartz.Mock
}

func newServiceHarness(t *testing.T, seed int64) *serviceHarness {
	t.Helper()
	logger := testLogger()
	clk := quartz.NewMock(t)
	registry := game.NewRegistry(logger, randutil.New(seed), wordbank.Default(), clk)
	srv := NewServer("127.0.0.1:0", logger)
	svc := NewGameService(registry, srv, clk, testBotDelay, logger)
	srv.SetGameService(svc)

	return &serviceHarness{
		registry: registry,
		server:   srv,
		service:  svc,
		clock:    clk,
	}
}

// connect builds a connection with no live socket and registers it for
// broadcasts. The pumps never run; outbound messages pile up in the send
// buffer where tests can inspect them.
func (h *serviceHarness) connect() *Connection {
	c := NewConnection(nil, testLogger(), h.service)
	h.server.mu.Lock()
	h.server.connections[c] = true
	h.server.mu.Unlock()
	return c
}

func drainMessages(c *Connection) []*Message {
	var out []*Message
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func lastOfType(msgs []*Message, mt MessageType) *Message {
	var found *Message
	for _, m := range msgs {
		if m.Type == mt {
			found = m
		}
	}
	return found
}

func decodeUpdate(t *testing.T, msg *Message) GameUpdateData {
	t.Helper()
	require.NotNil(t, msg)
	var data GameUpdateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	require.NotNil(t, data.State)
	return data
}

func (h *serviceHarness) view(t *testing.T, code string) *game.RoomView {
	t.Helper()
	view, ok := h.registry.PublicView(code)
	require.True(t, ok)
	return view
}

// voteLeader tallies the open round and votes for whoever currently
// leads, guaranteeing a strict majority and a closed round.
func (h *serviceHarness) voteLeader(t *testing.T, c *Connection) {
	t.Helper()
	view := h.view(t, c.Room())

	counts := make(map[string]int)
	leader := ""
	for _, p := range view.Players {
		if p.VotedFor == "" {
			continue
		}
		counts[p.VotedFor]++
		if counts[p.VotedFor] > counts[leader] {
			leader = p.VotedFor
		}
	}
	require.NotEmpty(t, leader, "expected at least one open vote to pile onto")

	h.service.HandleVote(c, VoteData{RoomCode: c.Room(), TargetID: leader})
}

func TestJoinRoomCreatesAndBroadcasts(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()

	h.service.JoinRoom(c, JoinRoomData{PlayerName: "Alice"})

	require.NotEmpty(t, c.Room())
	msgs := drainMessages(c)
	update := decodeUpdate(t, lastOfType(msgs, MessageTypeRoomUpdate))
	assert.Equal(t, c.Room(), update.State.RoomCode)
	require.Len(t, update.State.Players, 1)
	assert.Equal(t, "Alice", update.State.Players[0].Name)
	assert.True(t, update.State.Players[0].IsHost)
}

func TestJoinRoomRejectsEmptyName(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()

	h.service.JoinRoom(c, JoinRoomData{PlayerName: "   "})

	assert.Empty(t, c.Room())
	msg := lastOfType(drainMessages(c), MessageTypeError)
	require.NotNil(t, msg)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "invalid_name", data.Code)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()

	h.service.JoinRoom(c, JoinRoomData{RoomCode: "ZZZZZ", PlayerName: "Alice"})

	msg := lastOfType(drainMessages(c), MessageTypeError)
	require.NotNil(t, msg)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "room_not_found", data.Code)
}

func TestJoinRoomBroadcastsToExistingPlayers(t *testing.T) {
	h := newServiceHarness(t, 1)
	c1 := h.connect()
	c2 := h.connect()

	h.service.JoinRoom(c1, JoinRoomData{PlayerName: "Alice"})
	drainMessages(c1)

	h.service.JoinRoom(c2, JoinRoomData{RoomCode: c1.Room(), PlayerName: "Bob"})

	require.Equal(t, c1.Room(), c2.Room())
	for _, c := range []*Connection{c1, c2} {
		update := decodeUpdate(t, lastOfType(drainMessages(c), MessageTypeRoomUpdate))
		assert.Len(t, update.State.Players, 2)
	}
}

func TestStartGameRequiresEnoughPlayers(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()
	h.service.JoinRoom(c, JoinRoomData{PlayerName: "Alice"})
	drainMessages(c)

	h.service.StartGame(c, StartGameData{RoomCode: c.Room()})

	msg := lastOfType(drainMessages(c), MessageTypeError)
	require.NotNil(t, msg)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "not_enough_players", data.Code)
}

func TestQuickGameStartsWithBots(t *testing.T) {
	h := newServiceHarness(t, 7)
	c := h.connect()

	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})

	require.NotEmpty(t, c.Room())
	view := h.view(t, c.Room())
	assert.Equal(t, game.PhasePlaying, view.Phase)
	assert.Len(t, view.Players, 4)
	assert.NotEmpty(t, view.Category)

	msgs := drainMessages(c)
	started := lastOfType(msgs, MessageTypeGameStarted)
	require.NotNil(t, started, "the human should get a private deal")
	var deal GameStartedData
	require.NoError(t, json.Unmarshal(started.Data, &deal))
	assert.NotEmpty(t, deal.Word)
	assert.Contains(t, []game.Role{game.RoleImpostor, game.RoleCitizen}, deal.Role)
	assert.Equal(t, view.Category, deal.Category)
}

func TestBotVotesFireAfterDelay(t *testing.T) {
	h := newServiceHarness(t, 7)
	c := h.connect()
	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})
	drainMessages(c)

	ctx := context.Background()
	h.clock.Advance(testBotDelay).MustWait(ctx)

	// Three bot votes are in; the round waits on the human.
	view := h.view(t, c.Room())
	assert.Equal(t, game.PhasePlaying, view.Phase)
	voted := 0
	for _, p := range view.Players {
		if p.VotedFor != "" {
			voted++
		}
	}
	assert.Equal(t, 3, voted)

	updates := 0
	for _, m := range drainMessages(c) {
		if m.Type == MessageTypeGameUpdate {
			updates++
		}
	}
	assert.Equal(t, 3, updates)
}

func TestHumanVoteClosesRound(t *testing.T) {
	h := newServiceHarness(t, 7)
	c := h.connect()
	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})
	drainMessages(c)

	ctx := context.Background()
	h.clock.Advance(testBotDelay).MustWait(ctx)
	drainMessages(c)

	h.voteLeader(t, c)

	view := h.view(t, c.Room())
	msgs := drainMessages(c)
	if view.Phase == game.PhaseResults {
		require.NotNil(t, lastOfType(msgs, MessageTypeGameOver))
		return
	}

	// The round resolved but the game goes on: someone is out and the
	// votes are cleared for the next round.
	update := decodeUpdate(t, lastOfType(msgs, MessageTypeGameUpdate))
	assert.NotEmpty(t, update.Message)
	dead := 0
	for _, p := range view.Players {
		if p.IsDead {
			dead++
		}
		assert.Empty(t, p.VotedFor)
	}
	assert.Equal(t, 1, dead)
}

func TestQuickGameRunsToCompletion(t *testing.T) {
	h := newServiceHarness(t, 11)
	c := h.connect()
	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})

	ctx := context.Background()
	var final *Message
	for round := 0; round < 25; round++ {
		view := h.view(t, c.Room())
		if view.Phase == game.PhaseResults {
			break
		}

		drainMessages(c)
		h.clock.Advance(testBotDelay).MustWait(ctx)

		view = h.view(t, c.Room())
		if view.Phase != game.PhasePlaying {
			final = lastOfType(drainMessages(c), MessageTypeGameOver)
			break
		}

		humanAlive := false
		for _, p := range view.Players {
			if p.ID == c.PlayerID() && !p.IsDead {
				humanAlive = true
			}
		}
		if humanAlive {
			h.voteLeader(t, c)
		}
		if m := lastOfType(drainMessages(c), MessageTypeGameOver); m != nil {
			final = m
		}
	}

	view := h.view(t, c.Room())
	require.Equal(t, game.PhaseResults, view.Phase, "the game should finish within a few rounds")
	require.NotNil(t, final)

	var over GameOverData
	require.NoError(t, json.Unmarshal(final.Data, &over))
	require.NotNil(t, over.Results)
	assert.Contains(t, []game.Winner{game.WinnerCitizens, game.WinnerImpostor}, over.Results.Winner)
	assert.NotEmpty(t, over.Results.ImpostorName)
}

func TestScheduledBotVotesNoopAfterReset(t *testing.T) {
	h := newServiceHarness(t, 7)
	c := h.connect()
	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})

	h.service.RestartGame(c, RestartGameData{RoomCode: c.Room()})
	drainMessages(c)

	ctx := context.Background()
	h.clock.Advance(testBotDelay).MustWait(ctx)

	view := h.view(t, c.Room())
	assert.Equal(t, game.PhaseLobby, view.Phase)
	for _, p := range view.Players {
		assert.Empty(t, p.VotedFor)
		assert.False(t, p.IsDead)
	}
	assert.Empty(t, drainMessages(c), "a fired timer in the lobby should stay silent")
}

func TestScheduledBotVotesNoopAfterRoomDeleted(t *testing.T) {
	h := newServiceHarness(t, 13)
	c1 := h.connect()
	c2 := h.connect()
	c3 := h.connect()

	h.service.JoinRoom(c1, JoinRoomData{PlayerName: "Ana"})
	h.service.JoinRoom(c2, JoinRoomData{RoomCode: c1.Room(), PlayerName: "Ben"})
	h.service.JoinRoom(c3, JoinRoomData{RoomCode: c1.Room(), PlayerName: "Cho"})

	// Starting arms the bot-vote timer even in an all-human room.
	h.service.StartGame(c1, StartGameData{RoomCode: c1.Room()})

	// Everyone disconnects before the timer fires; the room is gone.
	h.service.Disconnect(c1)
	h.service.Disconnect(c2)
	h.service.Disconnect(c3)
	require.Zero(t, h.registry.RoomCount())
	for _, c := range []*Connection{c1, c2, c3} {
		drainMessages(c)
	}

	ctx := context.Background()
	h.clock.Advance(testBotDelay).MustWait(ctx)

	for _, c := range []*Connection{c1, c2, c3} {
		assert.Empty(t, drainMessages(c), "a fired timer for a deleted room should stay silent")
	}
}

func TestRestartBroadcastsResetThenRoster(t *testing.T) {
	h := newServiceHarness(t, 7)
	c := h.connect()
	h.service.QuickGame(c, QuickGameData{PlayerName: "Solo"})
	drainMessages(c)

	h.service.RestartGame(c, RestartGameData{RoomCode: c.Room()})

	msgs := drainMessages(c)
	require.Len(t, msgs, 2)
	assert.Equal(t, MessageTypeGameReset, msgs[0].Type)
	assert.Equal(t, MessageTypeRoomUpdate, msgs[1].Type)
	update := decodeUpdate(t, msgs[1])
	assert.Equal(t, game.PhaseLobby, update.State.Phase)
	assert.Len(t, update.State.Players, 4, "bots stay in the lobby across restarts")
}

func TestChatBroadcast(t *testing.T) {
	h := newServiceHarness(t, 1)
	c1 := h.connect()
	c2 := h.connect()
	h.service.JoinRoom(c1, JoinRoomData{PlayerName: "Alice"})
	h.service.JoinRoom(c2, JoinRoomData{RoomCode: c1.Room(), PlayerName: "Bob"})
	drainMessages(c1)
	drainMessages(c2)

	h.service.SendChat(c2, SendMessageData{RoomCode: c2.Room(), Text: "hello there"})

	for _, c := range []*Connection{c1, c2} {
		msg := lastOfType(drainMessages(c), MessageTypeChatMessage)
		require.NotNil(t, msg)
		var chat game.ChatMessage
		require.NoError(t, json.Unmarshal(msg.Data, &chat))
		assert.Equal(t, "Bob", chat.AuthorName)
		assert.Equal(t, "hello there", chat.Text)
	}
}

func TestChatIgnoresBlankText(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()
	h.service.JoinRoom(c, JoinRoomData{PlayerName: "Alice"})
	drainMessages(c)

	h.service.SendChat(c, SendMessageData{RoomCode: c.Room(), Text: "  \n "})

	assert.Empty(t, drainMessages(c))
}

func TestDisconnectPromotesNewHost(t *testing.T) {
	h := newServiceHarness(t, 1)
	c1 := h.connect()
	c2 := h.connect()
	h.service.JoinRoom(c1, JoinRoomData{PlayerName: "Alice"})
	h.service.JoinRoom(c2, JoinRoomData{RoomCode: c1.Room(), PlayerName: "Bob"})
	drainMessages(c1)
	drainMessages(c2)

	h.service.Disconnect(c1)

	update := decodeUpdate(t, lastOfType(drainMessages(c2), MessageTypeRoomUpdate))
	require.Len(t, update.State.Players, 1)
	assert.Equal(t, "Bob", update.State.Players[0].Name)
	assert.True(t, update.State.Players[0].IsHost)
}

func TestDisconnectLastPlayerDeletesRoom(t *testing.T) {
	h := newServiceHarness(t, 1)
	c := h.connect()
	h.service.JoinRoom(c, JoinRoomData{PlayerName: "Alice"})
	code := c.Room()

	h.service.Disconnect(c)

	_, ok := h.registry.PublicView(code)
	assert.False(t, ok)
	assert.Zero(t, h.registry.RoomCount())
}
