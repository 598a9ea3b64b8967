package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/hub"
	"github.com/DoyleJ11/team-bingo-backend/internal/lobby"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
)

const red = "#FF6B6B"

func newHub(t *testing.T) *hub.Hub {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Config{Logger: zaptest.NewLogger(t)})
	t.Cleanup(h.Close)
	return h
}

func recv(t *testing.T, s *Session) types.ServerMessage {
	t.Helper()
	select {
	case msg := <-s.Outbox():
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timed out waiting for a frame on %s", s.ID())
		return types.ServerMessage{}
	}
}

func recvNone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case msg := <-s.Outbox():
		t.Fatalf("unexpected frame on %s: %+v", s.ID(), msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func frame(t *testing.T, ctx context.Context, s *Session, raw string) {
	t.Helper()
	s.HandleFrame(ctx, []byte(raw))
}

func createGame(t *testing.T, ctx context.Context, s *Session, color string) string {
	t.Helper()
	frame(t, ctx, s, `{"type":"CREATE_GAME","teamColor":"`+color+`"}`)
	msg := recv(t, s)
	require.Equal(t, types.TypeGameCreated, msg.Type)
	return msg.GameID
}

func TestSession_CreateAndCompleteFirstRow(t *testing.T) {
	ctx := context.Background()
	s := New("c1", newHub(t), zaptest.NewLogger(t))

	gameID := createGame(t, ctx, s, red)
	gotID, color, ok := s.Bound()
	require.True(t, ok)
	assert.Equal(t, gameID, gotID)
	assert.Equal(t, red, color)

	var last types.ServerMessage
	for i := 0; i < 5; i++ {
		frame(t, ctx, s, `{"type":"UPDATE_PROGRESS","gameId":"`+gameID+`","teamColor":"`+red+`","cellIndex":`+strconv.Itoa(i)+`,"completed":true}`)
		last = recv(t, s)
		require.Equal(t, types.TypeProgressUpdated, last.Type)
	}
	require.NotNil(t, last.Lines)
	assert.Equal(t, 1, *last.Lines)
	assert.Len(t, last.GameData.Tasks, engine.CellCount)
}

func TestSession_TwoConnectionsSameColor(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	a := New("a", h, zaptest.NewLogger(t))
	b := New("b", h, zaptest.NewLogger(t))

	gameID := createGame(t, ctx, a, red)

	frame(t, ctx, b, `{"type":"JOIN_GAME","gameId":"`+gameID+`","teamColor":"`+red+`"}`)
	joined := recv(t, b)
	require.Equal(t, types.TypeGameJoined, joined.Type)
	team, _ := joined.GameData.Team(red)
	assert.Equal(t, 2, team.MemberCount)

	update := recv(t, a)
	assert.Equal(t, types.TypeTeamUpdated, update.Type)
	recvNone(t, b)

	// both see each other's broadcasts
	frame(t, ctx, a, `{"type":"CHAT_MESSAGE","gameId":"`+gameID+`","teamColor":"`+red+`","teamName":"","message":"go go"}`)
	assert.Equal(t, types.TypeChatMessage, recv(t, a).Type)
	chat := recv(t, b)
	assert.Equal(t, types.TypeChatMessage, chat.Type)
	require.NotNil(t, chat.Chat)
	assert.Equal(t, "Red Team", chat.Chat.TeamName)

	b.Close(ctx)
	left := recv(t, a)
	assert.Equal(t, types.TypeTeamUpdated, left.Type)
	team, _ = left.GameData.Team(red)
	assert.Equal(t, 1, team.MemberCount)

	b.Close(ctx) // closing an unbound session is a no-op
	a.Close(ctx)

	frame(t, ctx, b, `{"type":"CHECK_GAME","gameId":"`+gameID+`"}`)
	check := recv(t, b)
	require.NotNil(t, check.ExistingTeams)
	assert.Equal(t, 0, (*check.ExistingTeams)[0].MemberCount, "never below zero, team retained")
}

func TestSession_CheckGame(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	s := New("c1", h, zaptest.NewLogger(t))

	frame(t, ctx, s, `{"type":"CHECK_GAME","gameId":"BINGO-NEVER0"}`)
	missing := recv(t, s)
	assert.Equal(t, types.TypeGameNotFound, missing.Type)
	assert.Nil(t, missing.ExistingTeams)

	creator := New("creator", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, creator, red)

	frame(t, ctx, s, `{"type":"CHECK_GAME","gameId":"`+gameID+`"}`)
	found := recv(t, s)
	assert.Equal(t, types.TypeGameExists, found.Type)
	require.NotNil(t, found.ExistingTeams)
	assert.Equal(t, []engine.TeamSummary{{Color: red, MemberCount: 1, Progress: 0, Lines: 0}}, *found.ExistingTeams)

	_, _, bound := s.Bound()
	assert.False(t, bound, "CHECK_GAME never binds")
}

func TestSession_ErrorsGoOnlyToSender(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	a := New("a", h, zaptest.NewLogger(t))
	b := New("b", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, a, red)

	cases := map[string]string{
		"malformed json":  `{"type":`,
		"unknown type":    `{"type":"NOPE"}`,
		"unknown game":    `{"type":"JOIN_GAME","gameId":"BINGO-ZZZZZZ","teamColor":"red"}`,
		"unknown team":    `{"type":"UPDATE_PROGRESS","gameId":"` + gameID + `","teamColor":"#000000","cellIndex":1,"completed":true}`,
		"cell too large":  `{"type":"UPDATE_PROGRESS","gameId":"` + gameID + `","teamColor":"` + red + `","cellIndex":25,"completed":true}`,
		"short task list": `{"type":"UPDATE_TASKS","gameId":"` + gameID + `","tasks":["a"]}`,
		"reset unknown":   `{"type":"RESET_PROGRESS","gameId":"` + gameID + `","teamColor":"#000000"}`,
		"empty chat":      `{"type":"CHAT_MESSAGE","gameId":"` + gameID + `","teamColor":"red","message":"  "}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			frame(t, ctx, b, raw)
			msg := recv(t, b)
			assert.Equal(t, types.TypeError, msg.Type)
			assert.NotEmpty(t, msg.Message)
			recvNone(t, a)
		})
	}

	_, _, bound := b.Bound()
	assert.False(t, bound)
}

func TestSession_UnboundSenderCanMutateButIsNotBroadcastTo(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	a := New("a", h, zaptest.NewLogger(t))
	outsider := New("x", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, a, red)

	frame(t, ctx, outsider, `{"type":"RESET_PROGRESS","gameId":"`+gameID+`","teamColor":"`+red+`"}`)
	assert.Equal(t, types.TypeProgressReset, recv(t, a).Type)
	recvNone(t, outsider)
}

func TestSession_UpdateTasksBroadcastsToAll(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	a := New("a", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, a, red)

	tasks := engine.DefaultTasks()
	tasks[24] = "Finish the game"
	require.NoError(t, a.Handle(ctx, types.UpdateTasks{GameID: gameID, Tasks: tasks}))

	msg := recv(t, a)
	assert.Equal(t, types.TypeTasksUpdated, msg.Type)
	assert.Equal(t, "Finish the game", msg.Tasks[24])
	assert.Equal(t, "Finish the game", msg.GameData.Tasks[24])
}

func TestSession_RebindingLeavesPreviousTeam(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	a := New("a", h, zaptest.NewLogger(t))
	watcher := New("w", h, zaptest.NewLogger(t))

	gameID := createGame(t, ctx, a, red)
	require.NoError(t, watcher.Handle(ctx, types.JoinGame{GameID: gameID, TeamColor: "#32CD32"}))
	recv(t, watcher) // GAME_JOINED
	recv(t, a)       // TEAM_UPDATED

	require.NoError(t, a.Handle(ctx, types.JoinGame{GameID: gameID, TeamColor: "#9370DB"}))
	recv(t, a) // GAME_JOINED

	leave := recv(t, watcher)
	assert.Equal(t, types.TypeTeamUpdated, leave.Type)
	redTeam, _ := leave.GameData.Team(red)
	assert.Equal(t, 0, redTeam.MemberCount)

	join := recv(t, watcher)
	assert.Equal(t, types.TypeTeamUpdated, join.Type)
	assert.Equal(t, "#9370DB", join.TeamColor)

	_, color, _ := a.Bound()
	assert.Equal(t, "#9370DB", color)
}

func TestSession_EvictedGameReportsNotFound(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := hub.NewHub(ctx, hub.Config{Logger: zaptest.NewLogger(t), Now: func() time.Time { return start }})
	t.Cleanup(h.Close)

	s := New("c1", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, s, red)

	_, err := h.Sweep(ctx, start.Add(25*time.Hour))
	require.NoError(t, err)

	frame(t, ctx, s, `{"type":"CHAT_MESSAGE","gameId":"`+gameID+`","teamColor":"`+red+`","message":"anyone?"}`)
	msg := recv(t, s)
	assert.Equal(t, types.TypeError, msg.Type)
	assert.Contains(t, msg.Message, "game not found")

	s.Close(ctx) // leaving an evicted game must not hang
}

func TestSession_JoinCompletesWhenContextEndsWhileLobbyBusy(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	creator := New("creator", h, zaptest.NewLogger(t))
	gameID := createGame(t, ctx, creator, red)

	lb, err := h.Game(ctx, gameID)
	require.NoError(t, err)

	// park the lobby on a reply nobody reads yet
	stall := make(chan lobby.View)
	lb.Inbox() <- lobby.GetState{Reply: stall}

	const cyan = "#4ECDC4"
	late := New("late", h, zaptest.NewLogger(t))
	jctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- late.Handle(jctx, types.JoinGame{GameID: gameID, TeamColor: cyan}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-stall

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("join never returned")
	}
	_, color, bound := late.Bound()
	require.True(t, bound, "a join the lobby applied must bind the session")
	assert.Equal(t, cyan, color)
	assert.Equal(t, types.TypeGameJoined, recv(t, late).Type)

	late.Close(ctx)

	view, err := lb.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.NumClients)
	team, ok := view.Game.Team(cyan)
	require.True(t, ok)
	assert.Equal(t, 0, team.MemberCount)
}

// closedLobbyStore hands out games whose lobby has already stopped.
type closedLobbyStore struct {
	*hub.Hub
	removed []string
}

func (c *closedLobbyStore) CreateGame(ctx context.Context, tasks []string) (*lobby.Lobby, error) {
	lb, err := c.Hub.CreateGame(ctx, tasks)
	if err != nil {
		return nil, err
	}
	lb.Close()
	return lb, nil
}

func (c *closedLobbyStore) Remove(ctx context.Context, id string) error {
	c.removed = append(c.removed, id)
	return c.Hub.Remove(ctx, id)
}

func TestSession_FailedCreateDropsGame(t *testing.T) {
	ctx := context.Background()
	store := &closedLobbyStore{Hub: newHub(t)}
	s := New("c1", store, zaptest.NewLogger(t))

	err := s.Handle(ctx, types.CreateGame{TeamColor: red})
	require.ErrorIs(t, err, engine.ErrGameNotFound)

	require.Len(t, store.removed, 1)
	_, err = store.Hub.Game(ctx, store.removed[0])
	assert.ErrorIs(t, err, engine.ErrGameNotFound)

	_, _, bound := s.Bound()
	assert.False(t, bound)
}
