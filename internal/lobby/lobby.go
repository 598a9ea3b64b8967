package lobby

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
)

type Msg interface{ isLobbyMsg() }

// Join binds a connection to a team, creating the team if needed. Kind picks
// the direct reply: GAME_CREATED or GAME_JOINED.
type Join struct {
	ConnID    string
	TeamColor string
	Kind      string
	Outbox    chan<- types.ServerMessage
	Reply     chan error
}

func (Join) isLobbyMsg() {}

type Leave struct {
	ConnID string
	Reply  chan error
}

func (Leave) isLobbyMsg() {}

type FromClient struct {
	Cmd   engine.Command
	Reply chan error
}

func (FromClient) isLobbyMsg() {}

type AttachImage struct {
	TeamColor string
	CellIndex int
	Image     engine.Image
	Reply     chan error
}

func (AttachImage) isLobbyMsg() {}

type GetRoster struct {
	TeamColor string // when set, replies ErrTeamNotFound if the team is missing
	Reply     chan rosterReply
}

func (GetRoster) isLobbyMsg() {}

type rosterReply struct {
	roster []engine.TeamSummary
	err    error
}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	NumClients int
	Game       *engine.Game
}

type binding struct {
	teamColor string
	out       chan<- types.ServerMessage
}

type Lobby struct {
	id        string
	createdAt time.Time
	inbox     chan Msg
	game      *engine.Game
	clients   map[string]binding
	now       func() time.Time
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewLobby(parent context.Context, game *engine.Game, log *zap.Logger, now func() time.Time) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		id:        game.ID,
		createdAt: game.CreatedAt,
		inbox:     make(chan Msg, 64), // Small buffer
		game:      game,
		clients:   make(map[string]binding),
		now:       now,
		log:       log.Named("lobby").With(zap.String("game_id", game.ID)),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

func (l *Lobby) CreatedAt() time.Time { return l.createdAt }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Expose the inbox so tests can send raw messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) loop() {
	defer close(l.done)

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)

			case Leave:
				l.leave(msg.ConnID)
				msg.Reply <- nil

			case FromClient:
				msg.Reply <- l.apply(msg.Cmd)

			case AttachImage:
				msg.Reply <- l.attachImage(msg)

			case GetRoster:
				if msg.TeamColor != "" && !engine.ContainsTeam(l.game, msg.TeamColor) {
					msg.Reply <- rosterReply{err: fmt.Errorf("%w: %s", engine.ErrTeamNotFound, msg.TeamColor)}
					break
				}
				msg.Reply <- rosterReply{roster: l.game.Roster()}

			case GetState:
				// reflect internal state without data races
				msg.Reply <- View{NumClients: len(l.clients), Game: l.game.Clone()}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) {
	if _, ok := l.clients[msg.ConnID]; ok {
		l.leave(msg.ConnID)
	}

	team := l.game.FindOrCreateTeam(msg.TeamColor)
	l.clients[msg.ConnID] = binding{teamColor: msg.TeamColor, out: msg.Outbox}

	snap := l.game.Clone()
	l.send(msg.ConnID, msg.Outbox, types.Membership(msg.Kind, msg.TeamColor, snap))
	l.broadcast(types.Membership(types.TypeTeamUpdated, msg.TeamColor, snap), msg.ConnID)

	l.log.Info("connection bound",
		zap.String("conn_id", msg.ConnID),
		zap.String("team_color", msg.TeamColor),
		zap.Int("members", team.MemberCount),
	)
	msg.Reply <- nil
}

func (l *Lobby) leave(connID string) {
	b, ok := l.clients[connID]
	if !ok {
		return
	}
	delete(l.clients, connID)

	members := 0
	if team, ok := l.game.Team(b.teamColor); ok {
		team.DecrementMembers()
		members = team.MemberCount
	}
	l.broadcast(types.Membership(types.TypeTeamUpdated, b.teamColor, l.game.Clone()), "")

	l.log.Info("connection unbound",
		zap.String("conn_id", connID),
		zap.String("team_color", b.teamColor),
		zap.Int("members", members),
	)
}

func (l *Lobby) apply(cmd engine.Command) error {
	prevLines := -1
	if team, ok := l.game.Team(cmd.TeamColor); ok {
		prevLines = team.Lines
	}

	evt, err := engine.Apply(l.game, cmd, l.now())
	if err != nil {
		return err
	}
	l.broadcast(types.FromEvent(evt, l.game.Clone()), "")

	if evt.Type == engine.EvtProgressUpdated && evt.Lines != prevLines {
		l.log.Info("lines changed", zap.String("team_color", evt.TeamColor), zap.Int("lines", evt.Lines))
	}
	return nil
}

func (l *Lobby) attachImage(msg AttachImage) error {
	team, ok := l.game.Team(msg.TeamColor)
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrTeamNotFound, msg.TeamColor)
	}
	if err := team.RecordImage(msg.CellIndex, msg.Image); err != nil {
		return err
	}
	l.broadcast(types.ImageUploaded(msg.TeamColor, msg.CellIndex, msg.Image, l.game.Clone()), "")
	return nil
}

func (l *Lobby) shutdown() {
	// Outboxes belong to the connections; only forget them.
	clear(l.clients)
	l.cancel()
}

// broadcast fans msg out to every bound connection except exclude.
func (l *Lobby) broadcast(msg types.ServerMessage, exclude string) {
	for id, b := range l.clients {
		if id == exclude {
			continue
		}
		l.send(id, b.out, msg)
	}
}

func (l *Lobby) send(connID string, out chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case out <- msg:
		// ok
	default:
		// Client is slow/full - drop this event for it only.
		l.log.Warn("dropped outbound event",
			zap.String("conn_id", connID),
			zap.String("type", msg.Type),
		)
	}
}
