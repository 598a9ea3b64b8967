// Package session implements the per-connection protocol handler. A Session
// starts Unbound, becomes Bound to one (game, team) pair after a successful
// create or join, and unbinds on Close. It is driven by a single reader
// goroutine; lobbies and the session itself write to its outbox.
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/lobby"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
)

const OutboxSize = 64

// GameStore is the part of the hub a session needs.
type GameStore interface {
	CreateGame(ctx context.Context, tasks []string) (*lobby.Lobby, error)
	Game(ctx context.Context, id string) (*lobby.Lobby, error)
	Remove(ctx context.Context, id string) error
}

type Session struct {
	id        string
	store     GameStore
	out       chan types.ServerMessage
	bound     *lobby.Lobby
	teamColor string
	log       *zap.Logger
}

func New(id string, store GameStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		id:    id,
		store: store,
		out:   make(chan types.ServerMessage, OutboxSize),
		log:   log.Named("session").With(zap.String("conn_id", id)),
	}
}

func (s *Session) ID() string { return s.id }

// Outbox carries every frame destined for this connection. It is never closed.
func (s *Session) Outbox() <-chan types.ServerMessage { return s.out }

// Bound reports the current binding.
func (s *Session) Bound() (gameID, teamColor string, ok bool) {
	if s.bound == nil {
		return "", "", false
	}
	return s.bound.ID(), s.teamColor, true
}

// HandleFrame decodes one inbound frame and processes it. Any failure is
// answered with an ERROR frame to this connection only.
func (s *Session) HandleFrame(ctx context.Context, data []byte) {
	req, err := types.Decode(data)
	if err != nil {
		s.log.Debug("malformed frame", zap.Error(err))
		s.reply(types.ErrorMessage(errorText(err)))
		return
	}
	if err := s.Handle(ctx, req); err != nil {
		s.log.Debug("request failed", zap.Error(err))
		s.reply(types.ErrorMessage(errorText(err)))
	}
}

func (s *Session) Handle(ctx context.Context, req types.Request) error {
	switch r := req.(type) {
	case types.CreateGame:
		lb, err := s.store.CreateGame(ctx, r.Tasks)
		if err != nil {
			return err
		}
		if err := s.bind(ctx, lb, r.TeamColor, types.TypeGameCreated); err != nil {
			// Nobody else knows the id yet; drop the empty game.
			if rmErr := s.store.Remove(context.WithoutCancel(ctx), lb.ID()); rmErr != nil {
				s.log.Warn("remove unbound game", zap.String("game_id", lb.ID()), zap.Error(rmErr))
			}
			return err
		}
		return nil

	case types.JoinGame:
		lb, err := s.store.Game(ctx, r.GameID)
		if err != nil {
			return err
		}
		return s.bind(ctx, lb, r.TeamColor, types.TypeGameJoined)

	case types.UpdateProgress:
		return s.apply(ctx, r.GameID, engine.Command{
			Type:      engine.CmdUpdateProgress,
			TeamColor: r.TeamColor,
			CellIndex: r.CellIndex,
			Completed: r.Completed,
		})

	case types.UpdateTasks:
		return s.apply(ctx, r.GameID, engine.Command{Type: engine.CmdUpdateTasks, Tasks: r.Tasks})

	case types.ResetProgress:
		return s.apply(ctx, r.GameID, engine.Command{Type: engine.CmdResetProgress, TeamColor: r.TeamColor})

	case types.ChatMessage:
		return s.apply(ctx, r.GameID, engine.Command{
			Type:      engine.CmdChatMessage,
			TeamColor: r.TeamColor,
			TeamName:  r.TeamName,
			Message:   r.Message,
		})

	case types.CheckGame:
		return s.check(ctx, r.GameID)

	default:
		return types.ErrMalformedEvent
	}
}

// Close unbinds the connection. An unbound session closes as a no-op.
func (s *Session) Close(ctx context.Context) {
	s.unbind(ctx)
}

func (s *Session) bind(ctx context.Context, lb *lobby.Lobby, teamColor, kind string) error {
	s.unbind(ctx)

	if err := lb.Join(ctx, s.id, teamColor, kind, s.out); err != nil {
		return err
	}
	s.bound = lb
	s.teamColor = teamColor
	return nil
}

func (s *Session) unbind(ctx context.Context) {
	if s.bound == nil {
		return
	}
	lb := s.bound
	s.bound = nil
	s.teamColor = ""

	if err := lb.Leave(ctx, s.id); err != nil && !errors.Is(err, engine.ErrGameNotFound) {
		s.log.Warn("leave failed", zap.String("game_id", lb.ID()), zap.Error(err))
	}
}

func (s *Session) apply(ctx context.Context, gameID string, cmd engine.Command) error {
	lb, err := s.store.Game(ctx, gameID)
	if err != nil {
		return err
	}
	return lb.Apply(ctx, cmd)
}

func (s *Session) check(ctx context.Context, gameID string) error {
	lb, err := s.store.Game(ctx, gameID)
	if errors.Is(err, engine.ErrGameNotFound) {
		s.reply(types.GameNotFound(gameID))
		return nil
	}
	if err != nil {
		return err
	}

	roster, err := lb.Roster(ctx, "")
	if errors.Is(err, engine.ErrGameNotFound) {
		s.reply(types.GameNotFound(gameID))
		return nil
	}
	if err != nil {
		return err
	}
	s.reply(types.GameExists(gameID, roster))
	return nil
}

func (s *Session) reply(msg types.ServerMessage) {
	select {
	case s.out <- msg:
	default:
		s.log.Warn("dropped reply", zap.String("type", msg.Type))
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, types.ErrMalformedEvent),
		errors.Is(err, engine.ErrGameNotFound),
		errors.Is(err, engine.ErrTeamNotFound),
		errors.Is(err, engine.ErrCellIndexOutOfRange),
		errors.Is(err, engine.ErrInvalidTasks),
		errors.Is(err, engine.ErrEmptyMessage),
		errors.Is(err, engine.ErrMessageTooLong):
		return err.Error()
	default:
		return "request failed"
	}
}
