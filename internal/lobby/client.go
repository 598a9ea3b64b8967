package lobby

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
)

// Blocking helpers around the inbox. A lobby that has shut down answers
// every call with engine.ErrGameNotFound.

func (l *Lobby) Join(ctx context.Context, connID, teamColor, kind string, out chan<- types.ServerMessage) error {
	reply := make(chan error, 1)
	res, err := call(ctx, l, Join{ConnID: connID, TeamColor: teamColor, Kind: kind, Outbox: out, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

func (l *Lobby) Leave(ctx context.Context, connID string) error {
	reply := make(chan error, 1)
	res, err := call(ctx, l, Leave{ConnID: connID, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

func (l *Lobby) Apply(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	res, err := call(ctx, l, FromClient{Cmd: cmd, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

func (l *Lobby) AttachImage(ctx context.Context, teamColor string, cellIndex int, img engine.Image) error {
	reply := make(chan error, 1)
	res, err := call(ctx, l, AttachImage{TeamColor: teamColor, CellIndex: cellIndex, Image: img, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

// Roster returns the condensed team list. With a non-empty teamColor it also
// checks that the team exists.
func (l *Lobby) Roster(ctx context.Context, teamColor string) ([]engine.TeamSummary, error) {
	reply := make(chan rosterReply, 1)
	r, err := call(ctx, l, GetRoster{TeamColor: teamColor, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return r.roster, r.err
}

func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return call(ctx, l, GetState{Reply: reply}, reply)
}

// Close stops the lobby goroutine and waits for it to exit.
func (l *Lobby) Close() {
	l.cancel()
	<-l.done
}

func call[T any](ctx context.Context, l *Lobby, m Msg, reply chan T) (T, error) {
	var zero T

	select {
	case l.inbox <- m:
	case <-l.done:
		return zero, fmt.Errorf("%w: %s", engine.ErrGameNotFound, l.id)
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	// Once enqueued the message is processed regardless of ctx, so wait for its outcome.
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, fmt.Errorf("%w: %s", engine.ErrGameNotFound, l.id)
		}
	}
}
