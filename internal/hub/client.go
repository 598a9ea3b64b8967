package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/lobby"
)

var ErrHubClosed = errors.New("hub closed")

const codePrefix = "BINGO-"

// GenerateCode returns a game id such as BINGO-7QX2MA.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return codePrefix + string(code), nil
}

func (h *Hub) CreateGame(ctx context.Context, tasks []string) (*lobby.Lobby, error) {
	reply := make(chan createReply, 1)
	r, err := request(ctx, h, CreateGame{Tasks: tasks, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return r.lobby, r.err
}

// Game looks up a live game, returning engine.ErrGameNotFound when absent.
func (h *Hub) Game(ctx context.Context, id string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	lb, err := request(ctx, h, GetGame{ID: id, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrGameNotFound, id)
	}
	return lb, nil
}

func (h *Hub) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	reply := make(chan []string, 1)
	return request(ctx, h, Sweep{Now: now, Reply: reply}, reply)
}

func (h *Hub) Remove(ctx context.Context, id string) error {
	select {
	case h.inbox <- RemoveGame{ID: id}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts every lobby down and waits for the hub goroutine to exit.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}

func request[T any](ctx context.Context, h *Hub, m HubMsg, reply chan T) (T, error) {
	var zero T

	select {
	case h.inbox <- m:
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	// Once enqueued the message is processed regardless of ctx, so wait for its outcome.
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubClosed
		}
	}
}
