package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/session"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 10 * time.Second
	leaveTimeout = 5 * time.Second
)

type Options struct {
	// OriginPatterns are extra origins allowed to open a socket; same-origin is always allowed.
	OriginPatterns []string
}

func Handler(games session.GameStore, log *zap.Logger, opts Options) http.HandlerFunc {
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(readLimit)

		connID := uuid.NewString()
		sess := session.New(connID, games, log)
		clog := log.With(zap.String("conn_id", connID))
		clog.Debug("connection opened")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Unbind before the socket goes away so the team sees the departure.
		defer func() {
			leaveCtx, leaveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), leaveTimeout)
			defer leaveCancel()
			sess.Close(leaveCtx)
			clog.Debug("connection closed")
		}()

		// Writer goroutine
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-sess.Outbox():
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := wsjson.Write(wctx, conn, msg)
					wcancel()
					if err != nil {
						clog.Debug("write failed", zap.Error(err))
						cancel()
						return
					}
				}
			}
		}()

		// Keepalive
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}
			sess.HandleFrame(ctx, data)
		}
	}
}
