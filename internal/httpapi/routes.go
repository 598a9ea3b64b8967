package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/session"
	"github.com/DoyleJ11/team-bingo-backend/internal/uploads"
	"github.com/DoyleJ11/team-bingo-backend/internal/ws"
)

type Deps struct {
	Games          session.GameStore
	Store          *uploads.Store
	Ledger         uploads.Ledger
	Logger         *zap.Logger
	PublicURL      string
	AllowedOrigins []string
	TrustProxy     bool // honour X-Forwarded-* headers
	Now            func() time.Time
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Ledger == nil {
		d.Ledger = uploads.NopLedger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Games, d.Logger, ws.Options{OriginPatterns: d.AllowedOrigins}))

	r.Route("/games", func(r chi.Router) {
		r.Post("/", CreateGame(d.Games))
		r.Get("/{gameID}", CheckGame(d.Games))
		r.Get("/{gameID}/qr", GameQR(d.Games, d.PublicURL, d.TrustProxy))
	})

	r.Post("/upload/{gameID}/{teamColor}/{cellIndex}", UploadImage(d.Games, d.Store, d.Ledger, d.Now, d.Logger))
	r.Handle("/uploads/*", http.StripPrefix("/uploads", http.FileServer(d.Store.FileSystem())))
	return r
}
