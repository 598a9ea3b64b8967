package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/session"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
)

const qrSize = 320

type createGameRequest struct {
	Tasks []string `json:"tasks"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
}

type checkGameResponse struct {
	GameID        string               `json:"gameId"`
	ExistingTeams []engine.TeamSummary `json:"existingTeams"`
}

func CreateGame(games session.GameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Tasks != nil && len(req.Tasks) != engine.CellCount {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("tasks must contain %d entries", engine.CellCount))
			return
		}

		lb, err := games.CreateGame(r.Context(), req.Tasks)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create game")
			return
		}
		writeJSON(w, http.StatusCreated, createGameResponse{GameID: lb.ID()})
	}
}

func CheckGame(games session.GameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := types.NormalizeGameID(chi.URLParam(r, "gameID"))

		lb, err := games.Game(r.Context(), gameID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		roster, err := lb.Roster(r.Context(), "")
		if err != nil {
			writeGameError(w, err)
			return
		}
		if roster == nil {
			roster = []engine.TeamSummary{}
		}
		writeJSON(w, http.StatusOK, checkGameResponse{GameID: gameID, ExistingTeams: roster})
	}
}

// GameQR renders a PNG pointing players at the join page for a game.
func GameQR(games session.GameStore, publicURL string, trustProxy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := types.NormalizeGameID(chi.URLParam(r, "gameID"))
		if _, err := games.Game(r.Context(), gameID); err != nil {
			writeGameError(w, err)
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, trustProxy, gameID), qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

// joinURL prefers the configured public URL. Forwarded headers are only
// believed when the server sits behind a trusted proxy.
func joinURL(r *http.Request, publicURL string, trustProxy bool, gameID string) string {
	base := publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if trustProxy {
			switch p := r.Header.Get("X-Forwarded-Proto"); p {
			case "http", "https":
				scheme = p
			}
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimSuffix(base, "/") + "/?game=" + url.QueryEscape(gameID)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func parseCellIndex(raw string) (int, error) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= engine.CellCount {
		return 0, engine.ErrCellIndexOutOfRange
	}
	return idx, nil
}

func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrGameNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, engine.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, "team not found")
	case errors.Is(err, engine.ErrCellIndexOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
