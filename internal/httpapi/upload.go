package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/team-bingo-backend/internal/engine"
	"github.com/DoyleJ11/team-bingo-backend/internal/session"
	"github.com/DoyleJ11/team-bingo-backend/internal/types"
	"github.com/DoyleJ11/team-bingo-backend/internal/uploads"
)

// multipart framing allowance on top of the file limit
const formOverhead = 1 << 20

type uploadResponse struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadImage stores a photo for one cell and announces it to the game.
func UploadImage(games session.GameStore, store *uploads.Store, ledger uploads.Ledger, now func() time.Time, log *zap.Logger) http.HandlerFunc {
	log = log.Named("upload")

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gameID := types.NormalizeGameID(chi.URLParam(r, "gameID"))
		teamColor, err := url.PathUnescape(chi.URLParam(r, "teamColor"))
		if err != nil || teamColor == "" {
			writeError(w, http.StatusBadRequest, "invalid team color")
			return
		}
		cellIndex, err := parseCellIndex(chi.URLParam(r, "cellIndex"))
		if err != nil {
			writeGameError(w, err)
			return
		}

		lb, err := games.Game(ctx, gameID)
		if err != nil {
			writeGameError(w, err)
			return
		}
		if _, err := lb.Roster(ctx, teamColor); err != nil {
			writeGameError(w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, store.MaxSize()+formOverhead)
		file, header, err := r.FormFile("image")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, uploads.ErrTooLarge.Error())
				return
			}
			writeError(w, http.StatusBadRequest, uploads.ErrMissingFile.Error())
			return
		}
		defer file.Close()

		stored, err := store.Save(gameID, header.Filename, file)
		if err != nil {
			writeUploadError(w, log, err)
			return
		}

		img := engine.Image{URL: stored.URL, UploadedAt: now().UTC()}
		if err := lb.AttachImage(ctx, teamColor, cellIndex, img); err != nil {
			if rmErr := store.Remove(stored); rmErr != nil {
				log.Warn("orphaned upload", zap.String("path", stored.Path), zap.Error(rmErr))
			}
			writeGameError(w, err)
			return
		}

		rec := uploads.Record{
			GameID:      gameID,
			TeamColor:   teamColor,
			CellIndex:   cellIndex,
			URL:         stored.URL,
			ContentType: stored.ContentType,
			Size:        stored.Size,
			UploadedAt:  img.UploadedAt,
		}
		// The image is already live; a ledger outage only costs bookkeeping.
		if err := ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
			log.Warn("ledger write failed", zap.String("game_id", gameID), zap.Error(err))
		}

		log.Info("image uploaded",
			zap.String("game_id", gameID),
			zap.String("team_color", teamColor),
			zap.Int("cell_index", cellIndex),
			zap.Int64("size", stored.Size),
		)
		writeJSON(w, http.StatusCreated, uploadResponse{URL: img.URL, UploadedAt: img.UploadedAt})
	}
}

func writeUploadError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, uploads.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, uploads.ErrUploadRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("store upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store image")
	}
}
