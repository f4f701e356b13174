package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/dispatcher"
	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/protocol"
	"github.com/DoyleJ11/flags-quiz-client/internal/session"
)

// Session is what the local view server needs from a running session.
type Session interface {
	Latest(ctx context.Context) (session.Snapshot, error)
	Start(ctx context.Context) error
	Answer(ctx context.Context, answer string) error
}

const qrSize = 320

// InviteLink is the page other players open to join code.
func InviteLink(server, code string) string {
	return strings.TrimSuffix(server, "/") + "/room?id=" + url.QueryEscape(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func GetView(s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, snap.View)
	}
}

func QR(s Session, server string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		if snap.View.RoomCode == "" {
			http.Error(w, "room not loaded", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(InviteLink(server, snap.View.RoomCode), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func StartGame(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Start(r.Context()); err != nil {
			log.Debug("start via view server failed", zap.Error(err))
			writeError(w, actionStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func SubmitAnswer(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := s.Answer(r.Context(), req.Answer); err != nil {
			log.Debug("answer via view server failed", zap.Error(err))
			writeError(w, actionStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrEmptyAnswer), errors.Is(err, protocol.ErrInvalidQuestionIndex):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, dispatcher.ErrGameOver),
		errors.Is(err, dispatcher.ErrNoQuestion),
		errors.Is(err, dispatcher.ErrInputLocked):
		return http.StatusConflict
	case errors.Is(err, dispatcher.ErrClosed), errors.Is(err, session.ErrStopped):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
