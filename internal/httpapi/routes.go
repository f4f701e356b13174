package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRoutes builds the local view server for one running session. server is
// the quiz server base URL, used for invite links.
func SetupRoutes(s Session, server string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/view", GetView(s))
	r.Get("/qr", QR(s, server))
	r.Post("/start", StartGame(s, log))
	r.Post("/answer", SubmitAnswer(s, log))
	return r
}
