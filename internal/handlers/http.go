// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/palace/internal/game"
	"github.com/jason-s-yu/palace/internal/middleware"
	"github.com/jason-s-yu/palace/internal/room"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// AllowedOrigins feeds both CORS and the WebSocket origin check.
	AllowedOrigins []string
	// PublicURL is the client base URL encoded in share QR codes. Empty
	// derives it from the request.
	PublicURL string
	// ConnBuffer is the outbound event buffer per socket.
	ConnBuffer int
}

// NewRouter wires every route onto an httprouter, behind CORS and request
// logging.
func NewRouter(logger *logrus.Logger, m *room.Manager, cfg RouterConfig) http.Handler {
	if cfg.ConnBuffer <= 0 {
		cfg.ConnBuffer = 64
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/ws", WSHandler(logger, m, origins, cfg.ConnBuffer))
	router.GET("/healthz", healthHandler)
	router.GET("/rooms/:code", roomSummaryHandler(m))
	router.GET("/rooms/:code/qr", roomQRHandler(m, cfg.PublicURL))

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return middleware.LogMiddleware(logger)(c.Handler(router))
}

func healthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func roomSummaryHandler(m *room.Manager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sum, err := m.Summary(ps.ByName("code"))
		if errors.Is(err, game.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// roomQRHandler renders a PNG QR code of the join link for a live room.
func roomQRHandler(m *room.Manager, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sum, err := m.Summary(ps.ByName("code"))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(JoinURL(baseURL(r, publicURL), sum.Code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// JoinURL is the client link that opens a room's join screen.
func JoinURL(base, code string) string {
	return strings.TrimSuffix(base, "/") + "/?room=" + code
}

func baseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
