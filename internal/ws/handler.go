package ws

import (
	"net/http"
	"net/url"
	"strings"

	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/logger"
	"jobtracker/internal/workspace"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler serves the feed to pages from siteURL. With an empty siteURL
// only same-host origins are accepted.
func NewHandler(hub *Hub, log *zap.Logger, siteURL string) *Handler {
	return &Handler{
		hub:      hub,
		logger:   logger.OrNop(log).Named("ws"),
		upgrader: newUpgrader(siteURL),
	}
}

func newUpgrader(siteURL string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, siteURL)
		},
	}
}

// originAllowed accepts requests without an Origin header (non-browser
// clients) and browser requests whose origin matches siteURL.
func originAllowed(r *http.Request, siteURL string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	o, err := url.Parse(origin)
	if err != nil || o.Host == "" {
		return false
	}
	if siteURL == "" {
		return strings.EqualFold(o.Host, r.Host)
	}
	site, err := url.Parse(siteURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(o.Scheme, site.Scheme) && strings.EqualFold(o.Host, site.Host)
}

// HandleJobsWS streams the caller's list snapshots and notices. It runs
// behind the auth middleware; the first message is the current snapshot.
func (h *Handler) HandleJobsWS(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}
	s, ok := middleware.Workspace(c)
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	topic := workspace.Key(middleware.SessionToken(c))

	fiberHandler := adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(h.hub, conn, topic)
		if b, err := EncodeSnapshot(s.Snapshot()); err == nil {
			client.Queue(b)
		}
		h.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})

	return fiberHandler(c)
}
