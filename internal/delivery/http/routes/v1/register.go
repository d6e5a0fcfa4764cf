package v1

import (
	"jobtracker/internal/delivery/http/handler"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Jobs   *handler.JobsHandler
	WS     *ws.Handler
	AuthMw *middleware.AuthMiddleware
}

func Register(r fiber.Router, h Handlers) {
	if r == nil || h.AuthMw == nil {
		return
	}

	authGroup := r.Group("/auth")
	if h.Auth != nil {
		h.Auth.RegisterRoutes(authGroup)
	}

	protected := r.Group("", h.AuthMw.Middleware())

	if h.Auth != nil {
		h.Auth.RegisterProtectedRoutes(protected.Group("/auth"))
	}
	RegisterJobs(protected.Group("/jobs"), h.Jobs)

	if h.WS != nil {
		protected.Get("/ws/jobs", h.WS.HandleJobsWS)
	}
}
