package routes

import (
	"jobtracker/internal/delivery/http/handler"
	v1 "jobtracker/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health *handler.HealthHandler
	pages  *handler.PageHandler
	api    v1.Handlers
}

func NewRegistry(health *handler.HealthHandler, pages *handler.PageHandler, api v1.Handlers) *Registry {
	return &Registry{health: health, pages: pages, api: api}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerPages(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health != nil {
		r.health.RegisterRoutes(app)
	}
}

func (r *Registry) registerPages(app *fiber.App) {
	if r.api.Auth != nil {
		r.api.Auth.RegisterPageRoutes(app)
	}
	if r.pages != nil && r.api.AuthMw != nil {
		r.pages.RegisterRoutes(app, r.api.AuthMw.PageGate())
	}
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1"), r.api)
}
