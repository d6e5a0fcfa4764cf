package app

import (
	"fmt"
	"strings"

	"jobtracker/internal/config"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/delivery/http/routes"
	"jobtracker/internal/infrastructure/storage"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/static"
	"go.uber.org/zap"
)

type App struct {
	Fiber *fiber.App
}

type Options struct {
	Config config.Config
	Logger *zap.Logger
	Routes *routes.Registry
	// LocalBlobs is served under storage.RoutePrefix when résumés are kept
	// on disk.
	LocalBlobs *storage.Local
}

func New(opts Options) *App {
	bodyLimit := int(opts.Config.Storage.MaxResumeBytes) + 1<<20
	if bodyLimit < 4<<20 {
		bodyLimit = 4 << 20
	}
	f := fiber.New(fiber.Config{
		AppName:   opts.Config.App.AppName,
		BodyLimit: bodyLimit,
	})

	registerGlobalMiddleware(f, opts.Logger)
	registerStorage(f, opts.LocalBlobs)
	if opts.Routes != nil {
		opts.Routes.Register(f)
	}

	return &App{Fiber: f}
}

func registerGlobalMiddleware(app *fiber.App, log *zap.Logger) {
	if app == nil {
		return
	}

	accessMw := middleware.NewAccessLogMiddleware(log)
	errMw := middleware.NewErrorMiddleware(log)
	app.Use(accessMw.Middleware())
	app.Use(errMw.Middleware())
}

func registerStorage(app *fiber.App, local *storage.Local) {
	if app == nil || local == nil {
		return
	}

	app.Get(storage.RoutePrefix+"/"+local.Bucket()+"*", static.New(local.Root()))
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
