package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/spec-kit/rtc-token-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tokens  *handlers.TokenHandler
	Metrics prometheus.Gatherer
	// Limiter throttles issuance routes; nil disables throttling.
	Limiter *rate.Limiter
}

// NewApp builds the fiber application. Immutable keeps path and query values valid
// after the handler returns, which asynchronous credential recording relies on.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		Immutable:             true,
		DisableStartupMessage: true,
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	app.Get("/ping", noCache, cfg.Tokens.Ping)

	tokens := app.Group("", cors.New(cors.Config{AllowOrigins: "*"}), noCache)
	limit := rateLimit(cfg.Limiter)
	tokens.Get("/tokens/:userId/:astrologerId", cfg.Tokens.Latest)
	tokens.Get("/rtc/:channel/:role/:tokentype/:uid", limit, cfg.Tokens.RTC)
	tokens.Get("/rtm/:uid", limit, cfg.Tokens.RTM)
	tokens.Post("/rte/:channel/:role", limit, cfg.Tokens.Session)
}
