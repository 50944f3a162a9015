package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// MetricsExporter instruments requests and serves the scrape endpoint.
type MetricsExporter interface {
	EchoMiddleware() echo.MiddlewareFunc
	Handler() http.Handler
}

// RouterConfig holds the optional parts of the router. Nil fields disable the
// matching endpoints.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics MetricsExporter
	OpenAPI *openapi3.T

	// Health reports whether dependencies are reachable.
	Health func(ctx context.Context) error
}

// NewRouter builds the echo instance serving the API, health, metrics and
// documentation endpoints.
func NewRouter(server *Server, cfg RouterConfig) (*echo.Echo, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.EchoMiddleware())
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	e.GET("/health", func(c echo.Context) error {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, "Unhealthy")
			}
		}
		return c.String(http.StatusOK, "Healthy")
	})

	if cfg.OpenAPI != nil {
		docJSON, err := cfg.OpenAPI.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal openapi document: %w", err)
		}
		e.GET("/openapi.json", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, docJSON)
		})

		registerSwaggerDoc(docJSON)
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	server.Register(e)
	return e, nil
}
