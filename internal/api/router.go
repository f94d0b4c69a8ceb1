package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/personar/profile-service/docs"
	"github.com/personar/profile-service/internal/api/handler"
	"github.com/personar/profile-service/internal/api/middleware"
	"github.com/personar/profile-service/internal/core/ports"
	"github.com/personar/profile-service/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the profile API is built from.
type Deps struct {
	Service ports.ProfileService
	Tokens  middleware.TokenValidator
	// Health lists the dependencies checked by /health/ready, keyed by name.
	Health map[string]handlers.Pinger
	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registry, which /metrics serves.
	Registerer prometheus.Registerer
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	e := newEcho(d.Log)

	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promMW, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}
	e.Use(promMW)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Service)
	profileHandler := handler.NewProfileHandler(d.Service)
	authMiddleware := middleware.Auth(d.Tokens)

	// --- Auth routes ---
	e.POST("/signup", authHandler.Signup)
	e.POST("/signup/external", authHandler.SignupExternal)
	e.POST("/login", authHandler.Login)
	e.POST("/login/external", authHandler.LoginExternal)

	// --- Profile routes ---
	me := e.Group("/users/me", authMiddleware)
	me.GET("", profileHandler.Me)
	me.PUT("", profileHandler.UpdateMe)
	me.PUT("/face-vectors", profileHandler.ReEnroll)

	e.POST("/users/find-by-vector", profileHandler.ByVector)
	e.GET("/users/:handle", profileHandler.ByHandle)

	// --- Health checks (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

// NewWebcamRouter serves the MJPEG stream of source on /video.
func NewWebcamRouter(source ports.FrameSource, log zerolog.Logger) *echo.Echo {
	e := newEcho(log)

	streamHandler := handler.NewStreamHandler(source, log)
	e.GET("/video", streamHandler.Video)
	e.GET("/health", handlers.NewHealthHandler().Liveness)

	return e
}

func newEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
