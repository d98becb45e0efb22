// Package server exposes claim checks and speaker records over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/metrics"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/worker"
)

// Checker runs one claim through retrieval and consensus
type Checker interface {
	Check(ctx context.Context, query string) (*model.Analysis, error)
}

// Speakers answers speaker record queries
type Speakers interface {
	Roster() []string
	Lookup(text string) *model.SpeakerProfile
	Profile(speaker string) *model.SpeakerProfile
}

// Server is the HTTP API
type Server struct {
	app      *fiber.App
	cfg      model.ServerConfig
	checker  Checker
	speakers Speakers
	log      *zap.Logger
	now      func() time.Time
}

// New builds the routes. gatherer may be nil to leave /metrics unmounted.
func New(cfg model.ServerConfig, checker Checker, speakers Speakers, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		checker:  checker,
		speakers: speakers,
		log:      log,
		now:      time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "precedent",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))
	}

	api := app.Group("/api/v1")
	api.Get("/health", s.health)

	if cfg.RequestsPerSecond > 0 {
		api.Use(rateLimit(worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize), log))
	}
	api.Post("/check", s.check)
	api.Post("/speaker", s.lookupSpeaker)
	api.Get("/speakers", s.roster)
	api.Get("/speakers/:name", s.profile)

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on cfg.Addr until ctx is done, then drains in-flight requests
// for up to grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	if err := s.app.ShutdownWithTimeout(grace); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
