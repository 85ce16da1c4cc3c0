package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/custodia-labs/kacey/internal/logger"
)

// Config tunes the HTTP server.
type Config struct {
	// AppName is reported in the Server header and health response.
	AppName string

	// BodyLimit caps upload size in bytes. Zero means DefaultBodyLimit.
	BodyLimit int

	// AllowOrigins lists CORS origins. Empty disables CORS.
	AllowOrigins []string

	// AccessLog enables per-request logging.
	AccessLog bool
}

// DefaultBodyLimit is the largest accepted upload.
const DefaultBodyLimit = 32 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP server for kacey.
type Server struct {
	ports *Ports
	app   *fiber.App
}

// NewServer creates a server with all routes registered.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if cfg.AppName == "" {
		cfg.AppName = "kacey"
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}
	if len(cfg.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		}))
	}

	s := &Server{ports: ports, app: app}
	s.register(app.Group("/api"), cfg.AppName)
	return s, nil
}

// App exposes the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	logger.Info("HTTP server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

func (s *Server) register(api fiber.Router, appName string) {
	api.Get("/health", s.handleHealth(appName))

	artifacts := api.Group("/artifacts")
	artifacts.Post("/", s.handleUpload)
	artifacts.Get("/", s.handleListArtifacts)
	artifacts.Get("/:id", s.handleGetArtifact)
	artifacts.Delete("/:id", s.handleDeleteArtifact)

	api.Post("/search", s.handleSearch)
	api.Post("/repair", s.handleRepair)

	api.Post("/chat", s.handleChat)
	api.Get("/conversations", s.handleListConversations)
	api.Get("/conversations/:id/messages", s.handleConversationMessages)
}
