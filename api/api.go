package api

import (
	"errors"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/sift/api/mcp"
	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/ingest/worker"
	"github.com/papercomputeco/sift/pkg/storage"
)

// Server is the API server for decoding and querying search results
type Server struct {
	config   Config
	storer   storage.Driver
	pool     *worker.Pool
	ingester *ingest.Ingester
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The storer and pool are injected to allow sharing with other components
// (e.g., the spool watcher in the same process). A nil pool disables
// POST /v1/ingest.
func NewServer(config Config, storer storage.Driver, pool *worker.Pool, logger *slog.Logger) (*Server, error) {
	if storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		config: config,
		storer: storer,
		pool:   pool,
		logger: logger,
		app:    app,
	}

	if pool != nil {
		s.ingester = ingest.New(ingest.Config{
			Pool:         pool,
			DropWhenFull: true,
			Logger:       logger,
		})
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Driver: storer,
		Noop:   config.DisableMCP,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/events", s.handleListEvents)
	app.Get("/v1/events/:id", s.handleGetEvent)
	app.Post("/v1/decode", s.handleDecode)
	app.Post("/v1/ingest", s.handleIngest)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
