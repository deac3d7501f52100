package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
)

// HeaderSessionID carries the caller's session identity, minted by the
// gateway in front of this service.
const HeaderSessionID = "x-session-id"

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP API server for the mentor engine.
type Server struct {
	config Config
	engine *engine.Engine
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The engine is injected to allow
// sharing with other transports (e.g., the MCP handler).
func NewServer(config Config, eng *engine.Engine, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: eng,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)
	app.Post("/teach", s.handleTeach)
	app.Post("/respond", s.handleRespond)
	app.Post("/reindex", s.handleReindex)

	return s
}

// App exposes the underlying fiber app for mounting extra handlers.
func (s *Server) App() *fiber.App {
	return s.app
}

// MountMCP mounts a net/http MCP handler at /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.app.All("/mcp", adaptor.HTTPHandler(h))
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
