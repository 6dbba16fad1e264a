// Package web serves the shade REST API and websockets.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-shade/internal/log"
	"github.com/teslashibe/go-shade/pkg/choices"
	"github.com/teslashibe/go-shade/pkg/hub"
	"github.com/teslashibe/go-shade/pkg/relay"
	"github.com/teslashibe/go-shade/pkg/session"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// StaticDir is served at "/" when set.
	StaticDir string

	Session *session.Session

	// Events carries selection, suggestion and choice events to browsers.
	Events *hub.Hub

	// Camera carries JPEG frames when the server owns the camera.
	Camera *hub.Hub

	// Choices lists recorded choices. Optional.
	Choices choices.Store

	// Relay accepts browser tracking clients. Optional.
	Relay *relay.Relay

	// RequestTimeout bounds session calls made by handlers. Suggest uses
	// the session's own timeout.
	RequestTimeout time.Duration
}

// Server is the shade web server.
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger
}

// NewServer creates the server and registers its routes.
func NewServer(opts Options) *Server {
	if opts.Events == nil {
		opts.Events = hub.New("events")
	}
	if opts.Camera == nil {
		opts.Camera = hub.New("camera")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Server{
		opts:   opts,
		logger: log.Component("web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "shade",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local development
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/tones", s.handleTones)
	api.Get("/selection", s.handleGetSelection)
	api.Post("/selection", s.handleSetSelection)
	api.Post("/selection/next", s.handleNext)
	api.Post("/selection/previous", s.handlePrevious)
	api.Post("/input/click", s.handleClick)
	api.Post("/input/swipe", s.handleSwipe)
	api.Post("/input/scroll", s.handleScroll)
	api.Post("/input/key", s.handleKey)
	api.Post("/input/drag", s.handleDrag)
	api.Get("/mode", s.handleGetMode)
	api.Post("/mode", s.handleSetMode)
	api.Post("/suggest", s.handleSuggest)
	api.Get("/choices", s.handleListChoices)
	api.Post("/choices", s.handleConfirm)
	api.Get("/sample", s.handleSample)
	api.Get("/overlay.png", s.handleOverlay)

	if opts.Relay != nil {
		opts.Relay.RegisterRoutes(app)
		opts.Relay.RegisterAPIRoutes(api)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/selection", websocket.New(s.handleEventsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.opts.Events.Run(ctx)
	go s.opts.Camera.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

// SendCameraFrame sends a JPEG frame to every camera client.
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.opts.Camera.BroadcastBinary(jpegData)
}

// Events returns the event hub.
func (s *Server) Events() *hub.Hub {
	return s.opts.Events
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.opts.Events, c).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.opts.Camera, c).Run()
}
