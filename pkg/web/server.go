// Package web serves a running simulation over HTTP and WebSocket.
package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowdfeed"
	"github.com/teslashibe/go-venue-acoustics/pkg/hub"
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/store"
)

// Server is the simulation API server
type Server struct {
	app  *fiber.App
	port int

	sim     *simulation.Simulation
	tracker *crowd.Tracker
	catalog *store.Store

	// Profile updates are fanned out to /ws/profile subscribers
	profileHub *hub.Hub
	feeds      *crowdfeed.Server

	started time.Time
}

// Option configures a Server
type Option func(*Server)

// WithCatalog exposes a venue catalog under /api/venues
func WithCatalog(c *store.Store) Option {
	return func(s *Server) { s.catalog = c }
}

// WithTracker routes join/leave/move feed events through t. The tracker
// is attached to the simulation.
func WithTracker(t *crowd.Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

// NewServer creates a server for sim
func NewServer(port int, sim *simulation.Simulation, opts ...Option) *Server {
	s := &Server{
		port:       port,
		sim:        sim,
		profileHub: hub.New("profile"),
		started:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = crowd.NewTracker(sim.Venue().AudienceCapacity())
	}
	sim.AttachTracker(s.tracker)
	s.profileHub.PublishProfiles(sim)
	s.feeds = crowdfeed.NewServer(sim, s.tracker)

	app := fiber.New(fiber.Config{
		AppName:               "Venue Acoustics",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// CORS for local renderers
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	// API routes
	api := app.Group("/api")
	api.Get("/venue", s.handleVenue)
	api.Get("/profile", s.handleProfile)
	api.Get("/modes", s.handleModes)
	api.Get("/query", s.handleQuery)
	api.Get("/setup", s.handleSetup)
	api.Get("/quality", s.handleQuality)
	api.Get("/cache", s.handleCache)
	api.Put("/crowd", s.handlePutCrowd)
	api.Put("/crowd/movement", s.handlePutMovement)
	api.Put("/environment", s.handlePutEnvironment)
	api.Get("/venues", s.handleListVenues)
	s.feeds.RegisterAPIRoutes(api)

	// Crowd-tracking ingestion
	s.feeds.RegisterRoutes(app)

	// Profile subscribers
	app.Use("/ws/profile", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/profile", websocket.New(s.handleProfileWS))

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the profile broadcast hub
func (s *Server) Hub() *hub.Hub {
	return s.profileHub
}

// Feeds returns the crowd feed server
func (s *Server) Feeds() *crowdfeed.Server {
	return s.feeds
}

// Start runs the server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.profileHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("venue acoustics server listening",
			"url", fmt.Sprintf("http://localhost:%d", s.port), "venue", s.sim.Venue().ID())
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down server")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
