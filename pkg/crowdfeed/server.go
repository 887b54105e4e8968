// Package crowdfeed ingests live crowd-tracking and weather readings over
// WebSocket and applies them to a running simulation.
package crowdfeed

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/protocol"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// ErrUnsupported is reported for message types a feed may not send.
var ErrUnsupported = errors.New("crowdfeed: unsupported message type")

// Sink receives bulk readings. *simulation.Simulation satisfies it.
type Sink interface {
	UpdateCrowd(density float64, distribution []vecmath.Vec3) error
	SetMovement(m float64) error
	UpdateEnvironment(c environment.Conditions) error
}

// Occupancy receives per-person events. *crowd.Tracker satisfies it.
// When set, it also owns movement so later snapshots carry it.
type Occupancy interface {
	Join(id string, pos vecmath.Vec3) string
	Leave(id string) bool
	Move(id string, pos vecmath.Vec3)
	SetMovement(m float64) error
}

// FeedConnection represents a connected tracking feed
type FeedConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the feed
func (f *FeedConnection) Send(msg *protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return f.Conn.WriteMessage(websocket.TextMessage, data)
}

// Server manages WebSocket connections from tracking feeds
type Server struct {
	mu    sync.RWMutex
	feeds map[string]*FeedConnection

	sink      Sink
	occupancy Occupancy

	// Stats
	messagesReceived atomic.Uint64
	messagesRejected atomic.Uint64
	messagesSent     atomic.Uint64
}

// NewServer creates a feed server. occupancy may be nil, in which case
// join/leave/move events are rejected.
func NewServer(sink Sink, occupancy Occupancy) *Server {
	return &Server{
		feeds:     make(map[string]*FeedConnection),
		sink:      sink,
		occupancy: occupancy,
	}
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/crowd", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/crowd", websocket.New(s.handleFeed))
	app.Get("/ws/crowd/:id", websocket.New(s.handleFeed))
}

// handleFeed handles a feed WebSocket connection
func (s *Server) handleFeed(c *websocket.Conn) {
	feedID := c.Params("id")
	if feedID == "" {
		feedID = uuid.New().String()
	}

	feed := &FeedConnection{
		ID:        feedID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	log.Info("feed connected", "feed", feedID, "feeds", s.addFeed(feed))
	defer func() {
		log.Info("feed disconnected", "feed", feedID, "feeds", s.removeFeed(feed))
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("feed read error", "feed", feedID, "error", err)
			return
		}

		feed.mu.Lock()
		feed.LastSeen = time.Now()
		feed.mu.Unlock()

		s.messagesReceived.Add(1)
		if reply := s.HandleMessage(feedID, data); reply != nil {
			s.messagesSent.Add(1)
			if err := feed.Send(reply); err != nil {
				log.Debug("feed write error", "feed", feedID, "error", err)
				return
			}
		}
	}
}

// addFeed registers feed, replacing any earlier connection with the same
// id, and returns the feed count.
func (s *Server) addFeed(feed *FeedConnection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[feed.ID] = feed
	return len(s.feeds)
}

// removeFeed unregisters feed unless a newer connection has taken its id,
// and returns the feed count.
func (s *Server) removeFeed(feed *FeedConnection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds[feed.ID] == feed {
		delete(s.feeds, feed.ID)
	}
	return len(s.feeds)
}

// HandleMessage applies one raw message and returns the reply to send
// back, if any: a pong for pings, an error report for rejected input.
func (s *Server) HandleMessage(feedID string, data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return s.reject("", feedID, err)
	}

	switch msg.Type {
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return s.reject(msg.Type, feedID, err)
		}
		pong, _ := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		return pong

	case protocol.TypeCrowd:
		d, err := msg.GetCrowdData()
		if err == nil {
			err = s.sink.UpdateCrowd(d.Density, d.Positions)
		}
		if err != nil {
			return s.reject(msg.Type, feedID, err)
		}

	case protocol.TypeMovement:
		d, err := msg.GetMovementData()
		if err == nil {
			if s.occupancy != nil {
				err = s.occupancy.SetMovement(d.Intensity)
			} else {
				err = s.sink.SetMovement(d.Intensity)
			}
		}
		if err != nil {
			return s.reject(msg.Type, feedID, err)
		}

	case protocol.TypeEnvironment:
		d, err := msg.GetEnvironmentData()
		if err == nil {
			err = s.sink.UpdateEnvironment(environment.Conditions{
				TemperatureC:    d.TemperatureC,
				HumidityPercent: d.HumidityPercent,
				WindSpeedMPS:    d.WindSpeedMPS,
				PressureHPa:     d.PressureHPa,
			})
		}
		if err != nil {
			return s.reject(msg.Type, feedID, err)
		}

	case protocol.TypeJoin, protocol.TypeLeave, protocol.TypeMove:
		if s.occupancy == nil {
			return s.reject(msg.Type, feedID, ErrUnsupported)
		}
		d, err := msg.GetPersonData()
		if err != nil {
			return s.reject(msg.Type, feedID, err)
		}
		if msg.Type != protocol.TypeLeave && !d.Position.IsFinite() {
			return s.reject(msg.Type, feedID, errors.New("position is not finite"))
		}
		switch msg.Type {
		case protocol.TypeJoin:
			s.occupancy.Join(d.ID, d.Position)
		case protocol.TypeLeave:
			s.occupancy.Leave(d.ID)
		case protocol.TypeMove:
			s.occupancy.Move(d.ID, d.Position)
		}

	default:
		return s.reject(msg.Type, feedID, ErrUnsupported)
	}
	return nil
}

func (s *Server) reject(t protocol.MessageType, feedID string, err error) *protocol.Message {
	s.messagesRejected.Add(1)
	log.Warn("feed message rejected", "feed", feedID, "type", t, "error", err)
	msg, _ := protocol.NewErrorMessage(t, err)
	return msg
}

// FeedCount returns the number of connected feeds
func (s *Server) FeedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.feeds)
}

// GetFeed returns a feed connection by ID
func (s *Server) GetFeed(feedID string) *FeedConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeds[feedID]
}

// Stats contains feed server statistics
type Stats struct {
	FeedCount        int    `json:"feed_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesRejected uint64 `json:"messages_rejected"`
	MessagesSent     uint64 `json:"messages_sent"`
}

// GetStats returns feed server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		FeedCount:        s.FeedCount(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesRejected: s.messagesRejected.Load(),
		MessagesSent:     s.messagesSent.Load(),
	}
}

// FeedInfo contains info about a connected feed
type FeedInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetFeedInfos returns info about all connected feeds
func (s *Server) GetFeedInfos() []FeedInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]FeedInfo, 0, len(s.feeds))
	for _, f := range s.feeds {
		f.mu.Lock()
		infos = append(infos, FeedInfo{
			ID:        f.ID,
			Connected: f.Connected,
			LastSeen:  f.LastSeen,
		})
		f.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for feed management
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	feeds := api.Group("/feeds")

	feeds.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"feeds": s.GetFeedInfos(),
			"count": s.FeedCount(),
		})
	})

	feeds.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})
}
