package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowd"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/field"
	"github.com/teslashibe/go-venue-acoustics/pkg/hub"
	"github.com/teslashibe/go-venue-acoustics/pkg/protocol"
	"github.com/teslashibe/go-venue-acoustics/pkg/speaker"
	"github.com/teslashibe/go-venue-acoustics/pkg/store"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// errorHandler maps domain errors onto HTTP status codes
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, field.ErrOutOfBounds):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, crowd.ErrValidation),
		errors.Is(err, environment.ErrValidation),
		errors.Is(err, field.ErrValidation),
		errors.Is(err, speaker.ErrValidation):
		code = fiber.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	}
	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"venue":       s.sim.Venue().ID(),
		"uptime_s":    int(time.Since(s.started).Seconds()),
		"subscribers": s.profileHub.ClientCount(),
		"feeds":       s.feeds.FeedCount(),
	})
}

// handleVenue returns the venue summary
func (s *Server) handleVenue(c *fiber.Ctx) error {
	return c.JSON(s.sim.Venue().Info())
}

// ProfileResponse is the current simulation state
type ProfileResponse struct {
	Version     uint64                 `json:"version"`
	Profile     *acoustics.Profile     `json:"profile"`
	Density     float64                `json:"density"`
	Headcount   int                    `json:"headcount"`
	Movement    float64                `json:"movement"`
	Environment environment.Conditions `json:"environment"`
}

// handleProfile returns the current acoustic profile
func (s *Server) handleProfile(c *fiber.Ctx) error {
	snap := s.sim.Snapshot()
	return c.JSON(ProfileResponse{
		Version:     snap.Version,
		Profile:     snap.Profile,
		Density:     snap.Crowd.Density,
		Headcount:   snap.Crowd.Headcount(),
		Movement:    snap.Crowd.Movement,
		Environment: snap.Environment,
	})
}

// handleModes returns the room modes, optionally counted in a band
func (s *Server) handleModes(c *fiber.Ctx) error {
	modes := s.sim.Profile().RoomModes
	min, max := c.QueryFloat("min", 0), c.QueryFloat("max", acoustics.HighBandMax)
	if c.Query("min") == "" && c.Query("max") == "" {
		return c.JSON(modes)
	}
	return c.JSON(fiber.Map{
		"min":   min,
		"max":   max,
		"count": modes.CountInBand(min, max),
	})
}

// handleQuery evaluates the field at ?x=&y=&z=&f=
func (s *Server) handleQuery(c *fiber.Ctx) error {
	pos, err := queryVec(c)
	if err != nil {
		return err
	}
	f := 1000.0
	if raw := c.Query("f"); raw != "" {
		if f, err = strconv.ParseFloat(raw, 64); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid f: "+raw)
		}
	}
	res, err := s.sim.Query(pos, f)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func queryVec(c *fiber.Ctx) (vecmath.Vec3, error) {
	var out [3]float64
	for i, key := range []string{"x", "y", "z"} {
		raw := c.Query(key)
		if raw == "" {
			return vecmath.Vec3{}, fiber.NewError(fiber.StatusBadRequest, "missing "+key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return vecmath.Vec3{}, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+": "+raw)
		}
		out[i] = v
	}
	return vecmath.V(out[0], out[1], out[2]), nil
}

// handleSetup returns the recommended speaker setup
func (s *Server) handleSetup(c *fiber.Ctx) error {
	plan, err := s.sim.OptimalSoundSetup()
	if err != nil {
		return err
	}
	return c.JSON(plan)
}

// handleQuality scores the venue for ?attendance=N
func (s *Server) handleQuality(c *fiber.Ctx) error {
	attendance := c.QueryInt("attendance", s.sim.Venue().OptimalCapacity())
	if attendance < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "attendance must be >= 0")
	}
	report, err := s.sim.Quality(attendance)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// handleCache returns profile cache statistics
func (s *Server) handleCache(c *fiber.Ctx) error {
	return c.JSON(s.sim.Cache().Stats())
}

// CrowdRequest is the body of PUT /api/crowd
type CrowdRequest struct {
	Density   float64        `json:"density"`
	Positions []vecmath.Vec3 `json:"positions"`
}

// handlePutCrowd replaces the crowd state
func (s *Server) handlePutCrowd(c *fiber.Ctx) error {
	var req CrowdRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.sim.UpdateCrowd(req.Density, req.Positions); err != nil {
		return err
	}
	return s.handleProfile(c)
}

// handlePutMovement sets crowd movement intensity on the tracker, which
// republishes it to the simulation with every later occupancy change
func (s *Server) handlePutMovement(c *fiber.Ctx) error {
	var req protocol.MovementData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.tracker.SetMovement(req.Intensity); err != nil {
		return err
	}
	return s.handleProfile(c)
}

// handlePutEnvironment replaces the environmental conditions
func (s *Server) handlePutEnvironment(c *fiber.Ctx) error {
	var req protocol.EnvironmentData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	err := s.sim.UpdateEnvironment(environment.Conditions{
		TemperatureC:    req.TemperatureC,
		HumidityPercent: req.HumidityPercent,
		WindSpeedMPS:    req.WindSpeedMPS,
		PressureHPa:     req.PressureHPa,
	})
	if err != nil {
		return err
	}
	return s.handleProfile(c)
}

// handleListVenues lists the venue catalog
func (s *Server) handleListVenues(c *fiber.Ctx) error {
	if s.catalog == nil {
		return fiber.NewError(fiber.StatusNotFound, "no venue catalog configured")
	}
	entries, err := s.catalog.List()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"venues": entries,
		"count":  len(entries),
	})
}

// handleProfileWS streams profile updates, starting with the current one
func (s *Server) handleProfileWS(c *websocket.Conn) {
	// No pump is running yet, so writing here is safe
	if msg, err := protocol.NewProfileMessage(s.sim.Snapshot()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}

	client := hub.NewClient(s.profileHub, c)
	if client == nil {
		return
	}
	client.Run()
}
