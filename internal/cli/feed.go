package cli

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/config"
	"github.com/teslashibe/go-venue-acoustics/internal/httpc"
	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/crowdfeed"
	"github.com/teslashibe/go-venue-acoustics/pkg/protocol"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// earHeight is where simulated people are reported, capped at the ceiling.
const earHeight = 1.7

func feedCmd() *cobra.Command {
	var (
		feedID   string
		people   int
		interval time.Duration
		duration time.Duration
		step     float64
		movement float64
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Stream a simulated crowd to a running server",
		Long: "Joins --people tracked people at random positions, then moves each one\n" +
			"on a random walk every --interval and reports crowd movement intensity.\n" +
			"Everyone leaves when the command stops.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if people < 0 {
				return fmt.Errorf("--people must be >= 0")
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be > 0")
			}
			base := serverURL
			if base == "" {
				base = config.ServerURL("localhost", config.Port(config.DefaultPort))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			// The server's venue bounds the walk
			var info venue.Info
			if err := httpc.GetJSON(ctx, strings.TrimRight(base, "/")+"/api/venue", &info); err != nil {
				return fmt.Errorf("fetch venue: %w", err)
			}

			url := feedURL(base, feedID)
			client, err := crowdfeed.Dial(ctx, url)
			if err != nil {
				return err
			}
			defer client.Close()
			client.OnError = func(d *protocol.ErrorData) {
				log.Warn("feed message rejected", "type", d.Type, "error", d.Message)
			}

			if seed == 0 {
				seed = rand.Uint64()
			}
			w := newWalker(info.Dimensions, people, step, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
			for i, id := range w.ids {
				if err := client.Join(id, w.pos[i]); err != nil {
					return err
				}
			}
			log.Info("crowd feed started", "url", url, "venue", info.ID, "people", people, "seed", seed)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			ticks := 0
			for {
				select {
				case <-ctx.Done():
					for _, id := range w.ids {
						client.Leave(id)
					}
					log.Info("crowd feed stopped", "ticks", ticks)
					return nil
				case <-client.Done():
					return fmt.Errorf("feed connection closed by server")
				case <-ticker.C:
					w.step()
					for i, id := range w.ids {
						if err := client.Move(id, w.pos[i]); err != nil {
							return err
						}
					}
					m := vecmath.Clamp(movement+0.1*(w.rng.Float64()-0.5), 0, 1)
					if err := client.SendMovement(m); err != nil {
						return err
					}
					ticks++
				}
			}
		},
	}
	cmd.Flags().StringVar(&feedID, "feed", "", "Feed id (default: assigned by the server)")
	cmd.Flags().IntVar(&people, "people", 50, "Number of tracked people")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Time between position updates")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = until interrupted)")
	cmd.Flags().Float64Var(&step, "step", 0.5, "Maximum step per update (m)")
	cmd.Flags().Float64Var(&movement, "movement", 0.3, "Mean crowd movement intensity 0..1")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 = random)")
	return cmd
}

// feedURL maps an http(s) server base URL onto its crowd feed endpoint.
func feedURL(base, feedID string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	if feedID == "" {
		return base + "/ws/crowd"
	}
	return base + "/ws/crowd/" + feedID
}

// walker moves people on a bounded random walk over the venue floor.
type walker struct {
	dims    venue.Dimensions
	maxStep float64
	rng     *rand.Rand
	ids     []string
	pos     []vecmath.Vec3
}

func newWalker(dims venue.Dimensions, n int, maxStep float64, rng *rand.Rand) *walker {
	w := &walker{
		dims:    dims,
		maxStep: maxStep,
		rng:     rng,
		ids:     make([]string, n),
		pos:     make([]vecmath.Vec3, n),
	}
	z := math.Min(earHeight, dims.Height)
	for i := range n {
		w.ids[i] = uuid.New().String()
		w.pos[i] = vecmath.V(rng.Float64()*dims.Width, rng.Float64()*dims.Depth, z)
	}
	return w
}

// step moves everyone by up to maxStep in a random direction, staying inside the floor.
func (w *walker) step() {
	for i, p := range w.pos {
		angle := w.rng.Float64() * 2 * math.Pi
		dist := w.rng.Float64() * w.maxStep
		w.pos[i] = vecmath.V(
			vecmath.Clamp(p.X+dist*math.Cos(angle), 0, w.dims.Width),
			vecmath.Clamp(p.Y+dist*math.Sin(angle), 0, w.dims.Depth),
			p.Z,
		)
	}
}
