package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/httpc"
	"github.com/teslashibe/go-venue-acoustics/pkg/environment"
	"github.com/teslashibe/go-venue-acoustics/pkg/protocol"
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/store"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
	"github.com/teslashibe/go-venue-acoustics/pkg/web"
)

const defaultVenue = "warehouse"

// resolveVenue loads ref as a YAML file, a built-in preset or a catalog id,
// in that order.
func resolveVenue(ref string) (*venue.Venue, error) {
	if ref == "" {
		ref = defaultVenue
	}
	if isSpecFile(ref) {
		return venue.Load(ref)
	}
	v, err := venue.Preset(ref)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, venue.ErrNotFound) {
		return nil, err
	}

	catalog, err := store.OpenDefault()
	if err != nil {
		return nil, err
	}
	defer catalog.Close()
	v, err = catalog.Load(ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("venue %q is not a spec file, preset or catalog id", ref)
	}
	return v, err
}

func isSpecFile(ref string) bool {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml":
		return true
	}
	info, err := os.Stat(ref)
	return err == nil && !info.IsDir()
}

// stateFlags are the crowd and weather overrides shared by the read commands.
type stateFlags struct {
	density  float64
	movement float64
	env      environment.Conditions
}

func (f *stateFlags) register(cmd *cobra.Command) {
	std := environment.Standard()
	flags := cmd.Flags()
	flags.Float64Var(&f.density, "density", 0, "Crowd density 0..1 of audience capacity")
	flags.Float64Var(&f.movement, "movement", 0, "Crowd movement intensity 0..1")
	flags.Float64Var(&f.env.TemperatureC, "temperature", std.TemperatureC, "Air temperature (°C)")
	flags.Float64Var(&f.env.HumidityPercent, "humidity", std.HumidityPercent, "Relative humidity (%)")
	flags.Float64Var(&f.env.WindSpeedMPS, "wind", std.WindSpeedMPS, "Wind speed (m/s)")
	flags.Float64Var(&f.env.PressureHPa, "pressure", std.PressureHPa, "Air pressure (hPa)")
}

func envChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"temperature", "humidity", "wind", "pressure"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// simulate builds a local simulation of the selected venue with the flag state applied.
func (f *stateFlags) simulate() (*simulation.Simulation, error) {
	v, err := resolveVenue(venueRef)
	if err != nil {
		return nil, err
	}
	cfg := simulation.DefaultConfig()
	cfg.Environment = f.env
	sim, err := simulation.New(v, cfg)
	if err != nil {
		return nil, err
	}
	if f.density != 0 {
		if err := sim.UpdateCrowd(f.density, nil); err != nil {
			return nil, err
		}
	}
	if f.movement != 0 {
		if err := sim.SetMovement(f.movement); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// pushRemote sends the flags the user set explicitly to the server.
func (f *stateFlags) pushRemote(ctx context.Context, cmd *cobra.Command) error {
	if cmd.Flags().Changed("density") {
		req := web.CrowdRequest{Density: f.density}
		if err := httpc.PutJSON(ctx, remoteURL("/api/crowd", nil), req, nil); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("movement") {
		req := protocol.MovementData{Intensity: f.movement}
		if err := httpc.PutJSON(ctx, remoteURL("/api/crowd/movement", nil), req, nil); err != nil {
			return err
		}
	}
	if envChanged(cmd) {
		req := protocol.EnvironmentData{
			TemperatureC:    f.env.TemperatureC,
			HumidityPercent: f.env.HumidityPercent,
			WindSpeedMPS:    f.env.WindSpeedMPS,
			PressureHPa:     f.env.PressureHPa,
		}
		if err := httpc.PutJSON(ctx, remoteURL("/api/environment", nil), req, nil); err != nil {
			return err
		}
	}
	return nil
}

func remote() bool {
	return serverURL != ""
}

func remoteURL(path string, query url.Values) string {
	u := strings.TrimRight(serverURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
