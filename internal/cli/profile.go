package cli

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/httpc"
	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/field"
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/web"
)

func profileCmd() *cobra.Command {
	var state stateFlags

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the acoustic profile for a crowd and weather",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp web.ProfileResponse
			if remote() {
				if err := state.pushRemote(cmd.Context(), cmd); err != nil {
					return err
				}
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/profile", nil), &resp); err != nil {
					return err
				}
			} else {
				sim, err := state.simulate()
				if err != nil {
					return err
				}
				resp = profileResponse(sim.Snapshot())
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, resp)
			}
			return printProfile(out, resp)
		},
	}
	state.register(cmd)
	return cmd
}

func profileResponse(snap simulation.Snapshot) web.ProfileResponse {
	return web.ProfileResponse{
		Version:     snap.Version,
		Profile:     snap.Profile,
		Density:     snap.Crowd.Density,
		Headcount:   snap.Crowd.Headcount(),
		Movement:    snap.Crowd.Movement,
		Environment: snap.Environment,
	}
}

func printProfile(w io.Writer, resp web.ProfileResponse) error {
	p := resp.Profile
	if p == nil {
		return fmt.Errorf("server returned no profile")
	}
	modes := p.RoomModes
	table := newTable(w)
	fmt.Fprintf(table, "VENUE\t%s\n", p.VenueID)
	fmt.Fprintf(table, "CROWD\t%.2f density, %d people, %.2f movement\n", resp.Density, resp.Headcount, resp.Movement)
	fmt.Fprintf(table, "WEATHER\t%.1f °C, %.0f%% humidity, %.1f m/s wind, %.1f hPa\n",
		resp.Environment.TemperatureC, resp.Environment.HumidityPercent,
		resp.Environment.WindSpeedMPS, resp.Environment.PressureHPa)
	fmt.Fprintf(table, "RT60\t%.3f s\n", p.ReverberationTime)
	fmt.Fprintf(table, "ABSORPTION\t%.3f\n", p.Absorption)
	fmt.Fprintf(table, "DIFFUSION\t%.3f\n", p.Diffusion)
	fmt.Fprintf(table, "SPEED OF SOUND\t%.2f m/s\n", p.SpeedOfSound)
	fmt.Fprintf(table, "RESONANCE\tlow %.3f  mid %.3f  high %.3f\n", p.Resonance.Low, p.Resonance.Mid, p.Resonance.High)
	fmt.Fprintf(table, "SPATIAL\twidth %.3f  depth %.3f  height %.3f\n", p.Spatial.Width, p.Spatial.Depth, p.Spatial.Height)
	fmt.Fprintf(table, "ROOM MODES\t%d axial, %d tangential, %d oblique\n",
		len(modes.Axial), len(modes.Tangential), len(modes.Oblique))
	if err := table.Flush(); err != nil {
		return err
	}

	if len(p.Bands) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	table = newTable(w)
	fmt.Fprintln(table, "BAND (Hz)\tRT60 (s)")
	for _, b := range p.Bands {
		fmt.Fprintf(table, "%.0f\t%.3f\n", b.Frequency, b.RT60)
	}
	return table.Flush()
}

func queryCmd() *cobra.Command {
	var state stateFlags
	var freq float64

	cmd := &cobra.Command{
		Use:   "query <x> <y> <z>",
		Short: "Evaluate the acoustic field at a point",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parseVec(args)
			if err != nil {
				return err
			}

			var res field.Result
			if remote() {
				if err := state.pushRemote(cmd.Context(), cmd); err != nil {
					return err
				}
				q := url.Values{}
				q.Set("x", args[0])
				q.Set("y", args[1])
				q.Set("z", args[2])
				q.Set("f", strconv.FormatFloat(freq, 'g', -1, 64))
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/query", q), &res); err != nil {
					return err
				}
			} else {
				sim, err := state.simulate()
				if err != nil {
					return err
				}
				if res, err = sim.Query(pos, freq); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, res)
			}
			table := newTable(out)
			fmt.Fprintf(table, "POSITION\t(%.2f, %.2f, %.2f) m\n", pos.X, pos.Y, pos.Z)
			fmt.Fprintf(table, "FREQUENCY\t%.0f Hz\n", freq)
			fmt.Fprintf(table, "INTENSITY\t%.4f (%.1f dB)\n", res.Intensity, res.LevelDB)
			fmt.Fprintf(table, "DISTANCE\t%.2f m\n", res.Distance)
			fmt.Fprintf(table, "REVERB\t%.3f\n", res.Reverb)
			fmt.Fprintf(table, "CLARITY\t%.3f\n", res.Clarity)
			fmt.Fprintf(table, "LOCAL DENSITY\t%.3f\n", res.LocalDensity)
			fmt.Fprintf(table, "PATH DENSITY\t%.3f\n", res.PathDensity)
			fmt.Fprintf(table, "BANDS\tlow %.3f  mid %.3f  high %.3f\n",
				res.FrequencyBands.Low, res.FrequencyBands.Mid, res.FrequencyBands.High)
			return table.Flush()
		},
	}
	state.register(cmd)
	cmd.Flags().Float64Var(&freq, "freq", 1000, "Frequency (Hz)")
	return cmd
}

func parseVec(args []string) (vecmath.Vec3, error) {
	var v [3]float64
	for i, name := range []string{"x", "y", "z"} {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return vecmath.Vec3{}, fmt.Errorf("invalid %s %q", name, args[i])
		}
		v[i] = f
	}
	return vecmath.V(v[0], v[1], v[2]), nil
}

func modesCmd() *cobra.Command {
	var state stateFlags
	var minHz, maxHz float64
	var limit int

	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List room modes, lowest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var modes acoustics.Modes
			if remote() {
				if err := state.pushRemote(cmd.Context(), cmd); err != nil {
					return err
				}
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/modes", nil), &modes); err != nil {
					return err
				}
			} else {
				sim, err := state.simulate()
				if err != nil {
					return err
				}
				modes = sim.Profile().RoomModes
			}

			selected := filterModes(modes.All(), minHz, maxHz, limit)
			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, map[string]any{
					"count": modes.CountInBand(minHz, maxHz),
					"modes": selected,
				})
			}
			if len(selected) == 0 {
				fmt.Fprintln(out, "No modes in range.")
				return nil
			}
			table := newTable(out)
			fmt.Fprintln(table, "FREQUENCY (Hz)\tKIND\tNX\tNY\tNZ")
			for _, m := range selected {
				fmt.Fprintf(table, "%.2f\t%s\t%d\t%d\t%d\n", m.Frequency, m.Kind, m.NX, m.NY, m.NZ)
			}
			return table.Flush()
		},
	}
	state.register(cmd)
	cmd.Flags().Float64Var(&minHz, "min", 0, "Lowest frequency (Hz)")
	cmd.Flags().Float64Var(&maxHz, "max", acoustics.HighBandMax, "Highest frequency (Hz)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many modes (0 = all)")
	return cmd
}

// filterModes keeps modes within [min, max], preserving order.
func filterModes(all []acoustics.RoomMode, min, max float64, limit int) []acoustics.RoomMode {
	out := make([]acoustics.RoomMode, 0, len(all))
	for _, m := range all {
		if m.Frequency < min || m.Frequency > max {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
