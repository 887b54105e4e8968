package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/httpc"
	"github.com/teslashibe/go-venue-acoustics/pkg/simulation"
	"github.com/teslashibe/go-venue-acoustics/pkg/speaker"
)

func setupCmd() *cobra.Command {
	var state stateFlags

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Recommend speaker positions, equalizer and delays",
		RunE: func(cmd *cobra.Command, args []string) error {
			var plan speaker.SetupPlan
			if remote() {
				if err := state.pushRemote(cmd.Context(), cmd); err != nil {
					return err
				}
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/setup", nil), &plan); err != nil {
					return err
				}
			} else {
				sim, err := state.simulate()
				if err != nil {
					return err
				}
				if plan, err = sim.OptimalSoundSetup(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, plan)
			}

			ref := plan.ReferencePosition
			fmt.Fprintf(out, "Reference position: (%.2f, %.2f, %.2f) m\n\n", ref.X, ref.Y, ref.Z)
			table := newTable(out)
			fmt.Fprintln(table, "SPEAKER\tX\tY\tZ\tDELAY (ms)")
			for i, p := range plan.SpeakerPositions {
				delay := 0.0
				if i < len(plan.DelayTimes) {
					delay = plan.DelayTimes[i] * 1000
				}
				fmt.Fprintf(table, "%d\t%.2f\t%.2f\t%.2f\t%.2f\n", i+1, p.X, p.Y, p.Z, delay)
			}
			if err := table.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			table = newTable(out)
			fmt.Fprintln(table, "BAND (Hz)\tGAIN (dB)")
			for _, b := range plan.EqualizerSettings {
				fmt.Fprintf(table, "%.0f\t%+.1f\n", b.Frequency, b.GainDB)
			}
			return table.Flush()
		},
	}
	state.register(cmd)
	return cmd
}

func qualityCmd() *cobra.Command {
	var state stateFlags
	var attendance int

	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Score the venue for a planned attendance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report simulation.QualityReport
			if remote() {
				if err := state.pushRemote(cmd.Context(), cmd); err != nil {
					return err
				}
				q := url.Values{}
				if attendance >= 0 {
					q.Set("attendance", strconv.Itoa(attendance))
				}
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/quality", q), &report); err != nil {
					return err
				}
			} else {
				sim, err := state.simulate()
				if err != nil {
					return err
				}
				n := attendance
				if n < 0 {
					n = sim.Venue().OptimalCapacity()
				}
				if report, err = sim.Quality(n); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, report)
			}
			table := newTable(out)
			fmt.Fprintf(table, "QUALITY\t%.3f\n", report.Quality)
			fmt.Fprintf(table, "CLARITY\t%.3f\n", report.Clarity)
			fmt.Fprintf(table, "REVERBERATION\t%.3f\n", report.Reverberation)
			fmt.Fprintf(table, "INTIMACY\t%.3f\n", report.Intimacy)
			fmt.Fprintf(table, "BASS RESPONSE\t%.3f\n", report.BassResponse)
			fmt.Fprintf(table, "OCCUPANCY\t%.0f%%\n", report.OccupancyRate*100)
			if err := table.Flush(); err != nil {
				return err
			}
			for _, r := range report.Recommendations {
				fmt.Fprintf(out, "- %s\n", r)
			}
			return nil
		},
	}
	state.register(cmd)
	cmd.Flags().IntVar(&attendance, "attendance", -1, "Planned attendance (default: the venue's optimal capacity)")
	return cmd
}
