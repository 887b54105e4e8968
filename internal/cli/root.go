// Package cli implements the venue-acoustics command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teslashibe/go-venue-acoustics/internal/config"
	"github.com/teslashibe/go-venue-acoustics/internal/log"
)

var (
	outputJSON bool
	venueRef   string
	serverURL  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "venue-acoustics",
	Short: "Simulate how a crowd and the weather shape a venue's acoustics",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Init(logLevel)
		// Piped output defaults to JSON
		if !cmd.Flags().Changed("json") && !term.IsTerminal(int(os.Stdout.Fd())) {
			outputJSON = true
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(modesCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(qualityCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(feedCmd())
	rootCmd.AddCommand(venuesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().StringVar(&venueRef, "venue", config.VenueFile(""),
		"Venue YAML file, preset name or catalog id (env VENUE_FILE)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Query a running server at this base URL instead of simulating locally")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
}
