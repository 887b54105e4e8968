package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/httpc"
	"github.com/teslashibe/go-venue-acoustics/pkg/store"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

func venuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venues",
		Short: "Manage the venue catalog",
	}

	cmd.AddCommand(venuesListCmd())
	cmd.AddCommand(venuesShowCmd())
	cmd.AddCommand(venuesAddCmd())
	cmd.AddCommand(venuesRemoveCmd())
	cmd.AddCommand(venuesSeedCmd())
	cmd.AddCommand(venuesPresetsCmd())
	return cmd
}

func venuesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []store.Entry
			if remote() {
				var resp struct {
					Venues []store.Entry `json:"venues"`
				}
				if err := httpc.GetJSON(cmd.Context(), remoteURL("/api/venues", nil), &resp); err != nil {
					return err
				}
				entries = resp.Venues
			} else {
				err := withCatalog(func(s *store.Store) (err error) {
					entries, err = s.List()
					return err
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, entries)
			}
			return printEntries(out, entries)
		},
	}
}

func printEntries(w io.Writer, entries []store.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No venues saved. Run 'venues seed' to add the presets.")
		return nil
	}
	table := newTable(w)
	fmt.Fprintln(table, "ID\tNAME\tCAPACITY\tVOLUME (m³)\tOUTDOOR")
	for _, e := range entries {
		fmt.Fprintf(table, "%s\t%s\t%d\t%.0f\t%s\n", e.ID, e.Name, e.AudienceCapacity, e.Volume, yesNo(e.Outdoor))
	}
	return table.Flush()
}

func venuesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a catalog venue as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec venue.Spec
			err := withCatalog(func(s *store.Store) (err error) {
				spec, err = s.Get(args[0])
				return err
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, spec)
			}
			data, err := spec.Marshal()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func venuesAddCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add or replace a venue from a YAML spec file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := venue.LoadSpec(args[0])
			if err != nil {
				return err
			}
			if id != "" {
				spec.ID = id
			}
			var saved string
			err = withCatalog(func(s *store.Store) (err error) {
				saved, err = s.Put(spec)
				return err
			})
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": saved})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved venue %s.\n", saved)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Catalog id (default: the id in the file, or a new UUID)")
	return cmd
}

func venuesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a catalog venue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed bool
			err := withCatalog(func(s *store.Store) (err error) {
				removed, err = s.Remove(args[0])
				return err
			})
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("venue %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed venue %s.\n", args[0])
			return nil
		},
	}
}

func venuesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the built-in presets to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			err := withCatalog(func(s *store.Store) (err error) {
				n, err = s.SeedPresets()
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d presets.\n", n)
			return nil
		},
	}
}

func venuesPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in venue presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]venue.Spec, 0)
			for _, name := range venue.PresetNames() {
				spec, err := venue.PresetSpec(name)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, specs)
			}
			table := newTable(out)
			fmt.Fprintln(table, "ID\tNAME\tW×D×H (m)\tCAPACITY\tOUTDOOR")
			for _, s := range specs {
				d := s.Dimensions
				fmt.Fprintf(table, "%s\t%s\t%g×%g×%g\t%d\t%s\n", s.ID, s.Name, d.Width, d.Depth, d.Height, s.AudienceCapacity, yesNo(s.Outdoor))
			}
			return table.Flush()
		},
	}
}

// withCatalog opens the default catalog for the duration of fn.
func withCatalog(fn func(*store.Store) error) error {
	s, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
