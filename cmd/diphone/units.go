package main

import (
	"fmt"

	"github.com/loqalabs/loqa-diphone/internal/units"
	"github.com/spf13/cobra"
)

func newUnitsCommand(root *rootOptions) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the diphone units in the voice directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			lib, err := units.Build(cfg.Voice.UnitDirectory, units.Options{
				Duplicates: units.DuplicatePolicy(cfg.Voice.DuplicatePolicy),
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			m := lib.Manifest()
			fmt.Fprintf(out, "%s: voice %q, %d units, %s\n", lib.Dir(), m.Metadata.Name, lib.Len(), lib.Format())
			for _, id := range lib.IDs() {
				if !long {
					fmt.Fprintln(out, id)
					continue
				}
				unit, _ := lib.Lookup(id)
				fmt.Fprintf(out, "%-12s %8d  %s\n", id, unit.Len(), unit.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show sample counts and file paths")
	return cmd
}
