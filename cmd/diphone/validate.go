package main

import (
	"fmt"
	"strings"

	"github.com/loqalabs/loqa-diphone/internal/runtime"
	"github.com/loqalabs/loqa-diphone/internal/units"
	"github.com/spf13/cobra"
)

func newValidateCommand(root *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [phrase...]",
		Short: "Check the voice directory and dictionary, optionally against sample phrases",
		Long: `Builds the unit library (manifest, formats, duplicates) and loads the
dictionary. Each phrase argument is run through the pipeline and any diphone
without a recording is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if strict {
				cfg.Voice.DuplicatePolicy = string(units.DuplicateReject)
			}
			voice, err := runtime.OpenVoice(cfg.Voice, logger)
			if err != nil {
				return err
			}
			lib, err := voice.Library()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %d units, %s\n", lib.Len(), lib.Format())

			missing := 0
			for _, phrase := range args {
				res, err := voice.Engine.Synthesize(cmd.Context(), phrase, voice.Dir)
				if err != nil {
					return fmt.Errorf("%q: %w", phrase, err)
				}
				for _, diag := range res.Diagnostics {
					fmt.Fprintf(out, "%q: missing %s\n", phrase, diag.Diphone)
				}
				missing += len(res.Diagnostics)
			}
			if missing > 0 {
				return fmt.Errorf("%d diphone(s) missing across %s", missing, strings.Join(quoteAll(args), ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on duplicate unit identifiers")
	return cmd
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
