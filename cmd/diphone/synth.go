package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loqalabs/loqa-diphone/internal/player"
	"github.com/loqalabs/loqa-diphone/internal/runtime"
	"github.com/spf13/cobra"
)

type synthOptions struct {
	phrase    string
	output    string
	spell     bool
	crossfade bool
	volume    int
	play      bool
}

func newSynthCommand(root *rootOptions) *cobra.Command {
	opts := &synthOptions{}
	cmd := &cobra.Command{
		Use:   "synth [phrase...]",
		Short: "Synthesize a phrase to a WAV file",
		Example: `diphone synth "hello world" -o hello.wav
diphone synth --phrase "meet me on 12/3/2020" --play`,
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase := opts.phrase
			if phrase == "" {
				phrase = strings.Join(args, " ")
			}
			if strings.TrimSpace(phrase) == "" {
				return errors.New("nothing to say: pass a phrase or --phrase")
			}

			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("spell") {
				cfg.Voice.Spell = opts.spell
			}
			if cmd.Flags().Changed("crossfade") {
				cfg.Voice.Crossfade = opts.crossfade
			}
			if cmd.Flags().Changed("volume") {
				cfg.Voice.Volume = opts.volume
			}
			if opts.output != "" {
				cfg.Voice.OutputPath = opts.output
			}

			voice, err := runtime.OpenVoice(cfg.Voice, logger)
			if err != nil {
				return err
			}
			res, err := voice.Engine.SynthesizeToFile(cmd.Context(), phrase, cfg.Voice.OutputPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %s (%d samples, %s)\n", cfg.Voice.OutputPath, len(res.Audio.Data), res.Audio.Format)
			for _, diag := range res.Diagnostics {
				fmt.Fprintf(out, "  missing unit %s\n", diag.Diphone)
			}

			if opts.play {
				p, err := player.New(cfg.Voice.PlayCommand, logger)
				if err != nil {
					return err
				}
				return p.Play(cmd.Context(), cfg.Voice.OutputPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.phrase, "phrase", "p", "", "Text to speak")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output WAV path (overrides voice.output_path)")
	cmd.Flags().BoolVar(&opts.spell, "spell", false, "Pronounce each letter")
	cmd.Flags().BoolVar(&opts.crossfade, "crossfade", true, "Blend adjacent units over 10 ms")
	cmd.Flags().IntVar(&opts.volume, "volume", 0, "Peak volume 1-100 (0 keeps recorded levels)")
	cmd.Flags().BoolVar(&opts.play, "play", false, "Play the result with voice.play_command")
	return cmd
}
