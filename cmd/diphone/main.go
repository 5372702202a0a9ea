package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/loqalabs/loqa-diphone/internal/runtime"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

type rootOptions struct {
	configPath string
	unitDir    string
	dictPath   string
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "diphone",
		Short:         "Speak text with a diphone voice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.unitDir, "units", "", "Directory of diphone WAV units (overrides voice.unit_directory)")
	cmd.PersistentFlags().StringVar(&opts.dictPath, "dict", "", "Pronunciation dictionary (overrides voice.dictionary_path)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(
		newSynthCommand(opts),
		newUnitsCommand(opts),
		newValidateCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// load resolves configuration and the CLI logger.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if o.unitDir != "" {
		cfg.Voice.UnitDirectory = o.unitDir
	}
	if o.dictPath != "" {
		cfg.Voice.DictionaryPath = o.dictPath
	}
	// A one-shot process gains nothing from the cache.
	cfg.Voice.CacheUnits = false

	level := runtime.ParseLevel(cfg.Telemetry.LogLevel)
	if o.verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
