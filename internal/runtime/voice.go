package runtime

import (
	"fmt"
	"log/slog"

	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/loqalabs/loqa-diphone/internal/lexicon"
	"github.com/loqalabs/loqa-diphone/internal/protocol"
	"github.com/loqalabs/loqa-diphone/internal/synth"
	"github.com/loqalabs/loqa-diphone/internal/units"
	"github.com/loqalabs/loqa-diphone/internal/voice"
)

// Voice bundles the engine built from a VoiceConfig with the unit source it reads.
type Voice struct {
	Engine *synth.Engine
	Source units.Source
	Dir    string
}

// OpenVoice loads the dictionary and prepares the unit source for cfg. A
// dictionary named by the voice manifest takes precedence over
// cfg.DictionaryPath.
func OpenVoice(cfg config.VoiceConfig, log *slog.Logger) (*Voice, error) {
	manifest, _, err := voice.Find(cfg.UnitDirectory)
	if err != nil {
		return nil, fmt.Errorf("load voice manifest: %w", err)
	}
	dictPath := cfg.DictionaryPath
	if manifest.Dictionary != "" {
		dictPath = manifest.Dictionary
	}
	if dictPath == "" {
		return nil, fmt.Errorf("no pronunciation dictionary configured for %s", cfg.UnitDirectory)
	}
	dict, err := lexicon.LoadFile(dictPath)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	log.Info("pronunciation dictionary loaded", slog.String("path", dictPath), slog.Int("words", len(dict)))

	opts := units.Options{Duplicates: units.DuplicatePolicy(cfg.DuplicatePolicy), Logger: log}
	var source units.Source = units.Rebuilder{Options: opts}
	if cfg.CacheUnits {
		cache, err := units.NewCache(cfg.CacheSize, opts)
		if err != nil {
			return nil, fmt.Errorf("create unit cache: %w", err)
		}
		source = cache
	}

	engine := synth.NewEngine(dict, source, synth.Options{
		UnitDirectory: cfg.UnitDirectory,
		HardJoins:     !cfg.Crossfade,
		Spell:         cfg.Spell,
		Volume:        cfg.Volume,
	}, log)
	return &Voice{Engine: engine, Source: source, Dir: cfg.UnitDirectory}, nil
}

// Library loads the current unit library.
func (v *Voice) Library() (*units.Library, error) {
	return v.Source.Library(v.Dir)
}

// Info summarizes the voice for capability announcements. It reports a zero
// value when the library cannot be loaded.
func (v *Voice) Info() protocol.VoiceInfo {
	lib, err := v.Library()
	if err != nil {
		return protocol.VoiceInfo{}
	}
	format := lib.Format()
	return protocol.VoiceInfo{
		Name:       lib.Manifest().Metadata.Name,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Units:      lib.Len(),
	}
}
