// Package voice reads the optional voice.yaml manifest that sits next to a
// directory of diphone recordings.
package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"gopkg.in/yaml.v3"
)

// FileName is the manifest name looked up inside a unit directory.
const FileName = "voice.yaml"

// Manifest describes a recorded diphone voice.
type Manifest struct {
	Metadata   Metadata   `yaml:"metadata"`
	Audio      pcm.Format `yaml:"audio"`
	Pauses     Pauses     `yaml:"pauses,omitempty"`
	Dictionary string     `yaml:"dictionary,omitempty"`
}

type Metadata struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
}

// Pauses holds the durations of the synthesized punctuation silences.
type Pauses struct {
	LongMS  int `yaml:"long_ms"`
	ShortMS int `yaml:"short_ms"`
}

const (
	DefaultLongPauseMS  = 400
	DefaultShortPauseMS = 200
)

// Load reads a manifest from disk and fills pause defaults.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Pauses.LongMS == 0 {
		m.Pauses.LongMS = DefaultLongPauseMS
	}
	if m.Pauses.ShortMS == 0 {
		m.Pauses.ShortMS = DefaultShortPauseMS
	}
	if m.Dictionary != "" && !filepath.IsAbs(m.Dictionary) {
		m.Dictionary = filepath.Join(filepath.Dir(path), m.Dictionary)
	}
	return m, nil
}

// Find loads dir/voice.yaml. A missing manifest yields defaults and ok=false.
func Find(dir string) (Manifest, bool, error) {
	m, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}

// Default is used for unit directories that ship without a manifest.
func Default() Manifest {
	return Manifest{
		Metadata: Metadata{Name: "default", Language: "en-US"},
		Pauses:   Pauses{LongMS: DefaultLongPauseMS, ShortMS: DefaultShortPauseMS},
	}
}

// Validate ensures the manifest contains required fields.
func Validate(m Manifest) error {
	if m.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if m.Audio.SampleRate != 0 && m.Audio.SampleRate < 1000 {
		return fmt.Errorf("audio.sample_rate must be at least 1000")
	}
	if m.Audio.Channels < 0 {
		return fmt.Errorf("audio.channels must not be negative")
	}
	switch m.Audio.BitDepth {
	case 0, 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio.bit_depth %d not supported", m.Audio.BitDepth)
	}
	if m.Pauses.LongMS < 0 || m.Pauses.ShortMS < 0 {
		return fmt.Errorf("pauses must not be negative")
	}
	return nil
}
