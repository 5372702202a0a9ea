// Package units indexes a directory of recorded diphone WAV files by diphone
// identifier and supplies synthesized silences for punctuation.
package units

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"github.com/loqalabs/loqa-diphone/internal/voice"
)

var ErrNoUnits = errors.New("no diphone recordings found")

// FormatMismatchError is returned when a recording disagrees with the voice format.
type FormatMismatchError struct {
	Unit string
	Want pcm.Format
	Got  pcm.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("unit %s has format %s, expected %s", e.Unit, e.Got, e.Want)
}

// DuplicateUnitError is returned under the reject policy when two files map
// to the same identifier.
type DuplicateUnitError struct {
	ID    string
	Paths []string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("diphone %s provided by more than one file: %s", e.ID, strings.Join(e.Paths, ", "))
}

// DuplicatePolicy decides what happens when two files normalize to one identifier.
type DuplicatePolicy string

const (
	// DuplicateLexical keeps the file that sorts last by path.
	DuplicateLexical DuplicatePolicy = "lexical"
	// DuplicateReject fails the build.
	DuplicateReject DuplicatePolicy = "reject"
)

// Options control how a Library is built.
type Options struct {
	Duplicates DuplicatePolicy
	Logger     *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Unit is one recorded or synthesized audio unit. Its samples are never
// handed out directly; callers get a private copy.
type Unit struct {
	ID      string
	Path    string
	Format  pcm.Format
	samples []float64
}

// Len returns the number of interleaved samples.
func (u *Unit) Len() int { return len(u.samples) }

// Samples returns a copy of the unit's samples that the caller may mutate.
func (u *Unit) Samples() []float64 {
	return append([]float64(nil), u.samples...)
}

// Library maps diphone identifiers to units for one voice.
type Library struct {
	dir        string
	format     pcm.Format
	manifest   voice.Manifest
	units      map[string]*Unit
	longPause  *Unit
	shortPause *Unit
}

// Build scans dir recursively for .wav files in lexicographic path order.
func Build(dir string, opts Options) (*Library, error) {
	log := opts.logger().With(slog.String("component", "units"), slog.String("directory", dir))

	manifest, _, err := voice.Find(dir)
	if err != nil {
		return nil, fmt.Errorf("load voice manifest: %w", err)
	}
	if err := voice.Validate(manifest); err != nil {
		return nil, fmt.Errorf("invalid voice manifest: %w", err)
	}

	paths, err := listRecordings(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoUnits)
	}

	lib := &Library{
		dir:      dir,
		manifest: manifest,
		units:    make(map[string]*Unit, len(paths)),
	}
	for _, path := range paths {
		id := IdentifierFor(path)
		if prev, exists := lib.units[id]; exists {
			if opts.Duplicates == DuplicateReject {
				return nil, &DuplicateUnitError{ID: id, Paths: []string{prev.Path, path}}
			}
			log.Warn("duplicate diphone recording, keeping later file",
				slog.String("diphone", id), slog.String("dropped", prev.Path), slog.String("kept", path))
		}
		buf, err := pcm.Load(path)
		if err != nil {
			return nil, err
		}
		if err := lib.checkFormat(id, buf.Format); err != nil {
			return nil, err
		}
		lib.units[id] = &Unit{ID: id, Path: path, Format: buf.Format, samples: toFloat(buf.Data)}
	}

	lib.longPause = silence(".", lib.format, manifest.Pauses.LongMS)
	lib.shortPause = silence(",", lib.format, manifest.Pauses.ShortMS)
	log.Debug("unit library built", slog.Int("units", len(lib.units)), slog.String("format", lib.format.String()))
	return lib, nil
}

func (l *Library) checkFormat(id string, got pcm.Format) error {
	if l.format != (pcm.Format{}) {
		if got != l.format {
			return &FormatMismatchError{Unit: id, Want: l.format, Got: got}
		}
		return nil
	}
	if declared := l.manifest.Audio; !matchesDeclared(declared, got) {
		return &FormatMismatchError{Unit: id, Want: declared, Got: got}
	}
	if got.SampleRate < 1000 {
		return fmt.Errorf("unit %s: sample rate %d too low", id, got.SampleRate)
	}
	l.format = got
	return nil
}

// matchesDeclared compares against the manifest format; zero fields are unset.
func matchesDeclared(declared, got pcm.Format) bool {
	if declared.SampleRate != 0 && declared.SampleRate != got.SampleRate {
		return false
	}
	if declared.Channels != 0 && declared.Channels != got.Channels {
		return false
	}
	return declared.BitDepth == 0 || declared.BitDepth == got.BitDepth
}

func listRecordings(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".wav") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan unit directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// IdentifierFor derives the diphone identifier from a recording's file name.
func IdentifierFor(path string) string {
	name := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
}

// Lookup resolves id to a recording. Punctuation without a recording falls
// back to a long pause (. ! ? :) or a short pause (,).
func (l *Library) Lookup(id string) (*Unit, bool) {
	id = strings.ToUpper(id)
	if u, ok := l.units[id]; ok {
		return u, true
	}
	switch id {
	case ".", "!", "?", ":":
		return l.longPause, true
	case ",":
		return l.shortPause, true
	}
	return nil, false
}

// Format returns the format shared by every unit.
func (l *Library) Format() pcm.Format { return l.format }

// Manifest returns the voice manifest, or defaults when none was shipped.
func (l *Library) Manifest() voice.Manifest { return l.manifest }

// Dir returns the directory the library was built from.
func (l *Library) Dir() string { return l.dir }

// Len returns the number of recorded units.
func (l *Library) Len() int { return len(l.units) }

// IDs lists the recorded identifiers in sorted order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.units))
	for id := range l.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func silence(id string, format pcm.Format, ms int) *Unit {
	return &Unit{ID: id, Format: format, samples: make([]float64, ms*format.SamplesPerMillisecond())}
}

func toFloat(data []int) []float64 {
	out := make([]float64, len(data))
	for i, s := range data {
		out[i] = float64(s)
	}
	return out
}
