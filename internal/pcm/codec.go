// Package pcm loads and saves integer PCM WAV files.
package pcm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format describes how samples in a Buffer are laid out.
type Format struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	Channels   int `json:"channels" yaml:"channels"`
	BitDepth   int `json:"bit_depth" yaml:"bit_depth"`
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// SamplesPerMillisecond returns the interleaved sample count covering one millisecond.
func (f Format) SamplesPerMillisecond() int {
	return f.SampleRate / 1000 * max(f.Channels, 1)
}

// MaxAmplitude is the largest positive sample value for the bit depth.
func (f Format) MaxAmplitude() int {
	if f.BitDepth <= 0 {
		return 0
	}
	return 1<<(f.BitDepth-1) - 1
}

// Buffer holds interleaved signed integer samples. 8-bit WAV data is stored
// unsigned on disk and centered on zero here.
type Buffer struct {
	Format Format
	Data   []int
}

var ErrInvalidWAV = errors.New("not a valid PCM wav file")

// unsigned8Offset is the silence level of unsigned 8-bit WAV samples.
const unsigned8Offset = 128

// Load decodes the WAV file at path.
func Load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	data := buf.Data
	if dec.BitDepth == 8 {
		for i := range data {
			data[i] -= unsigned8Offset
		}
	}
	return &Buffer{
		Format: Format{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   int(dec.BitDepth),
		},
		Data: data,
	}, nil
}

// Save encodes buf as a WAV file at path, creating parent directories.
func Save(buf *Buffer, path string) error {
	if buf == nil {
		return errors.New("nil buffer")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	data := buf.Data
	if buf.Format.BitDepth == 8 {
		data = make([]int, len(buf.Data))
		for i, v := range buf.Data {
			data[i] = v + unsigned8Offset
		}
	}

	enc := wav.NewEncoder(file, buf.Format.SampleRate, buf.Format.BitDepth, buf.Format.Channels, 1)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: buf.Format.Channels, SampleRate: buf.Format.SampleRate},
		Data:           data,
		SourceBitDepth: buf.Format.BitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// LittleEndian16 packs 16-bit samples into little-endian bytes for streaming.
func LittleEndian16(data []int) []byte {
	out := make([]byte, len(data)*2)
	for i, s := range data {
		v := uint16(int16(s))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
