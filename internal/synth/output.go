package synth

import (
	"errors"
	"math"

	"github.com/loqalabs/loqa-diphone/internal/pcm"
)

// CrossfadeMS is the overlap between adjacent units when crossfading.
const CrossfadeMS = 10

var ErrInvalidVolume = errors.New("volume must be between 0 and 100")

// Output accumulates blended units. It starts with crossover zero samples so
// the first unit has something to overlap.
type Output struct {
	format    pcm.Format
	crossover int
	data      []float64
}

// NewOutput creates an empty output for the given format and overlap length.
func NewOutput(format pcm.Format, crossover int) *Output {
	if crossover < 1 {
		crossover = 1
	}
	return &Output{
		format:    format,
		crossover: crossover,
		data:      make([]float64, crossover),
	}
}

// Len returns the number of accumulated samples.
func (o *Output) Len() int { return len(o.data) }

// Samples returns a copy of the unfinalized samples.
func (o *Output) Samples() []float64 {
	return append([]float64(nil), o.data...)
}

// Append ramps unit in over its first crossover samples and out over its
// last crossover samples, then adds it onto the tail of the output so it
// overlaps the previous unit by crossover samples. unit is modified in place.
func (o *Output) Append(unit []float64) {
	if len(unit) == 0 {
		return
	}
	k := min(o.crossover, len(unit), len(o.data))
	for i := 0; i < k; i++ {
		up := float64(i+1) / float64(k)
		unit[i] = math.RoundToEven(unit[i] * up)
	}
	for i := 0; i < k; i++ {
		down := float64(k-i) / float64(k)
		j := len(unit) - k + i
		unit[j] = math.RoundToEven(unit[j] * down)
	}
	o.data = append(o.data, make([]float64, len(unit)-k)...)
	tail := o.data[len(o.data)-len(unit):]
	for i, s := range unit {
		tail[i] += s
	}
}

// Finalize rounds every sample half-to-even and clamps it to the bit depth.
func (o *Output) Finalize() *pcm.Buffer {
	limit := float64(o.format.MaxAmplitude())
	out := make([]int, len(o.data))
	for i, s := range o.data {
		v := math.RoundToEven(s)
		if limit > 0 {
			v = math.Max(-limit-1, math.Min(limit, v))
		}
		out[i] = int(v)
	}
	return &pcm.Buffer{Format: o.format, Data: out}
}

// Rescale scales buf so its peak sits at volume percent of full scale.
func Rescale(buf *pcm.Buffer, volume int) error {
	if volume < 0 || volume > 100 {
		return ErrInvalidVolume
	}
	peak := 0
	for _, s := range buf.Data {
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
	}
	if peak == 0 {
		return nil
	}
	factor := float64(volume) / 100 * float64(buf.Format.MaxAmplitude()) / float64(peak)
	for i, s := range buf.Data {
		buf.Data[i] = int(math.RoundToEven(float64(s) * factor))
	}
	return nil
}
