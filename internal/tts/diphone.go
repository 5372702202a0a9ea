package tts

import (
	"context"
	"fmt"

	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"github.com/loqalabs/loqa-diphone/internal/protocol"
	"github.com/loqalabs/loqa-diphone/internal/synth"
)

type diphoneSynth struct {
	engine  *synth.Engine
	unitDir string
	chunkMS int
}

// NewDiphoneSynth streams engine output rendered from unitDir in chunks of
// chunkMS milliseconds. Units must be 16-bit.
func NewDiphoneSynth(engine *synth.Engine, unitDir string, chunkMS int) Synthesizer {
	if chunkMS <= 0 {
		chunkMS = 400
	}
	return &diphoneSynth{engine: engine, unitDir: unitDir, chunkMS: chunkMS}
}

func (d *diphoneSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		engine := d.engine
		if req.Spell {
			engine = engine.Spelling()
		}
		res, err := engine.Synthesize(ctx, req.Text, d.unitDir)
		if err != nil {
			errs <- err
			return
		}
		format := res.Audio.Format
		if format.BitDepth != 16 {
			errs <- fmt.Errorf("streaming requires 16-bit units, voice is %s", format)
			return
		}

		diags := make([]protocol.Diagnostic, 0, len(res.Diagnostics))
		for _, diag := range res.Diagnostics {
			diags = append(diags, protocol.Diagnostic{Diphone: diag.Diphone, Message: diag.Message})
		}

		samples := res.Audio.Data
		step := max(d.chunkMS*format.SamplesPerMillisecond(), 1)
		sequence := 0
		for start := 0; start < len(samples) || sequence == 0; start += step {
			end := min(start+step, len(samples))
			chunk := SynthChunk{
				SessionID:  req.SessionID,
				Sequence:   sequence,
				SampleRate: format.SampleRate,
				Channels:   format.Channels,
				BitDepth:   format.BitDepth,
				PCM:        pcm.LittleEndian16(samples[start:end]),
				Final:      end >= len(samples),
			}
			if chunk.Final {
				chunk.Diagnostics = diags
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			sequence++
			if chunk.Final {
				return
			}
		}
	}()
	return chunks, errs
}
