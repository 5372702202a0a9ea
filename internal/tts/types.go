package tts

import (
	"context"

	"github.com/loqalabs/loqa-diphone/internal/protocol"
)

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	SessionID string
	Text      string
	Voice     string
	Spell     bool
}

// SynthChunk contains little-endian PCM data. The final chunk carries any
// diagnostics collected while rendering.
type SynthChunk struct {
	SessionID   string
	Sequence    int
	SampleRate  int
	Channels    int
	BitDepth    int
	PCM         []byte
	Final       bool
	Diagnostics []protocol.Diagnostic
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}
