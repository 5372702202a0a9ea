package synth

import "fmt"

// Stage tracks where a synthesis request is in the pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageNormalizing
	StagePhonemizing
	StageSequencing
	StageSynthesizing
	StageFinalized
	StageSaved
	StageDiscarded
	StageFailed
)

var stageNames = [...]string{
	"idle",
	"normalizing",
	"phonemizing",
	"sequencing",
	"synthesizing",
	"finalized",
	"saved",
	"discarded",
	"failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError wraps a fatal error with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
