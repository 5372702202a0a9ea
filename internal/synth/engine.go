// Package synth renders phrases to audio by concatenating diphone units.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-diphone/internal/lexicon"
	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"github.com/loqalabs/loqa-diphone/internal/phonetic"
	"github.com/loqalabs/loqa-diphone/internal/textnorm"
	"github.com/loqalabs/loqa-diphone/internal/units"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/loqalabs/loqa-diphone/synth"

// Options configure an Engine.
type Options struct {
	// UnitDirectory is used by SynthesizeToFile.
	UnitDirectory string
	// HardJoins overlaps adjacent units by one sample instead of blending them
	// over CrossfadeMS.
	HardJoins bool
	// Spell pronounces every letter instead of whole words.
	Spell bool
	// Volume rescales the peak to this percentage of full scale. Zero leaves levels untouched.
	Volume int
}

// Diagnostic records a recoverable problem that degraded the output.
type Diagnostic struct {
	Diphone string `json:"diphone"`
	Message string `json:"message"`
}

// Result is a finished synthesis.
type Result struct {
	ID          string
	Phrase      string
	Normalized  string
	Phones      []string
	Diphones    []string
	Audio       *pcm.Buffer
	Diagnostics []Diagnostic
	Stage       Stage
	Duration    time.Duration
}

// Save writes the audio to path.
func (r *Result) Save(path string) error {
	if r.Audio == nil {
		return errors.New("no audio to save")
	}
	if err := pcm.Save(r.Audio, path); err != nil {
		return err
	}
	r.Stage = StageSaved
	return nil
}

// Discard drops the audio without saving it.
func (r *Result) Discard() {
	r.Audio = nil
	r.Stage = StageDiscarded
}

type engineMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	missing  metric.Int64Counter
	duration metric.Float64Histogram
}

// Engine runs the normalize, phonemize, sequence and concatenate pipeline.
// The dictionary is shared read-only; every request gets its own output buffer
// and private copies of unit samples, so an Engine is safe for concurrent use.
type Engine struct {
	dict    lexicon.Dictionary
	source  units.Source
	opts    Options
	log     *slog.Logger
	tracer  trace.Tracer
	metrics engineMetrics
}

// NewEngine wires a dictionary and a unit source into an engine.
func NewEngine(dict lexicon.Dictionary, source units.Source, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		dict:   dict,
		source: source,
		opts:   opts,
		log:    logger.With(slog.String("component", "synth")),
		tracer: otel.Tracer(instrumentationName),
	}
	m, err := newEngineMetrics(otel.Meter(instrumentationName))
	if err != nil {
		e.log.Warn("failed to initialize metrics", slogError(err))
		m, _ = newEngineMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	e.metrics = m
	return e
}

func newEngineMetrics(meter metric.Meter) (engineMetrics, error) {
	var m engineMetrics
	var err error
	if m.requests, err = meter.Int64Counter("synth.requests", metric.WithDescription("Synthesis requests")); err != nil {
		return m, err
	}
	if m.failures, err = meter.Int64Counter("synth.failures", metric.WithDescription("Synthesis requests that produced no audio")); err != nil {
		return m, err
	}
	if m.missing, err = meter.Int64Counter("synth.missing_units", metric.WithDescription("Diphones skipped for lack of a recording")); err != nil {
		return m, err
	}
	if m.duration, err = meter.Float64Histogram("synth.duration_ms", metric.WithDescription("Synthesis wall time"), metric.WithUnit("ms")); err != nil {
		return m, err
	}
	return m, nil
}

// Spelling returns an engine sharing e's dictionary, units and metrics that
// pronounces every letter.
func (e *Engine) Spelling() *Engine {
	c := *e
	c.opts.Spell = true
	return &c
}

// Synthesize renders phrase with the units found in unitDir.
func (e *Engine) Synthesize(ctx context.Context, phrase, unitDir string) (*Result, error) {
	start := time.Now()
	res := &Result{ID: uuid.NewString(), Phrase: phrase, Stage: StageIdle}

	ctx, span := e.tracer.Start(ctx, "synth.Synthesize", trace.WithAttributes(
		attribute.String("synth.request_id", res.ID),
		attribute.String("synth.unit_directory", unitDir),
	))
	defer span.End()
	e.metrics.requests.Add(ctx, 1)

	err := e.run(ctx, res, unitDir)
	res.Duration = time.Since(start)
	e.metrics.duration.Record(ctx, float64(res.Duration.Milliseconds()))
	if err != nil {
		stage := res.Stage
		res.Stage = StageFailed
		e.metrics.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage.String())))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Info("synthesis failed",
			slog.String("request_id", res.ID), slog.String("stage", stage.String()), slogError(err))
		return nil, &StageError{Stage: stage, Err: err}
	}
	span.SetAttributes(
		attribute.Int("synth.diphones", len(res.Diphones)),
		attribute.Int("synth.missing_units", len(res.Diagnostics)),
	)
	e.log.Debug("synthesis complete",
		slog.String("request_id", res.ID),
		slog.Int("diphones", len(res.Diphones)),
		slog.Int("samples", len(res.Audio.Data)),
		slog.Int("missing_units", len(res.Diagnostics)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// SynthesizeToFile renders phrase with the configured unit directory and saves it to path.
func (e *Engine) SynthesizeToFile(ctx context.Context, phrase, path string) (*Result, error) {
	if e.opts.UnitDirectory == "" {
		return nil, errors.New("no unit directory configured")
	}
	res, err := e.Synthesize(ctx, phrase, e.opts.UnitDirectory)
	if err != nil {
		return nil, err
	}
	if err := res.Save(path); err != nil {
		return nil, fmt.Errorf("save synthesis: %w", err)
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, res *Result, unitDir string) error {
	var err error

	res.Stage = StageNormalizing
	_, span := e.tracer.Start(ctx, "synth.normalize")
	res.Normalized, err = textnorm.Normalize(res.Phrase)
	endSpan(span, err)
	if err != nil {
		return err
	}

	res.Stage = StagePhonemizing
	phonemizer := phonetic.NewPhonemizer(e.dict, phonetic.WithSpelling(e.opts.Spell))
	_, span = e.tracer.Start(ctx, "synth.phonemize")
	res.Phones, err = phonemizer.Phones(res.Normalized)
	endSpan(span, err)
	if err != nil {
		return err
	}

	res.Stage = StageSequencing
	res.Diphones = phonetic.Diphones(res.Phones)

	if err := ctx.Err(); err != nil {
		return err
	}

	res.Stage = StageSynthesizing
	lib, err := e.source.Library(unitDir)
	if err != nil {
		return fmt.Errorf("load unit library: %w", err)
	}
	synthCtx, span := e.tracer.Start(ctx, "synth.concatenate")
	out, diags := e.concatenate(synthCtx, lib, res.Diphones)
	endSpan(span, nil)
	res.Diagnostics = diags

	res.Audio = out.Finalize()
	if e.opts.Volume > 0 {
		if err := Rescale(res.Audio, e.opts.Volume); err != nil {
			return err
		}
	}
	res.Stage = StageFinalized
	return nil
}

// concatenate blends the units for seq into a fresh output. Identifiers with
// no recording and no pause fallback are skipped and reported.
func (e *Engine) concatenate(ctx context.Context, lib *units.Library, seq []string) (*Output, []Diagnostic) {
	crossover := CrossfadeMS * lib.Format().SamplesPerMillisecond()
	if e.opts.HardJoins {
		crossover = 1
	}
	out := NewOutput(lib.Format(), crossover)
	var diags []Diagnostic
	for _, id := range seq {
		unit, ok := lib.Lookup(id)
		if !ok {
			e.log.Warn("diphone unit missing, skipping", slog.String("diphone", id), slog.String("directory", lib.Dir()))
			e.metrics.missing.Add(ctx, 1)
			diags = append(diags, Diagnostic{Diphone: id, Message: "no recording for diphone in unit directory"})
			continue
		}
		out.Append(unit.Samples())
	}
	return out, diags
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
