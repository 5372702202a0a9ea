package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-diphone/internal/bus"
	"github.com/loqalabs/loqa-diphone/internal/capability"
	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/loqalabs/loqa-diphone/internal/natsserver"
	"github.com/loqalabs/loqa-diphone/internal/player"
	"github.com/loqalabs/loqa-diphone/internal/store"
	"github.com/loqalabs/loqa-diphone/internal/tts"
)

type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	store         *store.Store
	embedded      *natsserver.EmbeddedServer
	bus           *bus.Client
	registry      *capability.Registry
	tts           *tts.Service
	ready         atomic.Bool
	wg            sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings up every subsystem and blocks until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer r.shutdown()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	r.store, err = store.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	voice, err := OpenVoice(r.cfg.Voice, r.logger)
	if err != nil {
		return err
	}
	if lib, err := voice.Library(); err != nil {
		r.logger.Warn("unit library not loadable yet", slog.String("directory", voice.Dir), slogError(err))
	} else {
		r.logger.Info("unit library loaded",
			slog.String("directory", lib.Dir()),
			slog.String("voice", lib.Manifest().Metadata.Name),
			slog.String("format", lib.Format().String()),
			slog.Int("units", lib.Len()))
	}

	var play *player.Player
	if r.cfg.Voice.PlayCommand != "" {
		play, err = player.New(r.cfg.Voice.PlayCommand, r.logger)
		if err != nil {
			return err
		}
	}

	if err := r.startBus(ctx, voice); err != nil {
		return err
	}

	handler := &api{
		voice:      voice,
		store:      r.store,
		player:     play,
		outputPath: r.cfg.Voice.OutputPath,
		metrics:    metricsHandler,
		ready:      r.isReady,
		log:        r.logger.With(slog.String("component", "http")),
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.serve(r.httpServer, "http")

	if metricsHandler != nil && r.cfg.Telemetry.PrometheusBind != addr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.serve(r.metricsServer, "metrics")
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	return nil
}

func (r *Runtime) startBus(ctx context.Context, voice *Voice) error {
	if !r.cfg.Bus.Enabled {
		return nil
	}
	busCfg := r.cfg.Bus
	embedded, err := natsserver.Start(busCfg, r.logger)
	if err != nil {
		return err
	}
	r.embedded = embedded
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}

	r.bus, err = bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return err
	}

	r.registry, err = capability.NewRegistry(ctx, r.cfg.Node, r.bus, voice.Info, r.logger)
	if err != nil {
		return err
	}

	var synthesizer tts.Synthesizer
	switch r.cfg.TTS.Mode {
	case "mock":
		synthesizer = tts.NewMockSynth(r.cfg.TTS.SampleRate, r.cfg.TTS.Channels)
	default:
		synthesizer = tts.NewDiphoneSynth(voice.Engine, voice.Dir, r.cfg.TTS.ChunkDurationMS)
	}
	r.tts = tts.NewService(ctx, r.cfg.TTS, r.bus, synthesizer, r.logger)
	return r.tts.Start()
}

func (r *Runtime) serve(srv *http.Server, name string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error(name+" server failed", slogError(err))
		}
	}()
}

func (r *Runtime) isReady() bool {
	if !r.ready.Load() {
		return false
	}
	if r.cfg.Bus.Enabled && !r.bus.Healthy() {
		return false
	}
	return r.tts == nil || r.tts.Healthy()
}

func (r *Runtime) shutdown() {
	r.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{r.httpServer, r.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slogError(err))
		}
	}
	r.wg.Wait()

	if r.tts != nil {
		r.tts.Close()
	}
	if r.registry != nil {
		r.registry.Close()
	}
	r.bus.Close()
	r.embedded.Shutdown()

	if err := r.store.Close(); err != nil {
		r.logger.Error("store close error", slogError(err))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slogError(err))
		}
	}
}
