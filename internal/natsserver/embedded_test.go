package natsserver

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/loqalabs/loqa-diphone/internal/bus"
	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default().Bus
	cfg.Embedded = false
	srv, err := Start(cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, srv, "no server when embedded mode is off")
	srv.Shutdown()
}

func TestStartAndConnect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default().Bus
	cfg.Port = -1
	cfg.StoreDir = t.TempDir()

	srv, err := Start(cfg, logger)
	require.NoError(t, err)
	defer srv.Shutdown()

	cfg.Servers = []string{srv.ClientURL()}
	client, err := bus.Connect(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer client.Close()
	assert.True(t, client.Healthy())
}
