package player

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesQuotedArguments(t *testing.T) {
	p, err := New(`aplay -q --device "plug hw"`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"aplay", "-q", "--device", "plug hw"}, p.Command())
}

func TestNewRejectsEmptyCommand(t *testing.T) {
	_, err := New("   ", nil)
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = New(`aplay "unterminated`, nil)
	assert.Error(t, err)
}

func TestPlayRunsCommandWithPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "played")
	p, err := New(`sh -c 'cp "$0" `+marker+`'`, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	src := filepath.Join(dir, "audio.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o644))
	require.NoError(t, p.Play(context.Background(), src))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestPlayReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	p, err := New("false", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Error(t, p.Play(context.Background(), "missing.wav"))
}
