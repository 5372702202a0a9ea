// Package player hands rendered WAV files to an external audio player.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

var ErrNoCommand = errors.New("play command empty")

// Player runs a command such as "aplay -q" with the file path appended.
// Plays are serialized so utterances never overlap on the device.
type Player struct {
	cmd []string
	mu  sync.Mutex
	log *slog.Logger
}

func New(command string, log *slog.Logger) (*Player, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse play command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	if log == nil {
		log = slog.Default()
	}
	return &Player{cmd: args, log: log.With(slog.String("component", "player"))}, nil
}

// Command returns the parsed argument vector.
func (p *Player) Command() []string {
	return append([]string(nil), p.cmd...)
}

// Play blocks until the player exits or ctx is cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	args := append(append([]string{}, p.cmd[1:]...), path)
	cmd := exec.CommandContext(ctx, p.cmd[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		p.log.Warn("playback failed", slog.String("path", path), slog.String("output", string(output)), slog.String("error", err.Error()))
		return fmt.Errorf("play %s: %w", path, err)
	}
	p.log.Debug("played audio", slog.String("path", path))
	return nil
}
