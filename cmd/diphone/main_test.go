package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVoice(t *testing.T) (unitDir, dictPath string) {
	t.Helper()
	dir := t.TempDir()
	unitDir = filepath.Join(dir, "voice")
	format := pcm.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	for _, id := range []string{"pau-hh", "hh-ay", "ay-pau"} {
		data := make([]int, 400)
		for i := range data {
			data[i] = 2000
		}
		require.NoError(t, pcm.Save(&pcm.Buffer{Format: format, Data: data}, filepath.Join(unitDir, id+".wav")))
	}
	dictPath = filepath.Join(dir, "test.dict")
	require.NoError(t, os.WriteFile(dictPath, []byte("HI  HH AY1\nYOU  Y UW1\n"), 0o644))
	return unitDir, dictPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSynthCommandWritesWAV(t *testing.T) {
	unitDir, dictPath := writeVoice(t)
	output := filepath.Join(t.TempDir(), "hi.wav")

	out, err := run(t, "synth", "--units", unitDir, "--dict", dictPath, "-o", output, "hi")
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote "+output)

	buf, err := pcm.Load(output)
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.Format.SampleRate)
	// 10 ms crossover at 8 kHz is 80 samples.
	assert.Len(t, buf.Data, 80+3*(400-80))
}

func TestSynthCommandReportsMissingUnits(t *testing.T) {
	unitDir, dictPath := writeVoice(t)
	output := filepath.Join(t.TempDir(), "hi.wav")

	out, err := run(t, "synth", "--units", unitDir, "--dict", dictPath, "-o", output, "--phrase", "hi you")
	require.NoError(t, err, out)
	assert.Contains(t, out, "missing unit AY-Y")
}

func TestSynthCommandFailsOnUnknownWord(t *testing.T) {
	unitDir, dictPath := writeVoice(t)
	output := filepath.Join(t.TempDir(), "x.wav")

	out, err := run(t, "synth", "--units", unitDir, "--dict", dictPath, "-o", output, "xyzzyplonk")
	require.Error(t, err)
	assert.Contains(t, out, "xyzzyplonk")
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSynthCommandRequiresPhrase(t *testing.T) {
	_, err := run(t, "synth")
	assert.Error(t, err)
}

func TestUnitsCommand(t *testing.T) {
	unitDir, _ := writeVoice(t)
	out, err := run(t, "units", "--units", unitDir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "3 units")
	assert.Equal(t, []string{"AY-PAU", "HH-AY", "PAU-HH"}, lines[1:])
}

func TestValidateCommand(t *testing.T) {
	unitDir, dictPath := writeVoice(t)

	out, err := run(t, "validate", "--units", unitDir, "--dict", dictPath, "hi")
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok: 3 units")

	out, err = run(t, "validate", "--units", unitDir, "--dict", dictPath, "hi you")
	require.Error(t, err)
	assert.Contains(t, out, "missing AY-Y")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}
