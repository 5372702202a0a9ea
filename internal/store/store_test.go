package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTemp(t *testing.T, cfg config.StoreConfig) *Store {
	t.Helper()
	if cfg.Path == "" && cfg.RetentionMode != "ephemeral" {
		cfg.Path = filepath.Join(t.TempDir(), "diphone.db")
	}
	s, err := Open(context.Background(), cfg, newLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPhraseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, config.StoreConfig{RetentionMode: "persistent"})

	created, err := s.CreatePhrase(ctx, "hello world")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := s.GetPhrase(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)

	updated, err := s.UpdatePhrase(ctx, created.ID, "goodbye")
	require.NoError(t, err)
	assert.Equal(t, "goodbye", updated.Content)

	require.NoError(t, s.DeletePhrase(ctx, created.ID))
	_, err = s.GetPhrase(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePhrase(ctx, created.ID), ErrNotFound)
	_, err = s.UpdatePhrase(ctx, created.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsBlankContent(t *testing.T) {
	s := openTemp(t, config.StoreConfig{RetentionMode: "persistent"})
	_, err := s.CreatePhrase(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestListPhrasesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, config.StoreConfig{RetentionMode: "persistent"})

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.clock = func() time.Time { return at }
		_, err := s.CreatePhrase(ctx, text)
		require.NoError(t, err)
	}

	phrases, err := s.ListPhrases(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, phrases, 2)
	assert.Equal(t, "three", phrases[0].Content)
	assert.Equal(t, "two", phrases[1].Content)
	assert.True(t, phrases[0].CreatedAt.Equal(base.Add(2*time.Minute)), phrases[0].CreatedAt)

	rest, err := s.ListPhrases(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Content)
}

func TestEphemeralKeepsPhrasesInMemory(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, config.StoreConfig{RetentionMode: "ephemeral"})

	p, err := s.CreatePhrase(ctx, "temporary")
	require.NoError(t, err)
	_, err = s.GetPhrase(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, s.AppendEvent(ctx, Event{RequestID: "r", Text: "temporary", Outcome: OutcomeOK, Stage: "finalized"}))

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events, "no events in ephemeral mode")
}

func TestAppendAndQueryEvents(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, config.StoreConfig{RetentionMode: "persistent"})

	p, err := s.CreatePhrase(ctx, "hi")
	require.NoError(t, err)
	require.NoError(t, s.AppendEvent(ctx, Event{RequestID: "r1", PhraseID: p.ID, Text: "hi", Outcome: OutcomeOK, Stage: "saved", Diphones: 3, Missing: 1}))
	require.NoError(t, s.AppendEvent(ctx, Event{RequestID: "r2", Text: "zork", Outcome: OutcomeFailed, Stage: "phonemizing", Error: "unknown"}))

	events, err := s.ListPhraseEvents(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "r1", events[0].RequestID)
	assert.Equal(t, 1, events[0].Missing)

	all, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].RequestID)
	assert.Equal(t, "unknown", all[0].Error)
	assert.Zero(t, all[0].PhraseID)

	require.NoError(t, s.DeletePhrase(ctx, p.ID))
	all, err = s.ListEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2, "events survive phrase deletion")
}

func TestPruneByDaysAndCount(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, config.StoreConfig{RetentionMode: "persistent", RetentionDays: 1, MaxEvents: 1})

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, s.AppendEvent(ctx, Event{RequestID: "old", Text: "a", Outcome: OutcomeOK, Stage: "saved"}))
	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	for _, id := range []string{"new-1", "new-2"} {
		require.NoError(t, s.AppendEvent(ctx, Event{RequestID: id, Text: "b", Outcome: OutcomeOK, Stage: "saved"}))
	}
	require.NoError(t, s.Prune(ctx))

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new-2", events[0].RequestID)
}

func TestSessionModeClearsEventsOnOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Path: filepath.Join(t.TempDir(), "diphone.db"), RetentionMode: "session"}

	s, err := Open(ctx, cfg, newLogger())
	require.NoError(t, err)
	_, err = s.CreatePhrase(ctx, "keep me")
	require.NoError(t, err)
	require.NoError(t, s.AppendEvent(ctx, Event{RequestID: "r", Text: "keep me", Outcome: OutcomeOK, Stage: "saved"}))
	require.NoError(t, s.Close())

	s = openTemp(t, cfg)
	phrases, err := s.ListPhrases(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, phrases, 1, "phrases persist across sessions")
	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events, "events cleared for the new session")
}
