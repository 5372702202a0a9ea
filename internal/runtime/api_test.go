package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-diphone/internal/config"
	"github.com/loqalabs/loqa-diphone/internal/pcm"
	"github.com/loqalabs/loqa-diphone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDictionary = `;;; test dictionary
HI  HH AY1
YOU  Y UW1
`

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAPI(t *testing.T) *api {
	t.Helper()
	dir := t.TempDir()
	unitDir := filepath.Join(dir, "voice")
	format := pcm.Format{SampleRate: 16000, Channels: 1, BitDepth: 16}
	for _, id := range []string{"pau-hh", "hh-ay", "ay-pau", "pau-y", "y-uw", "uw-pau"} {
		data := make([]int, 1600)
		for i := range data {
			data[i] = 1000
		}
		require.NoError(t, pcm.Save(&pcm.Buffer{Format: format, Data: data}, filepath.Join(unitDir, id+".wav")))
	}
	dictPath := filepath.Join(dir, "test.dict")
	require.NoError(t, os.WriteFile(dictPath, []byte(testDictionary), 0o644))

	cfg := config.Default().Voice
	cfg.UnitDirectory = unitDir
	cfg.DictionaryPath = dictPath
	cfg.OutputPath = filepath.Join(dir, "out", "audio.wav")
	cfg.PlayCommand = ""

	voice, err := OpenVoice(cfg, newLogger())
	require.NoError(t, err)

	st, err := store.Open(context.Background(), config.StoreConfig{
		Path:          filepath.Join(dir, "diphone.db"),
		RetentionMode: "persistent",
	}, newLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return &api{voice: voice, store: st, outputPath: cfg.OutputPath, log: newLogger()}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSynthesizeEndpoint(t *testing.T) {
	a := newTestAPI(t)
	h := a.routes()

	rec := do(t, h, http.MethodPost, "/synthesize", `{"text":"Hi you"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp synthesisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi you", resp.Normalized)
	assert.Equal(t, []string{"PAU-HH", "HH-AY", "AY-Y", "Y-UW", "UW-PAU"}, resp.Diphones)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "AY-Y", resp.Diagnostics[0].Diphone)
	assert.Equal(t, 16000, resp.SampleRate)

	audio := do(t, h, http.MethodGet, "/audio", "")
	require.Equal(t, http.StatusOK, audio.Code)
	assert.Equal(t, "audio/wav", audio.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(audio.Body.Bytes(), []byte("RIFF")))

	events, err := a.store.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.OutcomeOK, events[0].Outcome)
	assert.Equal(t, 1, events[0].Missing)
}

func TestSynthesizeFatalErrorsAre422(t *testing.T) {
	a := newTestAPI(t)
	h := a.routes()

	cases := []struct {
		body  string
		check func(t *testing.T, resp errorResponse)
	}{
		{`{"text":"hi xyzzyplonk"}`, func(t *testing.T, resp errorResponse) {
			assert.Equal(t, "xyzzyplonk", resp.Word)
			assert.Equal(t, "phonemizing", resp.Stage)
		}},
		{`{"text":"hi 32/1/1990"}`, func(t *testing.T, resp errorResponse) {
			assert.Equal(t, "day", resp.Component)
			assert.Equal(t, "32", resp.Value)
		}},
		{`{"text":"@@@"}`, func(t *testing.T, resp errorResponse) {
			assert.Equal(t, "normalizing", resp.Stage)
		}},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodPost, "/synthesize", tc.body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, tc.body)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
		tc.check(t, resp)
	}

	events, err := a.store.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, evt := range events {
		assert.Equal(t, store.OutcomeFailed, evt.Outcome)
	}

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/audio", "").Code)
}

func TestSynthesizeBadBody(t *testing.T) {
	h := newTestAPI(t).routes()
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/synthesize", "{").Code)
}

func TestPhraseEndpoints(t *testing.T) {
	a := newTestAPI(t)
	h := a.routes()

	rec := do(t, h, http.MethodPost, "/phrases", `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created store.Phrase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	location := rec.Header().Get("Location")
	assert.Equal(t, "/phrases/1", location)

	rec = do(t, h, http.MethodGet, "/phrases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Phrase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(t, h, http.MethodPut, location, `{"content":"hi you"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, location+"/play", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var played synthesisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &played))
	assert.Equal(t, created.ID, played.PhraseID)
	assert.Equal(t, "hi you", played.Text)
	assert.False(t, played.Played)

	rec = do(t, h, http.MethodGet, location+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []store.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, location, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, location, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, location+"/play", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/phrases/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/phrases", `{"content":" "}`).Code)
}

func TestVoiceAndHealthEndpoints(t *testing.T) {
	a := newTestAPI(t)
	ready := false
	a.ready = func() bool { return ready }
	h := a.routes()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", "").Code)
	ready = true
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)

	rec := do(t, h, http.MethodGet, "/voice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Units  int        `json:"units"`
		Format pcm.Format `json:"format"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 6, info.Units)
	assert.Equal(t, 16000, info.Format.SampleRate)

	assert.Equal(t, 6, a.voice.Info().Units)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
