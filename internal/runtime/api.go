package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/loqalabs/loqa-diphone/internal/phonetic"
	"github.com/loqalabs/loqa-diphone/internal/player"
	"github.com/loqalabs/loqa-diphone/internal/store"
	"github.com/loqalabs/loqa-diphone/internal/synth"
	"github.com/loqalabs/loqa-diphone/internal/textnorm"
)

type api struct {
	voice      *Voice
	store      *store.Store
	player     *player.Player
	outputPath string
	metrics    http.Handler
	ready      func() bool
	log        *slog.Logger

	// serializes writes to outputPath
	mu sync.Mutex
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Spell bool   `json:"spell"`
}

type phraseRequest struct {
	Content string `json:"content"`
}

type synthesisResponse struct {
	ID          string             `json:"id"`
	PhraseID    int64              `json:"phrase_id,omitempty"`
	Text        string             `json:"text"`
	Normalized  string             `json:"normalized"`
	Phones      []string           `json:"phones"`
	Diphones    []string           `json:"diphones"`
	Diagnostics []synth.Diagnostic `json:"diagnostics"`
	Samples     int                `json:"samples"`
	SampleRate  int                `json:"sample_rate"`
	DurationMS  int64              `json:"duration_ms"`
	AudioURL    string             `json:"audio_url"`
	Played      bool               `json:"played"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Word      string `json:"word,omitempty"`
	Component string `json:"component,omitempty"`
	Value     string `json:"value,omitempty"`
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /readyz", a.handleReady)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
	mux.HandleFunc("GET /voice", a.handleVoice)
	mux.HandleFunc("POST /synthesize", a.handleSynthesize)
	mux.HandleFunc("GET /audio", a.handleAudio)
	mux.HandleFunc("GET /events", a.handleEvents)
	mux.HandleFunc("GET /phrases", a.handleListPhrases)
	mux.HandleFunc("POST /phrases", a.handleCreatePhrase)
	mux.HandleFunc("GET /phrases/{id}", a.handleGetPhrase)
	mux.HandleFunc("PUT /phrases/{id}", a.handleUpdatePhrase)
	mux.HandleFunc("DELETE /phrases/{id}", a.handleDeletePhrase)
	mux.HandleFunc("GET /phrases/{id}/events", a.handlePhraseEvents)
	mux.HandleFunc("POST /phrases/{id}/play", a.handlePlayPhrase)
	return mux
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *api) handleReady(w http.ResponseWriter, _ *http.Request) {
	if a.ready == nil || a.ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (a *api) handleVoice(w http.ResponseWriter, _ *http.Request) {
	lib, err := a.voice.Library()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"directory": lib.Dir(),
		"manifest":  lib.Manifest(),
		"format":    lib.Format(),
		"units":     lib.Len(),
	})
}

func (a *api) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	a.synthesize(r.Context(), w, req.Text, req.Spell, 0, false)
}

func (a *api) handlePlayPhrase(w http.ResponseWriter, r *http.Request) {
	phrase, ok := a.lookupPhrase(w, r)
	if !ok {
		return
	}
	spell, _ := strconv.ParseBool(r.URL.Query().Get("spell"))
	a.synthesize(r.Context(), w, phrase.Content, spell, phrase.ID, true)
}

// synthesize renders text to the shared output file and records the outcome.
func (a *api) synthesize(ctx context.Context, w http.ResponseWriter, text string, spell bool, phraseID int64, play bool) {
	engine := a.voice.Engine
	if spell {
		engine = engine.Spelling()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := engine.SynthesizeToFile(ctx, text, a.outputPath)
	if err != nil {
		a.recordFailure(ctx, text, phraseID, err)
		if synth.IsFatal(err) {
			writeError(w, http.StatusUnprocessableEntity, describeFatal(err))
			return
		}
		a.log.Error("synthesis failed", slog.String("text", text), slogError(err))
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	a.record(ctx, store.Event{
		RequestID:  res.ID,
		PhraseID:   phraseID,
		Text:       text,
		Outcome:    store.OutcomeOK,
		Stage:      res.Stage.String(),
		Diphones:   len(res.Diphones),
		Missing:    len(res.Diagnostics),
		DurationMS: res.Duration.Milliseconds(),
	})

	played := false
	if play && a.player != nil {
		if err := a.player.Play(ctx, a.outputPath); err != nil {
			a.log.Warn("playback failed", slogError(err))
		} else {
			played = true
		}
	}

	diags := res.Diagnostics
	if diags == nil {
		diags = []synth.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, synthesisResponse{
		ID:          res.ID,
		PhraseID:    phraseID,
		Text:        text,
		Normalized:  res.Normalized,
		Phones:      res.Phones,
		Diphones:    res.Diphones,
		Diagnostics: diags,
		Samples:     len(res.Audio.Data),
		SampleRate:  res.Audio.Format.SampleRate,
		DurationMS:  res.Duration.Milliseconds(),
		AudioURL:    "/audio?id=" + res.ID,
		Played:      played,
	})
}

func (a *api) recordFailure(ctx context.Context, text string, phraseID int64, err error) {
	evt := store.Event{PhraseID: phraseID, Text: text, Outcome: store.OutcomeFailed, Error: err.Error()}
	var stageErr *synth.StageError
	if errors.As(err, &stageErr) {
		evt.Stage = stageErr.Stage.String()
	} else {
		evt.Stage = synth.StageFailed.String()
	}
	a.record(ctx, evt)
}

func (a *api) record(ctx context.Context, evt store.Event) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendEvent(ctx, evt); err != nil {
		a.log.Warn("failed to record synthesis event", slogError(err))
	}
}

func (a *api) handleAudio(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := os.Stat(a.outputPath); err != nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: "no audio has been synthesized yet"})
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, a.outputPath)
}

func (a *api) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.store.ListEvents(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *api) handleListPhrases(w http.ResponseWriter, r *http.Request) {
	phrases, err := a.store.ListPhrases(r.Context(), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, phrases)
}

func (a *api) handleCreatePhrase(w http.ResponseWriter, r *http.Request) {
	var req phraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	phrase, err := a.store.CreatePhrase(r.Context(), req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Location", "/phrases/"+strconv.FormatInt(phrase.ID, 10))
	writeJSON(w, http.StatusCreated, phrase)
}

func (a *api) handleGetPhrase(w http.ResponseWriter, r *http.Request) {
	if phrase, ok := a.lookupPhrase(w, r); ok {
		writeJSON(w, http.StatusOK, phrase)
	}
}

func (a *api) handleUpdatePhrase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req phraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	phrase, err := a.store.UpdatePhrase(r.Context(), id, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, phrase)
}

func (a *api) handleDeletePhrase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.store.DeletePhrase(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handlePhraseEvents(w http.ResponseWriter, r *http.Request) {
	phrase, ok := a.lookupPhrase(w, r)
	if !ok {
		return
	}
	events, err := a.store.ListPhraseEvents(r.Context(), phrase.ID, queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *api) lookupPhrase(w http.ResponseWriter, r *http.Request) (store.Phrase, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return store.Phrase{}, false
	}
	phrase, err := a.store.GetPhrase(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return store.Phrase{}, false
	}
	return phrase, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid phrase id"})
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return fallback
}

// describeFatal names the input that made a phrase unspeakable.
func describeFatal(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	var (
		stageErr *synth.StageError
		unknown  *phonetic.UnknownWordError
		date     *textnorm.InvalidDateComponentError
		number   *textnorm.UnsupportedNumberError
	)
	if errors.As(err, &stageErr) {
		resp.Stage = stageErr.Stage.String()
	}
	switch {
	case errors.As(err, &unknown):
		resp.Word = unknown.Word
	case errors.As(err, &date):
		resp.Component = date.Component
		resp.Value = date.Value
	case errors.As(err, &number):
		resp.Component = "number"
		resp.Value = strconv.Itoa(number.Value)
	}
	return resp
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
