package protocol

import "time"

// TTSRequest asks the voice node to speak Text.
type TTSRequest struct {
	SessionID string `json:"session_id"`
	Target    string `json:"target,omitempty"`
	Text      string `json:"text"`
	Voice     string `json:"voice,omitempty"`
	Spell     bool   `json:"spell,omitempty"`
}

// AudioChunk carries little-endian PCM produced for a TTSRequest.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Target     string `json:"target,omitempty"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// TTSStatus closes a request. Error is set when nothing was spoken.
type TTSStatus struct {
	SessionID   string       `json:"session_id"`
	Target      string       `json:"target,omitempty"`
	Completed   bool         `json:"completed"`
	Error       string       `json:"error,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Diagnostic describes a recoverable degradation, such as a skipped diphone.
type Diagnostic struct {
	Diphone string `json:"diphone"`
	Message string `json:"message"`
}

// CapabilityAnnouncement advertises a node and the voice it serves.
type CapabilityAnnouncement struct {
	NodeID       string            `json:"node_id"`
	Role         string            `json:"role"`
	Capabilities []Capability      `json:"capabilities"`
	Voice        VoiceInfo         `json:"voice"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

type Capability struct {
	Name       string            `json:"name"`
	Tier       string            `json:"tier,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type VoiceInfo struct {
	Name       string `json:"name"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Units      int    `json:"units"`
}

const (
	SubjectTTSRequest      = "tts.request"
	SubjectTTSAudio        = "tts.audio"
	SubjectTTSDone         = "tts.done"
	SubjectNodeAnnounce    = "ctrl.node.announce"
	SubjectHeartbeatPrefix = "ctrl.node.heartbeat"
)
