// Package studio holds the session/artifact data model, the in-memory
// session store, and the generation orchestrator that drives concurrent
// per-artifact streaming tasks against the remote generative service.
package studio

import "slices"

// Type identifies what kind of result an artifact carries. It is immutable
// after creation.
type Type string

const (
	TypeUI            Type = "ui"
	TypeImage         Type = "image"
	TypeVideo         Type = "video"
	TypeChat          Type = "chat"
	TypeVision        Type = "vision"
	TypeAudio         Type = "audio"
	TypeTranscription Type = "transcription"
)

// Status is the artifact lifecycle state.
//
// Allowed transitions:
//
//	streaming → complete | error
//	thinking  → complete | error
//
// Terminal states have no outgoing edges except an explicit retry, which
// resets the artifact to its initial streaming state (see Store.ResetArtifact).
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusThinking  Status = "thinking"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusStreaming, StatusThinking:
		return next == StatusComplete || next == StatusError || next == s
	}
	return false
}

// Artifact is one generated result unit belonging to a session. Only the
// fields meaningful for the artifact's Type are populated; the rest stay zero
// and are omitted from serialization.
type Artifact struct {
	ID        string `json:"id" msgpack:"id"`
	Type      Type   `json:"type" msgpack:"type"`
	StyleName string `json:"styleName,omitempty" msgpack:"style,omitempty"`
	Status    Status `json:"status" msgpack:"status"`

	HTML           string   `json:"html,omitempty" msgpack:"html,omitempty"`
	Text           string   `json:"text,omitempty" msgpack:"text,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty" msgpack:"image_url,omitempty"`
	VideoURL       string   `json:"videoUrl,omitempty" msgpack:"video_url,omitempty"`
	AudioURL       string   `json:"audioUrl,omitempty" msgpack:"audio_url,omitempty"`
	GroundingLinks []string `json:"groundingLinks,omitempty" msgpack:"grounding_links,omitempty"`
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	cp := *a
	cp.GroundingLinks = slices.Clone(a.GroundingLinks)
	return &cp
}

// Content returns the payload meaningful for the artifact's type: markup for
// ui, a locator for media types, text otherwise. Artifacts in error status
// carry their diagnostic in Text regardless of type.
func (a *Artifact) Content() string {
	if a.Status == StatusError {
		return a.Text
	}
	switch a.Type {
	case TypeUI:
		return a.HTML
	case TypeImage:
		return a.ImageURL
	case TypeVideo:
		return a.VideoURL
	case TypeAudio:
		return a.AudioURL
	}
	return a.Text
}

// initialStatus returns the status a fresh (or retried) artifact of this type
// starts in: streamed types begin streaming, request/response types begin
// thinking.
func (t Type) initialStatus() Status {
	switch t {
	case TypeUI, TypeChat, TypeTranscription:
		return StatusStreaming
	}
	return StatusThinking
}
