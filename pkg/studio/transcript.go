package studio

import (
	"time"

	"github.com/google/uuid"
)

// Transcript speaker labels. Each speaker owns one transcription artifact in
// the recorded session.
const (
	SpeakerUser  = "you"
	SpeakerModel = "model"
)

// TranscriptRecorder accumulates live-conversation transcripts into a
// session, one transcription artifact per speaker. Appends go through the
// store's copy-on-write path, so an enabled collab client replicates the
// running transcript like any other session.
type TranscriptRecorder struct {
	store     *Store
	sessionID string
	artifacts map[string]string // speaker → artifact id
}

// NewTranscriptRecorder creates a session titled after the conversation and
// returns a recorder writing into it.
func NewTranscriptRecorder(store *Store, title string) *TranscriptRecorder {
	r := &TranscriptRecorder{
		store:     store,
		artifacts: make(map[string]string),
	}
	session := &Session{
		ID:        uuid.New().String(),
		Prompt:    title,
		CreatedAt: time.Now(),
	}
	for _, speaker := range []string{SpeakerUser, SpeakerModel} {
		a := &Artifact{
			ID:        uuid.New().String(),
			Type:      TypeTranscription,
			StyleName: speaker,
			Status:    StatusStreaming,
		}
		session.Artifacts = append(session.Artifacts, a)
		r.artifacts[speaker] = a.ID
	}
	store.Append(session)
	r.sessionID = session.ID
	return r
}

// SessionID returns the id of the recorded session.
func (r *TranscriptRecorder) SessionID() string { return r.sessionID }

// Append adds a transcript fragment to the speaker's artifact. Fragments from
// unknown speakers and empty fragments are dropped.
func (r *TranscriptRecorder) Append(speaker, text string) {
	if text == "" {
		return
	}
	id, ok := r.artifacts[speaker]
	if !ok {
		return
	}
	a, err := r.store.Artifact(r.sessionID, id)
	if err != nil {
		return
	}
	a.Text += text
	r.store.ReplaceArtifact(r.sessionID, a)
}

// Finish marks both transcription artifacts complete.
func (r *TranscriptRecorder) Finish() {
	for _, id := range r.artifacts {
		a, err := r.store.Artifact(r.sessionID, id)
		if err != nil {
			continue
		}
		a.Status = StatusComplete
		r.store.ReplaceArtifact(r.sessionID, a)
	}
}
