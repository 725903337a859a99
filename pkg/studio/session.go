package studio

import "time"

// Session is one user prompt and the artifacts generated for it. Sessions are
// immutable after creation except for their artifacts, which change only by
// whole-artifact replacement — never reordered, never removed.
type Session struct {
	ID        string      `json:"id" msgpack:"id"`
	Prompt    string      `json:"prompt" msgpack:"prompt"`
	CreatedAt time.Time   `json:"createdAt" msgpack:"created_at"`
	Artifacts []*Artifact `json:"artifacts" msgpack:"artifacts"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Artifacts = make([]*Artifact, len(s.Artifacts))
	for i, a := range s.Artifacts {
		cp.Artifacts[i] = a.Clone()
	}
	return &cp
}

// Artifact returns the artifact with the given id, or nil.
func (s *Session) Artifact(id string) *Artifact {
	for _, a := range s.Artifacts {
		if a.ID == id {
			return a
		}
	}
	return nil
}
