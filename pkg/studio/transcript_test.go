package studio

import "testing"

func TestTranscriptRecorderAccumulatesPerSpeaker(t *testing.T) {
	store := NewStore()
	rec := NewTranscriptRecorder(store, "live conversation")

	rec.Append(SpeakerUser, "hello ")
	rec.Append(SpeakerModel, "hi! ")
	rec.Append(SpeakerUser, "how are you?")
	rec.Append(SpeakerModel, "doing well")
	rec.Append("narrator", "ignored")
	rec.Append(SpeakerUser, "")

	session, ok := store.Session(rec.SessionID())
	if !ok {
		t.Fatal("recorded session not found")
	}
	if len(session.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(session.Artifacts))
	}

	byName := map[string]*Artifact{}
	for _, a := range session.Artifacts {
		if a.Type != TypeTranscription {
			t.Errorf("artifact type = %s, want %s", a.Type, TypeTranscription)
		}
		byName[a.StyleName] = a
	}

	if got := byName[SpeakerUser].Text; got != "hello how are you?" {
		t.Errorf("user transcript = %q", got)
	}
	if got := byName[SpeakerModel].Text; got != "hi! doing well" {
		t.Errorf("model transcript = %q", got)
	}
	if byName[SpeakerUser].Status != StatusStreaming {
		t.Errorf("status = %s before Finish, want %s", byName[SpeakerUser].Status, StatusStreaming)
	}

	rec.Finish()

	session, _ = store.Session(rec.SessionID())
	for _, a := range session.Artifacts {
		if a.Status != StatusComplete {
			t.Errorf("artifact %s status = %s after Finish, want %s", a.StyleName, a.Status, StatusComplete)
		}
	}
}
