package collab

import (
	"context"
	"testing"
	"time"

	"github.com/medleyhq/medley/pkg/shared"
	"github.com/medleyhq/medley/pkg/studio"
)

func TestPresencePrune(t *testing.T) {
	now := time.Now()
	p := Presence{
		"a": now.Add(-2 * time.Second),
		"b": now.Add(-9 * time.Second),
		"c": now.Add(-11 * time.Second),
		"d": now.Add(-30 * time.Second),
	}

	got := p.Prune(now, 10*time.Second)
	if len(got) != 2 {
		t.Fatalf("survivors = %d, want 2 (%v)", len(got), got)
	}
	for _, id := range []string{"a", "b"} {
		if _, ok := got[id]; !ok {
			t.Errorf("entry %q pruned, want kept", id)
		}
	}
	for _, id := range []string{"c", "d"} {
		if _, ok := got[id]; ok {
			t.Errorf("entry %q kept, want pruned", id)
		}
	}
}

func TestPresenceCodecRoundTrip(t *testing.T) {
	in := Presence{
		"x": time.Unix(1700000000, 0).UTC(),
		"y": time.Unix(1700000003, 0).UTC(),
	}
	blob, err := EncodePresence(in)
	if err != nil {
		t.Fatalf("EncodePresence: %v", err)
	}
	out, err := DecodePresence(blob)
	if err != nil {
		t.Fatalf("DecodePresence: %v", err)
	}
	if len(out) != 2 || !out["x"].Equal(in["x"]) || !out["y"].Equal(in["y"]) {
		t.Fatalf("round trip = %v, want %v", out, in)
	}

	// Empty blob decodes to an empty map, not an error.
	if p, err := DecodePresence(nil); err != nil || len(p) != 0 {
		t.Fatalf("DecodePresence(nil) = %v, %v", p, err)
	}
}

func testClient(t *testing.T, store shared.Store, id string) (*Client, *studio.Store) {
	t.Helper()
	sessions := studio.NewStore()
	c := NewClient(store, sessions, Options{
		ClientID:          id,
		HeartbeatInterval: 10 * time.Millisecond,
		StaleAfter:        10 * time.Second,
	})
	return c, sessions
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHeartbeatPublishesAndPrunes(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemory()
	defer store.Close()

	// Seed a long-dead peer; the first heartbeat must evict it.
	stale, _ := EncodePresence(Presence{"ghost": time.Now().Add(-time.Minute)})
	store.Set(ctx, shared.KeyPresence, stale)

	c, _ := testClient(t, store, "alice")
	if err := c.Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer c.Disable(ctx)

	waitFor(t, func() bool {
		p, err := c.Peers(ctx)
		if err != nil {
			return false
		}
		_, self := p["alice"]
		_, ghost := p["ghost"]
		return self && !ghost
	}, "heartbeat to publish and prune")

	// The pruned map is republished, so the ghost is gone from the raw blob
	// too, not just filtered on read.
	blob, _ := store.Get(ctx, shared.KeyPresence)
	p, _ := DecodePresence(blob)
	if _, ok := p["ghost"]; ok {
		t.Fatal("stale entry still in published map")
	}
}

func TestDisableWithdrawsPresence(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemory()
	defer store.Close()

	c, _ := testClient(t, store, "bob")
	if err := c.Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	waitFor(t, func() bool {
		p, _ := c.Peers(ctx)
		_, ok := p["bob"]
		return ok
	}, "first heartbeat")

	if err := c.Disable(ctx); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	p, err := c.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers: %v", err)
	}
	if _, ok := p["bob"]; ok {
		t.Fatal("own entry not withdrawn on disable")
	}

	// Disabling again is a no-op.
	if err := c.Disable(ctx); err != nil {
		t.Fatalf("second Disable: %v", err)
	}
}

func TestSessionReplication(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemory()
	defer store.Close()

	a, aSessions := testClient(t, store, "a")
	b, bSessions := testClient(t, store, "b")
	if err := a.Enable(ctx); err != nil {
		t.Fatalf("Enable a: %v", err)
	}
	defer a.Disable(ctx)
	if err := b.Enable(ctx); err != nil {
		t.Fatalf("Enable b: %v", err)
	}
	defer b.Disable(ctx)

	aSessions.Append(&studio.Session{
		ID:        "s1",
		Prompt:    "a landing page",
		CreatedAt: time.Now().UTC(),
		Artifacts: []*studio.Artifact{
			{ID: "a1", Type: studio.TypeUI, Status: studio.StatusStreaming, StyleName: "Minimal & Clean"},
		},
	})

	waitFor(t, func() bool {
		s, ok := bSessions.Session("s1")
		return ok && s.Prompt == "a landing page" && len(s.Artifacts) == 1
	}, "session to replicate a -> b")

	// And back the other way: b's mutation reaches a.
	art, err := bSessions.Artifact("s1", "a1")
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	art.HTML = "<div/>"
	art.Status = studio.StatusComplete
	if err := bSessions.ReplaceArtifact("s1", art); err != nil {
		t.Fatalf("ReplaceArtifact: %v", err)
	}

	waitFor(t, func() bool {
		got, err := aSessions.Artifact("s1", "a1")
		return err == nil && got.Status == studio.StatusComplete && got.HTML == "<div/>"
	}, "artifact update to replicate b -> a")
}

func TestEnableAdoptsExistingCollection(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemory()
	defer store.Close()

	blob, err := studio.EncodeSessions([]*studio.Session{
		{ID: "s9", Prompt: "already shared", CreatedAt: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("EncodeSessions: %v", err)
	}
	store.Set(ctx, shared.KeySessions, blob)

	c, sessions := testClient(t, store, "joiner")
	if err := c.Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer c.Disable(ctx)

	if _, ok := sessions.Session("s9"); !ok {
		t.Fatal("shared collection not adopted on enable")
	}
}

func TestThemeFlag(t *testing.T) {
	ctx := context.Background()
	store := shared.NewMemory()
	defer store.Close()

	c, _ := testClient(t, store, "t")
	theme, err := c.Theme(ctx)
	if err != nil || theme != "" {
		t.Fatalf("Theme unset = %q, %v", theme, err)
	}
	if err := c.SetTheme(ctx, "dark"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	theme, err = c.Theme(ctx)
	if err != nil || theme != "dark" {
		t.Fatalf("Theme = %q, %v", theme, err)
	}
}
