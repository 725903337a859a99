package generate

import "testing"

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Title string   `json:"title"`
		Links []string `json:"links"`
	}

	t.Run("embedded object", func(t *testing.T) {
		var p payload
		ok := ExtractJSON(`Sure, here you go: {"title":"x","links":["a","b"]} hope that helps!`, &p)
		if !ok {
			t.Fatal("ExtractJSON = false")
		}
		if p.Title != "x" || len(p.Links) != 2 {
			t.Fatalf("payload = %+v", p)
		}
	})

	t.Run("fenced array", func(t *testing.T) {
		var v []int
		if !ExtractJSON("```json\n[1,2,3]\n```", &v) {
			t.Fatal("ExtractJSON = false")
		}
		if len(v) != 3 || v[2] != 3 {
			t.Fatalf("v = %v", v)
		}
	})

	t.Run("repairable", func(t *testing.T) {
		var p payload
		// Trailing comma and single quotes — repairable damage.
		if !ExtractJSON(`{'title': 'x', 'links': ['a',],}`, &p) {
			t.Fatal("ExtractJSON = false")
		}
		if p.Title != "x" {
			t.Fatalf("payload = %+v", p)
		}
	})

	t.Run("no structure yields fallback", func(t *testing.T) {
		p := payload{Title: "default"}
		if ExtractJSON("I cannot help with that.", &p) {
			t.Fatal("ExtractJSON = true for plain text")
		}
		if p.Title != "default" {
			t.Fatalf("fallback clobbered: %+v", p)
		}
	})
}
