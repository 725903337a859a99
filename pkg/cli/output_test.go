package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"title": "Sunset Brand",
		"count": 3,
	}

	err := Output(data, OutputOptions{
		Format: FormatJSON,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if result["title"] != "Sunset Brand" {
		t.Errorf("title = %v, want %q", result["title"], "Sunset Brand")
	}
}

func TestOutput_DefaultFormatIsYAML(t *testing.T) {
	var buf bytes.Buffer

	err := Output(map[string]string{"key": "value"}, OutputOptions{
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	if !strings.Contains(buf.String(), "key: value") {
		t.Errorf("Default format should be YAML, got: %s", buf.String())
	}
}

func TestOutput_Raw(t *testing.T) {
	var buf bytes.Buffer

	err := Output([]byte("raw binary data"), OutputOptions{
		Format: FormatRaw,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	if buf.String() != "raw binary data" {
		t.Errorf("Output = %q, want %q", buf.String(), "raw binary data")
	}

	// Non-string/bytes falls back to YAML.
	buf.Reset()
	err = Output(map[string]int{"count": 42}, OutputOptions{
		Format: FormatRaw,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	if !strings.Contains(buf.String(), "count: 42") {
		t.Errorf("Output should contain YAML, got: %s", buf.String())
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer

	err := Output("data", OutputOptions{
		Format: "invalid",
		Writer: &buf,
	})
	if err == nil {
		t.Error("Output should fail for unsupported format")
	}
}

func TestOutput_ToFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "output.json")

	err := Output(map[string]string{"key": "value"}, OutputOptions{
		Format: FormatJSON,
		File:   filePath,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Invalid JSON in file: %v", err)
	}

	if result["key"] != "value" {
		t.Errorf("key = %q, want %q", result["key"], "value")
	}
}

func TestOutputBytes(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "data.bin")

	data := []byte{0x00, 0x01, 0x02, 0x03}

	if err := OutputBytes(data, filePath); err != nil {
		t.Fatalf("OutputBytes error: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	if !bytes.Equal(content, data) {
		t.Errorf("File content = %v, want %v", content, data)
	}

	if err := OutputBytes(data, ""); err == nil {
		t.Error("OutputBytes should fail for empty path")
	}
}

func TestStatusBadge(t *testing.T) {
	styles := NewStyles(DefaultTheme)

	tests := []struct {
		status string
		want   string
	}{
		{"complete", "complete"},
		{"error", "error"},
		{"streaming", "streaming"},
		{"thinking", "thinking"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		got := styles.StatusBadge(tt.status)
		if !strings.Contains(got, tt.want) {
			t.Errorf("StatusBadge(%q) = %q, should contain %q", tt.status, got, tt.want)
		}
	}
}
