// Package cli provides shared terminal utilities for the medley CLI:
// structured output (YAML/JSON/raw), human-readable formatting helpers, and
// the lipgloss styles used to render sessions, artifacts, and presence.
package cli
