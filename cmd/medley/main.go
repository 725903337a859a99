// Package main is the entry point for the medley CLI.
//
// Usage:
//
//	medley [flags] <command> [subcommand] [args]
//
// Commands:
//
//	config     - Configuration management (contexts, services)
//	gen        - Generate artifacts from a prompt (ui, chat, image, video, vision)
//	live       - Full-duplex realtime voice session
//	sessions   - Inspect the replicated session collection
//	presence   - Show active clients of the shared workspace
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/medleyhq/medley/cmd/medley/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
