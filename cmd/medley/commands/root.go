package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medleyhq/medley/cmd/medley/internal/config"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "medley",
	Short: "Generation studio and live voice CLI",
	Long: `medley - a command line studio for multimodal generation,
live voice conversations, and multi-device session sync.

Commands:
  gen        Generate UI variations, chat replies, images, video, or vision answers
  live       Hold a live duplex voice conversation (PCM in/out)
  sessions   Inspect the replicated session collection
  presence   Show peers and manage the shared theme flag

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/medley/
  Linux:   ~/.config/medley/
  Windows: %AppData%/medley/

Use 'medley config' to manage contexts and service configurations.

Examples:
  # Create a context and configure the generation backend
  medley config add-context dev
  medley config set dev gemini api_key YOUR_KEY
  medley config use-context dev

  # Fan a prompt out into three styled UI variations
  medley gen --mode ui "landing page hero for a coffee brand"

  # Talk to the model, 16 kHz PCM on stdin, 24 kHz PCM on stdout
  arecord -f S16_LE -r 16000 -c 1 | medley live --transcribe > reply.pcm`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Store the error for deferred reporting. Commands that need config
		// get a clear error via GetConfig(); commands like 'medley version'
		// keep working.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
// Returns an error if the config could not be loaded (e.g., HOME not set).
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		// Try loading again (e.g., dir was created since init).
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
