package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medleyhq/medley/pkg/cli"
	"github.com/medleyhq/medley/pkg/shared"
	"github.com/medleyhq/medley/pkg/studio"
)

var sessionsFlags struct {
	context string
	format  string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect the replicated session collection",
	Long: `Inspect the session collection replicated through the shared store.

Examples:
  medley sessions list
  medley sessions show 6f1c...
  medley sessions show 6f1c... -f json`,
}

// openSessionCollection reads and decodes the replicated collection.
func openSessionCollection(contextFlag string) ([]*studio.Session, func(), error) {
	dir, err := contextDir(contextFlag)
	if err != nil {
		return nil, nil, err
	}
	store, _, err := loadSharedStore(dir)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() { store.Close() }

	blob, err := store.Get(context.Background(), shared.KeySessions)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, closeStore, nil
		}
		closeStore()
		return nil, nil, err
	}
	sessions, err := studio.DecodeSessions(blob)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("decode session collection: %w", err)
	}
	return sessions, closeStore, nil
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List replicated sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, closeStore, err := openSessionCollection(sessionsFlags.context)
		if err != nil {
			return err
		}
		defer closeStore()

		if len(sessions) == 0 {
			fmt.Println("No sessions in the shared store.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tARTIFACTS\tPROMPT")
		for _, s := range sessions {
			prompt := s.Prompt
			if len(prompt) > 48 {
				prompt = prompt[:45] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), len(s.Artifacts), prompt)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, closeStore, err := openSessionCollection(sessionsFlags.context)
		if err != nil {
			return err
		}
		defer closeStore()

		for _, s := range sessions {
			if s.ID == args[0] {
				if sessionsFlags.format != "" {
					return cli.Output(s, cli.OutputOptions{Format: cli.OutputFormat(sessionsFlags.format)})
				}
				renderSession(s)
				return nil
			}
		}
		return fmt.Errorf("session %q not found", args[0])
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVarP(&sessionsFlags.context, "context", "c", "", "config context (default: current)")
	sessionsShowCmd.Flags().StringVarP(&sessionsFlags.format, "format", "f", "", "output format (yaml, json)")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
