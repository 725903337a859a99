package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medleyhq/medley/pkg/cli"
	"github.com/medleyhq/medley/pkg/collab"
)

var presenceFlags struct {
	context string
}

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Show peers and manage the shared theme flag",
	Long: `Show which clients are currently present in the workspace and
read or set the shared theme preference.

Presence entries older than the staleness window are hidden.

Examples:
  medley presence peers
  medley presence theme
  medley presence theme dark`,
}

var presencePeersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List present clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		dir, err := contextDir(presenceFlags.context)
		if err != nil {
			return err
		}
		store, sc, err := loadSharedStore(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		opts, err := collabOptions(sc)
		if err != nil {
			return err
		}
		client := collab.NewClient(store, nil, opts)

		peers, err := client.Peers(ctx)
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			fmt.Println("No clients present.")
			return nil
		}

		ids := make([]string, 0, len(peers))
		for id := range peers {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT\tLAST SEEN")
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%s\n", id, cli.FormatAge(peers[id], now))
		}
		return w.Flush()
	},
}

var presenceThemeCmd = &cobra.Command{
	Use:   "theme [value]",
	Short: "Get or set the shared theme preference",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		dir, err := contextDir(presenceFlags.context)
		if err != nil {
			return err
		}
		store, sc, err := loadSharedStore(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		opts, err := collabOptions(sc)
		if err != nil {
			return err
		}
		client := collab.NewClient(store, nil, opts)

		if len(args) == 1 {
			if err := client.SetTheme(ctx, args[0]); err != nil {
				return err
			}
			cli.PrintSuccess("theme set to %q", args[0])
			return nil
		}

		theme, err := client.Theme(ctx)
		if err != nil {
			return err
		}
		if theme == "" {
			fmt.Println("No theme set.")
			return nil
		}
		fmt.Println(theme)
		return nil
	},
}

func init() {
	presenceCmd.PersistentFlags().StringVarP(&presenceFlags.context, "context", "c", "", "config context (default: current)")

	presenceCmd.AddCommand(presencePeersCmd)
	presenceCmd.AddCommand(presenceThemeCmd)
	rootCmd.AddCommand(presenceCmd)
}
