package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medleyhq/medley/pkg/cli"
	"github.com/medleyhq/medley/pkg/collab"
	"github.com/medleyhq/medley/pkg/generate"
	"github.com/medleyhq/medley/pkg/studio"
)

var genFlags struct {
	context   string
	mode      string
	backend   string
	exclusive bool
	sync      bool
	output    string
	format    string
}

var genCmd = &cobra.Command{
	Use:   "gen <prompt>",
	Short: "Generate artifacts from a prompt",
	Long: `Generate one or more artifacts from a prompt.

Modes:
  ui      Three styled HTML variations generated concurrently (default)
  chat    A single streamed conversational reply
  image   A single image, saved through the configured media backend
  video   A long-running video generation, polled until complete
  vision  A structured answer with grounding links

Examples:
  medley gen "landing page hero for a coffee brand"
  medley gen --mode chat "explain pcm audio in two sentences"
  medley gen --mode image "a lighthouse at dusk, watercolor"
  medley gen --mode chat --backend openai "haiku about goroutines"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGen,
}

func runGen(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dir, err := contextDir(genFlags.context)
	if err != nil {
		return err
	}

	gemini, _, err := loadGemini(ctx, dir)
	if err != nil {
		return err
	}

	svc := studio.Services{
		Streamer:     gemini,
		Responder:    gemini,
		ImageMaker:   gemini,
		VideoStarter: gemini,
	}
	if genFlags.backend == "openai" {
		oai, err := loadOpenAI(dir)
		if err != nil {
			return err
		}
		svc.Streamer = oai
	}

	sink, err := loadMediaSink(ctx, dir)
	if err != nil {
		return err
	}

	store := studio.NewStore()
	orch := studio.NewOrchestrator(store, svc, sink)

	if genFlags.sync {
		kv, sc, err := loadSharedStore(dir)
		if err != nil {
			return err
		}
		defer kv.Close()
		opts, err := collabOptions(sc)
		if err != nil {
			return err
		}
		peer := collab.NewClient(kv, store, opts)
		if err := peer.Enable(ctx); err != nil {
			return err
		}
		defer peer.Disable(context.Background())
	}

	sessionID, err := orch.Submit(ctx, prompt, studio.Mode(genFlags.mode), studio.SubmitOptions{
		Exclusive: genFlags.exclusive,
	})
	if err != nil {
		return err
	}

	if genFlags.mode == string(studio.ModeVideo) {
		cli.PrintInfo("video generation started; polling until complete (ctrl-c to abandon)")
	}
	orch.Wait(sessionID)

	session, ok := store.Session(sessionID)
	if !ok {
		return fmt.Errorf("session %s disappeared", sessionID)
	}

	if genFlags.output != "" || genFlags.format != "" {
		return cli.Output(session, cli.OutputOptions{
			Format: cli.OutputFormat(genFlags.format),
			File:   genFlags.output,
		})
	}

	renderSession(session)
	return nil
}

// renderSession prints a completed session to the terminal.
func renderSession(s *studio.Session) {
	styles := cli.NewStyles(cli.DefaultTheme)

	fmt.Println(styles.Header("session "+s.ID, 72))
	for _, a := range s.Artifacts {
		label := string(a.Type)
		if a.StyleName != "" {
			label = a.StyleName
		}
		fmt.Printf("%s  %s\n", styles.StatusBadge(string(a.Status)), styles.Label.Render(label))

		switch {
		case a.Status == studio.StatusError:
			cli.PrintError("%s", a.Text)
			for _, hint := range generate.Classify(a.Text).Hints() {
				fmt.Println(styles.Help.Render("  hint: " + hint))
			}
		case a.HTML != "":
			fmt.Println(a.HTML)
		case a.ImageURL != "":
			fmt.Println(a.ImageURL)
		case a.VideoURL != "":
			fmt.Println(a.VideoURL)
		default:
			fmt.Println(a.Text)
			for _, link := range a.GroundingLinks {
				fmt.Println(styles.Help.Render("  source: " + link))
			}
		}
		fmt.Println()
	}
}

func init() {
	genCmd.Flags().StringVarP(&genFlags.context, "context", "c", "", "config context (default: current)")
	genCmd.Flags().StringVarP(&genFlags.mode, "mode", "m", "ui", "generation mode (ui, chat, image, video, vision)")
	genCmd.Flags().StringVar(&genFlags.backend, "backend", "gemini", "streaming backend for text modes (gemini, openai)")
	genCmd.Flags().BoolVar(&genFlags.exclusive, "exclusive", false, "fail if another generation is in flight")
	genCmd.Flags().BoolVar(&genFlags.sync, "sync", false, "replicate the session through the shared store")
	genCmd.Flags().StringVarP(&genFlags.output, "output", "o", "", "write the session to a file instead of rendering")
	genCmd.Flags().StringVarP(&genFlags.format, "format", "f", "", "output format (yaml, json)")

	rootCmd.AddCommand(genCmd)
}
