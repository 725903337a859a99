package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/medleyhq/medley/pkg/cli"
	"github.com/medleyhq/medley/pkg/collab"
	"github.com/medleyhq/medley/pkg/live"
	"github.com/medleyhq/medley/pkg/studio"
)

var liveFlags struct {
	context      string
	model        string
	voice        string
	instructions string
	transcribe   bool
	record       bool
	sync         bool
	text         string
	frame        time.Duration
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Hold a live duplex voice conversation",
	Long: `Open a live duplex audio session against the voice model.

Audio in: 16 kHz 16-bit mono PCM on stdin.
Audio out: 24 kHz 16-bit mono PCM on stdout.
Transcripts and status go to stderr so stdout stays clean PCM.

A model reply interrupted by new speech is cut off immediately and its
unplayed audio is discarded (barge-in).

Examples:
  arecord -f S16_LE -r 16000 -c 1 | medley live --transcribe | aplay -f S16_LE -r 24000 -c 1
  medley live --text "tell me a joke" > reply.pcm`,
	RunE: runLive,
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dir, err := contextDir(liveFlags.context)
	if err != nil {
		return err
	}
	sc, err := loadGeminiConfig(dir)
	if err != nil {
		return err
	}

	model := liveFlags.model
	if model == "" {
		model = sc.LiveModel
	}
	voice := liveFlags.voice
	if voice == "" {
		voice = sc.Voice
	}

	styles := cli.NewStyles(cli.DefaultTheme)

	cfg := live.Config{
		Channel: &live.GeminiChannel{APIKey: sc.APIKey},
		ChannelConfig: live.ChannelConfig{
			Model:        model,
			Voice:        voice,
			Instructions: liveFlags.instructions,
			Transcribe:   liveFlags.transcribe,
		},
		Sink: live.NewWriterSink(os.Stdout),
	}
	if liveFlags.text == "" {
		cfg.Source = live.NewReaderSource(os.Stdin, live.CaptureFormat, liveFlags.frame)
	}
	var recorder *studio.TranscriptRecorder
	if liveFlags.record || liveFlags.sync {
		store := studio.NewStore()

		if liveFlags.sync {
			kv, syncCfg, err := loadSharedStore(dir)
			if err != nil {
				return err
			}
			defer kv.Close()
			opts, err := collabOptions(syncCfg)
			if err != nil {
				return err
			}
			peer := collab.NewClient(kv, store, opts)
			if err := peer.Enable(ctx); err != nil {
				return err
			}
			// Disable flushes the final transcript state before the store
			// closes, so Finish must run first.
			defer peer.Disable(context.Background())
		}

		recorder = studio.NewTranscriptRecorder(store, "live conversation")
		defer recorder.Finish()
	}

	if liveFlags.transcribe || recorder != nil {
		cfg.ChannelConfig.Transcribe = true
		cfg.OnTranscript = func(d live.TranscriptDirection, text string) {
			speaker := studio.SpeakerModel
			if d == live.TranscriptInput {
				speaker = studio.SpeakerUser
			}
			if liveFlags.transcribe {
				fmt.Fprintln(os.Stderr, styles.TranscriptLine(speaker, text))
			}
			if recorder != nil {
				recorder.Append(speaker, text)
			}
		}
	}

	session := live.NewSession(cfg)
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()
	fmt.Fprintln(os.Stderr, styles.Help.Render("session active (ctrl-c to hang up)"))

	if liveFlags.text != "" {
		if err := session.SendText(liveFlags.text); err != nil {
			return err
		}
	}

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, styles.Help.Render("hanging up"))
	return session.Close()
}

func init() {
	liveCmd.Flags().StringVarP(&liveFlags.context, "context", "c", "", "config context (default: current)")
	liveCmd.Flags().StringVar(&liveFlags.model, "model", "", "voice model (default: gemini live_model config)")
	liveCmd.Flags().StringVar(&liveFlags.voice, "voice", "", "reply voice name")
	liveCmd.Flags().StringVar(&liveFlags.instructions, "instructions", "", "system instructions for the conversation")
	liveCmd.Flags().BoolVar(&liveFlags.transcribe, "transcribe", false, "print incremental transcripts to stderr")
	liveCmd.Flags().BoolVar(&liveFlags.record, "record", false, "record transcripts as a transcription session")
	liveCmd.Flags().BoolVar(&liveFlags.sync, "sync", false, "replicate the recorded session through the shared store")
	liveCmd.Flags().StringVar(&liveFlags.text, "text", "", "send a text turn instead of reading audio from stdin")
	liveCmd.Flags().DurationVar(&liveFlags.frame, "frame", 20*time.Millisecond, "capture frame duration")

	rootCmd.AddCommand(liveCmd)
}
