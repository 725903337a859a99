package commands

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/medleyhq/medley/cmd/medley/internal/config"
	"github.com/medleyhq/medley/pkg/collab"
	"github.com/medleyhq/medley/pkg/generate"
	"github.com/medleyhq/medley/pkg/mediastore"
	"github.com/medleyhq/medley/pkg/shared"
	"github.com/medleyhq/medley/pkg/studio"
)

// Service config schemas. Each maps to one YAML file in the context
// directory, managed via 'medley config set'.

// geminiConfig is contexts/<name>/gemini.yaml.
type geminiConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	VideoModel string `yaml:"video_model"`
	LiveModel  string `yaml:"live_model"`
	Voice      string `yaml:"voice"`
}

// openaiConfig is contexts/<name>/openai.yaml.
type openaiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// mediaConfig is contexts/<name>/media.yaml.
type mediaConfig struct {
	Backend string `yaml:"backend"` // "local" (default) or "s3"
	Dir     string `yaml:"dir"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// syncConfig is contexts/<name>/sync.yaml.
type syncConfig struct {
	DataDir           string `yaml:"data_dir"`
	ClientID          string `yaml:"client_id"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	StaleAfter        string `yaml:"stale_after"`
	GuardRevisions    bool   `yaml:"guard_revisions"`
}

// contextDir resolves the context directory for the current invocation,
// honoring the per-command --context flag when set.
func contextDir(contextFlag string) (string, error) {
	cfg, err := GetConfig()
	if err != nil {
		return "", err
	}
	return cfg.ResolveContext(contextFlag)
}

// loadGeminiConfig reads the context's gemini.yaml and validates the key.
func loadGeminiConfig(dir string) (*geminiConfig, error) {
	sc, err := config.LoadService[geminiConfig](dir, "gemini")
	if err != nil {
		return nil, err
	}
	if sc.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key not configured; run: medley config set <context> gemini api_key <key>")
	}
	if sc.Model == "" {
		sc.Model = "gemini-2.0-flash"
	}
	return sc, nil
}

// loadGemini builds a GeminiService from the context's gemini.yaml.
func loadGemini(ctx context.Context, dir string) (*generate.GeminiService, *geminiConfig, error) {
	sc, err := loadGeminiConfig(dir)
	if err != nil {
		return nil, nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  sc.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &generate.GeminiService{
		Client:     client,
		Model:      sc.Model,
		ImageModel: sc.ImageModel,
		VideoModel: sc.VideoModel,
	}, sc, nil
}

// loadOpenAI builds an OpenAIService from the context's openai.yaml.
func loadOpenAI(dir string) (*generate.OpenAIService, error) {
	sc, err := config.LoadService[openaiConfig](dir, "openai")
	if err != nil {
		return nil, err
	}
	if sc.APIKey == "" {
		return nil, fmt.Errorf("openai api_key not configured; run: medley config set <context> openai api_key <key>")
	}
	if sc.Model == "" {
		sc.Model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(sc.APIKey)}
	if sc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(sc.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &generate.OpenAIService{Client: &client, Model: sc.Model}, nil
}

// loadMediaSink builds the media persistence backend from media.yaml.
// A missing media.yaml means no sink: media is inlined as data URLs.
func loadMediaSink(ctx context.Context, dir string) (studio.MediaSink, error) {
	sc, err := config.LoadService[mediaConfig](dir, "media")
	if err != nil {
		return nil, nil
	}

	switch sc.Backend {
	case "", "local":
		d := sc.Dir
		if d == "" {
			d = "media"
		}
		return mediastore.NewLocal(d)
	case "s3":
		if sc.Bucket == "" {
			return nil, fmt.Errorf("media backend s3 requires a bucket")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(sc.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if sc.Region != "" {
				o.Region = sc.Region
			}
		})
		return mediastore.NewS3(client, sc.Bucket, sc.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", sc.Backend)
	}
}

// loadSharedStore opens the shared KV store from sync.yaml.
func loadSharedStore(dir string) (shared.Store, *syncConfig, error) {
	sc, err := config.LoadService[syncConfig](dir, "sync")
	if err != nil {
		return nil, nil, err
	}
	if sc.DataDir == "" {
		return nil, nil, fmt.Errorf("sync data_dir not configured; run: medley config set <context> sync data_dir <path>")
	}

	store, err := shared.NewBadger(shared.BadgerOptions{Dir: sc.DataDir})
	if err != nil {
		return nil, nil, fmt.Errorf("open shared store: %w", err)
	}
	return store, sc, nil
}

// collabOptions converts sync.yaml tuning values into collab options.
func collabOptions(sc *syncConfig) (collab.Options, error) {
	opts := collab.Options{
		ClientID:       sc.ClientID,
		GuardRevisions: sc.GuardRevisions,
	}
	if sc.HeartbeatInterval != "" {
		d, err := time.ParseDuration(sc.HeartbeatInterval)
		if err != nil {
			return opts, fmt.Errorf("invalid heartbeat_interval: %w", err)
		}
		opts.HeartbeatInterval = d
	}
	if sc.StaleAfter != "" {
		d, err := time.ParseDuration(sc.StaleAfter)
		if err != nil {
			return opts, fmt.Errorf("invalid stale_after: %w", err)
		}
		opts.StaleAfter = d
	}
	return opts, nil
}
