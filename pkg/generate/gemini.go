package generate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

var (
	_ Streamer     = (*GeminiService)(nil)
	_ Responder    = (*GeminiService)(nil)
	_ ImageMaker   = (*GeminiService)(nil)
	_ VideoStarter = (*GeminiService)(nil)
)

// GeminiService implements the adapter boundary on top of the Google Gemini
// API.
type GeminiService struct {
	Client *genai.Client

	// Model should not start with "models/".
	Model string

	// ImageModel and VideoModel select the media generation models.
	// Empty values fall back to Model.
	ImageModel string
	VideoModel string
}

func (g *GeminiService) Stream(ctx context.Context, req Request) (Stream, error) {
	cfg, contents := g.convRequest(req)
	b := NewStreamBuilder(32)
	go func() {
		if err := geminiPull(b, g.Client.Models.GenerateContentStream(ctx, g.Model, contents, cfg)); err != nil {
			b.Abort(unwrapAPIError(err))
		}
	}()
	return b.Stream(), nil
}

func (g *GeminiService) Invoke(ctx context.Context, req Request) (string, error) {
	cfg, contents := g.convRequest(req)
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = geminiConvSchema(req.Schema)
	}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return "", unwrapAPIError(err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates")
	}
	t := resp.Candidates[0]
	if t.FinishReason != genai.FinishReasonStop && t.FinishReason != genai.FinishReasonUnspecified {
		return "", fmt.Errorf("unexpected finish reason: %s", t.FinishReason)
	}
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func (g *GeminiService) MakeImage(ctx context.Context, req Request) ([]byte, string, error) {
	model := g.ImageModel
	if model == "" {
		model = g.Model
	}
	resp, err := g.Client.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, "", unwrapAPIError(err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", errors.New("no image generated")
	}
	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return img.ImageBytes, mime, nil
}

func (g *GeminiService) StartVideo(ctx context.Context, req Request) (VideoOperation, error) {
	model := g.VideoModel
	if model == "" {
		model = g.Model
	}
	op, err := g.Client.Models.GenerateVideos(ctx, model, req.Prompt, nil, nil)
	if err != nil {
		return nil, unwrapAPIError(err)
	}
	return &geminiVideoOp{client: g.Client, op: op}, nil
}

// geminiVideoOp polls a long-running video generation until the service
// reports completion.
type geminiVideoOp struct {
	client *genai.Client
	op     *genai.GenerateVideosOperation
}

func (o *geminiVideoOp) Poll(ctx context.Context) (bool, string, error) {
	op, err := o.client.Operations.GetVideosOperation(ctx, o.op, nil)
	if err != nil {
		return false, "", unwrapAPIError(err)
	}
	o.op = op
	if !op.Done {
		return false, "", nil
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return true, "", errors.New("operation done with no video")
	}
	v := op.Response.GeneratedVideos[0].Video
	if v == nil || v.URI == "" {
		return true, "", errors.New("operation done with no video locator")
	}
	return true, v.URI, nil
}

// geminiPull drains a GenerateContentStream into the builder, mapping finish
// reasons to terminal states. Candidate selection sticks to the first index
// seen, as variations share one stream.
func geminiPull(b *StreamBuilder, itr iter.Seq2[*genai.GenerateContentResponse, error]) error {
	var selIdx int32
	for chunk, err := range itr {
		if err != nil {
			return unwrapAPIError(err)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		var sel *genai.Candidate
		if selIdx == 0 {
			selIdx = chunk.Candidates[0].Index
			sel = chunk.Candidates[0]
		} else {
			for _, c := range chunk.Candidates {
				if c.Index == selIdx {
					sel = c
					break
				}
			}
			if sel == nil {
				continue
			}
		}

		var sb strings.Builder
		if sel.Content != nil {
			for _, p := range sel.Content.Parts {
				if p.Text != "" {
					sb.WriteString(p.Text)
				}
			}
		}
		if err := b.Add(sb.String()); err != nil {
			return err
		}

		switch sel.FinishReason {
		case genai.FinishReasonUnspecified, "":
			// keep pulling
		case genai.FinishReasonStop:
			return b.Done()
		case genai.FinishReasonMaxTokens:
			return b.Truncated()
		case genai.FinishReasonSafety:
			var cats []string
			for _, sr := range sel.SafetyRatings {
				if sr.Blocked {
					cats = append(cats, string(sr.Category))
				}
			}
			return b.Blocked("blocked by " + strings.Join(cats, ", "))
		default:
			return b.Abort(fmt.Errorf("unexpected finish reason: %s", sel.FinishReason))
		}
	}
	// Stream exhausted without a finish reason; the accumulated content is
	// still usable, so complete normally.
	return b.Done()
}

func (g *GeminiService) convRequest(req Request) (*genai.GenerateContentConfig, []*genai.Content) {
	cfg := &genai.GenerateContentConfig{
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		},
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.Temperature != 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.MaxTokens != 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)}},
	}
	return cfg, contents
}

// unwrapAPIError strips the gax apierror wrapper so diagnostics carry the
// service's own message.
func unwrapAPIError(err error) error {
	var ae *apierror.APIError
	if errors.As(err, &ae) {
		return ae.Unwrap()
	}
	return err
}

func geminiConvSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       geminiConvSchema(schema.Items),
		Required:    schema.Required,
	}

	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = geminiConvSchema(prop)
		}
	}
	switch schema.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}
