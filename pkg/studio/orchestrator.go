package studio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/medleyhq/medley/pkg/generate"
)

// Sentinel errors.
var (
	// ErrEmptyPrompt is returned by Submit for a blank prompt. No session is
	// created.
	ErrEmptyPrompt = errors.New("studio: empty prompt")

	// ErrBusy is returned by an exclusive Submit while another generation is
	// in flight.
	ErrBusy = errors.New("studio: generation already in flight")
)

// Mode selects how a prompt fans out into artifacts.
type Mode string

const (
	// ModeUI generates one markup variation per style (3-way fan-out).
	ModeUI Mode = "ui"
	// ModeChat streams a single conversational reply.
	ModeChat Mode = "chat"
	// ModeImage generates a single image.
	ModeImage Mode = "image"
	// ModeVideo launches a long-running video generation.
	ModeVideo Mode = "video"
	// ModeVision produces a structured description with grounding links.
	ModeVision Mode = "vision"
)

// UIStyles are the style variants generated concurrently in ModeUI.
var UIStyles = []string{
	"Minimal & Clean",
	"Bold & Playful",
	"Elegant & Professional",
}

// Services bundles the adapter capabilities the orchestrator drives. Only
// the capabilities used by the submitted modes need to be non-nil.
type Services struct {
	Streamer     generate.Streamer
	Responder    generate.Responder
	ImageMaker   generate.ImageMaker
	VideoStarter generate.VideoStarter
}

// MediaSink persists generated media bytes and returns a locator to store on
// the artifact. A nil sink falls back to inline data URLs.
type MediaSink interface {
	Save(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// SubmitOptions tunes Submit behavior.
type SubmitOptions struct {
	// Exclusive rejects the submission while any task is still active.
	Exclusive bool
}

// Orchestrator fans a prompt out into per-artifact generation tasks and
// drives each to completion independently. A failure in one task never
// aborts its siblings; tasks are joined only for is-anything-still-active
// bookkeeping.
type Orchestrator struct {
	store *Store
	svc   Services
	media MediaSink

	// PollInterval is the fixed polling cadence for long-running video
	// operations. Defaults to 10s.
	PollInterval time.Duration

	log *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	epochs  map[string]uint64 // artifact id → current task epoch
	running map[string]bool   // artifact id → task active
	active  map[string]int    // session id → active task count
}

// NewOrchestrator creates an Orchestrator writing into store.
func NewOrchestrator(store *Store, svc Services, media MediaSink) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		svc:          svc,
		media:        media,
		PollInterval: 10 * time.Second,
		log:          slog.Default(),
		epochs:       make(map[string]uint64),
		running:      make(map[string]bool),
		active:       make(map[string]int),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Submit creates a session with one artifact per requested variation and
// launches an independent generation task for each. ModeUI fans out one
// artifact per entry in UIStyles; every other mode creates a single artifact.
// An empty prompt fails fast with ErrEmptyPrompt and creates nothing.
func (o *Orchestrator) Submit(ctx context.Context, prompt string, mode Mode, opts SubmitOptions) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if opts.Exclusive && o.ActiveTasks() > 0 {
		return "", ErrBusy
	}

	styles := []string{""}
	typ := TypeChat
	switch mode {
	case ModeUI:
		styles = UIStyles
		typ = TypeUI
	case ModeChat:
		typ = TypeChat
	case ModeImage:
		typ = TypeImage
	case ModeVideo:
		typ = TypeVideo
	case ModeVision:
		typ = TypeVision
	default:
		return "", fmt.Errorf("studio: unknown mode: %s", mode)
	}

	session := &Session{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		CreatedAt: time.Now(),
	}
	for _, style := range styles {
		session.Artifacts = append(session.Artifacts, &Artifact{
			ID:        uuid.New().String(),
			Type:      typ,
			StyleName: style,
			Status:    typ.initialStatus(),
		})
	}
	o.store.Append(session)

	for _, a := range session.Artifacts {
		o.launch(ctx, session.ID, a.ID, a.Type, prompt, a.StyleName)
	}
	return session.ID, nil
}

// Retry re-runs generation for a single artifact with the session's original
// prompt and the artifact's previously assigned style. It is a no-op while a
// task for that artifact is still active, making concurrent duplicate retries
// safe: only one task per artifact can ever be live.
func (o *Orchestrator) Retry(ctx context.Context, sessionID, artifactID string) error {
	session, ok := o.store.Session(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	a := session.Artifact(artifactID)
	if a == nil {
		return ErrArtifactNotFound
	}

	o.mu.Lock()
	if o.running[artifactID] {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	fresh, err := o.store.ResetArtifact(sessionID, artifactID)
	if err != nil {
		return err
	}
	o.launch(ctx, sessionID, artifactID, fresh.Type, session.Prompt, fresh.StyleName)
	return nil
}

// ActiveTasks returns the number of generation tasks currently running.
func (o *Orchestrator) ActiveTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.active {
		n += c
	}
	return n
}

// Wait blocks until the session has no active tasks.
func (o *Orchestrator) Wait(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.active[sessionID] > 0 {
		o.cond.Wait()
	}
}

// launch starts one task goroutine for an artifact, bumping its epoch so any
// superseded task's late increments are discarded.
func (o *Orchestrator) launch(ctx context.Context, sessionID, artifactID string, typ Type, prompt, style string) {
	o.mu.Lock()
	if o.running[artifactID] {
		// At-most-one-writer: a live task owns this artifact.
		o.mu.Unlock()
		return
	}
	o.epochs[artifactID]++
	epoch := o.epochs[artifactID]
	o.running[artifactID] = true
	o.active[sessionID]++
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			o.running[artifactID] = false
			o.active[sessionID]--
			o.cond.Broadcast()
			o.mu.Unlock()
		}()
		o.runArtifactTask(ctx, taskRef{sessionID, artifactID, epoch}, typ, prompt, style)
	}()
}

// taskRef identifies one task instance. The epoch guards against a stale task
// writing after a retry has superseded it.
type taskRef struct {
	sessionID  string
	artifactID string
	epoch      uint64
}

func (o *Orchestrator) runArtifactTask(ctx context.Context, ref taskRef, typ Type, prompt, style string) {
	var err error
	switch typ {
	case TypeUI:
		err = o.streamTask(ctx, ref, generate.Request{
			Prompt: prompt,
			System: uiSystemPrompt(style),
		}, true)
	case TypeChat, TypeTranscription:
		err = o.streamTask(ctx, ref, generate.Request{Prompt: prompt}, false)
	case TypeImage:
		err = o.imageTask(ctx, ref, prompt)
	case TypeVideo:
		err = o.videoTask(ctx, ref, prompt)
	case TypeVision:
		err = o.visionTask(ctx, ref, prompt)
	default:
		err = fmt.Errorf("studio: no task for artifact type %s", typ)
	}
	if err != nil {
		o.fail(ref, err)
	}
}

// streamTask pulls fragments from the adapter and appends them to the
// artifact's accumulator, republishing the whole artifact on each increment.
// Empty fragments are skipped without touching status. On exhaustion the
// accumulated text is stripped of fencing markers and the artifact completes.
func (o *Orchestrator) streamTask(ctx context.Context, ref taskRef, req generate.Request, html bool) error {
	stream, err := o.svc.Streamer.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	var acc string
	for {
		frag, err := stream.Next()
		if err != nil {
			if errors.Is(err, generate.ErrDone) {
				break
			}
			return err
		}
		if frag == "" {
			continue
		}
		acc += frag
		if err := o.apply(ref, func(a *Artifact) {
			if html {
				a.HTML = acc
			} else {
				a.Text = acc
			}
		}); err != nil {
			return nil // superseded; stop silently
		}
	}

	final := generate.StripFences(acc)
	o.apply(ref, func(a *Artifact) {
		if html {
			a.HTML = final
		} else {
			a.Text = final
		}
		a.Status = StatusComplete
	})
	return nil
}

func (o *Orchestrator) imageTask(ctx context.Context, ref taskRef, prompt string) error {
	data, mime, err := o.svc.ImageMaker.MakeImage(ctx, generate.Request{Prompt: prompt})
	if err != nil {
		return err
	}
	url, err := o.saveMedia(ctx, ref.artifactID, mime, data)
	if err != nil {
		return err
	}
	o.apply(ref, func(a *Artifact) {
		a.ImageURL = url
		a.Status = StatusComplete
	})
	return nil
}

// videoTask polls the long-running operation at the fixed interval until the
// service reports completion. Deliberately uncapped: video generation is user
// initiated and can legitimately take a long time.
func (o *Orchestrator) videoTask(ctx context.Context, ref taskRef, prompt string) error {
	op, err := o.svc.VideoStarter.StartVideo(ctx, generate.Request{Prompt: prompt})
	if err != nil {
		return err
	}
	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()
	for {
		done, uri, err := op.Poll(ctx)
		if err != nil {
			return err
		}
		if done {
			o.apply(ref, func(a *Artifact) {
				a.VideoURL = uri
				a.Status = StatusComplete
			})
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// visionResult is the structured shape requested from the vision mode.
type visionResult struct {
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

var visionSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"text":  {Type: "string", Description: "The answer text"},
		"links": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Grounding source links"},
	},
	Required: []string{"text"},
}

func (o *Orchestrator) visionTask(ctx context.Context, ref taskRef, prompt string) error {
	raw, err := o.svc.Responder.Invoke(ctx, generate.Request{
		Prompt: prompt,
		Schema: visionSchema,
	})
	if err != nil {
		return err
	}
	// Best-effort extraction; a parse failure falls back to the raw text.
	res := visionResult{Text: raw}
	generate.ExtractJSON(raw, &res)
	o.apply(ref, func(a *Artifact) {
		a.Text = res.Text
		a.GroundingLinks = res.Links
		a.Status = StatusComplete
	})
	return nil
}

// fail records an adapter failure: the verbatim diagnostic replaces the
// artifact's content and the artifact transitions to error. The failure is
// contained to this artifact; siblings keep running.
func (o *Orchestrator) fail(ref taskRef, cause error) {
	diag := cause.Error()
	o.log.Warn("artifact task failed",
		"session", ref.sessionID,
		"artifact", ref.artifactID,
		"category", generate.Classify(diag),
		"err", cause)
	o.apply(ref, func(a *Artifact) {
		a.HTML = ""
		a.Text = diag
		a.Status = StatusError
	})
}

// apply replaces the artifact through a copy-on-write snapshot, but only if
// ref is still the current task for the artifact. Increments from superseded
// epochs are discarded, so a zombie task can never resurrect a retried
// artifact.
func (o *Orchestrator) apply(ref taskRef, mutate func(*Artifact)) error {
	o.mu.Lock()
	if o.epochs[ref.artifactID] != ref.epoch {
		o.mu.Unlock()
		return fmt.Errorf("studio: task superseded for artifact %s", ref.artifactID)
	}
	o.mu.Unlock()

	a, err := o.store.Artifact(ref.sessionID, ref.artifactID)
	if err != nil {
		return err
	}
	mutate(a)

	// Re-check under the lock so a retry that lands between snapshot and
	// publish still wins.
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epochs[ref.artifactID] != ref.epoch {
		return fmt.Errorf("studio: task superseded for artifact %s", ref.artifactID)
	}
	return o.store.ReplaceArtifact(ref.sessionID, a)
}

// saveMedia persists media bytes through the sink, or inlines them as a data
// URL when no sink is configured.
func (o *Orchestrator) saveMedia(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	if o.media == nil {
		return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	}
	return o.media.Save(ctx, name, mimeType, data)
}

// uiSystemPrompt is the instruction sent with each UI style variation.
func uiSystemPrompt(style string) string {
	return "You are an expert web designer. Generate a single self-contained HTML fragment " +
		"implementing the user's request in the \"" + style + "\" visual style. " +
		"Use inline CSS only. Respond with HTML only, no commentary."
}
