package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/" +
		"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultModel = "models/gemini-2.0-flash-live-001"

	handshakeTimeout = 30 * time.Second
)

// GeminiChannel dials the Gemini bidi-generate-content websocket endpoint.
type GeminiChannel struct {
	// APIKey authenticates the connection. Required.
	APIKey string

	// Endpoint overrides the production websocket URL, e.g. for tests.
	Endpoint string
}

// wsConn is a websocket-backed Conn. A single background reader decodes
// server frames into the buffered message channel; writes are serialized by
// wsConn.mu.
type wsConn struct {
	conn      *websocket.Conn
	msgCh     chan Message
	closeCh   chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// Wire shapes for the bidi protocol. Only the fields this client touches.
type setupMessage struct {
	Setup struct {
		Model            string           `json:"model"`
		GenerationConfig *generationCfg   `json:"generationConfig,omitempty"`
		SystemInstruction *contentPayload `json:"systemInstruction,omitempty"`
		OutputTranscription *struct{}     `json:"outputAudioTranscription,omitempty"`
		InputTranscription  *struct{}     `json:"inputAudioTranscription,omitempty"`
	} `json:"setup"`
}

type generationCfg struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	SpeechConfig       *speechCfg   `json:"speechConfig,omitempty"`
}

type speechCfg struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type contentPayload struct {
	Role  string        `json:"role,omitempty"`
	Parts []partPayload `json:"parts"`
}

type partPayload struct {
	Text       string       `json:"text,omitempty"`
	InlineData *inlineBytes `json:"inlineData,omitempty"`
}

type inlineBytes struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		MediaChunks []inlineBytes `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type clientContentMessage struct {
	ClientContent struct {
		Turns        []contentPayload `json:"turns"`
		TurnComplete bool             `json:"turnComplete"`
	} `json:"clientContent"`
}

type serverMessage struct {
	SetupComplete *struct{} `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []partPayload `json:"parts"`
		} `json:"modelTurn"`
		Interrupted         bool `json:"interrupted"`
		TurnComplete        bool `json:"turnComplete"`
		OutputTranscription *struct {
			Text string `json:"text"`
		} `json:"outputTranscription"`
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription"`
	} `json:"serverContent"`
	GoAway *struct{} `json:"goAway"`
}

// Connect dials the endpoint, performs the setup handshake, and returns once
// the server acknowledges with setupComplete. The returned Conn's first
// message is MsgOpen.
func (g *GeminiChannel) Connect(ctx context.Context, cfg ChannelConfig) (Conn, error) {
	if g.APIKey == "" {
		return nil, errors.New("live: api key is required")
	}
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if !strings.Contains(model, "/") {
		model = "models/" + model
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint+"?key="+g.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("live: failed to connect: %w", err)
	}

	c := &wsConn{
		conn:    conn,
		msgCh:   make(chan Message, 100),
		closeCh: make(chan struct{}),
	}

	var setup setupMessage
	setup.Setup.Model = model
	gc := &generationCfg{ResponseModalities: []string{"AUDIO"}}
	if cfg.Voice != "" {
		sc := &speechCfg{}
		sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName = cfg.Voice
		gc.SpeechConfig = sc
	}
	setup.Setup.GenerationConfig = gc
	if cfg.Instructions != "" {
		setup.Setup.SystemInstruction = &contentPayload{
			Parts: []partPayload{{Text: cfg.Instructions}},
		}
	}
	if cfg.Transcribe {
		setup.Setup.OutputTranscription = &struct{}{}
		setup.Setup.InputTranscription = &struct{}{}
	}
	if err := c.send(setup); err != nil {
		conn.Close()
		return nil, err
	}

	// The handshake completes when the server acknowledges the setup.
	if err := c.awaitSetupComplete(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	c.msgCh <- Message{Type: MsgOpen}
	go c.readLoop()
	return c, nil
}

func (c *wsConn) awaitSetupComplete(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(handshakeTimeout)
	}
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("live: handshake read: %w", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("live: handshake parse: %w", err)
	}
	if msg.SetupComplete == nil {
		return fmt.Errorf("live: unexpected handshake reply: %s", raw)
	}
	return nil
}

func (c *wsConn) SendFrame(frame []byte) error {
	var msg realtimeInputMessage
	msg.RealtimeInput.MediaChunks = []inlineBytes{{
		MIMEType: CaptureFormat.MIMEType(),
		Data:     base64.StdEncoding.EncodeToString(frame),
	}}
	return c.send(msg)
}

func (c *wsConn) SendText(text string) error {
	var msg clientContentMessage
	msg.ClientContent.Turns = []contentPayload{{
		Role:  "user",
		Parts: []partPayload{{Text: text}},
	}}
	msg.ClientContent.TurnComplete = true
	return c.send(msg)
}

func (c *wsConn) Messages() <-chan Message {
	return c.msgCh
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if b, err := json.Marshal(v); err == nil {
			s := string(b)
			if len(s) > 500 {
				s = s[:500] + "..."
			}
			slog.Debug("live: sending", "content", s)
		}
	}
	return c.conn.WriteJSON(v)
}

// readLoop decodes server frames into messages until the connection ends.
func (c *wsConn) readLoop() {
	defer close(c.msgCh)

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				c.deliver(Message{Type: MsgError, Err: fmt.Errorf("live: read: %w", err)})
			}
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			s := string(raw)
			if len(s) > 1000 {
				s = s[:1000] + "..."
			}
			slog.Debug("live: received", "len", len(raw), "content", s)
		}

		var msg serverMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.deliver(Message{Type: MsgError, Err: fmt.Errorf("live: parse: %w", err)})
			return
		}

		if msg.GoAway != nil {
			c.deliver(Message{Type: MsgClosed})
			return
		}
		sc := msg.ServerContent
		if sc == nil {
			continue
		}
		// Interruption is checked before audio so barge-in discards precede
		// any new buffers carried in the same frame.
		if sc.Interrupted {
			c.deliver(Message{Type: MsgInterrupted})
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			c.deliver(Message{Type: MsgInputTranscript, Text: sc.InputTranscription.Text})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			c.deliver(Message{Type: MsgOutputTranscript, Text: sc.OutputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					c.deliver(Message{Type: MsgError, Err: fmt.Errorf("live: decode audio: %w", err)})
					return
				}
				c.deliver(Message{Type: MsgAudio, Audio: audio})
			}
		}
		if sc.TurnComplete {
			c.deliver(Message{Type: MsgTurnComplete})
		}
	}
}

func (c *wsConn) deliver(msg Message) {
	select {
	case <-c.closeCh:
	case c.msgCh <- msg:
	}
}

var _ Channel = (*GeminiChannel)(nil)
var _ Conn = (*wsConn)(nil)
