package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

const (
	// DefaultEndpoint is the BidiGenerateContent WebSocket endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is a native-audio model suitable for live conversation.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	defaultConnectTimeout = 15 * time.Second
)

// Config configures a live session.
type Config struct {
	// Model is the native-audio model to converse with.
	// Defaults to DefaultModel.
	Model string

	// System is the system instruction for the session.
	System string

	// Voice selects a prebuilt voice by name, e.g. "Puck". Empty uses
	// the model default.
	Voice string

	// Temperature controls response randomness.
	Temperature *float64

	// Transcribe enables transcription of both audio directions,
	// surfaced as TranscriptEvents.
	Transcribe bool

	// Endpoint overrides the WebSocket endpoint. Defaults to
	// DefaultEndpoint.
	Endpoint string

	// ConnectTimeout bounds the dial and setup handshake. Zero or
	// negative uses a 15 second default.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:      DefaultModel,
		Transcribe: true,
	}
}

// Session is a bidirectional audio session. Writes are serialized by a
// mutex; a single read loop decodes server frames into Events().
type Session struct {
	conn *websocket.Conn

	input  AudioConfig
	output AudioConfig

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Connect dials the Live API, performs the setup handshake, and returns
// a running session. The context bounds the dial and handshake only; the
// session itself lives until Close or a read error.
func Connect(ctx context.Context, apiKey string, cfg Config) (*Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("live: api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	wsURL := endpoint + "?key=" + apiKey
	conn, resp, err := dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live: dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live: dial failed: %w", err)
	}

	if err := conn.WriteJSON(buildSetup(cfg)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("live: send setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(connectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("live: read setup response: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var frame serverFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("live: decode setup response: %w", err)
	}
	if frame.SetupComplete == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("live: expected setupComplete, got %s", compactFrame(payload))
	}

	session := &Session{
		conn:   conn,
		input:  InputAudioConfig(),
		output: OutputAudioConfig(),
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	session.emit(SetupCompleteEvent{})
	go session.readLoop()
	return session, nil
}

func buildSetup(cfg Config) clientFrame {
	setup := &setupPayload{
		Model: "models/" + strings.TrimPrefix(strings.TrimSpace(cfg.Model), "models/"),
		GenerationConfig: &bidiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			Temperature:        cfg.Temperature,
		},
	}
	if voice := strings.TrimSpace(cfg.Voice); voice != "" {
		setup.GenerationConfig.SpeechConfig = &speechConf{
			VoiceConfig: &voiceConf{
				PrebuiltVoiceConfig: &prebuiltVoice{VoiceName: voice},
			},
		}
	}
	if system := strings.TrimSpace(cfg.System); system != "" {
		setup.SystemInstruction = &bidiContent{
			Parts: []bidiPart{{Text: system}},
		}
	}
	if cfg.Transcribe {
		setup.InputAudioTranscription = &struct{}{}
		setup.OutputAudioTranscription = &struct{}{}
	}
	return clientFrame{Setup: setup}
}

// Events yields decoded session events. The channel closes when the
// session ends; check Err afterwards.
func (s *Session) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// InputFormat returns the PCM format expected by SendAudio.
func (s *Session) InputFormat() AudioConfig { return s.input }

// OutputFormat returns the PCM format of AudioChunkEvent data.
func (s *Session) OutputFormat() AudioConfig { return s.output }

// SendAudio streams a chunk of microphone PCM to the server. The data
// must be 16-bit little-endian mono at the input sample rate.
func (s *Session) SendAudio(pcm []byte) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if len(pcm) == 0 {
		return nil
	}
	return s.sendJSON(clientFrame{
		RealtimeInput: &realtimeInputPayload{
			Audio: &bidiBlob{
				MimeType: s.input.MimeType(),
				Data:     base64.StdEncoding.EncodeToString(pcm),
			},
		},
	})
}

// SendText injects a typed user turn. The model responds with audio the
// same way it would to speech.
func (s *Session) SendText(text string) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("live: text must not be empty")
	}
	return s.sendJSON(clientFrame{
		ClientContent: &clientContentPayload{
			Turns: []bidiContent{
				{Role: types.RoleUser, Parts: []bidiPart{{Text: text}}},
			},
			TurnComplete: true,
		},
	})
}

func (s *Session) sendJSON(v any) error {
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close shuts the session down. It is safe to call more than once and
// returns after the read loop has drained.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any. It blocks until the
// session has ended.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.setErr(err)
			return
		}

		events, frameErr := decodeServerFrame(data)
		if frameErr != nil {
			s.setErr(frameErr)
			return
		}
		for _, event := range events {
			s.emit(event)
		}
	}
}

func (s *Session) emit(event Event) {
	if event == nil {
		return
	}
	select {
	case s.events <- event:
	default:
		// Avoid deadlocking the read loop if the caller stops consuming.
	}
}

// decodeServerFrame turns one wire frame into zero or more events. A
// single serverContent frame can carry audio, transcripts, and turn
// boundaries at once; events are emitted in playback-safe order with
// interruption first.
func decodeServerFrame(data []byte) ([]Event, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("live: decode frame: %w", err)
	}

	switch {
	case frame.SetupComplete != nil:
		return []Event{SetupCompleteEvent{}}, nil

	case frame.ServerContent != nil:
		return decodeServerContent(frame.ServerContent)

	case frame.GoAway != nil:
		return []Event{GoAwayEvent{TimeLeft: frame.GoAway.TimeLeft}}, nil

	case frame.UsageMetadata != nil:
		u := frame.UsageMetadata
		return []Event{UsageEvent{Usage: types.Usage{
			InputTokens:  u.PromptTokenCount,
			OutputTokens: u.ResponseTokenCount,
			TotalTokens:  u.TotalTokenCount,
		}}}, nil

	default:
		return []Event{UnknownEvent{Raw: append(json.RawMessage(nil), data...)}}, nil
	}
}

func decodeServerContent(content *serverContentPayload) ([]Event, error) {
	var events []Event

	if content.Interrupted {
		events = append(events, InterruptedEvent{})
	}
	if t := content.InputTranscription; t != nil && t.Text != "" {
		events = append(events, TranscriptEvent{
			Direction: TranscriptInput,
			Text:      t.Text,
			Finished:  t.Finished,
		})
	}
	if t := content.OutputTranscription; t != nil && t.Text != "" {
		events = append(events, TranscriptEvent{
			Direction: TranscriptOutput,
			Text:      t.Text,
			Finished:  t.Finished,
		})
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("live: decode audio chunk: %w", err)
			}
			events = append(events, AudioChunkEvent{
				Data:     pcm,
				MimeType: part.InlineData.MimeType,
			})
		}
	}
	if content.GenerationComplete {
		events = append(events, GenerationCompleteEvent{})
	}
	if content.TurnComplete {
		events = append(events, TurnCompleteEvent{})
	}
	return events, nil
}

func compactFrame(data []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(data))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
