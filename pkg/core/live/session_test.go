package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDecodeServerFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, events []Event)
	}{
		{
			name:  "setup complete",
			frame: `{"setupComplete":{}}`,
			check: func(t *testing.T, events []Event) {
				if len(events) != 1 {
					t.Fatalf("expected 1 event, got %d", len(events))
				}
				if _, ok := events[0].(SetupCompleteEvent); !ok {
					t.Fatalf("expected SetupCompleteEvent, got %T", events[0])
				}
			},
		},
		{
			name: "model turn audio",
			frame: `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"` +
				base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}) + `"}}]}}}`,
			check: func(t *testing.T, events []Event) {
				if len(events) != 1 {
					t.Fatalf("expected 1 event, got %d", len(events))
				}
				chunk, ok := events[0].(AudioChunkEvent)
				if !ok {
					t.Fatalf("expected AudioChunkEvent, got %T", events[0])
				}
				if len(chunk.Data) != 4 {
					t.Errorf("expected 4 bytes, got %d", len(chunk.Data))
				}
				if chunk.MimeType != "audio/pcm;rate=24000" {
					t.Errorf("unexpected mime type %q", chunk.MimeType)
				}
			},
		},
		{
			name:  "interrupted before turn complete",
			frame: `{"serverContent":{"interrupted":true,"turnComplete":true}}`,
			check: func(t *testing.T, events []Event) {
				if len(events) != 2 {
					t.Fatalf("expected 2 events, got %d", len(events))
				}
				if _, ok := events[0].(InterruptedEvent); !ok {
					t.Fatalf("expected InterruptedEvent first, got %T", events[0])
				}
				if _, ok := events[1].(TurnCompleteEvent); !ok {
					t.Fatalf("expected TurnCompleteEvent second, got %T", events[1])
				}
			},
		},
		{
			name:  "transcriptions",
			frame: `{"serverContent":{"inputTranscription":{"text":"hello"},"outputTranscription":{"text":"hi there","finished":true}}}`,
			check: func(t *testing.T, events []Event) {
				if len(events) != 2 {
					t.Fatalf("expected 2 events, got %d", len(events))
				}
				in := events[0].(TranscriptEvent)
				if in.Direction != TranscriptInput || in.Text != "hello" {
					t.Errorf("unexpected input transcript %+v", in)
				}
				out := events[1].(TranscriptEvent)
				if out.Direction != TranscriptOutput || out.Text != "hi there" || !out.Finished {
					t.Errorf("unexpected output transcript %+v", out)
				}
			},
		},
		{
			name:  "go away",
			frame: `{"goAway":{"timeLeft":"10s"}}`,
			check: func(t *testing.T, events []Event) {
				ev, ok := events[0].(GoAwayEvent)
				if !ok {
					t.Fatalf("expected GoAwayEvent, got %T", events[0])
				}
				if ev.TimeLeft != "10s" {
					t.Errorf("expected 10s, got %q", ev.TimeLeft)
				}
			},
		},
		{
			name:  "usage metadata",
			frame: `{"usageMetadata":{"promptTokenCount":10,"responseTokenCount":25,"totalTokenCount":35}}`,
			check: func(t *testing.T, events []Event) {
				ev, ok := events[0].(UsageEvent)
				if !ok {
					t.Fatalf("expected UsageEvent, got %T", events[0])
				}
				if ev.Usage.InputTokens != 10 || ev.Usage.OutputTokens != 25 || ev.Usage.TotalTokens != 35 {
					t.Errorf("unexpected usage %+v", ev.Usage)
				}
			},
		},
		{
			name:  "unknown frame preserved",
			frame: `{"somethingNew":{"x":1}}`,
			check: func(t *testing.T, events []Event) {
				ev, ok := events[0].(UnknownEvent)
				if !ok {
					t.Fatalf("expected UnknownEvent, got %T", events[0])
				}
				if !strings.Contains(string(ev.Raw), "somethingNew") {
					t.Errorf("raw frame not preserved: %s", ev.Raw)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := decodeServerFrame([]byte(tt.frame))
			if err != nil {
				t.Fatalf("decodeServerFrame: %v", err)
			}
			tt.check(t, events)
		})
	}
}

func TestBuildSetup(t *testing.T) {
	temp := 0.7
	cfg := Config{
		Model:       "gemini-2.5-flash-native-audio-preview-09-2025",
		System:      "Be brief.",
		Voice:       "Puck",
		Temperature: &temp,
		Transcribe:  true,
	}

	frame := buildSetup(cfg)
	setup := frame.Setup
	if setup == nil {
		t.Fatal("expected setup payload")
	}
	if setup.Model != "models/gemini-2.5-flash-native-audio-preview-09-2025" {
		t.Errorf("unexpected model %q", setup.Model)
	}
	if got := setup.GenerationConfig.ResponseModalities; len(got) != 1 || got[0] != "AUDIO" {
		t.Errorf("expected AUDIO modality, got %v", got)
	}
	if setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" {
		t.Error("voice not wired into speech config")
	}
	if setup.SystemInstruction == nil || setup.SystemInstruction.Parts[0].Text != "Be brief." {
		t.Error("system instruction not set")
	}
	if setup.InputAudioTranscription == nil || setup.OutputAudioTranscription == nil {
		t.Error("transcription not enabled")
	}
}

// liveTestServer upgrades a single connection, answers the setup frame
// with setupComplete, and hands the socket to the handler.
func liveTestServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var setup clientFrame
		if err := conn.ReadJSON(&setup); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		if setup.Setup == nil {
			t.Error("first frame was not setup")
			return
		}
		if err := conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}}); err != nil {
			t.Errorf("write setupComplete: %v", err)
			return
		}
		handler(conn)
		// Graceful shutdown so the client does not observe an abnormal
		// closure when the handler returns.
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}))
}

func wsEndpoint(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSessionHandshakeAndAudio(t *testing.T) {
	pcm := []byte{0, 1, 0, 2, 0, 3}

	srv := liveTestServer(t, func(conn *websocket.Conn) {
		// Expect one realtime audio frame, echo one model audio chunk.
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Errorf("read audio frame: %v", err)
			return
		}
		if frame.RealtimeInput == nil || frame.RealtimeInput.Audio == nil {
			t.Error("expected realtimeInput audio frame")
			return
		}
		if frame.RealtimeInput.Audio.MimeType != "audio/pcm;rate=16000" {
			t.Errorf("unexpected input mime type %q", frame.RealtimeInput.Audio.MimeType)
		}
		decoded, err := base64.StdEncoding.DecodeString(frame.RealtimeInput.Audio.Data)
		if err != nil || len(decoded) != len(pcm) {
			t.Errorf("audio payload mismatch: %v", err)
		}

		reply := map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{
					"parts": []map[string]any{
						{"inlineData": map[string]any{
							"mimeType": "audio/pcm;rate=24000",
							"data":     base64.StdEncoding.EncodeToString([]byte{9, 9}),
						}},
					},
				},
				"turnComplete": true,
			},
		}
		if err := conn.WriteJSON(reply); err != nil {
			t.Errorf("write reply: %v", err)
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Connect(ctx, "test-key", Config{
		Model:    "gemini-2.5-flash-native-audio-preview-09-2025",
		Endpoint: wsEndpoint(srv),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if err := session.SendAudio(pcm); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	var gotSetup, gotAudio, gotTurnComplete bool
	deadline := time.After(5 * time.Second)
	for !(gotSetup && gotAudio && gotTurnComplete) {
		select {
		case event, ok := <-session.Events():
			if !ok {
				t.Fatal("events channel closed early")
			}
			switch e := event.(type) {
			case SetupCompleteEvent:
				gotSetup = true
			case AudioChunkEvent:
				gotAudio = true
				if len(e.Data) != 2 {
					t.Errorf("expected 2 bytes of audio, got %d", len(e.Data))
				}
			case TurnCompleteEvent:
				gotTurnComplete = true
			}
		case <-deadline:
			t.Fatalf("timed out (setup=%v audio=%v turn=%v)", gotSetup, gotAudio, gotTurnComplete)
		}
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := session.Err(); err != nil {
		t.Fatalf("unexpected session error: %v", err)
	}
}

func TestSessionSendText(t *testing.T) {
	received := make(chan clientFrame, 1)
	srv := liveTestServer(t, func(conn *websocket.Conn) {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		received <- frame
		// Keep the socket open until the client closes it.
		_, _, _ = conn.ReadMessage()
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Connect(ctx, "test-key", Config{Endpoint: wsEndpoint(srv)})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if err := session.SendText("hello there"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := session.SendText("  "); err == nil {
		t.Error("expected error for empty text")
	}

	select {
	case frame := <-received:
		cc := frame.ClientContent
		if cc == nil {
			t.Fatal("expected clientContent frame")
		}
		if !cc.TurnComplete {
			t.Error("expected turnComplete true")
		}
		if len(cc.Turns) != 1 || cc.Turns[0].Parts[0].Text != "hello there" {
			t.Errorf("unexpected turns %+v", cc.Turns)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received clientContent")
	}
}

func TestConnectHandshakeTimeout(t *testing.T) {
	// A server that upgrades and accepts the setup frame but never
	// answers with setupComplete.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		var setup clientFrame
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	start := time.Now()
	_, err := Connect(context.Background(), "test-key", Config{
		Endpoint:       wsEndpoint(srv),
		ConnectTimeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected handshake timeout error")
	}
	if !strings.Contains(err.Error(), "read setup response") {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("handshake took %v, timeout not applied", elapsed)
	}
}

func TestSessionSendAfterClose(t *testing.T) {
	srv := liveTestServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := Connect(ctx, "test-key", Config{Endpoint: wsEndpoint(srv)})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := session.SendAudio([]byte{1, 2}); err == nil {
		t.Error("expected error sending on closed session")
	}
}

func TestSetupFrameShape(t *testing.T) {
	// The setup frame must nest everything under the "setup" key.
	data, err := json.Marshal(buildSetup(Config{Model: "m"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["setup"]; !ok {
		t.Fatalf("missing setup key: %s", data)
	}
	if len(decoded) != 1 {
		t.Errorf("expected only the setup key, got %d keys: %s", len(decoded), data)
	}
}
