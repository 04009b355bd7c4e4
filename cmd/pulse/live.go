package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/live"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Start a live audio session",
	Long: `Start a bidirectional live audio session with the model.

Reads 16-bit PCM mono audio at 16kHz from stdin and writes the model's
24kHz PCM audio to stdout. Transcripts and session events go to stderr,
so the command can sit in an audio pipeline:

  pw-cat --record - --rate 16000 --channels 1 --format s16 | \
    pulse live | \
    pw-cat --playback - --rate 24000 --channels 1 --format s16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session, err := live.Connect(ctx, cfg.APIKey, live.Config{
			Model:          cfg.LiveModel,
			System:         cfg.System,
			Voice:          cfg.LiveVoice,
			Transcribe:     true,
			ConnectTimeout: cfg.LiveConnectTimeout,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		output := live.NewAudioOutput(session.OutputFormat(), live.OutputConfig{})

		go pumpMicrophone(session)

		logf := func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
		logf("live session started, model %s (Ctrl-C to hang up)", cfg.LiveModel)

		playback := make(chan struct{})
		go func() {
			defer close(playback)
			for chunk := range output.Chunks() {
				if _, err := os.Stdout.Write(chunk); err != nil {
					return
				}
			}
		}()

		events := make(chan struct{})
		go func() {
			defer close(events)
			forwardEvents(session, output, logf)
		}()

		select {
		case <-ctx.Done():
		case <-events:
		}
		session.Close()
		<-events
		output.Close()
		<-playback

		if err := session.Err(); err != nil {
			return fmt.Errorf("live session: %w", err)
		}
		return nil
	},
}

// pumpMicrophone streams stdin PCM into the session in roughly 100ms
// chunks, keeping a rolling window of recent input so the mic level can
// be logged at debug level. Exits on stdin EOF or once the session
// stops accepting input.
func pumpMicrophone(session *live.Session) {
	format := session.InputFormat()
	buf := make([]byte, format.BytesForDurationMs(100))

	meter := live.NewRingBuffer(format, 2000)
	lastMeter := time.Now()
	for {
		n, err := io.ReadAtLeast(os.Stdin, buf, 1)
		if n > 0 {
			meter.Write(buf[:n])
			if time.Since(lastMeter) >= 2*time.Second {
				window := meter.Read()
				slog.Debug("mic level",
					"rms", fmt.Sprintf("%.3f", live.CalculateRMSEnergy(window)),
					"peak", fmt.Sprintf("%.3f", live.CalculatePeakAmplitude(window)))
				lastMeter = time.Now()
			}
			if sendErr := session.SendAudio(buf[:n]); sendErr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// forwardEvents is the single consumer of the session's event channel.
// Model audio is buffered for stdout playback, everything human-readable
// goes to stderr. Returns when the session closes its event channel.
func forwardEvents(session *live.Session, output *live.AudioOutput, logf func(string, ...any)) {
	for ev := range session.Events() {
		switch e := ev.(type) {
		case live.AudioChunkEvent:
			output.Push(e.Data)
		case live.InterruptedEvent:
			output.DoFlush()
			logf("[interrupted]")
		case live.TranscriptEvent:
			who := "you"
			if e.Direction == live.TranscriptOutput {
				who = "gemini"
			}
			logf("[%s] %s", who, e.Text)
		case live.GoAwayEvent:
			logf("[server disconnecting in %s]", e.TimeLeft)
		case live.UsageEvent:
			logf("[usage: %d in / %d out tokens]", e.Usage.InputTokens, e.Usage.OutputTokens)
		}
	}
}

func init() {
	rootCmd.AddCommand(liveCmd)
}
