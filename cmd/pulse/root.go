package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davipietrooliveira04-del/Gemini-pulse/internal/dotenv"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/config"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/gemini"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/store"
)

var (
	cfg     config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Chat with Gemini from the terminal",
	Long: `pulse is a Gemini chat client: persisted multi-session chat with
streamed responses, file attachments, image generation, and a
bidirectional live-audio mode.

Quick start:
  pulse chat                      # start or resume a conversation
  pulse sessions list             # list stored sessions
  pulse imagine "a red bicycle"   # generate images
  pulse live                      # live audio (pipe PCM in/out)

Set GEMINI_API_KEY (or GOOGLE_API_KEY); a local .env file is also read.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := dotenv.Load(".env"); err != nil {
			return err
		}
		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if gemini.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "Check that GEMINI_API_KEY (or GOOGLE_API_KEY) is set to a valid key.")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}

func openStore() (*store.Store, error) {
	if dir := filepath.Dir(cfg.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return store.Open(cfg.StorePath)
}

func newProvider() (*gemini.Provider, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return gemini.New(cfg.APIKey), nil
}
