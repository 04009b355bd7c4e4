package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/chat"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/input"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/render"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/store"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with streamed responses",
	Long: `Starts a chat REPL. Responses stream token by token into the
terminal and every turn is persisted.

Commands inside the REPL:
  /new              start a fresh session
  /sessions         list stored sessions
  /switch <id>      switch to another session
  /attach <file>    attach a file to your next message
  /quit             exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		provider, err := newProvider()
		if err != nil {
			return err
		}

		session, err := resumeOrCreate(st, chatSessionID)
		if err != nil {
			return err
		}

		runner := chat.NewRunner(st, provider,
			chat.WithSystem(cfg.System),
			chat.WithMaxTokens(cfg.MaxTokens),
			chat.WithDefaultModel(cfg.Model),
		)

		return runREPL(cmd.Context(), st, runner, session)
	},
}

func resumeOrCreate(st *store.Store, id string) (*store.Session, error) {
	if id != "" {
		return resolveSession(st, id)
	}
	sessions, err := st.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) > 0 {
		return st.Get(sessions[0].ID)
	}
	return st.Create(cfg.Model)
}

func runREPL(ctx context.Context, st *store.Store, runner *chat.Runner, session *store.Session) error {
	// Replay stored history so resuming a session shows context.
	for _, msg := range session.Messages {
		fmt.Println(render.Message(msg))
	}

	var pending []types.ContentBlock
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			next, done, err := handleREPLCommand(st, session, line, &pending)
			if err != nil {
				fmt.Println(render.Error(err))
				continue
			}
			if done {
				return nil
			}
			if next != nil {
				session = next
			}
			continue
		}

		content := append(pending, types.Text(line))
		pending = nil

		if err := streamOneTurn(ctx, runner, session.ID, content); err != nil {
			fmt.Println(render.Error(err))
		}
	}
}

// streamOneTurn runs a single turn, printing deltas as they arrive.
// Ctrl-C cancels the stream but keeps the partial response.
func streamOneTurn(ctx context.Context, runner *chat.Runner, sessionID string, content []types.ContentBlock) error {
	turnCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, err := runner.StreamTurn(turnCtx, sessionID, types.Message{
		Role:    types.RoleUser,
		Content: content,
	}, chat.Callbacks{
		OnDelta: func(text string) { fmt.Print(text) },
		OnImage: func(img types.ImageBlock) {
			fmt.Printf("\n[received %s image]\n", img.Source.MediaType)
		},
		OnDone: func(types.Message) { fmt.Println() },
	})
	if turnCtx.Err() != nil {
		fmt.Println("\n[cancelled]")
		return nil
	}
	if err != nil {
		fmt.Println()
	}
	return err
}

func handleREPLCommand(st *store.Store, session *store.Session, line string, pending *[]types.ContentBlock) (*store.Session, bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return nil, true, nil

	case "/new":
		next, err := st.Create(cfg.Model)
		if err != nil {
			return nil, false, err
		}
		fmt.Printf("started session %s\n", next.ID[:8])
		return next, false, nil

	case "/sessions":
		sessions, err := st.List()
		if err != nil {
			return nil, false, err
		}
		for _, s := range sessions {
			marker := "  "
			if s.ID == session.ID {
				marker = "* "
			}
			fmt.Println(marker + render.SessionRow(s))
		}
		return nil, false, nil

	case "/switch":
		if len(fields) < 2 {
			return nil, false, fmt.Errorf("usage: /switch <session-id>")
		}
		next, err := resolveSession(st, fields[1])
		if err != nil {
			return nil, false, err
		}
		for _, msg := range next.Messages {
			fmt.Println(render.Message(msg))
		}
		return next, false, nil

	case "/attach":
		if len(fields) < 2 {
			return nil, false, fmt.Errorf("usage: /attach <file>")
		}
		att, err := input.LoadAttachment(strings.Join(fields[1:], " "), cfg.MaxAttachmentBytes)
		if err != nil {
			return nil, false, err
		}
		*pending = append(*pending, att.Block())
		fmt.Printf("attached %s (%s, %d bytes)\n", att.Path, att.MediaType, att.Size)
		return nil, false, nil

	default:
		return nil, false, fmt.Errorf("unknown command %s", fields[0])
	}
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "Session ID (or prefix) to resume")
	rootCmd.AddCommand(chatCmd)
}
