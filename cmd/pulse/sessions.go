package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/render"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions yet; start one with: pulse chat")
			return nil
		}
		for _, s := range sessions {
			fmt.Println(render.SessionRow(s))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's full conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := resolveSession(st, args[0])
		if err != nil {
			return err
		}
		var total types.Usage
		for _, msg := range sess.Messages {
			fmt.Println(render.Message(msg))
			if msg.Usage != nil {
				total = total.Add(*msg.Usage)
			}
		}
		if !total.IsEmpty() {
			fmt.Println(render.UsageTotal(total))
		}
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := resolveSession(st, args[0])
		if err != nil {
			return err
		}
		return st.Rename(sess.ID, strings.Join(args[1:], " "))
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := resolveSession(st, args[0])
		if err != nil {
			return err
		}
		return st.Delete(sess.ID)
	},
}

// resolveSession accepts a full session ID or an unambiguous prefix.
func resolveSession(st *store.Store, id string) (*store.Session, error) {
	if sess, err := st.Get(id); err == nil {
		return sess, nil
	}

	sessions, err := st.List()
	if err != nil {
		return nil, err
	}
	var match string
	for _, s := range sessions {
		if !strings.HasPrefix(s.ID, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("session id prefix %q is ambiguous", id)
		}
		match = s.ID
	}
	if match == "" {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
	}
	return st.Get(match)
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRenameCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
