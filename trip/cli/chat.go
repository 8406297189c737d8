package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// maxInputLine bounds a single REPL input line.
const maxInputLine = 1024 * 1024

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation",
		Long:  "Interactive REPL. Commands: /stats, /sessions, /summary, /clear, /quit.",
		Run:   runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		exitErr("setup", err)
	}

	a.manager.StartSession(sessionID)
	fmt.Printf("tripmate chat (session %s). /quit to exit.\n", sessionID)

	a.chatLoop(cmd.Context(), os.Stdin, os.Stdout, os.Stderr)

	a.manager.EndSession(sessionID)
}

// chatLoop reads input lines until EOF, /quit, or a read error, which
// is reported rather than silently ending the session.
func (a *app) chatLoop(ctx context.Context, in io.Reader, out, errOut io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxInputLine)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.runChatCommand(input, out); quit {
				break
			}
			continue
		}

		result, err := a.pipeline.Run(ctx, sessionID, input)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result.Answer)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: read input: %v\n", err)
	}
}

// runChatCommand handles slash commands; returns true on /quit.
func (a *app) runChatCommand(input string, out io.Writer) bool {
	switch input {
	case "/quit", "/exit":
		return true
	case "/stats":
		printJSON(out, a.manager.MemoryStats())
	case "/sessions":
		for _, id := range a.manager.Sessions() {
			fmt.Fprintln(out, id)
		}
	case "/summary":
		if summary, ok := a.manager.SessionSummaryFor(sessionID); ok {
			printJSON(out, summary)
		} else {
			fmt.Fprintln(out, "session not found")
		}
	case "/clear":
		a.manager.ClearSession(sessionID)
		fmt.Fprintln(out, "session history cleared")
	default:
		fmt.Fprintln(out, "commands: /stats, /sessions, /summary, /clear, /quit")
	}
	return false
}

func printJSON(out io.Writer, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(out, string(data))
}
