package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/planoeducation/planoeducation/internal/client"
	"github.com/planoeducation/planoeducation/internal/domain"
)

func askCmd() *cobra.Command {
	var repl bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question and stream the answer to stdout",
		Long: `Ask the relay a question and print the answer as it streams.

Examples:
  planoeducation ask "What is photosynthesis?"
  planoeducation ask --repl`,
		Args: func(cmd *cobra.Command, args []string) error {
			if repl {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			session := client.NewSession(client.New(cfg.ServerURL, nil))
			printer := newAnswerPrinter(cmd.OutOrStdout())
			session.Subscribe(printer.observe)

			if !repl {
				return session.Submit(cmd.Context(), strings.Join(args, " "))
			}
			return runREPL(cmd, session, cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&repl, "repl", false, "read questions from stdin, one per line")

	return cmd
}

// runREPL submits one question per input line until EOF or /quit.
func runREPL(cmd *cobra.Command, session *client.Session, in io.Reader) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Type a question and press Enter. Commands: /clear, /quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "/clear":
			if err := session.Reset(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "clear failed: %v\n", err)
			}
			continue
		}

		// Failures are already shown in the transcript.
		_ = session.Submit(cmd.Context(), input)
		if err := cmd.Context().Err(); err != nil {
			return err
		}
	}
}

// answerPrinter writes the growing assistant turn to w as it streams.
type answerPrinter struct {
	w       io.Writer
	mu      sync.Mutex
	printed int
	open    bool
}

func newAnswerPrinter(w io.Writer) *answerPrinter {
	return &answerPrinter{w: w}
}

func (p *answerPrinter) observe(s client.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch s.State {
	case client.StateAwaiting:
		p.printed = 0
		p.open = false
	case client.StateStreaming:
		last, ok := s.Transcript.Last()
		if !ok || last.Role != domain.RoleAssistant || len(last.Content) <= p.printed {
			return
		}
		fmt.Fprint(p.w, last.Content[p.printed:])
		p.printed = len(last.Content)
		p.open = true
	case client.StateError:
		if p.open {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w, client.ApologyMessage)
		p.open = false
	case client.StateIdle:
		if p.open {
			fmt.Fprintln(p.w)
			p.open = false
		}
	}
}
