package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/KamdynS/go-swarm/chat"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the sales assistant in the terminal",
		Long: `Chat with the sales assistant in the terminal.

Type /reset to forget the conversation and exit or quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			if sessionID == "" {
				sessionID = chat.NewSessionID()
			}
			return runChat(ctx, a.chat, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume a stored session")
	return cmd
}

// runChat is a line-oriented REPL over svc. A failed turn is reported and the
// conversation continues.
func runChat(ctx context.Context, svc *chat.Service, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Session %s. Ask about the sales data; /reset clears history, exit quits.\n", sessionID)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			if err := svc.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		reply, err := svc.Respond(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("session_id", sessionID).Msg("chat turn failed")
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply)
	}
}
