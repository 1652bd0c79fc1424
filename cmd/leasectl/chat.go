package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/leasing-assistant/internal/app"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

// replier is the part of the chat service the REPL drives.
type replier interface {
	Reply(ctx context.Context, req *model.ReplyRequest) (*model.ReplyResponse, error)
}

func newChatCmd() *cobra.Command {
	var lead model.Lead
	var community string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant as a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, loadConfig(), log)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Chat.Warm(ctx); err != nil {
				return err
			}
			return runChat(ctx, a.Chat, lead, community, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&lead.Email, "email", "e", "", "Lead email (required)")
	cmd.Flags().StringVarP(&lead.Name, "name", "n", "", "Lead name (required)")
	cmd.Flags().StringVarP(&community, "community", "c", "sunset-ridge", "Community ID")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// runChat reads one message per line until EOF or "exit".
func runChat(ctx context.Context, chat replier, lead model.Lead, community string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Chatting as %s <%s> with %s. Type \"exit\" to quit.\n", lead.Name, lead.Email, community)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		resp, err := chat.Reply(ctx, &model.ReplyRequest{
			Message:     line,
			CommunityID: community,
			Lead:        lead,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "assistant: %s\n", resp.Reply)
		fmt.Fprintf(out, "  [action=%s", resp.Action)
		if resp.ProposeTime != nil {
			fmt.Fprintf(out, " propose_time=%s", *resp.ProposeTime)
		}
		fmt.Fprintln(out, "]")
	}
}
