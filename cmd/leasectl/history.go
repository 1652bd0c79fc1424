package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/service"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit         int
		includeHidden bool
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "history EMAIL",
		Short: "Print a lead's stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			s, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer s.Close()
			return runHistory(cmd.Context(), s, args[0], limit, includeHidden, asJSON, os.Stdout)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Number of recent messages")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include hidden messages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a transcript")
	return cmd
}

func runHistory(ctx context.Context, s *store.Store, email string, limit int, includeHidden, asJSON bool, out io.Writer) error {
	user, err := s.UserByEmail(ctx, service.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no lead with email %s", email)
	}
	if err != nil {
		return err
	}

	all, err := s.RecentMessages(ctx, user.ID, limit)
	if err != nil {
		return err
	}
	msgs := make([]model.Message, 0, len(all))
	for _, m := range all {
		if includeHidden || m.Visible {
			msgs = append(msgs, m)
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(model.HistoryResponse{Messages: msgs, Count: len(msgs)})
	}

	fmt.Fprintf(out, "%s <%s>, %d messages\n", user.Name, user.Email, len(msgs))
	for _, m := range msgs {
		fmt.Fprintf(out, "%s  %-9s  %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Role, m.Content)
	}
	return nil
}
