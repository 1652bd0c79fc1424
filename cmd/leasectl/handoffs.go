package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/leasing-assistant/internal/app"
	"github.com/capitalize-ai/leasing-assistant/internal/events"
	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

func newHandoffsCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "handoffs",
		Short: "List recent turns handed off to a human agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.NATSEnabled {
				return app.ErrEventsDisabled
			}
			log, err := newLogger()
			if err != nil {
				return err
			}

			nc, err := events.Connect(cmd.Context(), events.Config{
				URL:      cfg.NATSURL,
				CAFile:   cfg.NATSCAFile,
				CertFile: cfg.NATSCertFile,
				KeyFile:  cfg.NATSKeyFile,
				Token:    cfg.NATSToken,
			}, log)
			if err != nil {
				return err
			}
			defer nc.Close()

			evs, err := events.NewStream(nc).Since(cmd.Context(), events.TypeFilter(model.EventTypeHandoff), time.Now().Add(-since), limit)
			if err != nil {
				return err
			}
			printHandoffs(evs, os.Stdout)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to look")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of handoffs")
	return cmd
}

func printHandoffs(evs []model.TurnEvent, out io.Writer) {
	if len(evs) == 0 {
		fmt.Fprintln(out, "no handoffs")
		return
	}
	for _, ev := range evs {
		fmt.Fprintf(out, "#%d  %s  %-24s %-16s message=%s\n",
			ev.Sequence, ev.CreatedAt.Local().Format(time.DateTime), ev.Email, ev.CommunityID, ev.MessageID)
	}
}
