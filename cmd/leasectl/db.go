package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/leasing-assistant/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			s, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "schema version %d (%s)\n", v, s.Dialect())
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo communities, units and pet policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			s, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Seed(cmd.Context()); err != nil {
				return err
			}
			return printCommunities(cmd, s, os.Stdout)
		},
	}
}

func printCommunities(cmd *cobra.Command, s *store.Store, out io.Writer) error {
	communities, err := s.Communities(cmd.Context())
	if err != nil {
		return err
	}
	for _, c := range communities {
		fmt.Fprintf(out, "%-16s %s\n", c.ID, c.Name)
	}
	return nil
}
