package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/lattice/internal/transport/sqlsource"
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo table in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return fmt.Errorf("--rows must not be negative")
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, flags.logLevel, os.Stderr)
			if err != nil {
				return err
			}

			db := cfg.Source.Database
			if db != ":memory:" {
				if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
					return fmt.Errorf("create database dir: %w", err)
				}
			}
			src, err := sqlsource.Open(db, log)
			if err != nil {
				return err
			}
			defer src.Close()

			if err := src.Seed(cmd.Context(), cfg.Source.StoreID, count); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows into %s (%s)\n", count, cfg.Source.StoreID, db)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "rows", 10000, "number of rows to create")
	return cmd
}
