package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/lattice/internal/transport/httpapi"
	"github.com/five82/lattice/internal/transport/sqlsource"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the SQLite database over the HTTP row API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, flags.logLevel, os.Stderr)
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Source.APIBind
			}

			src, err := sqlsource.Open(cfg.Source.Database, log)
			if err != nil {
				return err
			}
			defer src.Close()

			srv := &http.Server{
				Addr:              bind,
				Handler:           httpapi.NewHandler(src, log),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx := cmd.Context()
			errCh := make(chan error, 1)
			go func() {
				log.Info("serving rows", map[string]any{"bind": bind, "database": cfg.Source.Database})
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "listen address (default from config api_bind)")
	return cmd
}
