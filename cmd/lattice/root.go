package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/lattice/internal/app"
	"github.com/five82/lattice/internal/config"
	"github.com/five82/lattice/internal/logging"
)

type rootFlags struct {
	configPath string
	storeID    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var (
		prefsPath   string
		logFile     string
		pollSeconds int
	)

	cmd := &cobra.Command{
		Use:           "lattice",
		Short:         "Browse large tables in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			// The TUI owns the terminal, so logs only go to a file.
			log := logging.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				if log, err = newLogger(cfg, flags.logLevel, f); err != nil {
					return err
				}
			}

			return app.Run(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				PrefsPath:  prefsPath,
				PollEvery:  pollSeconds,
				StoreID:    flags.storeID,
				Logger:     log,
				LogPath:    logFile,
			})
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/lattice/config.toml)")
	cmd.PersistentFlags().StringVar(&flags.storeID, "store", "", "store to open, overriding the config")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/lattice/prefs.toml)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	cmd.Flags().IntVar(&pollSeconds, "poll", 0, "row count refresh interval in seconds")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newSeedCmd(flags))
	cmd.AddCommand(newCSSCmd(flags))

	return cmd
}

// load reads the config and applies the persistent overrides.
func (f *rootFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if f.storeID != "" {
		cfg.Source.StoreID = f.storeID
	}
	return cfg, nil
}

func newLogger(cfg config.Config, level string, w io.Writer) (*logging.Logger, error) {
	if level == "" {
		level = cfg.Log.Level
	}
	human := cfg.Log.Human
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		human = true
	}
	log, err := logging.New(logging.Options{Level: level, HumanReadable: human, Writer: w})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}
