package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/lattice/internal/app"
	"github.com/five82/lattice/internal/prefs"
	"github.com/five82/lattice/internal/style"
	"github.com/five82/lattice/internal/theme"
)

// cssStates are the state sets rendered by the css command.
var cssStates = []style.States{
	nil,
	{"odd": true},
	{"focused": true},
	{"selected": true},
	{"editing": true},
	{"invalid": true},
	{"sorted": true},
}

func newCSSCmd(flags *rootFlags) *cobra.Command {
	var themeName string

	cmd := &cobra.Command{
		Use:   "css",
		Short: "Print the stylesheet generated for a theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if themeName != "" {
				cfg.Theme.Name = themeName
				cfg.Theme.Path = ""
			}
			repo, err := app.LoadTheme(cfg, prefs.Prefs{})
			if err != nil {
				return err
			}

			engine := style.NewEngine(repo, style.Options{})
			for _, key := range []string{
				theme.AppearanceTable,
				theme.AppearanceRow,
				theme.AppearanceCell,
				theme.AppearanceHeaderCell,
				theme.AppearanceFocusIndicator,
			} {
				for _, states := range cssStates {
					engine.Resolve(key, states)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), engine.Sheet().CSS())
			return err
		},
	}

	cmd.Flags().StringVar(&themeName, "theme", "", "built-in theme name")
	return cmd
}
