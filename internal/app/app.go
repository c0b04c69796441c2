package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/config"
	"github.com/five82/lattice/internal/focus"
	"github.com/five82/lattice/internal/grid"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/prefs"
	"github.com/five82/lattice/internal/rows"
	"github.com/five82/lattice/internal/theme"
	"github.com/five82/lattice/internal/transport/httpapi"
	"github.com/five82/lattice/internal/transport/sqlsource"
	"github.com/five82/lattice/internal/ui"
)

// Options configure the lattice viewer.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/lattice/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
	StoreID    string // overrides the configured store
	Logger     *logging.Logger
	LogPath    string // file Logger writes to, shown in the log panel
}

// Run boots the lattice TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.StoreID != "" {
		cfg.Source.StoreID = opts.StoreID
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	log := opts.Logger

	source, closer, err := OpenSource(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	repo, err := LoadTheme(cfg, userPrefs)
	if err != nil {
		return err
	}

	g, err := NewGrid(ctx, cfg, source, repo, log)
	if err != nil {
		return err
	}
	defer g.Close()

	if layout, ok := userPrefs.Layout(cfg.Source.StoreID); ok {
		if err := prefs.Apply(g.Columns(), layout); err != nil {
			log.Warn("could not restore column layout", map[string]any{"error": err.Error()})
		}
	}

	interval := time.Duration(cfg.Poll.Seconds) * time.Second
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}
	poller := NewPoller(g, interval, log)

	themeName := repo.Name()
	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Grid:      g,
		Poller:    poller,
		StoreID:   cfg.Source.StoreID,
		ThemeName: themeName,
		PageRows:  cfg.Grid.PageRows,
		Viewport:  viewport(cfg),
		LogPath:   opts.LogPath,
		OnTheme: func(name string) {
			themeName = name
		},
	})

	userPrefs.Theme = themeName
	userPrefs.SetLayout(cfg.Source.StoreID, prefs.Capture(g.Columns()))
	if err := prefs.Save(opts.PrefsPath, userPrefs); err != nil {
		log.Warn("could not save preferences", map[string]any{"error": err.Error()})
	}
	return uiErr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenSource builds the row transport selected by cfg.
func OpenSource(cfg config.Config, log *logging.Logger) (rows.Transport, io.Closer, error) {
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		client, err := httpapi.NewClient(cfg.Source.APIBind)
		if err != nil {
			return nil, nil, fmt.Errorf("init api client: %w", err)
		}
		return client, nopCloser{}, nil
	case config.SourceSQLite:
		src, err := sqlsource.Open(cfg.Source.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// LoadTheme returns the theme file named by the config, else the configured
// built-in, else the one remembered in prefs.
func LoadTheme(cfg config.Config, p prefs.Prefs) (*theme.StaticRepository, error) {
	if cfg.Theme.Path != "" {
		def, err := theme.Load(cfg.Theme.Path)
		if err != nil {
			return nil, fmt.Errorf("load theme: %w", err)
		}
		return theme.NewStaticRepository(def), nil
	}
	name := p.Theme
	if cfg.Theme.Name != "" {
		name = cfg.Theme.Name
	}
	return theme.NewStaticRepository(theme.Builtin(name)), nil
}

// NewGrid builds a grid over source and registers the store's columns when
// the source can describe them.
func NewGrid(ctx context.Context, cfg config.Config, source rows.Transport, repo theme.Repository, log *logging.Logger) (*grid.Grid, error) {
	g, err := grid.New(grid.Options{
		Transport:    source,
		StoreID:      cfg.Source.StoreID,
		Theme:        repo,
		Logger:       log,
		MaxBlocks:    cfg.Cache.MaxBlocks,
		MaxBlockRows: cfg.Cache.MaxBlockRows,
		CharWidth:    1,
		RowHeight:    cfg.Grid.RowHeight,
		Viewport:     viewport(cfg),
	})
	if err != nil {
		return nil, err
	}

	if schema, ok := source.(columns.SchemaSource); ok {
		infos, err := schema.Schema(ctx, cfg.Source.StoreID)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("read columns of %s: %w", cfg.Source.StoreID, err)
		}
		if _, err := g.Columns().RegisterAll(columns.FromSchema(infos)); err != nil {
			g.Close()
			return nil, err
		}
	}
	return g, nil
}

func viewport(cfg config.Config) focus.Viewport {
	return focus.Viewport{
		FrozenRows:   cfg.Grid.FrozenRows,
		FrozenCols:   cfg.Grid.FrozenCols,
		HeaderHeight: cfg.Grid.HeaderHeight,
		RTL:          cfg.Grid.RTL,
	}
}
