package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/lattice/internal/config"
	"github.com/five82/lattice/internal/prefs"
	"github.com/five82/lattice/internal/transport/httpapi"
	"github.com/five82/lattice/internal/transport/sqlsource"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Source.Database = ":memory:"
	return cfg
}

func TestOpenSourceAndNewGrid(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	source, closer, err := OpenSource(cfg, nil)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer closer.Close()

	src, ok := source.(*sqlsource.Source)
	if !ok {
		t.Fatalf("OpenSource() = %T, want *sqlsource.Source", source)
	}
	if err := src.Seed(ctx, cfg.Source.StoreID, 30); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	repo, err := LoadTheme(cfg, prefs.Prefs{})
	if err != nil {
		t.Fatalf("LoadTheme() error = %v", err)
	}
	g, err := NewGrid(ctx, cfg, source, repo, nil)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	defer g.Close()

	if n := g.Columns().Len(); n != 5 {
		t.Errorf("registered %d columns, want 5", n)
	}
	n, err := g.RowCount(ctx)
	if err != nil || n != 30 {
		t.Errorf("RowCount() = %d, %v; want 30", n, err)
	}
}

func TestNewGridMissingStore(t *testing.T) {
	cfg := memoryConfig()
	source, closer, err := OpenSource(cfg, nil)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer closer.Close()

	repo, _ := LoadTheme(cfg, prefs.Prefs{})
	if _, err := NewGrid(context.Background(), cfg, source, repo, nil); err == nil {
		t.Fatal("NewGrid() should fail for a store that does not exist")
	}
}

func TestOpenSourceHTTP(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = config.SourceHTTP
	source, closer, err := OpenSource(cfg, nil)
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	defer closer.Close()
	if _, ok := source.(*httpapi.Client); !ok {
		t.Errorf("OpenSource() = %T, want *httpapi.Client", source)
	}

	cfg.Source.Kind = "ftp"
	if _, _, err := OpenSource(cfg, nil); err == nil {
		t.Error("OpenSource() should reject unknown kinds")
	}
}

func TestLoadThemePrecedence(t *testing.T) {
	cfg := config.Default()

	repo, err := LoadTheme(cfg, prefs.Prefs{Theme: "Slate"})
	if err != nil || repo.Name() != "Slate" {
		t.Errorf("prefs theme: got %q, %v", repo.Name(), err)
	}

	cfg.Theme.Name = "Kanagawa"
	repo, _ = LoadTheme(cfg, prefs.Prefs{Theme: "Slate"})
	if repo.Name() != "Kanagawa" {
		t.Errorf("config name should win over prefs, got %q", repo.Name())
	}

	path := filepath.Join(t.TempDir(), "paper.yaml")
	if err := os.WriteFile(path, []byte("name: Paper\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Theme.Path = path
	repo, err = LoadTheme(cfg, prefs.Prefs{})
	if err != nil || repo.Name() != "Paper" {
		t.Errorf("theme file: got %v", err)
	}

	cfg.Theme.Path = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadTheme(cfg, prefs.Prefs{}); err == nil {
		t.Error("LoadTheme() should fail for a missing theme file")
	}
}
