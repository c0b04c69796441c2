package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Source kinds.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// Config is the lattice configuration.
type Config struct {
	Source SourceConfig `toml:"source"`
	Cache  CacheConfig  `toml:"cache"`
	Grid   GridConfig   `toml:"grid"`
	Theme  ThemeConfig  `toml:"theme"`
	Log    LogConfig    `toml:"log"`
	Poll   PollConfig   `toml:"poll"`
}

// SourceConfig selects where rows come from.
type SourceConfig struct {
	Kind     string `toml:"kind" validate:"oneof=http sqlite"`
	APIBind  string `toml:"api_bind" validate:"required_if=Kind http"`
	StoreID  string `toml:"store_id" validate:"required"`
	Database string `toml:"database" validate:"required_if=Kind sqlite"`
}

// CacheConfig bounds the row cache. Zero means the cache default.
type CacheConfig struct {
	MaxBlocks    int `toml:"max_blocks" validate:"gte=0"`
	MaxBlockRows int `toml:"max_block_rows" validate:"gte=0"`
}

// GridConfig holds layout settings.
type GridConfig struct {
	RowHeight    int  `toml:"row_height" validate:"gte=1"`
	HeaderHeight int  `toml:"header_height" validate:"gte=0"`
	FrozenRows   int  `toml:"frozen_rows" validate:"gte=0"`
	FrozenCols   int  `toml:"frozen_cols" validate:"gte=0"`
	RTL          bool `toml:"rtl"`
	PageRows     int  `toml:"page_rows" validate:"gte=1,lte=1000"`
}

// ThemeConfig names a built-in theme or a YAML theme file. Path wins.
type ThemeConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Human bool   `toml:"human"`
}

// PollConfig sets how often the row count is refreshed.
type PollConfig struct {
	Seconds int `toml:"seconds" validate:"gte=1,lte=3600"`
}

const (
	defaultConfigPath = "~/.config/lattice/config.toml"
	defaultDatabase   = "~/.local/share/lattice/lattice.db"
	defaultAPIBind    = "127.0.0.1:7490"
	defaultStoreID    = "orders"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Kind:     SourceSQLite,
			APIBind:  defaultAPIBind,
			StoreID:  defaultStoreID,
			Database: mustExpand(defaultDatabase),
		},
		Grid: GridConfig{RowHeight: 1, HeaderHeight: 1, PageRows: 200},
		Log:  LogConfig{Level: "info"},
		Poll: PollConfig{Seconds: 5},
	}
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() { validateInst = validator.New() })
	return validateInst
}

// Load locates and parses the lattice config, falling back to defaults when missing.
// Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.Source.APIBind = strings.TrimSpace(c.Source.APIBind)
	if c.Source.APIBind == "" {
		c.Source.APIBind = defaultAPIBind
	}
	c.Source.StoreID = strings.TrimSpace(c.Source.StoreID)
	if db := strings.TrimSpace(c.Source.Database); db != "" && db != ":memory:" {
		c.Source.Database = mustExpand(db)
	}
	if p := strings.TrimSpace(c.Theme.Path); p != "" {
		c.Theme.Path = mustExpand(p)
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
