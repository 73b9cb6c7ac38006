// Package config handles mirgo.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"mirgo/internal/asset"
)

const FileName = "mirgo.toml"

var ErrInvalid = errors.New("invalid configuration")

// Config represents a mirgo.toml project configuration.
type Config struct {
	Project   Project   `toml:"project"`
	Assets    Assets    `toml:"assets"`
	Reconcile Reconcile `toml:"reconcile"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the mirgo.toml file (set at load time).
	Dir string `toml:"-"`
}

type Project struct {
	Name string `toml:"name"`
}

// Assets configures where prefab assets are stored.
type Assets struct {
	Dir      string `toml:"dir"`
	Store    string `toml:"store"` // "file" or "sqlite"
	Database string `toml:"database"`
}

type Reconcile struct {
	OnLoad           bool `toml:"on_load"`
	StrictReferences bool `toml:"strict_references"`

	// Workers bounds how many scenes are reconciled at once.
	Workers int `toml:"workers"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// Default returns the configuration used when no mirgo.toml exists.
func Default(dir string) *Config {
	return &Config{
		Assets: Assets{
			Dir:      "assets/prefabs",
			Store:    "file",
			Database: "assets/prefabs.db",
		},
		Reconcile: Reconcile{OnLoad: true, Workers: 4},
		Log:       Log{Level: "info", Format: "text"},
		Dir:       dir,
	}
}

// Load parses a mirgo.toml file from the given directory. Keys missing from
// the file keep their defaults.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default(abs)
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a mirgo.toml file, then loads
// it. Without one it returns the defaults rooted at startDir.
func FindAndLoad(startDir string) (*Config, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(start), nil
		}
		dir = parent
	}
}

func (c *Config) Validate() error {
	switch c.Assets.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: assets.store %q (want \"file\" or \"sqlite\")", ErrInvalid, c.Assets.Store)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("%w: reconcile.workers must be at least 1", ErrInvalid)
	}
	return nil
}

// AssetDir returns the absolute path of the prefab directory.
func (c *Config) AssetDir() string {
	return c.resolve(c.Assets.Dir)
}

// DatabasePath returns the absolute path of the sqlite asset database.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Assets.Database)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// OpenStore opens the configured asset store. The returned close function
// must be called when the store is no longer used.
func (c *Config) OpenStore() (asset.Store, func() error, error) {
	switch c.Assets.Store {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(c.DatabasePath()), 0755); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", asset.ErrPersistence, err)
		}
		s, err := asset.OpenSQLiteStore(c.DatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := asset.NewFileStore(c.AssetDir())
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}
