package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/match"
)

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string `yaml:"-"`

	// RulesDir and LicensesDir hold the corpus. Relative paths are resolved
	// against ProjectRoot.
	RulesDir    string `yaml:"rules_dir"`
	LicensesDir string `yaml:"licenses_dir"`
	DBPath      string `yaml:"db_path"` // default: .licscan/index.db

	// AllowRebuild lets a missing or stale cache be rebuilt from the corpus.
	// When false only an explicit index build writes the cache.
	AllowRebuild bool `yaml:"allow_rebuild"`
	Workers      int  `yaml:"workers"`      // concurrent files in MatchFiles
	Diagnostics  bool `yaml:"diagnostics"`  // include matched and rule text
	StripMarkup  bool `yaml:"strip_markup"` // remove HTML/XML tags before matching

	// ReloadInterval is the least time between two watch-mode rebuilds.
	ReloadInterval time.Duration `yaml:"reload_interval"`

	Index index.Options `yaml:"index"`
	Match match.Options `yaml:"match"`
}

// DefaultReloadInterval spaces watch-mode rebuilds.
const DefaultReloadInterval = time.Second

// Defaults returns the configuration used when no config file exists.
func Defaults(projectRoot string) Config {
	return Config{
		ProjectRoot:    projectRoot,
		RulesDir:       filepath.Join("data", "rules"),
		LicensesDir:    filepath.Join("data", "licenses"),
		AllowRebuild:   true,
		Workers:        runtime.NumCPU(),
		StripMarkup:    true,
		ReloadInterval: DefaultReloadInterval,
		Index:          index.DefaultOptions(),
		Match:          match.DefaultOptions(),
	}
}

// LoadConfig overlays a YAML file on Defaults(projectRoot). With path empty
// the project's .licscan/config.yml is read if present; an explicit path
// must exist.
func LoadConfig(projectRoot, path string) (Config, error) {
	cfg := Defaults(projectRoot)
	explicit := path != ""
	if !explicit {
		path = NewPaths(projectRoot).Config
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	return cfg.resolve()
}

// resolve makes paths absolute and fills unset fields.
func (c Config) resolve() (Config, error) {
	if c.ProjectRoot == "" {
		return Config{}, fmt.Errorf("project root required")
	}
	if c.RulesDir == "" && c.LicensesDir == "" {
		return Config{}, fmt.Errorf("no corpus: rules_dir and licenses_dir are both empty")
	}
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.ProjectRoot, p)
	}
	c.RulesDir = abs(c.RulesDir)
	c.LicensesDir = abs(c.LicensesDir)
	if c.DBPath == "" {
		c.DBPath = NewPaths(c.ProjectRoot).DB
	}
	c.DBPath = abs(c.DBPath)
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ReloadInterval <= 0 {
		c.ReloadInterval = DefaultReloadInterval
	}
	return c, nil
}

// YAML renders the configuration in config file form.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
