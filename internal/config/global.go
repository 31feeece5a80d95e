package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/relgraph/internal/layout"
)

// Environment variables that override the global config file.
const (
	EnvAPIURL    = "RELGRAPH_API_URL"
	EnvAPIKey    = "RELGRAPH_API_KEY"
	EnvMinWeight = "RELGRAPH_MIN_WEIGHT"
	EnvLogLevel  = "RELGRAPH_LOG_LEVEL"
)

var (
	// ErrNoWorkspace is returned when no .relgraph directory is found.
	ErrNoWorkspace = errors.New("not in a relgraph workspace")

	// ErrInvalidConfig wraps parse and validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LayoutOverrides replaces individual layout constants. Zero values leave
// the default in place.
type LayoutOverrides struct {
	Width           float64 `yaml:"width,omitempty"`
	Height          float64 `yaml:"height,omitempty"`
	NodeRadius      float64 `yaml:"node_radius,omitempty"`
	CollisionMargin float64 `yaml:"collision_margin,omitempty"`
	LinkDistanceMax float64 `yaml:"link_distance_max,omitempty"`
	ChargeStrength  float64 `yaml:"charge_strength,omitempty"`
	ClusterStrength float64 `yaml:"cluster_strength,omitempty"`
	AlphaDecay      float64 `yaml:"alpha_decay,omitempty"`
	AlphaMin        float64 `yaml:"alpha_min,omitempty"`
	SettleTimeout   string  `yaml:"settle_timeout,omitempty"`
	Seed            int64   `yaml:"seed,omitempty"`
}

// Apply returns cfg with the overrides applied.
func (o LayoutOverrides) Apply(cfg layout.Config) (layout.Config, error) {
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&cfg.Width, o.Width)
	set(&cfg.Height, o.Height)
	set(&cfg.NodeRadius, o.NodeRadius)
	set(&cfg.CollisionMargin, o.CollisionMargin)
	set(&cfg.LinkDistanceMax, o.LinkDistanceMax)
	set(&cfg.ChargeStrength, o.ChargeStrength)
	set(&cfg.ClusterStrength, o.ClusterStrength)
	set(&cfg.AlphaDecay, o.AlphaDecay)
	set(&cfg.AlphaMin, o.AlphaMin)
	if o.SettleTimeout != "" {
		d, err := time.ParseDuration(o.SettleTimeout)
		if err != nil {
			return cfg, fmt.Errorf("%w: layout.settle_timeout: %v", ErrInvalidConfig, err)
		}
		cfg.SettleTimeout = d
	}
	if o.Seed != 0 {
		cfg.Seed = o.Seed
	}
	return cfg, nil
}

// GlobalConfig represents configuration stored in ~/.config/relgraph/config.yml.
type GlobalConfig struct {
	APIURL        string          `yaml:"api_url,omitempty"`
	APIKey        string          `yaml:"api_key,omitempty"`
	WorkspacePath string          `yaml:"workspace_path,omitempty"`
	MinWeight     float64         `yaml:"min_weight,omitempty"`
	LogLevel      string          `yaml:"log_level,omitempty"`
	ListenAddr    string          `yaml:"listen_addr,omitempty"`
	Layout        LayoutOverrides `yaml:"layout,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "relgraph"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// DefaultListenAddr is used by serve when nothing else is configured.
	DefaultListenAddr = "127.0.0.1:8080"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/relgraph/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file from its default
// location and applies environment overrides.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}
	cfg, err := LoadGlobalConfigFrom(GlobalConfigPath())
	if err != nil {
		return nil, err
	}
	globalConfigCache = cfg
	return cfg, nil
}

// LoadGlobalConfigFrom loads the config at path and applies environment
// overrides. An empty path or a missing file yields the overrides alone.
func LoadGlobalConfigFrom(path string) (*GlobalConfig, error) {
	cfg := &GlobalConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.WorkspacePath != "" {
		cfg.WorkspacePath = ExpandPath(cfg.WorkspacePath)
	}
	if cfg.MinWeight < 0 {
		return nil, fmt.Errorf("%w: min_weight must be >= 0", ErrInvalidConfig)
	}
	return cfg, nil
}

func (c *GlobalConfig) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMinWeight); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvMinWeight, err)
		}
		c.MinWeight = w
	}
	return nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// ListenAddrOrDefault returns the configured listen address.
func (c *GlobalConfig) ListenAddrOrDefault() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return DefaultListenAddr
}

// LayoutConfig returns the engine configuration with overrides applied.
func (c *GlobalConfig) LayoutConfig() (layout.Config, error) {
	return c.Layout.Apply(layout.DefaultConfig())
}

// HelpfulConfigMessage returns a helpful message when no data source is configured.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No graph source configured.

Tip: Create %s to set the API endpoint:
  mkdir -p %s
  echo 'api_url: https://example.org/api' > %s

Or set %s, or run inside a workspace created with 'relgraph fetch --save'.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvAPIURL)
}
