package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Doudousmyle42/mangatracker/internal/providers/generic"
)

const EnvPrefix = "MANGATRACKER"

type RenderConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	ExecPath       string `yaml:"exec_path" mapstructure:"exec_path"`
	Headless       bool   `yaml:"headless" mapstructure:"headless"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	SettleMillis   int    `yaml:"settle_millis" mapstructure:"settle_millis"`
}

type Config struct {
	Database         string `yaml:"database" mapstructure:"database"`
	Debug            bool   `yaml:"debug" mapstructure:"debug"`
	LogFile          string `yaml:"log_file" mapstructure:"log_file"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass" mapstructure:"cloudflare_bypass"`
	RefreshWorkers   int    `yaml:"refresh_workers" mapstructure:"refresh_workers"`
	Listen           string `yaml:"listen" mapstructure:"listen"`
	PreviewCacheSize int    `yaml:"preview_cache_size" mapstructure:"preview_cache_size"`

	Render RenderConfig  `yaml:"render" mapstructure:"render"`
	Rules  generic.Rules `yaml:"rules,omitempty" mapstructure:"rules"`
}

// Options are command line overrides; zero values leave the file alone.
type Options struct {
	IgnoreConfig bool
	Debug        bool
	Database     string
	Listen       string
	Workers      int
	Render       bool
	UserAgent    string
}

func DefaultConfig() *Config {
	return &Config{
		Database:         filepath.Join(ConfigRoot(), "manga.db"),
		TimeoutSeconds:   30,
		CloudflareBypass: false,
		RefreshWorkers:   4,
		Listen:           "127.0.0.1:8080",
		PreviewCacheSize: 128,
		Render: RenderConfig{
			Enabled:        true,
			Headless:       true,
			TimeoutSeconds: 45,
			SettleMillis:   2000,
		},
		Rules: generic.DefaultRules(),
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSeconds) * time.Second
}

func (c *Config) RenderSettle() time.Duration {
	return time.Duration(c.Render.SettleMillis) * time.Millisecond
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database", d.Database)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("timeout_seconds", d.TimeoutSeconds)
	v.SetDefault("cloudflare_bypass", d.CloudflareBypass)
	v.SetDefault("refresh_workers", d.RefreshWorkers)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("preview_cache_size", d.PreviewCacheSize)
	v.SetDefault("render.enabled", d.Render.Enabled)
	v.SetDefault("render.exec_path", d.Render.ExecPath)
	v.SetDefault("render.headless", d.Render.Headless)
	v.SetDefault("render.timeout_seconds", d.Render.TimeoutSeconds)
	v.SetDefault("render.settle_millis", d.Render.SettleMillis)
}

// load reads path (if any) on top of the defaults. MANGATRACKER_* variables
// override both, e.g. MANGATRACKER_RENDER_ENABLED=false.
func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg, err := load("")
		if err != nil {
			return nil, "", err
		}
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", cfg.Validate()
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg, err := load("")
		if err != nil {
			return nil, "", err
		}
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `mangatracker config init` to create an actual config\n", cfg.Validate()
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := load(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, cfg.Validate()
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Workers != 0 {
		c.RefreshWorkers = o.Workers
	}
	if o.Render {
		c.Render.Enabled = true
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
}

func normalizeDefaults(c *Config) {
	if c.Database == "" {
		c.Database = DefaultConfig().Database
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	c.Rules = c.Rules.WithDefaults()
}

// Validate rejects values that would stall or disable the pipeline.
func (c *Config) Validate() error {
	switch {
	case c.TimeoutSeconds <= 0:
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	case c.RefreshWorkers <= 0:
		return fmt.Errorf("refresh_workers must be positive, got %d", c.RefreshWorkers)
	case c.Render.TimeoutSeconds <= 0:
		return fmt.Errorf("render.timeout_seconds must be positive, got %d", c.Render.TimeoutSeconds)
	case c.Render.SettleMillis < 0:
		return fmt.Errorf("render.settle_millis must not be negative, got %d", c.Render.SettleMillis)
	case c.PreviewCacheSize < 0:
		return fmt.Errorf("preview_cache_size must not be negative, got %d", c.PreviewCacheSize)
	}

	return nil
}

func (c *Config) Print() {
	fmt.Printf(" -database: %s\n", c.Database)
	fmt.Printf(" -timeout_seconds: %d\n", c.TimeoutSeconds)
	fmt.Printf(" -refresh_workers: %d\n", c.RefreshWorkers)
	fmt.Printf(" -listen: %s\n", c.Listen)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.LogFile != "" {
		fmt.Printf(" -log_file: %s\n", c.LogFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	fmt.Printf(" -render: enabled=%t headless=%t timeout=%ds settle=%dms\n",
		c.Render.Enabled, c.Render.Headless, c.Render.TimeoutSeconds, c.Render.SettleMillis)
	if c.Render.ExecPath != "" {
		fmt.Printf(" -render.exec_path: %s\n", c.Render.ExecPath)
	}
	fmt.Printf(" -rules: %d cover selectors, %d synopsis selectors, %d chrome patterns\n",
		len(c.Rules.CoverSelectors), len(c.Rules.SynopsisSelectors), len(c.Rules.ChromePatterns))
}
