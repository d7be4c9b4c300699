// Package config provides YAML-based configuration loading for polyglot.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

// Translation providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the top-level polyglot configuration, loaded from polyglot.yaml.
type Config struct {
	Discord    DiscordConfig    `yaml:"discord"`
	Store      StoreConfig      `yaml:"store"`
	Translator TranslatorConfig `yaml:"translator"`
	Relay      RelayConfig      `yaml:"relay"`
	Cache      CacheConfig      `yaml:"cache"`
	Admin      AdminConfig      `yaml:"admin"`
}

// DiscordConfig holds bot credentials and the relay webhook name.
type DiscordConfig struct {
	Token       string `yaml:"token"`
	WebhookName string `yaml:"webhook_name"`
}

// StoreConfig selects and locates the link and channel store.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite
	Host     string `yaml:"host"` // mysql
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"` // mysql and mongo
	URI      string `yaml:"uri"`      // mongo
}

// TranslatorConfig selects the translation provider.
type TranslatorConfig struct {
	Provider   string  `yaml:"provider"`
	Model      string  `yaml:"model"`
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec"` // 0 disables rate limiting
	Burst      int     `yaml:"burst"`
}

// RelayConfig tunes relayed message rendering.
type RelayConfig struct {
	PreviewLength int `yaml:"preview_length"`
}

// CacheConfig controls the channel configuration caches.
type CacheConfig struct {
	FlushCron string `yaml:"flush_cron"`
}

// AdminConfig controls the admin HTTP server. Port 0 disables it.
type AdminConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Secrets missing from
// the file are taken from the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills secrets from the environment when the file leaves them out.
func (c *Config) applyEnv(getenv func(string) string) {
	if c.Discord.Token == "" {
		c.Discord.Token = getenv("DISCORD_TOKEN")
	}
	if c.Translator.APIKey == "" {
		switch c.Translator.Provider {
		case ProviderOpenAI:
			c.Translator.APIKey = getenv("OPENAI_API_KEY")
		case ProviderGemini:
			c.Translator.APIKey = getenv("GEMINI_API_KEY")
		}
	}
	if c.Store.URI == "" && c.Store.Driver == DriverMongo {
		c.Store.URI = getenv("MONGODB_URI")
	}
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Discord.WebhookName == "" {
		c.Discord.WebhookName = "polyglot"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			c.Store.Path = "polyglot.db"
		}
	case DriverMySQL:
		if c.Store.Host == "" {
			c.Store.Host = "127.0.0.1"
		}
		if c.Store.Port == 0 {
			c.Store.Port = 3306
		}
		if c.Store.Database == "" {
			c.Store.Database = "polyglot"
		}
	case DriverMongo:
		if c.Store.Database == "" {
			c.Store.Database = "polyglot"
		}
	}
	if c.Translator.Provider == "" {
		c.Translator.Provider = ProviderOpenAI
	}
	if c.Translator.RatePerSec > 0 && c.Translator.Burst == 0 {
		c.Translator.Burst = 1
	}
	if c.Relay.PreviewLength == 0 {
		c.Relay.PreviewLength = 100
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	errs := append(c.storeProblems(), c.runtimeProblems()...)
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// storeProblems covers the sections needed to open the store.
func (c *Config) storeProblems() []string {
	var errs []string
	switch c.Store.Driver {
	case DriverSQLite, DriverMySQL:
	case DriverMongo:
		if c.Store.URI == "" {
			errs = append(errs, "store.uri is required for the mongo driver (or set MONGODB_URI)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, mysql, mongo", c.Store.Driver))
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		errs = append(errs, fmt.Sprintf("admin.port %d is out of range", c.Admin.Port))
	}
	return errs
}

// runtimeProblems covers the sections only the running relay needs.
func (c *Config) runtimeProblems() []string {
	var errs []string
	if c.Discord.Token == "" {
		errs = append(errs, "discord.token is required (or set DISCORD_TOKEN)")
	}
	switch c.Translator.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.Translator.APIKey == "" {
			errs = append(errs, fmt.Sprintf("translator.api_key is required for %s", c.Translator.Provider))
		}
	default:
		errs = append(errs, fmt.Sprintf("translator.provider %q is not one of openai, gemini", c.Translator.Provider))
	}
	if c.Translator.RatePerSec < 0 {
		errs = append(errs, "translator.rate_per_sec must not be negative")
	}
	if c.Relay.PreviewLength < 0 {
		errs = append(errs, "relay.preview_length must not be negative")
	}
	if c.Cache.FlushCron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Cache.FlushCron); err != nil {
			errs = append(errs, fmt.Sprintf("cache.flush_cron: %v", err))
		}
	}
	return errs
}

// LoadStore reads a config for commands that only touch the store, such as
// migrations and topology edits. Discord and translator credentials are not
// required.
func LoadStore(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseStore(data)
}

// ParseStore is Parse without the runtime-only checks.
func ParseStore(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if errs := cfg.storeProblems(); len(errs) > 0 {
		return nil, fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return &cfg, nil
}
