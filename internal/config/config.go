package config

import (
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName          = "noisegate"
	defaultTimezone  = "UTC"
	defaultInterval  = time.Hour
	defaultTimeout   = 30 * time.Second
	configPathEnv    = "NOISEGATE_CONFIG"
	databaseDriver   = "DATABASE_DRIVER"
	databaseDSNEnv   = "DATABASE_DSN"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	mlAPIKeyEnv      = "ML_API_KEY"
	providerEnv      = "CLASSIFIER_PROVIDER"
	logLevelEnv      = "LOG_LEVEL"
	httpAddrEnv      = "HTTP_ADDR"
	ProviderOpenAI   = "openai"
	ProviderML       = "ml"
	DriverSQLite     = "sqlite"
	DriverPostgres   = "postgres"
	defaultLogLevel  = "info"
	defaultHTTPAddr  = "127.0.0.1:8080"
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Logging    LoggingConfig    `yaml:"logging"`
	Classifier ClassifierConfig `yaml:"classifier"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ML         MLConfig         `yaml:"ml"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	HTTP       HTTPConfig       `yaml:"http"`
	Feeds      []FeedConfig     `yaml:"feeds"`
}

// DatabaseConfig selects the storage driver. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often the ingest and classify pipeline runs.
type SchedulerConfig struct {
	Interval string         `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// IntervalDuration parses Interval, falling back to one hour.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	return parseDuration(s.Interval, defaultInterval)
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ClassifierConfig picks the classification backend: "openai" or "ml".
type ClassifierConfig struct {
	Provider string `yaml:"provider"`
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MLConfig describes the self-hosted inference service.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// FetcherConfig bounds feed downloads.
type FetcherConfig struct {
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses Timeout, falling back to thirty seconds.
func (f FetcherConfig) TimeoutDuration() time.Duration {
	return parseDuration(f.Timeout, defaultTimeout)
}

// HTTPConfig configures the preview/classify API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// FeedConfig is a single subscribed feed.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Credential returns the API key of the selected classifier provider, or ""
// for an unknown provider.
func (c Config) Credential() string {
	switch c.Classifier.Provider {
	case ProviderML:
		return c.ML.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	default:
		return ""
	}
}

// DefaultConfigPath is where Load looks when neither a flag nor the env var names a file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultDatabasePath is the SQLite file used when no DSN is configured.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// Load reads YAML configuration (if present) and applies environment overrides.
// path wins over NOISEGATE_CONFIG, which wins over the XDG default location.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath()); err == nil {
			path = DefaultConfigPath()
		}
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	cfg.bindTimezone()
	cfg.Feeds = validFeeds(cfg.Feeds)

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.ML.APIKey = v
	}
	if v := os.Getenv(providerEnv); v != "" {
		c.Classifier.Provider = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	case "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Database.Driver = DriverPostgres
	default:
		log.Printf("config: unknown database driver %q, reverting to %s", c.Database.Driver, DriverSQLite)
		c.Database.Driver = DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = DefaultDatabasePath()
	}

	c.Classifier.Provider = strings.ToLower(strings.TrimSpace(c.Classifier.Provider))
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = ProviderOpenAI
	}
	if c.Classifier.Provider != ProviderOpenAI && c.Classifier.Provider != ProviderML {
		log.Printf("config: unknown classifier provider %q, classification runs will fail", c.Classifier.Provider)
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func validFeeds(feeds []FeedConfig) []FeedConfig {
	out := make([]FeedConfig, 0, len(feeds))
	for i, f := range feeds {
		u, err := url.Parse(strings.TrimSpace(f.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			log.Printf("config: feed %d (%s): invalid url %q, skipping", i, f.Name, f.URL)
			continue
		}
		f.URL = u.String()
		if f.Name == "" {
			f.Name = u.Host
		}
		out = append(out, f)
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
		base.Database.DSN = ""
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Classifier.Provider != "" {
		base.Classifier.Provider = override.Classifier.Provider
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}

	if override.Fetcher.Timeout != "" {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		log.Printf("config: invalid duration %q, using %s", value, fallback)
		return fallback
	}
	return d
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:   DatabaseConfig{Driver: DriverSQLite},
		Scheduler:  SchedulerConfig{Interval: defaultInterval.String(), Timezone: defaultTimezone, location: tz},
		Logging:    LoggingConfig{Level: defaultLogLevel},
		Classifier: ClassifierConfig{Provider: ProviderOpenAI},
		OpenAI: OpenAIConfig{
			Endpoint: defaultOpenAIURL,
			Model:    "gpt-4o-mini",
		},
		ML:      MLConfig{InferenceURL: "http://127.0.0.1:8000"},
		Fetcher: FetcherConfig{Timeout: defaultTimeout.String()},
		HTTP:    HTTPConfig{Addr: defaultHTTPAddr},
		Feeds: []FeedConfig{
			{Name: "hacker-news", URL: "https://hnrss.org/frontpage"},
			{Name: "bbc-world", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
		},
	}
}
