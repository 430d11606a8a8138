// Package config loads and validates racewatch configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DuplicatePolicy decides what happens to a target whose document is
// byte-identical to one already fetched this run.
type DuplicatePolicy string

// Supported duplicate-document policies.
const (
	// DuplicateComplete marks the later target processed with an
	// empty staged result set.
	DuplicateComplete DuplicatePolicy = "complete"
	// DuplicateDefer leaves the later target untouched so a future
	// run can attempt it against possibly changed content.
	DuplicateDefer DuplicatePolicy = "defer"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Targets   TargetsConfig   `mapstructure:"targets"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DataConfig sets the paths of the durable and transient artifacts.
type DataConfig struct {
	TargetsPath  string `mapstructure:"targets_path"`
	CriteriaPath string `mapstructure:"criteria_path"`
	StagingDir   string `mapstructure:"staging_dir"`
	MasterPath   string `mapstructure:"master_path"`
}

// HTTPConfig configures the document-download client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyMB      int    `mapstructure:"max_body_mb"`
}

// ExtractorConfig selects and configures the extraction service handle.
type ExtractorConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// CrawlerConfig governs the per-run scheduling pass.
type CrawlerConfig struct {
	DuplicatePolicy string `mapstructure:"duplicate_policy"`
}

// TargetsConfig drives crawl-target generation from an event calendar.
type TargetsConfig struct {
	CalendarPath  string `mapstructure:"calendar_path"`
	URLTemplate   string `mapstructure:"url_template"`
	IDPrefix      string `mapstructure:"id_prefix"`
	NumberColumn  string `mapstructure:"number_column"`
	DateColumn    string `mapstructure:"date_column"`
	PrefetchDedup bool   `mapstructure:"prefetch_dedup"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RACEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.targets_path", "data/crawl_targets.json")
	v.SetDefault("data.criteria_path", "data/monitoring_targets.json")
	v.SetDefault("data.staging_dir", "data/staging")
	v.SetDefault("data.master_path", "data/results.csv")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "racewatch-bot/0.1")
	v.SetDefault("http.max_body_mb", 32)
	v.SetDefault("extractor.provider", "dryrun")
	v.SetDefault("extractor.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("extractor.model", "gemini-1.5-flash")
	v.SetDefault("crawler.duplicate_policy", string(DuplicateComplete))
	v.SetDefault("targets.number_column", "V-Nr")
	v.SetDefault("targets.date_column", "Datum")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Data.TargetsPath == "" {
		return fmt.Errorf("data.targets_path must be set")
	}
	if c.Data.StagingDir == "" {
		return fmt.Errorf("data.staging_dir must be set")
	}
	if c.Data.MasterPath == "" {
		return fmt.Errorf("data.master_path must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Extractor.Provider {
	case "gemini":
		if c.Extractor.APIKey == "" {
			return fmt.Errorf("extractor.api_key must be set when provider is gemini")
		}
		if c.Extractor.Model == "" {
			return fmt.Errorf("extractor.model must be set when provider is gemini")
		}
	case "dryrun":
	default:
		return fmt.Errorf("extractor.provider must be one of gemini, dryrun")
	}
	switch DuplicatePolicy(c.Crawler.DuplicatePolicy) {
	case DuplicateComplete, DuplicateDefer:
	default:
		return fmt.Errorf("crawler.duplicate_policy must be one of complete, defer")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// MaxBodyBytes returns the download size cap in bytes.
func (c Config) MaxBodyBytes() int64 {
	return int64(c.HTTP.MaxBodyMB) << 20
}
