package model

import (
	"fmt"
	"sort"
	"time"
)

// Config is the full application configuration. It is loaded once at startup,
// validated, and never mutated afterwards.
type Config struct {
	Schedule  ScheduleConfig  `mapstructure:"schedule" yaml:"schedule"`
	Keywords  []string        `mapstructure:"keywords" yaml:"keywords"`
	Rules     []MatchRule     `mapstructure:"rules" yaml:"rules"`
	Sections  []string        `mapstructure:"sections" yaml:"sections"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ScheduleConfig controls the daily watch trigger.
type ScheduleConfig struct {
	Time     string `mapstructure:"time" yaml:"time"`         // "HH:MM", local time
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // informational
}

// StorageConfig controls the match store.
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// HTTPConfig controls the content fetcher.
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
	ThrottleMin       time.Duration `mapstructure:"throttle_min" yaml:"throttle_min"`
	ThrottleMax       time.Duration `mapstructure:"throttle_max" yaml:"throttle_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	RespectRobots     bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	Proxy             string        `mapstructure:"proxy" yaml:"proxy"`
}

// DiscoveryConfig controls the URL discoverer.
type DiscoveryConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	PrefilterTitles bool          `mapstructure:"prefilter_titles" yaml:"prefilter_titles"`
	ListingCacheTTL time.Duration `mapstructure:"listing_cache_ttl" yaml:"listing_cache_ttl"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
	File   string `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns the built-in defaults. The HTTP header set and
// throttle window imitate a regular browser session because the gazette
// portal rejects obvious non-browser clients.
func DefaultConfig() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Time:     "06:00",
			Timezone: "America/Sao_Paulo",
		},
		Sections: []string{"dou1", "dou2", "dou3"},
		Storage: StorageConfig{
			OutputDir: "data",
		},
		HTTP: HTTPConfig{
			Timeout:           60 * time.Second,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxBodyBytes:      8_000_000,
			MaxAttempts:       3,
			RetryBaseDelay:    2 * time.Second,
			RetryMaxDelay:     10 * time.Second,
			ThrottleMin:       5 * time.Second,
			ThrottleMax:       12 * time.Second,
			RequestsPerSecond: 1,
			Burst:             1,
		},
		Discovery: DiscoveryConfig{
			BaseURL:         "https://www.in.gov.br",
			ListingCacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for fatal problems. A failure here aborts
// the run before any network or filesystem work happens.
func (c *Config) Validate() error {
	if c.Schedule.Time != "" {
		var h, m int
		if _, err := fmt.Sscanf(c.Schedule.Time, "%d:%d", &h, &m); err != nil {
			return fmt.Errorf("invalid schedule time %q: %w", c.Schedule.Time, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return fmt.Errorf("invalid schedule time %q: out of range", c.Schedule.Time)
		}
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	if c.Discovery.BaseURL == "" {
		return fmt.Errorf("discovery.base_url must not be empty")
	}
	if c.HTTP.MaxAttempts < 1 {
		return fmt.Errorf("http.max_attempts must be at least 1")
	}
	if c.HTTP.ThrottleMax < c.HTTP.ThrottleMin {
		return fmt.Errorf("http.throttle_max must not be below http.throttle_min")
	}
	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// HasWork reports whether at least one keyword or rule is configured.
func (c *Config) HasWork() bool {
	return len(c.Keywords) > 0 || len(c.Rules) > 0
}

// TargetSections returns the sorted union of the globally active sections and
// every section named by a rule. Deterministic order keeps append logs stable
// across runs over frozen input.
func (c *Config) TargetSections() []string {
	set := make(map[string]bool)
	for _, s := range c.Sections {
		set[s] = true
	}
	for _, r := range c.Rules {
		for _, s := range r.Sections {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RulesForSection returns the rules applicable to a section. A rule with no
// section restriction applies everywhere.
func (c *Config) RulesForSection(section string) []MatchRule {
	var out []MatchRule
	for _, r := range c.Rules {
		if r.AppliesTo(section) {
			out = append(out, r)
		}
	}
	return out
}
