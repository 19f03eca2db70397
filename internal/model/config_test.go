package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "06:00", cfg.Schedule.Time)
	assert.Equal(t, []string{"dou1", "dou2", "dou3"}, cfg.Sections)
	assert.Equal(t, "data", cfg.Storage.OutputDir)
	assert.Equal(t, "https://www.in.gov.br", cfg.Discovery.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ThrottleMin)
	assert.Equal(t, 12*time.Second, cfg.HTTP.ThrottleMax)
	assert.Contains(t, cfg.HTTP.UserAgent, "Mozilla/5.0")

	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasWork(), "defaults ship without keywords or rules")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad schedule format", func(c *Config) { c.Schedule.Time = "morning" }, "invalid schedule time"},
		{"schedule hour out of range", func(c *Config) { c.Schedule.Time = "25:00" }, "out of range"},
		{"schedule minute out of range", func(c *Config) { c.Schedule.Time = "06:70" }, "out of range"},
		{"empty output dir", func(c *Config) { c.Storage.OutputDir = "" }, "output_dir"},
		{"empty base url", func(c *Config) { c.Discovery.BaseURL = "" }, "base_url"},
		{"zero attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }, "max_attempts"},
		{"inverted throttle window", func(c *Config) {
			c.HTTP.ThrottleMin = 10 * time.Second
			c.HTTP.ThrottleMax = 5 * time.Second
		}, "throttle_max"},
		{"unnamed rule", func(c *Config) { c.Rules = []MatchRule{{BodyTerms: []string{"x"}}} }, "empty name"},
		{"duplicate rule names", func(c *Config) {
			c.Rules = []MatchRule{{Name: "a"}, {Name: "a"}}
		}, "duplicate rule name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_EmptyScheduleTimeAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule.Time = ""
	assert.NoError(t, cfg.Validate())
}

func TestHasWork(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.HasWork())

	cfg.Keywords = []string{"funai"}
	assert.True(t, cfg.HasWork())

	cfg.Keywords = nil
	cfg.Rules = []MatchRule{{Name: "r"}}
	assert.True(t, cfg.HasWork())
}

func TestTargetSections_UnionSortedDeduped(t *testing.T) {
	cfg := &Config{
		Sections: []string{"dou3", "dou1"},
		Rules: []MatchRule{
			{Name: "a", Sections: []string{"dou1", "dou2"}},
			{Name: "b", Sections: []string{"edicao-extra"}},
		},
	}
	assert.Equal(t, []string{"dou1", "dou2", "dou3", "edicao-extra"}, cfg.TargetSections())
}

func TestRulesForSection(t *testing.T) {
	everywhere := MatchRule{Name: "global", BodyTerms: []string{"funai"}}
	only1 := MatchRule{Name: "scoped", Sections: []string{"dou1"}}
	cfg := &Config{Rules: []MatchRule{everywhere, only1}}

	assert.Equal(t, []MatchRule{everywhere, only1}, cfg.RulesForSection("dou1"))
	assert.Equal(t, []MatchRule{everywhere}, cfg.RulesForSection("dou2"))
}

func TestMatchRule_AppliesTo(t *testing.T) {
	unrestricted := MatchRule{Name: "r"}
	assert.True(t, unrestricted.AppliesTo("dou1"))
	assert.True(t, unrestricted.AppliesTo("qualquer"))

	scoped := MatchRule{Name: "r", Sections: []string{"dou1", "dou3"}}
	assert.True(t, scoped.AppliesTo("dou1"))
	assert.False(t, scoped.AppliesTo("dou2"))
}
