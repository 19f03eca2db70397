package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage douwatch configuration",
	Long: `Manage douwatch configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (DOUWATCH_*)
3. Config file (./config.yaml or ~/.douwatch/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a documented default config.yaml to the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", path)
		fmt.Printf("\nEdit the keywords and rules sections, then try:\n")
		fmt.Printf("  douwatch run --dry-run --no-delay\n\n")
		return nil
	},
}

const defaultConfigTemplate = `# douwatch configuration
#
# Hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (DOUWATCH_*)
#   3. This config file
#   4. Built-in defaults

schedule:
  time: "06:00"
  timezone: "America/Sao_Paulo"

# Simple keywords: accent/case-insensitive substring search on article bodies.
keywords:
  - "funai"
  - "fundação nacional dos povos indígenas"

# Composite rules: optional title gate (any title_term must appear in the
# title) combined with a body search. A rule without body_terms fires once
# per article on the title alone.
rules:
  - name: "Força Nacional"
    title_terms: ["PORTARIA MJSP"]
    body_terms: ["força nacional"]
    sections: ["dou1"]

# Globally active gazette sections.
sections: ["dou1", "dou2", "dou3"]

storage:
  output_dir: "data"

http:
  timeout: 60s
  max_attempts: 3
  retry_base_delay: 2s
  retry_max_delay: 10s
  # Randomized per-request delay; keeps the request rate polite.
  throttle_min: 5s
  throttle_max: 12s
  requests_per_second: 1
  burst: 1
  respect_robots: false

discovery:
  base_url: "https://www.in.gov.br"
  # Skip downloading articles whose URL slug matches no rule title term.
  prefilter_titles: false
  listing_cache_ttl: 10m

logging:
  level: "info"
  format: "json"
  file: ""
`

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
