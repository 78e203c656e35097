package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	TrueNAS    TrueNASConfig    `yaml:"truenas"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Ledger     LedgerConfig     `yaml:"ledger"`
}

// TrueNASConfig contains appliance connection settings
type TrueNASConfig struct {
	URL                string   `yaml:"url"`
	User               string   `yaml:"user"`
	Password           string   `yaml:"password"`
	Timeout            Duration `yaml:"timeout"` // HTTP timeout per request, 0s = none
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"` // "" disables the history ledger
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return strings.ToLower(c.Level)
}

// ReconcilerConfig contains reconciler settings
type ReconcilerConfig struct {
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // resources reconciled per second
}

// LedgerConfig contains history retention settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(nil)
	return cfg
}

// Load reads and parses the configuration file. A missing file yields the
// defaults when optional is true.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(expanded), &node); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults(&node)

	if err := cfg.validateLedger(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults(node *yaml.Node) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !isSet(node, "log", "colors") {
		cfg.Log.Colors = true
	}

	// TrueNAS defaults
	if cfg.TrueNAS.User == "" {
		cfg.TrueNAS.User = "root"
	}
	if !isSet(node, "truenas", "timeout") {
		cfg.TrueNAS.Timeout = Duration(30 * time.Second)
	}

	if !isSet(node, "database", "path") {
		cfg.Database.Path = "./truenasctl.sqlite"
	}

	// Reconciler defaults
	if cfg.Reconciler.RateLimitRPS == 0 {
		cfg.Reconciler.RateLimitRPS = 5.0
	}

	// Ledger defaults
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 90
	}
}

// Validate checks the connection settings are usable.
func (cfg *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(cfg.TrueNAS.URL) == "" {
		missing = append(missing, "truenas.url")
	}
	if cfg.TrueNAS.Password == "" {
		missing = append(missing, "truenas.password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(cfg.TrueNAS.URL, "http://") && !strings.HasPrefix(cfg.TrueNAS.URL, "https://") {
		return fmt.Errorf("truenas.url must start with http:// or https://, got %q", cfg.TrueNAS.URL)
	}
	return cfg.validateLedger()
}

func (cfg *Config) validateLedger() error {
	if cfg.Ledger.RetentionDays < 0 {
		return fmt.Errorf("ledger.retention_days must not be negative, got %d", cfg.Ledger.RetentionDays)
	}
	return nil
}

// isSet reports whether a nested mapping key is present in the document,
// so that explicit zero values (timeout: 0s, path: "") are kept.
func isSet(node *yaml.Node, path ...string) bool {
	if node == nil {
		return false
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range path {
		if node.Kind != yaml.MappingNode {
			return false
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return false
		}
		node = next
	}
	return true
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
