package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the reag server configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
	Query    QueryConfig    `yaml:"query"`
	Budget   BudgetConfig   `yaml:"budget"`
	Database DatabaseConfig `yaml:"database"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds reasoning engine settings.
type EngineConfig struct {
	Provider          string  `yaml:"provider"` // openai (default), anthropic
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	FiltrationModel   string  `yaml:"filtration_model"` // empty: single-stage
	System            string  `yaml:"system"`
	BatchSize         int     `yaml:"batch_size"`
	MaxTokens         int     `yaml:"max_tokens"`
	MaxRetries        int     `yaml:"max_retries"`
	Temperature       float32 `yaml:"temperature"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
}

// QueryConfig holds query pipeline settings.
type QueryConfig struct {
	IrrelevantPolicy string `yaml:"irrelevant_policy"` // drop (default), annotate
	Instructions     string `yaml:"instructions"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is configured.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// DatabaseConfig holds the optional Redis connection used for budget counters.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Reasoning over a batch of documents is slow.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Provider == "" {
		c.Engine.Provider = "openai"
	}
	if c.Engine.BatchSize <= 0 {
		c.Engine.BatchSize = 20
	}
	if c.Engine.MaxRetries < 0 {
		c.Engine.MaxRetries = 0
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 60
	}
	if c.Query.IrrelevantPolicy == "" {
		c.Query.IrrelevantPolicy = "drop"
	}
	if c.Budget.Action == "" {
		c.Budget.Action = "warn"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("engine.provider must be \"openai\" or \"anthropic\", got %q", c.Engine.Provider)
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine.model is required")
	}
	if c.Engine.RequestsPerSecond < 0 {
		return fmt.Errorf("engine.requests_per_second must not be negative, got %g", c.Engine.RequestsPerSecond)
	}
	switch c.Query.IrrelevantPolicy {
	case "drop", "annotate":
	default:
		return fmt.Errorf("query.irrelevant_policy must be \"drop\" or \"annotate\", got %q", c.Query.IrrelevantPolicy)
	}
	switch c.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("budget.action must be \"warn\" or \"reject\", got %q", c.Budget.Action)
	}
	if c.Budget.DailyTokenLimit < 0 || c.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("budget limits must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
