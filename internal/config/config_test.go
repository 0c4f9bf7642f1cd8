package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Engine: EngineConfig{Model: "gpt-4o-mini"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown provider", func(c *Config) { c.Engine.Provider = "cohere" }, "engine.provider"},
		{"missing model", func(c *Config) { c.Engine.Model = "" }, "engine.model"},
		{"negative rps", func(c *Config) { c.Engine.RequestsPerSecond = -1 }, "requests_per_second"},
		{"unknown policy", func(c *Config) { c.Query.IrrelevantPolicy = "hide" }, "query.irrelevant_policy"},
		{"negative budget", func(c *Config) { c.Budget.DailyTokenLimit = -5 }, "budget limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_DatabaseOptional(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error without database: %v", err)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without addrs")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Engine.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %q", cfg.Engine.Provider)
	}
	if cfg.Engine.BatchSize != 20 {
		t.Errorf("expected BatchSize=20, got %d", cfg.Engine.BatchSize)
	}
	if cfg.Engine.TimeoutSec != 60 {
		t.Errorf("expected TimeoutSec=60, got %d", cfg.Engine.TimeoutSec)
	}
	if cfg.Query.IrrelevantPolicy != "drop" {
		t.Errorf("expected IrrelevantPolicy=drop, got %q", cfg.Query.IrrelevantPolicy)
	}
	if cfg.Budget.Action != "warn" {
		t.Errorf("expected Action=warn, got %q", cfg.Budget.Action)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Engine: EngineConfig{Provider: "anthropic", BatchSize: 5, TimeoutSec: 15},
		Query:  QueryConfig{IrrelevantPolicy: "annotate"},
		Budget: BudgetConfig{Action: "reject"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Engine.Provider != "anthropic" || cfg.Engine.BatchSize != 5 || cfg.Engine.TimeoutSec != 15 {
		t.Errorf("engine overridden: %+v", cfg.Engine)
	}
	if cfg.Query.IrrelevantPolicy != "annotate" {
		t.Errorf("expected IrrelevantPolicy=annotate, got %q", cfg.Query.IrrelevantPolicy)
	}
	if cfg.Budget.Action != "reject" {
		t.Errorf("expected Action=reject, got %q", cfg.Budget.Action)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("REAG_TEST_KEY", "sk-secret")

	cfg, err := Parse([]byte(`
http:
  port: ${REAG_TEST_PORT:-9090}
engine:
  api_key: ${REAG_TEST_KEY}
  model: gpt-4o
  filtration_model: gpt-4o-mini
database:
  addrs: ["localhost:6379"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want default 9090", cfg.HTTP.Port)
	}
	if cfg.Engine.APIKey != "sk-secret" {
		t.Errorf("api_key = %q", cfg.Engine.APIKey)
	}
	if cfg.Engine.FiltrationModel != "gpt-4o-mini" {
		t.Errorf("filtration_model = %q", cfg.Engine.FiltrationModel)
	}
	if !cfg.Database.Enabled() {
		t.Error("database should be enabled")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error for missing model")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := "http:\n  port: 8081\nengine:\n  provider: anthropic\n  model: claude-sonnet-4-5\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Engine.Provider != "anthropic" || cfg.HTTP.Port != 8081 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_Local(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Engine.APIKey != "sk-test" {
		t.Errorf("api_key = %q", cfg.Engine.APIKey)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}
