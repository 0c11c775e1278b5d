// Package config loads server configuration from an optional YAML file and
// the environment. Environment variables always win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Session    SessionConfig    `yaml:"session"`
	Generation GenerationConfig `yaml:"generation"`
	Mail       MailConfig       `yaml:"mail"`
	Google     GoogleConfig     `yaml:"google"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port            string   `yaml:"port"`
	Env             string   `yaml:"env"`
	FrontendOrigins []string `yaml:"frontend_origins"`
	UploadDir       string   `yaml:"upload_dir"`
}

type DatabaseConfig struct {
	// URL is a postgres connection string. Empty selects SQLite at SQLitePath.
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

type SessionConfig struct {
	Secret    string `yaml:"secret"`
	RedisAddr string `yaml:"redis_addr"`
	TTLHours  int    `yaml:"ttl_hours"`
}

type GenerationConfig struct {
	Provider        string `yaml:"provider"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	From           string `yaml:"from"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

var ValidProviders = []string{"auto", "gemini", "anthropic", "none"}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5050",
			Env:             "development",
			FrontendOrigins: []string{"http://localhost:5173"},
			UploadDir:       "uploads",
		},
		Database: DatabaseConfig{SQLitePath: "bizpilot.db"},
		Session:  SessionConfig{Secret: "dev_secret_change_me", TTLHours: 24 * 7},
		Generation: GenerationConfig{
			Provider:       "auto",
			GeminiModel:    "gemini-1.5-flash",
			TimeoutSeconds: 60,
		},
		Mail:      MailConfig{From: "no-reply@bizpilot.local"},
		Telemetry: TelemetryConfig{ServiceName: "bizpilot"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Server.Env, "APP_ENV", "NODE_ENV")
	set(&c.Server.UploadDir, "UPLOAD_DIR")
	if v := getenv("FRONTEND_ORIGIN"); strings.TrimSpace(v) != "" {
		c.Server.FrontendOrigins = splitList(v)
	}
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Database.SQLitePath, "SQLITE_PATH")
	set(&c.Session.Secret, "SESSION_SECRET")
	set(&c.Session.RedisAddr, "REDIS_ADDR")
	set(&c.Generation.Provider, "GENERATION_PROVIDER")
	set(&c.Generation.GeminiAPIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_API_TOKEN")
	set(&c.Generation.GeminiModel, "GEMINI_MODEL")
	set(&c.Generation.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	set(&c.Generation.AnthropicModel, "ANTHROPIC_MODEL")
	set(&c.Mail.SendGridAPIKey, "SENDGRID_API_KEY")
	set(&c.Mail.From, "EMAIL_FROM")
	set(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	set(&c.Google.CallbackURL, "GOOGLE_CALLBACK_URL")
	set(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	set(&c.Log.Mode, "LOG_MODE")
	set(&c.Log.Level, "LOG_LEVEL")

	if v := strings.TrimSpace(getenv("GENERATION_TIMEOUT_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GENERATION_TIMEOUT_SECONDS: %w", err)
		}
		c.Generation.TimeoutSeconds = n
	}
	if v := strings.TrimSpace(getenv("OTEL_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = b
	}
	if v := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
		c.Telemetry.Insecure = b
	}
	if c.Log.Mode == "" {
		c.Log.Mode = c.Server.Env
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Generation.TimeoutSeconds < 0 {
		return fmt.Errorf("generation timeout must not be negative, got %d", c.Generation.TimeoutSeconds)
	}
	if c.Session.TTLHours < 0 {
		return fmt.Errorf("session ttl must not be negative, got %d", c.Session.TTLHours)
	}
	p := strings.ToLower(c.Generation.Provider)
	for _, v := range ValidProviders {
		if p == v || p == "" {
			return nil
		}
	}
	return fmt.Errorf("invalid generation provider: %s (valid: %v)", c.Generation.Provider, ValidProviders)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Addr accepts either a bare port or a host:port.
func (c *Config) Addr() string {
	p := strings.TrimSpace(c.Server.Port)
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

// GenerationTimeout returns the per-call timeout. Zero means the default.
func (c *Config) GenerationTimeout() time.Duration {
	if c.Generation.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func (c *Config) GoogleOAuthEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
