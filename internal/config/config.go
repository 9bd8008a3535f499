package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	CORS          CORSConfig
	Database      DatabaseConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// ErrorStatus switches failures from the always-200 envelope to
	// standard HTTP status codes.
	ErrorStatus bool
	ServeUI     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	DSN             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// ConnectionString returns the explicit DSN when set, otherwise a postgres
// URL assembled from the individual connection fields. DuckDB uses the DSN
// as a database file path; an empty DSN opens an in-memory database.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" || c.Driver == DriverDuckDB {
		return c.DSN
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Dialect names the SQL dialect the model is asked to produce.
func (c DatabaseConfig) Dialect() string {
	if c.Driver == DriverDuckDB {
		return "DuckDB"
	}
	return "PostgreSQL"
}

type AIConfig struct {
	Provider        string
	BaseURL         string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Model           string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	StripMarkdown   bool
}

// APIKey returns the key for the configured provider.
func (c AIConfig) APIKey() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("TEXT2SQL_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	// The driver decides the default namespace, so it is read first.
	if err := applyString(lookup, "TEXT2SQL_DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	switch cfg.Database.Driver {
	case DriverPostgres:
	case DriverDuckDB:
		cfg.Database.Schema = "main"
	default:
		return Config{}, fmt.Errorf("invalid TEXT2SQL_DB_DRIVER: %q", cfg.Database.Driver)
	}

	steps := []func() error{
		func() error { return applyString(lookup, "TEXT2SQL_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "TEXT2SQL_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "TEXT2SQL_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyBool(lookup, "TEXT2SQL_HTTP_ERROR_STATUS", &cfg.HTTP.ErrorStatus) },
		func() error { return applyBool(lookup, "TEXT2SQL_HTTP_SERVE_UI", &cfg.HTTP.ServeUI) },
		func() error { return applyList(lookup, "TEXT2SQL_CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins) },
		func() error { return applyString(lookup, "DB_HOST", &cfg.Database.Host) },
		func() error { return applyString(lookup, "DB_PORT", &cfg.Database.Port) },
		func() error { return applyString(lookup, "DB_NAME", &cfg.Database.Name) },
		func() error { return applyString(lookup, "DB_USER", &cfg.Database.User) },
		func() error { return applyRaw(lookup, "DB_PASSWORD", &cfg.Database.Password) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_SSLMODE", &cfg.Database.SSLMode) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_DSN", &cfg.Database.DSN) },
		func() error { return applyString(lookup, "TEXT2SQL_DB_SCHEMA", &cfg.Database.Schema) },
		func() error { return applyInt(lookup, "TEXT2SQL_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "TEXT2SQL_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "TEXT2SQL_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyDuration(lookup, "TEXT2SQL_DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout) },
		func() error { return applyString(lookup, "TEXT2SQL_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "TEXT2SQL_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "OPENAI_API_KEY", &cfg.AI.OpenAIAPIKey) },
		func() error { return applyString(lookup, "ANTHROPIC_API_KEY", &cfg.AI.AnthropicAPIKey) },
		func() error { return applyString(lookup, "TEXT2SQL_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "TEXT2SQL_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyInt(lookup, "TEXT2SQL_AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyDuration(lookup, "TEXT2SQL_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "TEXT2SQL_AI_STRIP_MARKDOWN", &cfg.AI.StripMarkdown) },
		func() error { return applyBool(lookup, "TEXT2SQL_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "TEXT2SQL_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.Provider != ProviderOpenAI && cfg.AI.Provider != ProviderAnthropic {
		return Config{}, fmt.Errorf("invalid TEXT2SQL_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.AI.Provider == ProviderAnthropic {
		if _, ok := lookup("TEXT2SQL_AI_MODEL"); !ok {
			cfg.AI.Model = "claude-sonnet-4-5"
		}
		if _, ok := lookup("TEXT2SQL_AI_BASE_URL"); !ok {
			cfg.AI.BaseURL = ""
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.Driver == DriverPostgres && cfg.Database.DSN == "" {
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return Config{}, fmt.Errorf("database host and name are required when TEXT2SQL_DB_DSN is not set")
		}
	}
	if cfg.Database.Schema == "" {
		return Config{}, fmt.Errorf("database schema is required")
	}
	if cfg.Database.MaxIdleConns < 0 || cfg.Database.MaxOpenConns < 0 {
		return Config{}, fmt.Errorf("database connection limits must not be negative")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "text2sql-api"},
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
			ServeUI:      true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			Host:           "localhost",
			Port:           "5432",
			Name:           "text2sql",
			User:           "postgres",
			SSLMode:        "disable",
			Schema:         "public",
			MaxOpenConns:   10,
			MaxIdleConns:   0,
			ConnectTimeout: 5 * time.Second,
		},
		AI: AIConfig{
			Provider:  ProviderOpenAI,
			BaseURL:   "https://api.openai.com",
			Model:     "gpt-3.5-turbo",
			MaxTokens: 1024,
			Timeout:   60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Database.SSLMode = "require"
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRaw keeps surrounding whitespace; passwords may legitimately carry it.
func applyRaw(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("invalid %s: at least one value is required", key)
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
