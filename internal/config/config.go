package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Engine    EngineConfig    `yaml:"engine"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // sqlite directory
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// EngineConfig tunes rep counting. DebounceMS and MinVisibility are pointers
// so an explicit 0 is told apart from an unset key and rejected.
type EngineConfig struct {
	WindowSize    int      `yaml:"window_size"`
	DebounceMS    *int     `yaml:"debounce_ms"`
	MinVisibility *float64 `yaml:"min_visibility"`
}

type SessionsConfig struct {
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	Record            bool          `yaml:"record"`
	MaxRecordedFrames int           `yaml:"max_recorded_frames"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Options converts the engine section to engine tuning.
func (e EngineConfig) Options() engine.Options {
	opts := engine.Options{WindowSize: e.WindowSize}
	if e.DebounceMS != nil {
		opts.Debounce = time.Duration(*e.DebounceMS) * time.Millisecond
	}
	if e.MinVisibility != nil {
		opts.MinVisibility = *e.MinVisibility
	}
	return opts
}

// Load reads config from a YAML file, then applies defaults and environment
// variable overrides. Env vars use the prefix REPCOACH_:
//
//	REPCOACH_SERVER_HOST, REPCOACH_SERVER_PORT,
//	REPCOACH_DB_DRIVER, REPCOACH_DB_HOST, REPCOACH_DB_PORT, REPCOACH_DB_NAME,
//	REPCOACH_DB_USER, REPCOACH_DB_PASSWORD, REPCOACH_DB_SSLMODE, REPCOACH_DB_PATH,
//	REPCOACH_AUTH_API_KEY, REPCOACH_TAILSCALE_ENABLED,
//	REPCOACH_ENGINE_DEBOUNCE_MS, REPCOACH_SESSIONS_RECORD
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Engine.WindowSize == 0 {
		cfg.Engine.WindowSize = engine.DefaultWindowSize
	}
	if cfg.Engine.DebounceMS == nil {
		ms := int(engine.DefaultDebounce / time.Millisecond)
		cfg.Engine.DebounceMS = &ms
	}
	if cfg.Engine.MinVisibility == nil {
		v := engine.DefaultMinVisibility
		cfg.Engine.MinVisibility = &v
	}
	if cfg.Sessions.IdleTimeout == 0 {
		cfg.Sessions.IdleTimeout = 10 * time.Minute
	}
	if cfg.Sessions.MaxRecordedFrames == 0 {
		cfg.Sessions.MaxRecordedFrames = 18000 // 10 minutes at 30 fps
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "repcoach"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPCOACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPCOACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPCOACH_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("REPCOACH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REPCOACH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("REPCOACH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REPCOACH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("REPCOACH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REPCOACH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("REPCOACH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REPCOACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPCOACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("REPCOACH_ENGINE_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Engine.DebounceMS = &ms
		}
	}
	if v := os.Getenv("REPCOACH_SESSIONS_RECORD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sessions.Record = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	if c.Engine.WindowSize < 1 {
		return fmt.Errorf("engine.window_size must be positive")
	}
	if *c.Engine.DebounceMS < 1 {
		return fmt.Errorf("engine.debounce_ms must be positive")
	}
	if v := *c.Engine.MinVisibility; v <= 0 || v > 1 {
		return fmt.Errorf("engine.min_visibility must be within (0,1]")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}
