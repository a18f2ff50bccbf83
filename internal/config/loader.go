package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Features FeaturesConfig `mapstructure:"features"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	// Driver selects the store: postgres or memory.
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type FeaturesConfig struct {
	EnableLocks          bool   `mapstructure:"enable_locks"`
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

type EngineConfig struct {
	CascadeConcurrency int         `mapstructure:"cascade_concurrency"`
	Retry              RetryConfig `mapstructure:"retry"`
	// ReconcileRate is the number of umbrella tasks reconciled per second.
	ReconcileRate float64 `mapstructure:"reconcile_rate"`
	// SweepInterval runs a background reconcile of every umbrella task. Zero disables it.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Default returns the configuration used when a key is absent from both the
// file and the environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "okrboard",
			Name:            "okrboard",
			SSLMode:         "disable",
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		Features: FeaturesConfig{
			EnableLocks:          true,
			RequestIDHeader:      "X-Request-ID",
			EnableRequestLogging: true,
		},
		Auth: AuthConfig{
			AllowedOrigins: []string{"*"},
		},
		Engine: EngineConfig{
			CascadeConcurrency: 8,
			Retry: RetryConfig{
				MaxRetries:     3,
				InitialBackoff: 100 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
				Multiplier:     2.0,
			},
			ReconcileRate: 20,
		},
	}
}

// Load reads the YAML file at path (optional when empty) and applies
// OKRBOARD_* environment overrides on top of Default.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("OKRBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Engine.CascadeConcurrency <= 0 {
		return errors.New("config: engine.cascade_concurrency must be positive")
	}
	if c.Engine.ReconcileRate <= 0 {
		return errors.New("config: engine.reconcile_rate must be positive")
	}
	if c.Engine.SweepInterval < 0 {
		return errors.New("config: engine.sweep_interval must not be negative")
	}
	if c.Engine.Retry.MaxRetries < 0 {
		return errors.New("config: engine.retry.max_retries must not be negative")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// missing from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.encoding", d.Logger.Encoding)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)
	v.SetDefault("logger.error_output_paths", d.Logger.ErrorOutputPaths)

	v.SetDefault("features.enable_locks", d.Features.EnableLocks)
	v.SetDefault("features.request_id_header", d.Features.RequestIDHeader)
	v.SetDefault("features.enable_request_logging", d.Features.EnableRequestLogging)

	v.SetDefault("auth.admin_api_key", d.Auth.AdminAPIKey)
	v.SetDefault("auth.allowed_origins", d.Auth.AllowedOrigins)

	v.SetDefault("engine.cascade_concurrency", d.Engine.CascadeConcurrency)
	v.SetDefault("engine.retry.max_retries", d.Engine.Retry.MaxRetries)
	v.SetDefault("engine.retry.initial_backoff", d.Engine.Retry.InitialBackoff)
	v.SetDefault("engine.retry.max_backoff", d.Engine.Retry.MaxBackoff)
	v.SetDefault("engine.retry.multiplier", d.Engine.Retry.Multiplier)
	v.SetDefault("engine.reconcile_rate", d.Engine.ReconcileRate)
	v.SetDefault("engine.sweep_interval", d.Engine.SweepInterval)
}
