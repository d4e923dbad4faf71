package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	History   HistoryConfig   `mapstructure:"history"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds the request limiter settings. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// HistoryConfig describes where historical draws are read from
type HistoryConfig struct {
	Source        string   `mapstructure:"source"` // "csv" or "sqlite"
	FilePath      string   `mapstructure:"file_path"`
	MainColumns   []string `mapstructure:"main_columns"`
	SpecialColumn string   `mapstructure:"special_column"`
	DBPath        string   `mapstructure:"db_path"`
	Table         string   `mapstructure:"table"`
	OrderBy       string   `mapstructure:"order_by"`
}

// GeneratorConfig holds pick generation parameters
type GeneratorConfig struct {
	Picks       int `mapstructure:"picks"`
	PickSize    int `mapstructure:"pick_size"`
	TopMain     int `mapstructure:"top_main"`
	TopSpecial  int `mapstructure:"top_special"`
	RecentDraws int `mapstructure:"recent_draws"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from file and environment variables.
// An empty path, or a path that does not exist, yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("POWERPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Hosting platforms hand the port over as a bare PORT variable.
	if err := v.BindEnv("server.port", "POWERPICK_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind port env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.rps", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)

	// History defaults
	v.SetDefault("history.source", "csv")
	v.SetDefault("history.file_path", "src/data/CLEANED_Powerball_Numbers.csv")
	v.SetDefault("history.main_columns", []string{"Num1", "Num2", "Num3", "Num4", "Num5"})
	v.SetDefault("history.special_column", "Powerball")
	v.SetDefault("history.db_path", "./data/powerball.db")
	v.SetDefault("history.table", "draws")
	v.SetDefault("history.order_by", "rowid")

	// Generator defaults
	v.SetDefault("generator.picks", 5)
	v.SetDefault("generator.pick_size", 5)
	v.SetDefault("generator.top_main", 20)
	v.SetDefault("generator.top_special", 10)
	v.SetDefault("generator.recent_draws", 2)
	v.SetDefault("generator.max_attempts", 10000)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst < 1 {
		return fmt.Errorf("server.rate_limit.burst must be at least 1 when rate limiting is enabled")
	}

	// Validate History config
	switch c.History.Source {
	case "csv":
		if c.History.FilePath == "" {
			return fmt.Errorf("history.file_path is required for the csv source")
		}
	case "sqlite":
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path is required for the sqlite source")
		}
		if c.History.Table == "" {
			return fmt.Errorf("history.table is required for the sqlite source")
		}
	default:
		return fmt.Errorf("history.source must be one of: csv, sqlite")
	}
	if len(c.History.MainColumns) != c.Generator.PickSize {
		return fmt.Errorf("history.main_columns must list %d columns", c.Generator.PickSize)
	}
	if c.History.SpecialColumn == "" {
		return fmt.Errorf("history.special_column is required")
	}

	// Validate Generator config
	if c.Generator.Picks < 1 {
		return fmt.Errorf("generator.picks must be at least 1")
	}
	if c.Generator.PickSize < 1 {
		return fmt.Errorf("generator.pick_size must be at least 1")
	}
	if c.Generator.TopMain < c.Generator.PickSize {
		return fmt.Errorf("generator.top_main must be at least generator.pick_size")
	}
	if c.Generator.TopSpecial < 1 {
		return fmt.Errorf("generator.top_special must be at least 1")
	}
	if c.Generator.RecentDraws < 0 {
		return fmt.Errorf("generator.recent_draws must not be negative")
	}
	if c.Generator.MaxAttempts < c.Generator.Picks {
		return fmt.Errorf("generator.max_attempts must be at least generator.picks")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
