package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Member    MemberConfig    `mapstructure:"member"`
	Composer  ComposerConfig  `mapstructure:"composer"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

type MemberConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type ComposerConfig struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	MaxMessageLength int           `mapstructure:"max_message_length"`
}

// RateLimitConfig bounds member operations per user.
type RateLimitConfig struct {
	Ops      int           `mapstructure:"ops"`
	Interval time.Duration `mapstructure:"interval"`
}

// SeedConfig pre-populates the directory at startup.
type SeedConfig struct {
	Users []domain.UserEntity `mapstructure:"users"`
	Rooms []SeedRoom          `mapstructure:"rooms"`
}

type SeedRoom struct {
	ID      domain.RoomID   `mapstructure:"id"`
	Name    domain.RoomName `mapstructure:"name"`
	Owner   domain.UserID   `mapstructure:"owner"`
	Members []domain.UserID `mapstructure:"members"`
	Muted   []domain.UserID `mapstructure:"muted"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFrom(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFrom(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("roster")
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")
	v.SetDefault("member.page_size", 10)
	v.SetDefault("composer.debounce", "300ms")
	v.SetDefault("composer.max_message_length", 300)
	v.SetDefault("rate_limit.ops", 5)
	v.SetDefault("rate_limit.interval", "10s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Member.PageSize <= 0 {
		return nil, fmt.Errorf("member.page_size must be positive, got %d", cfg.Member.PageSize)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("page_size", cfg.Member.PageSize).Msg("config ready")
	return &cfg, nil
}
