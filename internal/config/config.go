package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
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

	DefaultTimeLimit int           `mapstructure:"default_time_limit"`
	WarningRatio     float64       `mapstructure:"warning_ratio"`
	CaptureTimeout   time.Duration `mapstructure:"capture_timeout"`
	MaxClipBytes     int           `mapstructure:"max_clip_bytes"`
	ArtifactCapacity int           `mapstructure:"artifact_capacity"`

	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`
	ReapSchedule   string        `mapstructure:"reap_schedule"`

	IntentRateLimit    int           `mapstructure:"intent_rate_limit"`
	IntentRateInterval time.Duration `mapstructure:"intent_rate_interval"`

	STUNURLs []string `mapstructure:"stun_urls"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName over the defaults. A missing file is not an
// error, a malformed one is. STANDUP_* environment variables override both.
// Release mode requires a secret.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("standup")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("default_time_limit", 120)
	v.SetDefault("warning_ratio", 0.3)
	v.SetDefault("capture_timeout", "10s")
	v.SetDefault("max_clip_bytes", 32<<20)
	v.SetDefault("artifact_capacity", 256)
	v.SetDefault("session_idle_ttl", "2h")
	v.SetDefault("reap_schedule", "@every 5m")
	v.SetDefault("intent_rate_limit", 20)
	v.SetDefault("intent_rate_interval", "1s")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WarningRatio <= 0 || cfg.WarningRatio >= 1 {
		return nil, fmt.Errorf("warning_ratio must be in (0, 1), got %v", cfg.WarningRatio)
	}
	if cfg.Secret == "" {
		if cfg.Mode == "release" {
			return nil, errors.New("secret must be set in release mode")
		}
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Str("mode", cfg.Mode).Msg("no secret set, client cookies will not survive a restart")
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Msg("config ready")
	return &cfg, nil
}
