// Package config loads igstream settings from an optional YAML file, an
// optional .env file and IGSTREAM_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/igstream/pkg/cache"
	"github.com/Sternrassler/igstream/pkg/client"
	"github.com/Sternrassler/igstream/pkg/logging"
	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/ratelimit"
	"github.com/Sternrassler/igstream/pkg/stream"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. IGSTREAM_API_USER_AGENT.
const EnvPrefix = "IGSTREAM"

// DefaultConfigFile is looked up in the working directory when no file is
// given explicitly.
const DefaultConfigFile = "igstream.yaml"

// DefaultEnvFile is loaded when present and no env file is given explicitly.
const DefaultEnvFile = ".env"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete igstream configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Log       LogConfig       `mapstructure:"log"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PageSize  int           `mapstructure:"page_size" validate:"min=1,max=50"`
}

// RateLimitConfig configures request spacing. With an empty RedisAddr
// requests are not spaced.
type RateLimitConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	Interval      time.Duration `mapstructure:"interval" validate:"gt=0"`
	Cooldown      time.Duration `mapstructure:"cooldown" validate:"gt=0"`
}

// RetryConfig overrides the per error class retry defaults. Zero keeps the
// default of each class.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=0,lte=20"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Pretty bool   `mapstructure:"pretty"`
}

type StreamConfig struct {
	ProgressEvery int `mapstructure:"progress_every" validate:"gte=0"`
	TailSkip      int `mapstructure:"tail_skip" validate:"gte=0"`
}

// CacheConfig configures the post and profile lookup cache. It shares the
// Redis server of RateLimitConfig; a zero TTL disables it.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   client.DefaultBaseURL,
			UserAgent: "igstream/" + Version,
			Timeout:   30 * time.Second,
			PageSize:  model.DefaultPageSize,
		},
		RateLimit: RateLimitConfig{
			Interval: ratelimit.DefaultInterval,
			Cooldown: ratelimit.DefaultCooldown,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Stream: StreamConfig{
			ProgressEvery: stream.DefaultProgressEvery,
			TailSkip:      stream.DefaultCreatedTailSkip,
		},
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
	}
}

// Version is the igstream release, set at build time with -ldflags.
var Version = "dev"

// Option configures Load.
type Option func(*loader)

type loader struct {
	configFile string
	envFile    string
	exists     func(path string) bool
}

// WithConfigFile reads path instead of looking for DefaultConfigFile. A
// missing explicit file is an error.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile loads path instead of DefaultEnvFile. A missing explicit file
// is an error.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// Load builds the configuration and validates it.
func Load(opts ...Option) (Config, error) {
	l := loader{exists: fileExists}
	for _, opt := range opts {
		opt(&l)
	}

	if err := l.loadEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v, Default())

	if path, ok, err := l.resolveConfigFile(); err != nil {
		return Config{}, err
	} else if ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l loader) loadEnv() error {
	path := l.envFile
	if path == "" {
		if !l.exists(DefaultEnvFile) {
			return nil
		}
		path = DefaultEnvFile
	}
	// Variables already set in the environment win over the file.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (l loader) resolveConfigFile() (string, bool, error) {
	if l.configFile != "" {
		if !l.exists(l.configFile) {
			return "", false, fmt.Errorf("config file %s not found", l.configFile)
		}
		return l.configFile, true, nil
	}
	if l.exists(DefaultConfigFile) {
		return DefaultConfigFile, true, nil
	}
	return "", false, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.page_size", d.API.PageSize)

	v.SetDefault("ratelimit.redis_addr", d.RateLimit.RedisAddr)
	v.SetDefault("ratelimit.redis_password", d.RateLimit.RedisPassword)
	v.SetDefault("ratelimit.redis_db", d.RateLimit.RedisDB)
	v.SetDefault("ratelimit.interval", d.RateLimit.Interval)
	v.SetDefault("ratelimit.cooldown", d.RateLimit.Cooldown)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("stream.progress_every", d.Stream.ProgressEvery)
	v.SetDefault("stream.tail_skip", d.Stream.TailSkip)

	v.SetDefault("cache.ttl", d.Cache.TTL)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ClientConfig returns the web API client configuration. The limiter is
// left for the caller to attach.
func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.API.UserAgent)
	cfg.BaseURL = c.API.BaseURL
	cfg.Timeout = c.API.Timeout
	cfg.Cooldown = c.RateLimit.Cooldown
	cfg.Retry = c.RetryPolicy()
	return cfg
}

// RetryPolicy applies the retry overrides on top of the per class defaults.
func (c Config) RetryPolicy() client.RetryPolicy {
	r := c.Retry
	return func(class client.ErrorClass) client.RetryConfig {
		rc := client.RetryConfigForErrorClass(class)
		if r.MaxAttempts > 0 {
			rc.MaxAttempts = r.MaxAttempts
		}
		if r.MaxBackoff > 0 {
			rc.MaxBackoff = r.MaxBackoff
			if rc.InitialBackoff > rc.MaxBackoff {
				rc.InitialBackoff = rc.MaxBackoff
			}
		}
		return rc
	}
}

// LoggingConfig returns the logger configuration.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}
