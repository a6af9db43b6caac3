package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 本地快照缓存；retain 是快照的物理保留时间，需大于各 TTL，
// 否则过期后无法回退到旧数据
type CacheConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=memory redis sqlite"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	FeedTTL     time.Duration `mapstructure:"feed_ttl" validate:"gt=0"`
	WardrobeTTL time.Duration `mapstructure:"wardrobe_ttl" validate:"gt=0"`
	Retain      time.Duration `mapstructure:"retain" validate:"gtefield=FeedTTL,gtefield=WardrobeTTL"`
}

type FeedConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"`
}

type RealtimeConfig struct {
	NatsURL   string `mapstructure:"nats_url"`
	Workers   int    `mapstructure:"workers" validate:"gte=0"`
	QueueSize int    `mapstructure:"queue_size" validate:"gte=0"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
	Issuer string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "feedmix.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.sqlite_path", "feedmix_cache.db")
	v.SetDefault("cache.feed_ttl", "5m")
	v.SetDefault("cache.wardrobe_ttl", "30m")
	v.SetDefault("cache.retain", "168h")

	v.SetDefault("feed.fetch_timeout", "15s")

	v.SetDefault("realtime.nats_url", "")
	v.SetDefault("realtime.workers", 4)
	v.SetDefault("realtime.queue_size", 1024)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "feedmix")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
}

// Load 读取配置：.env -> config.yaml -> FEEDMIX_* 环境变量（后者覆盖前者）
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if p := os.Getenv("FEEDMIX_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FEEDMIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置字段
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid config: cache.backend=redis requires redis.addr")
	}
	return nil
}
