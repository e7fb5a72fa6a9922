package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Relation  RelationConfig  `mapstructure:"relation"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"` // postgres | sqlite
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	SlowSQL      time.Duration `mapstructure:"slow_sql"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 资料缓存与好友列表物化缓存
type CacheConfig struct {
	ProfileTTL     time.Duration `mapstructure:"profile_ttl"`
	FriendsTTL     time.Duration `mapstructure:"friends_ttl"`
	FriendsEnabled bool          `mapstructure:"friends_enabled"`
}

// RelationConfig 好友关系链行为开关
type RelationConfig struct {
	// FailOpenReads 读好友/请求列表出错时返回空集合而不是报错
	FailOpenReads bool `mapstructure:"fail_open_reads"`
	// CleanupOverlaysOnRemove 解除好友时同时清理双方的隐藏名单
	CleanupOverlaysOnRemove bool   `mapstructure:"cleanup_overlays_on_remove"`
	EventQueueSize          int    `mapstructure:"event_queue_size"`
	EventWorkers            int    `mapstructure:"event_workers"`
	EventChannel            string `mapstructure:"event_channel"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=postgres port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_life", time.Hour)
	v.SetDefault("database.slow_sql", 200*time.Millisecond)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.profile_ttl", 5*time.Minute)
	v.SetDefault("cache.friends_ttl", 10*time.Minute)
	v.SetDefault("cache.friends_enabled", false)

	v.SetDefault("relation.fail_open_reads", true)
	v.SetDefault("relation.cleanup_overlays_on_remove", true)
	v.SetDefault("relation.event_queue_size", 10000)
	v.SetDefault("relation.event_workers", 4)
	v.SetDefault("relation.event_channel", "relationship-events")

	v.SetDefault("log.level", "info")

	v.SetDefault("tracing.service_name", "travel-relation")

	v.SetDefault("ratelimit.rps", 2)
	v.SetDefault("ratelimit.burst", 5)
}

// Load 读取 config.yaml 与 APP_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("APP")
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
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	return nil
}
