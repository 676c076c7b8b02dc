// Package config 定义服务配置。从 YAML 加载，未填字段取默认值，
// 保证零配置也能以内存模式起一个可用的服务。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/shoprec/rerank"
)

// Config 是服务的全量配置。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Sweeper SweeperConfig `yaml:"sweeper"`
	Boost   []rerank.Rule `yaml:"boost"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	// JWTSecret 为空时鉴权中间件拒绝所有带 token 的请求，
	// 匿名访问不受影响
	JWTSecret string `yaml:"jwt_secret"`
}

type StoreConfig struct {
	// Kind 取 memory 或 redis
	Kind  string      `yaml:"kind"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Capacity        int      `yaml:"capacity"`
	PersonalizedTTL Duration `yaml:"personalized_ttl"`
	SharedTTL       Duration `yaml:"shared_ttl"`
	BurstWindow     Duration `yaml:"burst_window"`
}

type SweeperConfig struct {
	Interval   Duration `yaml:"interval"`
	Grace      Duration `yaml:"grace"`
	StaleAfter Duration `yaml:"stale_after"`
}

// Duration 让 YAML 里能写 "45s"、"5m" 这类时长字面量。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default 返回内存模式的默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Kind: "memory"},
		Cache: CacheConfig{
			Capacity:        500,
			PersonalizedTTL: Duration(45 * time.Second),
			SharedTTL:       Duration(5 * time.Minute),
			BurstWindow:     Duration(5 * time.Second),
		},
		Sweeper: SweeperConfig{
			Interval:   Duration(2 * time.Minute),
			Grace:      Duration(time.Minute),
			StaleAfter: Duration(time.Hour),
		},
	}
}

// Load 读取 YAML 配置文件并在默认值上覆盖。path 为空时直接返回默认值。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Kind {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("config: store.redis.addr is required for redis store")
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("config: cache.capacity must be >= 0")
	}
	return nil
}
