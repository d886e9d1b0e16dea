package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical delay bounds in milliseconds.
const (
	DefaultMinDelay = 100
	DefaultMaxDelay = 2000
	DefaultDelay    = 700
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Delay  DelayConfig  `yaml:"delay"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr                     string   `yaml:"addr"`
	Route                    string   `yaml:"route"`
	TrustedProxies           []string `yaml:"trusted_proxies"`
	MaxHeaderBytes           int      `yaml:"max_header_bytes"`
	MaxBodyBytes             int64    `yaml:"max_body_bytes"`
	ReadTimeoutSeconds       int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int      `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int      `yaml:"idle_timeout_seconds"`
	ReadHeaderTimeoutSeconds int      `yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int      `yaml:"shutdown_timeout_seconds"`
}

// DelayConfig holds the bounds in milliseconds. Nil means unset, so an
// explicit 0 is kept.
type DelayConfig struct {
	Min     *int `yaml:"min"`
	Max     *int `yaml:"max"`
	Default *int `yaml:"default"`
}

// Values returns min, max and default. Unset fields read as 0.
func (d DelayConfig) Values() (lo, hi, def int) {
	return deref(d.Min), deref(d.Max), deref(d.Default)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

type StoreConfig struct {
	Backend string      `yaml:"backend"` // "memory" | "redis"
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	Key             string `yaml:"key"`
	OpTimeoutMillis int    `yaml:"op_timeout_ms"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// Load reads the yaml file at path (skipped when path is empty), applies
// environment overrides, then defaults, then validates.
func Load(path string) (*Config, error) {
	var b []byte
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return parse(b, os.LookupEnv)
}

// Parse is Load for an in-memory document, ignoring the environment.
func Parse(b []byte) (*Config, error) {
	return parse(b, func(string) (string, bool) { return "", false })
}

func parse(b []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with DELAYD_* variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}
	optNum := func(name string, dst **int) error {
		var n int
		if *dst != nil {
			n = **dst
		}
		if err := num(name, &n); err != nil {
			return err
		}
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = &n
		}
		return nil
	}

	str("DELAYD_ADDR", &cfg.Server.Addr)
	str("DELAYD_STORE_BACKEND", &cfg.Store.Backend)
	str("DELAYD_REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("DELAYD_REDIS_PASSWORD", &cfg.Store.Redis.Password)
	str("DELAYD_LOG_LEVEL", &cfg.Log.Level)

	if err := optNum("DELAYD_DELAY_MIN", &cfg.Delay.Min); err != nil {
		return err
	}
	if err := optNum("DELAYD_DELAY_MAX", &cfg.Delay.Max); err != nil {
		return err
	}
	if err := optNum("DELAYD_DELAY_DEFAULT", &cfg.Delay.Default); err != nil {
		return err
	}
	return num("DELAYD_REDIS_DB", &cfg.Store.Redis.DB)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Route == "" {
		cfg.Server.Route = "/api/delay"
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MiB
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 64 << 10 // 64 KiB
	}
	if cfg.Server.ReadHeaderTimeoutSeconds == 0 {
		cfg.Server.ReadHeaderTimeoutSeconds = 5
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Server.IdleTimeoutSeconds == 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Delay.Min == nil {
		v := DefaultMinDelay
		cfg.Delay.Min = &v
	}
	if cfg.Delay.Max == nil {
		v := DefaultMaxDelay
		cfg.Delay.Max = &v
	}
	if cfg.Delay.Default == nil {
		d := DefaultDelay
		if d < *cfg.Delay.Min {
			d = *cfg.Delay.Min
		}
		if d > *cfg.Delay.Max {
			d = *cfg.Delay.Max
		}
		cfg.Delay.Default = &d
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Redis.Key == "" {
		cfg.Store.Redis.Key = "delay:current"
	}
	if cfg.Store.Redis.OpTimeoutMillis == 0 {
		cfg.Store.Redis.OpTimeoutMillis = 500
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if !strings.HasPrefix(cfg.Server.Route, "/") {
		return fmt.Errorf("server.route must start with '/'")
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes cannot be negative")
	}

	if cfg.Delay.Min == nil || cfg.Delay.Max == nil || cfg.Delay.Default == nil {
		return errors.New("delay.min, delay.max and delay.default are required")
	}
	lo, hi, def := cfg.Delay.Values()
	if lo < 0 {
		return fmt.Errorf("delay.min cannot be negative")
	}
	if lo > hi {
		return fmt.Errorf("delay.min (%d) must be <= delay.max (%d)", lo, hi)
	}
	if def < lo || def > hi {
		return fmt.Errorf("delay.default (%d) must be within [%d, %d]", def, lo, hi)
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if backend != "redis" && backend != "memory" {
		return fmt.Errorf("store.backend must be 'redis' or 'memory'")
	}
	if backend == "redis" && strings.TrimSpace(cfg.Store.Redis.Addr) == "" {
		return fmt.Errorf("store.redis.addr is required when backend is redis")
	}
	if cfg.Store.Redis.OpTimeoutMillis < 0 {
		return fmt.Errorf("store.redis.op_timeout_ms cannot be negative")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}
