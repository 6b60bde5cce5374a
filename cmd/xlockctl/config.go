package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xlockkit/pkg/config/xconf"
	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
)

// 支持的锁后端
const (
	backendRedis   = "redis"
	backendRedlock = "redlock"
	backendEtcd    = "etcd"
)

// appConfig xlockctl 配置文件结构。
//
//	lock:
//	  prefix: "lock:"
//	provider:
//	  backend: redis
//	  watchdog-timeout: 30s
//	redis:
//	  addrs: ["127.0.0.1:6379"]
//	log:
//	  level: info
type appConfig struct {
	Lock     xlock.Config   `koanf:"lock"`
	Provider providerConfig `koanf:"provider"`
	Redis    redisConfig    `koanf:"redis"`
	Etcd     etcdConfig     `koanf:"etcd"`
	Log      logConfig      `koanf:"log"`
}

type providerConfig struct {
	Backend          string        `koanf:"backend"`
	WatchdogTimeout  time.Duration `koanf:"watchdog-timeout"`
	RetryInterval    time.Duration `koanf:"retry-interval"`
	FairQueueTimeout time.Duration `koanf:"fair-queue-timeout"`
	// Breaker 为 Redis 后端启用熔断器
	Breaker bool `koanf:"breaker"`
}

type redisConfig struct {
	// Addrs redis 后端使用第一个地址，redlock 后端每个地址为一个独立节点。
	Addrs    []string `koanf:"addrs"`
	Password string   `koanf:"password"`
	DB       int      `koanf:"db"`
}

type etcdConfig struct {
	Endpoints   []string      `koanf:"endpoints"`
	DialTimeout time.Duration `koanf:"dial-timeout"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Lock:     xlock.DefaultConfig(),
		Provider: providerConfig{Backend: backendRedis},
		Redis:    redisConfig{Addrs: []string{"127.0.0.1:6379"}},
		Etcd:     etcdConfig{Endpoints: []string{"127.0.0.1:2379"}, DialTimeout: 5 * time.Second},
		Log:      logConfig{Level: "warn", Format: "text"},
	}
}

// flagOverrides 命令行参数，非空时覆盖配置文件
type flagOverrides struct {
	redis    []string
	etcd     []string
	backend  string
	prefix   *string
	logLevel string
}

// loadConfig 依次应用默认值、配置文件和命令行参数。
func loadConfig(path string, fo flagOverrides) (appConfig, error) {
	cfg := defaultAppConfig()
	if path != "" {
		c, err := xconf.New(path)
		if err != nil {
			return cfg, err
		}
		if err := c.Unmarshal("", &cfg); err != nil {
			return cfg, err
		}
	}

	if len(fo.redis) > 0 {
		cfg.Redis.Addrs = fo.redis
	}
	if len(fo.etcd) > 0 {
		cfg.Etcd.Endpoints = fo.etcd
	}
	if fo.backend != "" {
		cfg.Provider.Backend = fo.backend
	}
	if fo.prefix != nil {
		cfg.Lock.Prefix = *fo.prefix
	}
	if fo.logLevel != "" {
		cfg.Log.Level = fo.logLevel
	}

	cfg.Provider.Backend = strings.ToLower(strings.TrimSpace(cfg.Provider.Backend))
	switch cfg.Provider.Backend {
	case backendRedis, backendRedlock:
		if len(cfg.Redis.Addrs) == 0 {
			return cfg, &usageError{msg: "redis.addrs 不能为空"}
		}
	case backendEtcd:
		if len(cfg.Etcd.Endpoints) == 0 {
			return cfg, &usageError{msg: "etcd.endpoints 不能为空"}
		}
	default:
		return cfg, &usageError{msg: fmt.Sprintf("未知后端 %q（可选 redis、redlock、etcd）", cfg.Provider.Backend)}
	}
	return cfg, nil
}
