package main

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// backend 一次命令使用的锁提供者及其底层客户端。
type backend struct {
	provider xdlock.Provider
	// redis 为 redis/redlock 后端的第一个节点，etcd 后端为 nil
	redis   redis.UniversalClient
	closers []func() error
}

func (b *backend) Close(ctx context.Context) error {
	var errs []error
	if b.provider != nil {
		errs = append(errs, b.provider.Close(ctx))
	}
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func newBackend(cfg appConfig, logger xlog.Logger) (*backend, error) {
	opts := []xdlock.Option{
		xdlock.WithLogger(logger),
		xdlock.WithWatchdogTimeout(cfg.Provider.WatchdogTimeout),
		xdlock.WithRetryInterval(cfg.Provider.RetryInterval),
		xdlock.WithFairQueueTimeout(cfg.Provider.FairQueueTimeout),
	}
	if cfg.Provider.Breaker {
		opts = append(opts, xdlock.WithBreaker(gobreaker.Settings{Name: "xlockctl"}))
	}

	b := &backend{}
	var err error
	switch cfg.Provider.Backend {
	case backendEtcd:
		var cli *clientv3.Client
		cli, err = clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, cli.Close)
		b.provider, err = xdlock.NewEtcdProvider(cli, opts...)
	case backendRedlock:
		clients := make([]redis.UniversalClient, 0, len(cfg.Redis.Addrs))
		for _, addr := range cfg.Redis.Addrs {
			c := newRedisClient(cfg.Redis, addr)
			clients = append(clients, c)
			b.closers = append(b.closers, c.Close)
		}
		b.redis = clients[0]
		b.provider, err = xdlock.NewRedlockProvider(clients, opts...)
	default:
		c := newRedisClient(cfg.Redis, cfg.Redis.Addrs[0])
		b.closers = append(b.closers, c.Close)
		b.redis = c
		b.provider, err = xdlock.NewRedisProvider(c, opts...)
	}
	if err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}
	return b, nil
}

func newRedisClient(cfg redisConfig, addr string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// newLogger 按配置构建日志，日志写到 stderr，stdout 只输出命令结果
func newLogger(cfg logConfig) (xlog.Logger, func() error, error) {
	b := xlog.New().SetOutput(os.Stderr).SetFormat(cfg.Format)
	if cfg.Level != "" {
		b = b.SetLevelString(cfg.Level)
	}
	if cfg.File != "" {
		b = b.SetRotation(cfg.File)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return logger, cleanup, nil
}
