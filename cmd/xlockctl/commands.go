package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// appState 根命令 Before 中加载的配置和日志，子命令共享
type appState struct {
	cfg      appConfig
	logger   xlog.Logger
	closeLog func() error
	timeout  time.Duration

	// newBackend 可在测试中替换
	newBackend func(appConfig, xlog.Logger) (*backend, error)
}

func (st *appState) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	fo := flagOverrides{
		redis:    cmd.StringSlice("redis"),
		etcd:     cmd.StringSlice("etcd"),
		backend:  cmd.String("backend"),
		logLevel: cmd.String("log-level"),
	}
	if cmd.IsSet("prefix") {
		prefix := cmd.String("prefix")
		fo.prefix = &prefix
	}

	cfg, err := loadConfig(cmd.String("config"), fo)
	if err != nil {
		return ctx, err
	}
	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return ctx, &usageError{msg: err.Error()}
	}

	st.cfg = cfg
	st.logger = logger
	st.closeLog = closeLog
	st.timeout = cmd.Duration("timeout")
	if st.newBackend == nil {
		st.newBackend = newBackend
	}
	return ctx, nil
}

func (st *appState) after(context.Context, *cli.Command) error {
	if st.closeLog != nil {
		return st.closeLog()
	}
	return nil
}

// withBackend 创建后端，执行 fn 后关闭
func (st *appState) withBackend(ctx context.Context, fn func(*backend) error) error {
	b, err := st.newBackend(st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(context.WithoutCancel(ctx)); cerr != nil {
			st.logger.Warn(ctx, "xlockctl: close backend failed", xlog.Err(cerr))
		}
	}()
	return fn(b)
}

func (st *appState) locks(b *backend) *xlock.Locks {
	return xlock.NewLocks(b.provider, st.cfg.Lock, xlock.WithLogger(st.logger))
}

// 创建所有子命令。
func createCommands(st *appState) []*cli.Command {
	return []*cli.Command{
		createResolveCommand(st),
		createAcquireCommand(st),
		createReleaseCommand(st),
		createInspectCommand(st),
		createHealthCommand(st),
	}
}

func lockTypeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "type",
		Usage: "锁类型: reentrant、fair、read、write",
		Value: "reentrant",
	}
}

func requireArg(cmd *cli.Command, what string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", &usageError{msg: fmt.Sprintf("%s 命令需要且只需要一个参数: %s", cmd.Name, what)}
	}
	return cmd.Args().First(), nil
}

func parseType(cmd *cli.Command) (xlock.LockType, error) {
	t, err := xlock.ParseLockType(cmd.String("type"))
	if err != nil {
		return 0, &usageError{msg: err.Error()}
	}
	return t, nil
}

// =============================================================================
// resolve
// =============================================================================

func createResolveCommand(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Aliases:   []string{"r"},
		Usage:     "解析锁名模板并输出最终 key",
		ArgsUsage: "<template>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "arg",
				Aliases: []string{"a"},
				Usage:   "命名参数 name=value，value 按 JSON 解析，解析失败时作为字符串",
			},
			&cli.StringFlag{Name: "user", Usage: "{@userId} 的值"},
			&cli.StringFlag{Name: "ip", Usage: "{@ip} 的值"},
			&cli.StringFlag{Name: "tenant", Usage: "{@tenantId} 的值"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			template, err := requireArg(cmd, "<template>")
			if err != nil {
				return err
			}
			params, err := parseArgs(cmd.StringSlice("arg"))
			if err != nil {
				return err
			}
			ctx, err = xctx.WithIdentity(ctx, xctx.Identity{
				UserID:   cmd.String("user"),
				ClientIP: cmd.String("ip"),
				TenantID: cmd.String("tenant"),
			})
			if err != nil {
				return err
			}
			return cmdResolve(ctx, cmd.Root().Writer, st, template, params)
		},
	}
}

func cmdResolve(ctx context.Context, w io.Writer, st *appState, template string, params []xlock.Param) error {
	binder := xlock.NewBinder(xlock.WithBinderLogger(st.logger))
	resolver := xlock.NewResolver(st.cfg.Lock.Prefix, nil, binder, st.logger)
	key, err := resolver.Resolve(ctx, template, xlock.NewCallContext(ctx, params...))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, key)
	return err
}

// parseArgs 解析 name=value 参数，保持命令行顺序
func parseArgs(raw []string) ([]xlock.Param, error) {
	params := make([]xlock.Param, 0, len(raw))
	for _, a := range raw {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &usageError{msg: fmt.Sprintf("参数格式应为 name=value: %q", a)}
		}
		params = append(params, xlock.Arg(name, decodeValue(value)))
	}
	return params, nil
}

// decodeValue 按 JSON 解析，数字保留原始文本
func decodeValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

// =============================================================================
// acquire
// =============================================================================

func createAcquireCommand(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Aliases:   []string{"a"},
		Usage:     "获取锁并持有一段时间",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			lockTypeFlag(),
			&cli.StringFlag{Name: "mode", Usage: "获取方式: blocking、try", Value: "blocking"},
			&cli.DurationFlag{Name: "wait", Usage: "try 模式的最长等待时间"},
			&cli.DurationFlag{Name: "lease", Usage: "租期，0 表示看门狗续期"},
			&cli.DurationFlag{Name: "hold", Usage: "获取后持有的时间"},
			&cli.IntFlag{Name: "concurrency", Usage: "并发竞争者数量，用于验证互斥", Value: 1},
			&cli.StringFlag{Name: "owner", Usage: "持有者身份，默认随机生成"},
			&cli.BoolFlag{Name: "keep", Usage: "退出时不释放锁（锁随租期过期或由 release 释放）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := requireArg(cmd, "<name>")
			if err != nil {
				return err
			}
			t, err := parseType(cmd)
			if err != nil {
				return err
			}
			mode, err := xlock.ParseMode(cmd.String("mode"))
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			req := acquireRequest{
				name:        name,
				typ:         t,
				mode:        mode,
				wait:        cmd.Duration("wait"),
				lease:       cmd.Duration("lease"),
				hold:        cmd.Duration("hold"),
				concurrency: cmd.Int("concurrency"),
				owner:       cmd.String("owner"),
				keep:        cmd.Bool("keep"),
			}
			if req.concurrency < 1 {
				return &usageError{msg: "--concurrency 必须大于 0"}
			}
			if req.concurrency > 1 && req.mode != xlock.ModeTry {
				return &usageError{msg: "--concurrency 需要配合 --mode try 使用"}
			}
			return st.withBackend(ctx, func(b *backend) error {
				if req.concurrency > 1 {
					return cmdContend(ctx, cmd.Root().Writer, st.locks(b), req)
				}
				return cmdAcquire(ctx, cmd.Root().Writer, st.locks(b), req)
			})
		},
	}
}

type acquireRequest struct {
	name        string
	typ         xlock.LockType
	mode        xlock.Mode
	wait        time.Duration
	lease       time.Duration
	hold        time.Duration
	concurrency int
	owner       string
	keep        bool
}

func (r acquireRequest) acquire(ctx context.Context, locks *xlock.Locks) (bool, error) {
	lease := r.lease
	if lease <= 0 {
		lease = xdlock.LeaseWatchdog
	}
	if r.mode == xlock.ModeTry {
		return locks.TryAcquire(ctx, r.typ, r.name, r.wait, lease)
	}
	if err := locks.Acquire(ctx, r.typ, r.name, lease); err != nil {
		return false, err
	}
	return true, nil
}

// sleepCtx 等待 d 或 ctx 结束
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func cmdAcquire(ctx context.Context, w io.Writer, locks *xlock.Locks, req acquireRequest) error {
	owner := req.owner
	if owner == "" {
		owner = xdlock.NewOwner()
	}
	ctx = xdlock.WithOwner(ctx, owner)
	key := locks.Key(req.name)

	start := time.Now()
	ok, err := req.acquire(ctx, locks)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(w, "未获取: key=%s（锁被占用）\n", key)
		return &exitError{code: exitNotAcquired}
	}
	fmt.Fprintf(w, "已获取: key=%s owner=%s type=%s 等待=%s\n", key, owner, req.typ, time.Since(start).Round(time.Millisecond))

	sleepCtx(ctx, req.hold)
	if req.keep {
		fmt.Fprintf(w, "保留锁: 使用 release %s --owner %s 释放\n", req.name, owner)
		return nil
	}
	// ctx 可能已被信号取消，释放仍要执行
	if err := locks.Release(context.WithoutCancel(ctx), req.typ, req.name); err != nil {
		return err
	}
	fmt.Fprintf(w, "已释放: key=%s\n", key)
	return nil
}

// cmdContend 多个持有者同时尝试获取同一把锁，输出获胜者数量
func cmdContend(ctx context.Context, w io.Writer, locks *xlock.Locks, req acquireRequest) error {
	var (
		won  atomic.Int32
		lost atomic.Int32
	)
	start := make(chan struct{})
	eg, egCtx := errgroup.WithContext(ctx)
	for range req.concurrency {
		eg.Go(func() error {
			octx := xdlock.WithOwner(egCtx, xdlock.NewOwner())
			<-start
			ok, err := req.acquire(octx, locks)
			if err != nil {
				return err
			}
			if !ok {
				lost.Add(1)
				return nil
			}
			won.Add(1)
			sleepCtx(octx, req.hold)
			return locks.Release(context.WithoutCancel(octx), req.typ, req.name)
		})
	}
	close(start)
	if err := eg.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(w, "key=%s 竞争者=%d 获取=%d 未获取=%d\n", locks.Key(req.name), req.concurrency, won.Load(), lost.Load())
	return nil
}

// =============================================================================
// release
// =============================================================================

func createReleaseCommand(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "release",
		Usage:     "以指定持有者身份释放锁",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			lockTypeFlag(),
			&cli.StringFlag{Name: "owner", Usage: "持有者身份（acquire 输出中的 owner）", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := requireArg(cmd, "<name>")
			if err != nil {
				return err
			}
			t, err := parseType(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, st.timeout)
			defer cancel()
			ctx = xdlock.WithOwner(ctx, cmd.String("owner"))

			return st.withBackend(ctx, func(b *backend) error {
				locks := st.locks(b)
				if err := locks.Release(ctx, t, name); err != nil {
					if errors.Is(err, xdlock.ErrNotLocked) {
						fmt.Fprintf(cmd.Root().Writer, "未持有: key=%s owner=%s\n", locks.Key(name), cmd.String("owner"))
						return &exitError{code: exitFailure}
					}
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "已释放: key=%s\n", locks.Key(name))
				return nil
			})
		},
	}
}

// =============================================================================
// inspect
// =============================================================================

func createInspectCommand(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Aliases:   []string{"i"},
		Usage:     "查看 Redis 中的锁状态",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "参数为完整 key，不加前缀"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := requireArg(cmd, "<name>")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, st.timeout)
			defer cancel()

			return st.withBackend(ctx, func(b *backend) error {
				if b.redis == nil {
					return &usageError{msg: "inspect 只支持 redis 和 redlock 后端"}
				}
				key := name
				if !cmd.Bool("raw") {
					key = st.locks(b).Key(name)
				}
				state, err := xdlock.InspectRedis(ctx, b.redis, key)
				if err != nil {
					return err
				}
				printState(cmd.Root().Writer, state)
				return nil
			})
		},
	}
}

func printState(w io.Writer, s xdlock.LockState) {
	fmt.Fprintf(w, "key:     %s\n", s.Key)
	if !s.Exists {
		fmt.Fprintln(w, "状态:    空闲")
	} else {
		fmt.Fprintln(w, "状态:    已锁定")
		if s.Mode != "" {
			fmt.Fprintf(w, "模式:    %s\n", s.Mode)
		}
		fmt.Fprintf(w, "剩余:    %s\n", s.TTL)
		holders := make([]string, 0, len(s.Holders))
		for h := range s.Holders {
			holders = append(holders, h)
		}
		slices.Sort(holders)
		for _, h := range holders {
			fmt.Fprintf(w, "持有者:  %s (x%d)\n", h, s.Holders[h])
		}
	}
	for i, q := range s.Queue {
		fmt.Fprintf(w, "排队 %d:  %s\n", i+1, q)
	}
}

// =============================================================================
// health
// =============================================================================

func createHealthCommand(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "检查后端连通性",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, st.timeout)
			defer cancel()

			return st.withBackend(ctx, func(b *backend) error {
				start := time.Now()
				if err := b.provider.Health(ctx); err != nil {
					st.logger.Error(ctx, "xlockctl: health check failed",
						slog.String("backend", st.cfg.Provider.Backend), xlog.Err(err))
					fmt.Fprintf(cmd.Root().Writer, "%s: 不可用 (%v)\n", st.cfg.Provider.Backend, err)
					return &exitError{code: exitFailure}
				}
				fmt.Fprintf(cmd.Root().Writer, "%s: 正常 (%s)\n", st.cfg.Provider.Backend,
					time.Since(start).Round(time.Microsecond))
				return nil
			})
		},
	}
}
