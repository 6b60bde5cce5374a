// xlockctl 是 xlock 分布式锁的命令行工具，用于排查锁 key、手动加锁和检查后端状态。
//
// 用法:
//
//	xlockctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（YAML/JSON）
//	-b, --backend    锁后端: redis、redlock、etcd (默认: redis)
//	    --redis      Redis 地址，可重复 (默认: 127.0.0.1:6379)
//	    --etcd       etcd 地址，可重复 (默认: 127.0.0.1:2379)
//	-p, --prefix     锁 key 前缀 (默认: lock:)
//	    --log-level  日志级别 (默认: warn)
//	-t, --timeout    单次后端操作超时 (默认: 10s)
//
// 命令:
//
//	resolve <模板>   解析锁名模板并输出最终 key
//	acquire <锁名>   获取锁并持有一段时间
//	release <锁名>   以指定持有者身份释放锁
//	inspect <锁名>   查看 Redis 中的锁状态
//	health           检查后端连通性
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（后端错误、健康检查失败）
//	2: 参数错误
//	3: 锁被占用，未能获取
//
// 示例:
//
//	xlockctl resolve 'order:{order.id}' --arg 'order={"id":42}'
//	xlockctl acquire order:42 --mode try --wait 2s --hold 10s
//	xlockctl acquire coupon:1 --mode try --concurrency 20
//	xlockctl acquire job:daily --keep --owner ops-1 && xlockctl release job:daily --owner ops-1
//	xlockctl -b redlock --redis 10.0.0.1:6379 --redis 10.0.0.2:6379 --redis 10.0.0.3:6379 health
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认单次操作超时。
const defaultTimeout = 10 * time.Second

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// 退出码
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitNotAcquired = 3
)

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	st := &appState{}
	return &cli.Command{
		Name:    "xlockctl",
		Usage:   "xlock 分布式锁命令行工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（YAML/JSON）",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "锁后端: redis、redlock、etcd",
			},
			&cli.StringSliceFlag{
				Name:  "redis",
				Usage: "Redis 地址，redlock 后端可重复指定多个节点",
			},
			&cli.StringSliceFlag{
				Name:  "etcd",
				Usage: "etcd 地址",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "锁 key 前缀，空串表示不加前缀",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单次后端操作超时",
				Value:   defaultTimeout,
			},
		},
		Before:   st.before,
		After:    st.after,
		Commands: createCommands(st),
		// 由 run() 统一处理退出码，禁止 urfave/cli 直接调用 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Description: `xlockctl 使用与服务端相同的 key 解析规则和锁后端，
可以在线上排查"某个请求会锁哪个 key"、"这把锁现在被谁持有"等问题。

锁名模板中的占位符:
  {name}          --arg 传入的参数
  {name.field}    参数的字段，参数值按 JSON 解析
  {@userId}       --user 指定的用户
  {@ip}           --ip 指定的客户端 IP
  {@tenantId}     --tenant 指定的租户`,
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(createApp().Run(ctx, os.Args))
}

// exitCode 将命令错误映射为退出码
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
		return exitUsage
	}
	if isCLIUsageError(err) {
		// flag 解析器已输出错误详情
		return exitUsage
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return exitFailure
}

// isCLIUsageError 识别 urfave/cli 产生的参数错误
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"Required flag",
		"No help topic",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
