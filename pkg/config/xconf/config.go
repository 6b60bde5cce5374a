// Package xconf 基于 koanf 的配置加载。
//
// 支持 YAML 与 JSON，使用 `koanf` 结构体标签反序列化，
// time.Duration 字段可以直接写成 "30s"、"50ms"。
//
//	cfg, err := xconf.New("/etc/app/lock.yaml")
//	if err != nil {
//		return err
//	}
//	var lockCfg xlock.Config
//	if err := cfg.Unmarshal("lock", &lockCfg); err != nil {
//		return err
//	}
package xconf

import (
	"errors"

	"github.com/knadh/koanf/v2"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// 配置加载和解析相关错误。
var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")
)

// Config 只读配置。
type Config interface {
	// Client 返回底层的 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 将指定路径的配置反序列化到目标结构体。
	// path 为空字符串时反序列化整个配置；路径不存在时 target 保持原值，
	// 因此可以先填好默认值再调用。
	Unmarshal(path string, target any) error

	// Exists 判断配置路径是否存在
	Exists(path string) bool

	// Path 返回配置文件路径，从字节数据创建时为空
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// Option 定义配置选项函数类型。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func defaultOptions() *options {
	return &options{delim: ".", tag: "koanf"}
}

// WithDelim 设置配置键分隔符，默认为 "."
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置结构体标签名，默认为 "koanf"
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}
