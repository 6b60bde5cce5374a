package xlock

import (
	"fmt"
	"strings"
	"time"
)

// LockType 锁类型。
type LockType int

const (
	// TypeReentrant 可重入互斥锁，同一持有者可重复获取。
	TypeReentrant LockType = iota
	// TypeFair 公平锁，按到达顺序授予。
	TypeFair
	// TypeRead 读锁，与同 key 的写锁互斥，读锁之间共享。
	TypeRead
	// TypeWrite 写锁，与同 key 的读锁、写锁互斥。
	TypeWrite
)

func (t LockType) String() string {
	switch t {
	case TypeReentrant:
		return "reentrant"
	case TypeFair:
		return "fair"
	case TypeRead:
		return "read"
	case TypeWrite:
		return "write"
	default:
		return fmt.Sprintf("LockType(%d)", int(t))
	}
}

// ParseLockType 解析锁类型名称，大小写不敏感。
func ParseLockType(s string) (LockType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reentrant":
		return TypeReentrant, nil
	case "fair":
		return TypeFair, nil
	case "read":
		return TypeRead, nil
	case "write":
		return TypeWrite, nil
	default:
		return 0, fmt.Errorf("xlock: unknown lock type %q", s)
	}
}

// Mode 获取方式。
type Mode int

const (
	// ModeBlocking 阻塞直到获取成功或 ctx 结束。
	ModeBlocking Mode = iota
	// ModeTry 在等待时间内尝试获取，失败返回状态码 5。
	ModeTry
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeTry:
		return "try"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode 解析获取方式名称，大小写不敏感。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocking", "lock":
		return ModeBlocking, nil
	case "try", "trylock":
		return ModeTry, nil
	default:
		return 0, fmt.Errorf("xlock: unknown lock mode %q", s)
	}
}

// 默认值
const (
	DefaultLeaseTime      int64 = -1
	DefaultWaitTime       int64 = 0
	DefaultTimeUnit             = time.Second
	DefaultFailureMessage       = "try lock failed"
)

// LockSpec 锁声明，描述被保护操作需要持有的锁。
//
// 按值传递，构造后视为不可变。
type LockSpec struct {
	// Name 锁名模板，可包含 {param}、{param.field}、{@ip} 等占位符。
	Name string
	Type LockType
	Mode Mode
	// LeaseTime 租期，单位为 TimeUnit；-1 表示由看门狗续期，小于 -1 非法。
	LeaseTime int64
	// WaitTime 最长等待时间，单位为 TimeUnit，只在 ModeTry 下生效。
	WaitTime int64
	TimeUnit time.Duration
	// AutoRelease 为 false 时不主动释放，锁只随租期过期。
	AutoRelease bool
	// FailureMessage ModeTry 获取失败时的错误信息。
	FailureMessage string
}

// SpecOption 定义 LockSpec 的配置选项。
type SpecOption func(*LockSpec)

// NewLockSpec 创建带默认值的锁声明：
// 可重入、阻塞、看门狗续期、等待 0、单位秒、自动释放。
func NewLockSpec(name string, opts ...SpecOption) LockSpec {
	s := LockSpec{
		Name:           name,
		Type:           TypeReentrant,
		Mode:           ModeBlocking,
		LeaseTime:      DefaultLeaseTime,
		WaitTime:       DefaultWaitTime,
		TimeUnit:       DefaultTimeUnit,
		AutoRelease:    true,
		FailureMessage: DefaultFailureMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithType 设置锁类型。
func WithType(t LockType) SpecOption {
	return func(s *LockSpec) { s.Type = t }
}

// WithMode 设置获取方式。
func WithMode(m Mode) SpecOption {
	return func(s *LockSpec) { s.Mode = m }
}

// WithLease 设置租期，-1 表示看门狗续期。
func WithLease(lease int64) SpecOption {
	return func(s *LockSpec) { s.LeaseTime = lease }
}

// WithWait 设置等待时间。
func WithWait(wait int64) SpecOption {
	return func(s *LockSpec) { s.WaitTime = wait }
}

// WithTimeUnit 设置时间单位，非正值忽略。
func WithTimeUnit(unit time.Duration) SpecOption {
	return func(s *LockSpec) {
		if unit > 0 {
			s.TimeUnit = unit
		}
	}
}

// WithAutoRelease 设置是否自动释放。
//
// 关闭自动释放时应配合固定租期使用。租期为 -1 时看门狗会一直续期，
// 锁只在进程退出或 Provider 关闭后才会过期，Guard 会为此记录一条告警日志。
func WithAutoRelease(auto bool) SpecOption {
	return func(s *LockSpec) { s.AutoRelease = auto }
}

// WithFailureMessage 设置竞争失败信息。
func WithFailureMessage(msg string) SpecOption {
	return func(s *LockSpec) { s.FailureMessage = msg }
}

// TryLock 以 ModeTry 方式获取，等待 wait、租期 lease（均为 TimeUnit 单位）。
func TryLock(wait, lease int64) SpecOption {
	return func(s *LockSpec) {
		s.Mode = ModeTry
		s.WaitTime = wait
		s.LeaseTime = lease
	}
}

// Validate 校验锁声明，失败返回状态码 0 的 *LockError。
func (s LockSpec) Validate() error {
	if s.LeaseTime < -1 {
		return newError(StatusInvalidSpec,
			fmt.Sprintf("lease time must be >= -1, got %d", s.LeaseTime), nil)
	}
	if s.WaitTime < 0 {
		return newError(StatusInvalidSpec,
			fmt.Sprintf("wait time must be >= 0, got %d", s.WaitTime), nil)
	}
	if s.Type < TypeReentrant || s.Type > TypeWrite {
		return newError(StatusInvalidSpec, "unknown lock type "+s.Type.String(), nil)
	}
	if s.Mode != ModeBlocking && s.Mode != ModeTry {
		return newError(StatusInvalidSpec, "unknown lock mode "+s.Mode.String(), nil)
	}
	return nil
}

func (s LockSpec) unit() time.Duration {
	if s.TimeUnit <= 0 {
		return DefaultTimeUnit
	}
	return s.TimeUnit
}

// lease 换算为 xdlock 的租期，-1 映射为看门狗
func (s LockSpec) lease() time.Duration {
	return leaseDuration(s.LeaseTime, s.unit())
}

func (s LockSpec) wait() time.Duration {
	return time.Duration(s.WaitTime) * s.unit()
}
