package xlock

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"
)

// 字段读取错误。绑定时只记录日志，不向上返回。
var (
	ErrFieldNotFound  = errors.New("xlock: field not found")
	ErrNotReadable    = errors.New("xlock: value has no readable fields")
	ErrNilFieldHolder = errors.New("xlock: read field of nil value")
)

// FieldReader 从一个值上按名称读取字段。
//
// 默认实现 ReflectFieldReader 基于反射；需要避免反射的场景可以
// 为自己的类型实现该接口（例如基于生成代码或序列化）。
type FieldReader interface {
	ReadField(v any, name string) (any, error)
}

// FieldReaderFunc 函数适配器。
type FieldReaderFunc func(v any, name string) (any, error)

// ReadField 调用 f。
func (f FieldReaderFunc) ReadField(v any, name string) (any, error) {
	return f(v, name)
}

// defaultFieldCacheSize 字段下标缓存容量
const defaultFieldCacheSize = 1024

type fieldCacheKey struct {
	typ  reflect.Type
	name string
}

// ReflectFieldReader 基于反射的字段读取器，并发安全。
//
// 支持结构体（含未导出字段）、指针、接口和以字符串为 key 的 map。
// 结构体字段按以下顺序匹配：字段名精确匹配、json 标签、忽略大小写的字段名，
// 因此 "productId" 可以读到 ProductID 字段。匿名嵌入字段按 Go 的提升规则参与匹配。
type ReflectFieldReader struct {
	cache *lru.Cache[fieldCacheKey, []int]
}

// NewReflectFieldReader 创建反射字段读取器，size <= 0 时使用默认缓存容量。
func NewReflectFieldReader(size int) *ReflectFieldReader {
	if size <= 0 {
		size = defaultFieldCacheSize
	}
	cache, err := lru.New[fieldCacheKey, []int](size)
	if err != nil {
		// size 已保证为正数，lru.New 只在 size <= 0 时报错
		panic(err)
	}
	return &ReflectFieldReader{cache: cache}
}

// ReadField 读取 v 上名为 name 的字段。
func (r *ReflectFieldReader) ReadField(v any, name string) (any, error) {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, ErrNilFieldHolder
	}

	switch rv.Kind() {
	case reflect.Struct:
		return r.readStructField(rv, name)
	case reflect.Map:
		return readMapKey(rv, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, rv.Type())
	}
}

func (r *ReflectFieldReader) readStructField(rv reflect.Value, name string) (any, error) {
	index, ok := r.fieldIndex(rv.Type(), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, rv.Type(), name)
	}

	// 未导出字段需要可寻址的副本才能通过 unsafe 读取
	if !rv.CanAddr() {
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		rv = cp
	}

	field, err := rv.FieldByIndexErr(index)
	if err != nil {
		// 经由 nil 嵌入指针访问
		return nil, nil
	}
	if !field.CanInterface() {
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}
	return field.Interface(), nil
}

// fieldIndex 查找字段下标并缓存，未找到的结果同样缓存
func (r *ReflectFieldReader) fieldIndex(t reflect.Type, name string) ([]int, bool) {
	key := fieldCacheKey{typ: t, name: name}
	if r.cache != nil {
		if index, ok := r.cache.Get(key); ok {
			return index, index != nil
		}
	}

	index := lookupField(t, name)
	if r.cache != nil {
		r.cache.Add(key, index)
	}
	return index, index != nil
}

func lookupField(t reflect.Type, name string) []int {
	if name == "" {
		return nil
	}
	if f, ok := t.FieldByName(name); ok {
		return f.Index
	}

	fields := reflect.VisibleFields(t)
	for _, f := range fields {
		if jsonName(f) == name {
			return f.Index
		}
	}
	for _, f := range fields {
		if !f.Anonymous && strings.EqualFold(f.Name, name) {
			return f.Index
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func readMapKey(rv reflect.Value, name string) (any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, rv.Type())
	}
	val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !val.IsValid() {
		return nil, fmt.Errorf("%w: map key %q", ErrFieldNotFound, name)
	}
	if !val.CanInterface() {
		return nil, fmt.Errorf("%w: map key %q", ErrNotReadable, name)
	}
	return val.Interface(), nil
}

// indirect 解开指针和接口，遇到 nil 返回 false
func indirect(rv reflect.Value) (reflect.Value, bool) {
	for {
		if !rv.IsValid() {
			return rv, false
		}
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return rv, false
			}
			rv = rv.Elem()
		default:
			return rv, true
		}
	}
}

// isNil 判断 v 是否为 nil 或包含 nil 指针
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
