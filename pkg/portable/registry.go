package portable

import (
	"reflect"
	"sync"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// ToPortableFunc 将某个具体类型的值转换为便携值。
type ToPortableFunc func(v any) (*Value, error)

// FromPortableFunc 从便携值还原某个具体类型的值。
type FromPortableFunc func(pv *Value) (any, error)

type converterEntry struct {
	rt   reflect.Type
	to   ToPortableFunc
	from FromPortableFunc
}

// Registry 维护具体类型到转换函数对的映射。
// 序列化时按值的精确运行时类型查找（不考虑可赋值或接口关系），
// 反序列化时按记录的 module/class 名查找。
// 注册通常发生在进程启动阶段，之后只增不删。
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*converterEntry
	byName map[string]*converterEntry
}

// NewRegistry 创建一个空的 Registry。
// 测试可以借此构造相互隔离的注册表。
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*converterEntry),
		byName: make(map[string]*converterEntry),
	}
}

// Register 为 prototype 的具体类型注册转换函数对。
// 重复注册同一类型时静默覆盖，后注册者生效。
// 只接受具名类型：匿名类型没有可记录的 module/class，无法在反序列化时定位。
func (r *Registry) Register(prototype any, to ToPortableFunc, from FromPortableFunc) error {
	rt := reflect.TypeOf(prototype)
	if rt == nil {
		return merr.WrapErrParameterMissing("prototype")
	}
	module, class := typeName(rt)
	if module == "" || class == "" {
		return merr.WrapErrParameterInvalid("named type", rt.String(), "registry cannot relocate anonymous types")
	}
	if to == nil || from == nil {
		return merr.WrapErrParameterMissing("converter functions")
	}

	entry := &converterEntry{rt: rt, to: to, from: from}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[rt] = entry
	r.byName[module+"."+class] = entry
	return nil
}

// Supports 返回 v 的精确运行时类型是否已注册转换函数。
func (r *Registry) Supports(v any) bool {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byType[rt]
	return ok
}

// Lookup 按精确类型返回注册的转换函数对，未注册时报错。
func (r *Registry) Lookup(rt reflect.Type) (ToPortableFunc, FromPortableFunc, error) {
	r.mu.RLock()
	entry, ok := r.byType[rt]
	r.mu.RUnlock()
	if !ok {
		module, class := typeName(rt)
		return nil, nil, merr.WrapErrHandlerNotRegistered(module, class)
	}
	return entry.to, entry.from, nil
}

func (r *Registry) lookupType(rt reflect.Type) (*converterEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byType[rt]
	return entry, ok
}

func (r *Registry) lookupName(module, class string) (*converterEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[module+"."+class]
	return entry, ok
}

// typeName 返回类型的 module（包路径）与 class（类型名）。
// 指针类型取其指向类型的名称。
func typeName(rt reflect.Type) (string, string) {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.PkgPath(), rt.Name()
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry 返回进程级共享注册表，内置转换函数在首次访问时播种。
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		seedBuiltins(defaultRegistry)
	})
	return defaultRegistry
}
