package portable

import (
	"reflect"
	"sync"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// Factory 构造目标类型的新实例，通常返回指向零值的指针。
type Factory func() any

// Resolver 将记录在便携值中的 module/class 名解析为实例工厂。
// 调用方在反序列化时提供 Resolver，可以完全绕开进程级命名空间。
type Resolver interface {
	Resolve(module, class string) (Factory, bool)
}

// Namespace 是最简单的 Resolver 实现，key 为 "module.class"。
type Namespace map[string]Factory

var _ Resolver = (Namespace)(nil)

// Resolve 在命名空间中查找指定类。
func (ns Namespace) Resolve(module, class string) (Factory, bool) {
	factory, ok := ns[module+"."+class]
	return factory, ok
}

// defaultNamespace 为进程级类命名空间，
// 各包在 init 阶段通过 RegisterClass 登记可反序列化的类。
var (
	defaultNamespaceMu sync.RWMutex
	defaultNamespace   = make(Namespace)
)

// RegisterClass 将 prototype 的具体类型登记到进程级命名空间。
// 只接受具名类型；重复登记静默覆盖。
// 工厂返回指向零值的指针，使 FromPortable/RestoreState 能携带指针接收者。
func RegisterClass(prototype any) error {
	rt := reflect.TypeOf(prototype)
	if rt == nil {
		return merr.WrapErrParameterMissing("prototype")
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	module, class := rt.PkgPath(), rt.Name()
	if module == "" || class == "" {
		return merr.WrapErrParameterInvalid("named type", rt.String(), "namespace cannot relocate anonymous types")
	}

	factory := func() any {
		return reflect.New(rt).Interface()
	}

	defaultNamespaceMu.Lock()
	defer defaultNamespaceMu.Unlock()
	defaultNamespace[module+"."+class] = factory
	return nil
}

// resolveClass 先查调用方提供的 resolver，未命中再查进程级命名空间。
// 解析失败时报 ResolutionError；匿名类型没有可解析的名称，直接拒绝。
func resolveClass(resolver Resolver, module, class string) (Factory, error) {
	if module == "" || class == "" {
		return nil, merr.WrapErrResolution(module, class, "anonymous type cannot be resolved by name")
	}
	if resolver != nil {
		if factory, ok := resolver.Resolve(module, class); ok {
			return factory, nil
		}
	}
	defaultNamespaceMu.RLock()
	factory, ok := defaultNamespace[module+"."+class]
	defaultNamespaceMu.RUnlock()
	if !ok {
		return nil, merr.WrapErrResolution(module, class)
	}
	return factory, nil
}
