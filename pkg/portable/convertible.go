package portable

// Convertible 是对象与序列化协议的显式合作能力。
// 实现该接口的类型序列化为 ClassInstance，载荷由类型自身产出。
// FromPortable 在新构造出的零值实例上调用，负责从载荷还原全部状态。
//
// 载荷内部嵌套值的转换由实现方自行发起，调用方传给外层
// Serialize/Deserialize 的选项不会透传到这里；依赖自定义
// Registry 或 Resolver 的嵌套类型需要登记到进程级
// DefaultRegistry/RegisterClass 命名空间。
type Convertible interface {
	ToPortable() (*Value, error)
	FromPortable(pv *Value) error
}

// StateCapturer 是比 Convertible 更弱的结构化状态快照能力。
// 实现该接口的类型序列化为 SecureOpaqueBlob：
// 仅携带属性级状态而不携带任何可执行编码，因此反序列化始终被允许。
type StateCapturer interface {
	CaptureState() (map[string]any, error)
	RestoreState(state map[string]any) error
}
