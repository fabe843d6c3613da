package portable

// DefaultMaxDepth 是序列化与反序列化默认允许的最大递归深度。
const DefaultMaxDepth = 100

type options struct {
	registry       *Registry
	resolver       Resolver
	pickleAll      bool
	unpickleAll    bool
	maxDepth       int
	maxOpaqueBytes int
}

func defaultOptions() *options {
	return &options{
		registry:       DefaultRegistry(),
		maxDepth:       DefaultMaxDepth,
		maxOpaqueBytes: DefaultMaxOpaqueBytes,
	}
}

// Option 用于配置序列化/反序列化行为的选项函数。
// 与方向无关的选项（如 WithRegistry）两侧均可使用，
// 方向特有的选项在另一侧会被忽略。
type Option func(*options)

// WithRegistry 指定转换函数注册表，默认为进程级 DefaultRegistry。
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithResolver 指定反序列化时优先使用的类解析器。
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithPickleAll 允许序列化侧对无法结构化表示的值退化为 OpaqueBlob。
func WithPickleAll(v bool) Option {
	return func(o *options) {
		o.pickleAll = v
	}
}

// WithUnpickleAll 允许反序列化侧接受 OpaqueBlob。
// 这是唯一对不可信输入不安全的路径，默认关闭。
func WithUnpickleAll(v bool) Option {
	return func(o *options) {
		o.unpickleAll = v
	}
}

// WithMaxDepth 指定最大递归深度，0 或负值保持默认。
func WithMaxDepth(d int) Option {
	return func(o *options) {
		if d > 0 {
			o.maxDepth = d
		}
	}
}

// WithMaxOpaqueBytes 指定解码不透明载荷时允许的最大字节数，0 表示不限制。
func WithMaxOpaqueBytes(n int) Option {
	return func(o *options) {
		o.maxOpaqueBytes = n
	}
}
