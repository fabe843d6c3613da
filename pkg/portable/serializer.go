package portable

import (
	"encoding/hex"
	"reflect"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

var emptyStructType = reflect.TypeOf(struct{}{})

// Serializer 将任意内存值递归转换为便携值。
// 转换是输入与注册表内容的纯函数，不产生副作用。
type Serializer struct {
	opts *options
}

// NewSerializer 创建序列化器。
func NewSerializer(opts ...Option) *Serializer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Serializer{opts: o}
}

// Serialize 将 v 转换为便携值。
// 调度顺序：Convertible 协议、内建标量、注册表、有序/原生容器、
// 具名标量伪装检查、StateCapturer 快照，最后才是 pickle_all 逃生通道。
func (s *Serializer) Serialize(v any) (*Value, error) {
	pv, err := s.serialize(v, 0)
	if err != nil {
		metrics.SerializeTotal.WithLabelValues("unknown", metrics.StatusFail).Inc()
		return nil, err
	}
	metrics.SerializeTotal.WithLabelValues(pv.Tag, metrics.StatusSuccess).Inc()
	return pv, nil
}

func (s *Serializer) serialize(v any, depth int) (*Value, error) {
	if depth > s.opts.maxDepth {
		return nil, merr.WrapErrDepthExceeded(s.opts.maxDepth)
	}

	if v == nil {
		return &Value{Tag: TagPrimitive}, nil
	}

	if c, ok := v.(Convertible); ok {
		// 指针接收者实现的协议遇到 typed-nil 时不能调用 ToPortable。
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return &Value{Tag: TagPrimitive}, nil
		}
		return s.serializeConvertible(c)
	}

	switch x := v.(type) {
	case bool:
		return &Value{Tag: TagPrimitive, Scalar: x}, nil
	case string:
		return &Value{Tag: TagPrimitive, Scalar: x}, nil
	case int:
		return &Value{Tag: TagPrimitive, Scalar: int64(x)}, nil
	case int8:
		return &Value{Tag: TagPrimitive, Scalar: int64(x)}, nil
	case int16:
		return &Value{Tag: TagPrimitive, Scalar: int64(x)}, nil
	case int32:
		return &Value{Tag: TagPrimitive, Scalar: int64(x)}, nil
	case int64:
		return &Value{Tag: TagPrimitive, Scalar: x}, nil
	case uint:
		return &Value{Tag: TagPrimitive, Scalar: uint64(x)}, nil
	case uint8:
		return &Value{Tag: TagPrimitive, Scalar: uint64(x)}, nil
	case uint16:
		return &Value{Tag: TagPrimitive, Scalar: uint64(x)}, nil
	case uint32:
		return &Value{Tag: TagPrimitive, Scalar: uint64(x)}, nil
	case uint64:
		return &Value{Tag: TagPrimitive, Scalar: x}, nil
	case float32:
		return &Value{Tag: TagPrimitive, Scalar: float64(x)}, nil
	case float64:
		return &Value{Tag: TagPrimitive, Scalar: x}, nil
	case []byte:
		return &Value{Tag: TagPrimitive, Subtype: SubtypeBytes, Scalar: hex.EncodeToString(x)}, nil
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	if entry, ok := s.opts.registry.lookupType(rt); ok {
		inner, err := entry.to(v)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, merr.WrapErrMalformedPortable("registered converter returned nil value")
		}
		module, class := typeName(rt)
		return &Value{Tag: TagHandlerInstance, Module: module, Class: class, Inner: inner}, nil
	}

	if om, ok := v.(typeutil.AnyOrderedMap); ok {
		return s.serializeOrderedMap(om, depth)
	}

	switch rt.Kind() {
	case reflect.Slice:
		return s.serializeSequence(rv, SubtypeList, depth)
	case reflect.Array:
		return s.serializeSequence(rv, SubtypeTuple, depth)
	case reflect.Map:
		if rt.Elem() == emptyStructType {
			return s.serializeSet(rv, depth)
		}
		return s.serializeMap(rv, depth)
	case reflect.Pointer:
		if rv.IsNil() {
			return &Value{Tag: TagPrimitive}, nil
		}
		// 指针接收者实现的 StateCapturer 必须在解引用前识别。
		if sc, ok := v.(StateCapturer); ok {
			return s.serializeStateCapture(sc, rt, depth)
		}
		return s.serialize(rv.Elem().Interface(), depth)
	}

	switch rt.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// 具名标量伪装成内建标量，结构化还原会丢失其类型身份。
		if s.opts.pickleAll {
			return s.serializeOpaque(v)
		}
		return nil, merr.WrapErrUnsupportedType(v, "named scalar type is not a builtin primitive")
	}

	if sc, ok := v.(StateCapturer); ok {
		return s.serializeStateCapture(sc, rt, depth)
	}

	if s.opts.pickleAll {
		return s.serializeOpaque(v)
	}
	return nil, merr.WrapErrUnsupportedType(v)
}

func (s *Serializer) serializeConvertible(c Convertible) (*Value, error) {
	module, class := typeName(reflect.TypeOf(c))
	if module == "" || class == "" {
		return nil, merr.WrapErrUnsupportedType(c, "anonymous type cannot be relocated by name")
	}
	inner, err := c.ToPortable()
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, merr.WrapErrMalformedPortable("convertible type produced nil value")
	}
	return &Value{Tag: TagClassInstance, Module: module, Class: class, Inner: inner}, nil
}

func (s *Serializer) serializeSequence(rv reflect.Value, subtype string, depth int) (*Value, error) {
	items := make([]*Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := s.serialize(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &Value{Tag: TagSequence, Subtype: subtype, Items: items}, nil
}

// serializeSet 将 map[T]struct{} 形态的集合序列化为 Sequence(set)。
// 元素顺序为运行时的原生迭代顺序，跨进程不保证稳定。
func (s *Serializer) serializeSet(rv reflect.Value, depth int) (*Value, error) {
	items := make([]*Value, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		item, err := s.serialize(iter.Key().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &Value{Tag: TagSequence, Subtype: SubtypeSet, Items: items}, nil
}

func (s *Serializer) serializeOrderedMap(om typeutil.AnyOrderedMap, depth int) (*Value, error) {
	pairs := make([]Pair, 0, om.Len())
	var rangeErr error
	om.RangeAny(func(k, v any) bool {
		key, err := s.serialize(k, depth+1)
		if err != nil {
			rangeErr = err
			return false
		}
		val, err := s.serialize(v, depth+1)
		if err != nil {
			rangeErr = err
			return false
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
		return true
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	return &Value{Tag: TagMapping, Pairs: pairs}, nil
}

// serializeMap 处理原生 map，键序为运行时迭代顺序。
// 需要稳定插入顺序的调用方应使用 typeutil.OrderedMap。
func (s *Serializer) serializeMap(rv reflect.Value, depth int) (*Value, error) {
	pairs := make([]Pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := s.serialize(iter.Key().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		val, err := s.serialize(iter.Value().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return &Value{Tag: TagMapping, Subtype: SubtypeMap, Pairs: pairs}, nil
}

func (s *Serializer) serializeStateCapture(sc StateCapturer, rt reflect.Type, depth int) (*Value, error) {
	module, class := typeName(rt)
	if module == "" || class == "" {
		return nil, merr.WrapErrUnsupportedType(sc, "anonymous type cannot be relocated by name")
	}

	state, err := sc.CaptureState()
	if err != nil {
		return nil, err
	}
	statePV, err := s.serialize(state, depth+1)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(statePV)
	if err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}

	blob, err := encodeSecure(&secureEnvelope{Module: module, Class: class, State: raw})
	if err != nil {
		return nil, err
	}
	return &Value{Tag: TagSecureOpaqueBlob, Blob: blob}, nil
}

func (s *Serializer) serializeOpaque(v any) (*Value, error) {
	blob, err := encodeOpaque(v)
	if err != nil {
		return nil, err
	}
	return &Value{Tag: TagOpaqueBlob, Blob: blob}, nil
}
