package portable

import (
	"encoding/hex"
	"reflect"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Deserializer 将便携值递归还原为内存值，调度完全镜像序列化侧的标签。
// OpaqueBlob 默认拒绝，须通过 WithUnpickleAll 显式放行。
type Deserializer struct {
	opts *options
}

// NewDeserializer 创建反序列化器。
func NewDeserializer(opts ...Option) *Deserializer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Deserializer{opts: o}
}

// Deserialize 将便携值还原为内存值。
func (d *Deserializer) Deserialize(pv *Value) (any, error) {
	if pv == nil {
		return nil, merr.WrapErrMalformedPortable("nil portable value")
	}
	v, err := d.deserialize(pv, 0)
	if err != nil {
		metrics.DeserializeTotal.WithLabelValues(pv.Tag, metrics.StatusFail).Inc()
		return nil, err
	}
	metrics.DeserializeTotal.WithLabelValues(pv.Tag, metrics.StatusSuccess).Inc()
	return v, nil
}

func (d *Deserializer) deserialize(pv *Value, depth int) (any, error) {
	if depth > d.opts.maxDepth {
		return nil, merr.WrapErrDepthExceeded(d.opts.maxDepth)
	}
	if pv == nil {
		return nil, merr.WrapErrMalformedPortable("nil portable value")
	}

	switch pv.Tag {
	case TagPrimitive:
		return d.deserializePrimitive(pv)
	case TagSequence:
		return d.deserializeSequence(pv, depth)
	case TagMapping:
		return d.deserializeMapping(pv, depth)
	case TagClassInstance:
		return d.deserializeClass(pv)
	case TagHandlerInstance:
		return d.deserializeHandler(pv)
	case TagSecureOpaqueBlob:
		return d.deserializeSecure(pv, depth)
	case TagOpaqueBlob:
		if !d.opts.unpickleAll {
			metrics.DeserializeRejectedTotal.WithLabelValues("opaque_blob").Inc()
			return nil, merr.WrapErrUnsafeDeserialization("opaque payload requires unpickle_all")
		}
		return decodeOpaque(pv.Blob, d.opts.maxOpaqueBytes)
	default:
		metrics.DeserializeRejectedTotal.WithLabelValues("unknown_tag").Inc()
		return nil, merr.WrapErrUnknownPortableTag(pv.Tag)
	}
}

func (d *Deserializer) deserializePrimitive(pv *Value) (any, error) {
	if pv.Subtype == SubtypeBytes {
		text, ok := pv.Scalar.(string)
		if !ok {
			return nil, merr.WrapErrMalformedPortable("byte primitive requires hex string payload")
		}
		raw, err := hex.DecodeString(text)
		if err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		return raw, nil
	}
	return pv.Scalar, nil
}

func (d *Deserializer) deserializeSequence(pv *Value, depth int) (any, error) {
	switch pv.Subtype {
	case SubtypeList, "":
		items := make([]any, 0, len(pv.Items))
		for _, item := range pv.Items {
			v, err := d.deserialize(item, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case SubtypeTuple:
		arr := reflect.New(reflect.ArrayOf(len(pv.Items), anyType)).Elem()
		for i, item := range pv.Items {
			v, err := d.deserialize(item, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Index(i).Set(reflect.ValueOf(&v).Elem())
		}
		return arr.Interface(), nil
	case SubtypeSet:
		set := typeutil.NewSet[any]()
		for _, item := range pv.Items {
			v, err := d.deserialize(item, depth+1)
			if err != nil {
				return nil, err
			}
			if !isHashable(v) {
				return nil, merr.WrapErrMalformedPortable("set element is not hashable")
			}
			set.Insert(v)
		}
		return set, nil
	default:
		return nil, merr.WrapErrMalformedPortable("unknown sequence subtype: " + pv.Subtype)
	}
}

// deserializeMapping 还原键值容器。
// 默认重建为保持插入顺序的 OrderedMap；subtype 为 map 的原生映射
// 在所有键均为字符串时重建为 map[string]any，否则为 map[any]any。
func (d *Deserializer) deserializeMapping(pv *Value, depth int) (any, error) {
	keys := make([]any, 0, len(pv.Pairs))
	vals := make([]any, 0, len(pv.Pairs))
	for _, pair := range pv.Pairs {
		k, err := d.deserialize(pair.Key, depth+1)
		if err != nil {
			return nil, err
		}
		v, err := d.deserialize(pair.Value, depth+1)
		if err != nil {
			return nil, err
		}
		if !isHashable(k) {
			return nil, merr.WrapErrMalformedPortable("mapping key is not hashable")
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}

	if pv.Subtype == SubtypeMap {
		allString := true
		for _, k := range keys {
			if _, ok := k.(string); !ok {
				allString = false
				break
			}
		}
		if allString {
			m := make(map[string]any, len(keys))
			for i, k := range keys {
				m[k.(string)] = vals[i]
			}
			return m, nil
		}
		m := make(map[any]any, len(keys))
		for i, k := range keys {
			m[k] = vals[i]
		}
		return m, nil
	}

	om := typeutil.NewOrderedMap[any, any]()
	for i, k := range keys {
		om.Set(k, vals[i])
	}
	return om, nil
}

func (d *Deserializer) deserializeClass(pv *Value) (any, error) {
	factory, err := resolveClass(d.opts.resolver, pv.Module, pv.Class)
	if err != nil {
		metrics.DeserializeRejectedTotal.WithLabelValues("resolution").Inc()
		return nil, err
	}

	inst := factory()
	c, ok := inst.(Convertible)
	if !ok {
		return nil, merr.WrapErrResolution(pv.Module, pv.Class, "resolved type does not implement the convertible protocol")
	}
	if err := c.FromPortable(pv.Inner); err != nil {
		return nil, err
	}
	return inst, nil
}

func (d *Deserializer) deserializeHandler(pv *Value) (any, error) {
	entry, ok := d.opts.registry.lookupName(pv.Module, pv.Class)
	if !ok {
		metrics.DeserializeRejectedTotal.WithLabelValues("handler_not_registered").Inc()
		return nil, merr.WrapErrHandlerNotRegistered(pv.Module, pv.Class)
	}
	return entry.from(pv.Inner)
}

// deserializeSecure 还原结构化状态快照。
// 快照只含属性数据，因此无论 unpickle_all 与否都允许。
func (d *Deserializer) deserializeSecure(pv *Value, depth int) (any, error) {
	env, err := decodeSecure(pv.Blob, d.opts.maxOpaqueBytes)
	if err != nil {
		return nil, err
	}

	factory, err := resolveClass(d.opts.resolver, env.Module, env.Class)
	if err != nil {
		metrics.DeserializeRejectedTotal.WithLabelValues("resolution").Inc()
		return nil, err
	}
	inst := factory()
	sc, ok := inst.(StateCapturer)
	if !ok {
		return nil, merr.WrapErrResolution(env.Module, env.Class, "resolved type does not implement state restoration")
	}

	var statePV Value
	if err := json.Unmarshal(env.State, &statePV); err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}
	stateVal, err := d.deserialize(&statePV, depth+1)
	if err != nil {
		return nil, err
	}
	state, ok := stateVal.(map[string]any)
	if !ok {
		return nil, merr.WrapErrMalformedPortable("state snapshot must be a string-keyed mapping")
	}
	if err := sc.RestoreState(state); err != nil {
		return nil, err
	}
	return inst, nil
}

// isHashable 报告 v 能否安全用作 map 键。
func isHashable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
