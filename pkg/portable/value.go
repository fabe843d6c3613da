package portable

import (
	"strconv"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// 便携值的标签，对应 JSON 表示中的 "type" 字段。
const (
	// TagPrimitive 表示自描述标量（null/bool/整数/浮点/字符串/字节串）。
	TagPrimitive = "Primitive"
	// TagSequence 表示有序列表，subtype 区分 list/set/tuple。
	TagSequence = "Sequence"
	// TagMapping 表示保持插入顺序的键值对列表。
	TagMapping = "Mapping"
	// TagClassInstance 表示实现 Convertible 协议的自定义对象。
	TagClassInstance = "ClassInstance"
	// TagHandlerInstance 表示通过 Registry 中注册的转换函数序列化的第三方类型。
	TagHandlerInstance = "HandlerInstance"
	// TagOpaqueBlob 表示完整的不透明编码，反序列化默认拒绝。
	TagOpaqueBlob = "OpaqueBlob"
	// TagSecureOpaqueBlob 表示仅含结构化状态快照的不透明编码，始终允许反序列化。
	TagSecureOpaqueBlob = "SecureOpaqueBlob"
)

// 便携值的子类型，对应 JSON 表示中的 "subtype" 字段。
const (
	SubtypeList  = "list"
	SubtypeSet   = "set"
	SubtypeTuple = "tuple"
	SubtypeBytes = "bytes"
	SubtypeMap   = "map"
)

// maxWireDepth 为 JSON 解码时允许的最大嵌套层数，
// 防止恶意输入在解码阶段耗尽调用栈。
const maxWireDepth = 512

// Pair 表示 Mapping 中的一个键值对。
type Pair struct {
	Key   *Value
	Value *Value
}

// Value 是序列化层的标签联合表示。
// 同一时刻只有与 Tag 对应的载荷字段有效：
// Primitive 使用 Scalar，Sequence 使用 Items，Mapping 使用 Pairs，
// ClassInstance/HandlerInstance 使用 Module/Class/Inner，
// OpaqueBlob/SecureOpaqueBlob 使用 Blob。
type Value struct {
	Tag     string
	Subtype string
	Module  string
	Class   string

	// Scalar 为 Primitive 载荷，取值限定为
	// nil、bool、int64、uint64、float64、string。
	Scalar any
	Items  []*Value
	Pairs  []Pair
	Inner  *Value
	// Blob 为 hex 编码的不透明载荷。
	Blob string
}

// Primitive 构造一个标量便携值，供注册转换函数使用。
func Primitive(scalar any) *Value {
	return &Value{Tag: TagPrimitive, Scalar: scalar}
}

type wireValue struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype,omitempty"`
	Module  string          `json:"module,omitempty"`
	Class   string          `json:"class,omitempty"`
	Data    json.RawMessage `json:"data"`
}

var _ json.Marshaler = (*Value)(nil)

var _ json.Unmarshaler = (*Value)(nil)

// MarshalJSON 将便携值编码为
// {"type": ..., "subtype": ..., "module": ..., "class": ..., "data": ...} 格式。
func (v *Value) MarshalJSON() ([]byte, error) {
	data, err := v.marshalData()
	if err != nil {
		return nil, err
	}
	return json.Marshal(&wireValue{
		Type:    v.Tag,
		Subtype: v.Subtype,
		Module:  v.Module,
		Class:   v.Class,
		Data:    data,
	})
}

func (v *Value) marshalData() (json.RawMessage, error) {
	switch v.Tag {
	case TagPrimitive:
		return json.Marshal(v.Scalar)
	case TagSequence:
		items := v.Items
		if items == nil {
			items = []*Value{}
		}
		return json.Marshal(items)
	case TagMapping:
		pairs := make([][2]*Value, 0, len(v.Pairs))
		for _, p := range v.Pairs {
			pairs = append(pairs, [2]*Value{p.Key, p.Value})
		}
		return json.Marshal(pairs)
	case TagClassInstance, TagHandlerInstance:
		if v.Inner == nil {
			return json.Marshal(nil)
		}
		return json.Marshal(v.Inner)
	case TagOpaqueBlob, TagSecureOpaqueBlob:
		return json.Marshal(v.Blob)
	default:
		return nil, merr.WrapErrUnknownPortableTag(v.Tag)
	}
}

// UnmarshalJSON 从 JSON 表示还原便携值，嵌套层数超过 maxWireDepth 时报错。
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := decodeValue(data, 0)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

func decodeValue(data []byte, depth int) (*Value, error) {
	if depth > maxWireDepth {
		return nil, merr.WrapErrDepthExceeded(maxWireDepth)
	}

	var raw wireValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}

	v := &Value{
		Tag:     raw.Type,
		Subtype: raw.Subtype,
		Module:  raw.Module,
		Class:   raw.Class,
	}

	switch raw.Type {
	case TagPrimitive:
		scalar, err := decodeScalar(raw.Data)
		if err != nil {
			return nil, err
		}
		v.Scalar = scalar
	case TagSequence:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw.Data, &elems); err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		v.Items = make([]*Value, 0, len(elems))
		for _, elem := range elems {
			item, err := decodeValue(elem, depth+1)
			if err != nil {
				return nil, err
			}
			v.Items = append(v.Items, item)
		}
	case TagMapping:
		var pairs [][]json.RawMessage
		if err := json.Unmarshal(raw.Data, &pairs); err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		v.Pairs = make([]Pair, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) != 2 {
				return nil, merr.WrapErrMalformedPortable("mapping pair must have exactly two entries")
			}
			key, err := decodeValue(pair[0], depth+1)
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(pair[1], depth+1)
			if err != nil {
				return nil, err
			}
			v.Pairs = append(v.Pairs, Pair{Key: key, Value: val})
		}
	case TagClassInstance, TagHandlerInstance:
		if raw.Module == "" || raw.Class == "" {
			return nil, merr.WrapErrMalformedPortable("instance value requires module and class")
		}
		inner, err := decodeValue(raw.Data, depth+1)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
	case TagOpaqueBlob, TagSecureOpaqueBlob:
		var blob string
		if err := json.Unmarshal(raw.Data, &blob); err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		v.Blob = blob
	case "":
		return nil, merr.WrapErrMalformedPortable("missing type tag")
	default:
		return nil, merr.WrapErrUnknownPortableTag(raw.Type)
	}

	return v, nil
}

// decodeScalar 解析 Primitive 载荷。
// 数字优先按有符号整数解析，随后无符号整数，最后浮点，
// 以保证 int64/uint64 在 JSON 往返中不丢失精度。
func decodeScalar(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, merr.WrapErrMalformedPortable("empty primitive payload")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return nil, merr.WrapErrMalformedPortable("invalid primitive payload: " + string(data))
		}
		return nil, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		return b, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, merr.WrapErrMalformedPortable(err.Error())
		}
		return s, nil
	default:
		text := string(data)
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(text, 10, 64); err == nil {
			return u, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f, nil
		}
		return nil, merr.WrapErrMalformedPortable("invalid primitive payload: " + text)
	}
}
