// Package portable 实现任意内存值与 JSON 安全的便携表示之间的双向转换。
//
// 序列化结果是一棵标签联合树（见 Value），完全降级后只含 JSON 标量，
// 适合持久化与跨进程传输。不原生支持协议的第三方类型可通过 Registry
// 注册转换函数对；携带任意编码风险的路径（OpaqueBlob）由显式的
// pickle_all/unpickle_all 开关把守，默认关闭。
package portable

import (
	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
)

// Serialize 使用一次性序列化器将 v 转换为便携值。
func Serialize(v any, opts ...Option) (*Value, error) {
	return NewSerializer(opts...).Serialize(v)
}

// Deserialize 使用一次性反序列化器将便携值还原为内存值。
func Deserialize(pv *Value, opts ...Option) (any, error) {
	return NewDeserializer(opts...).Deserialize(pv)
}

// Marshal 将 v 序列化并编码为 JSON 字节。
func Marshal(v any, opts ...Option) ([]byte, error) {
	pv, err := Serialize(v, opts...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pv)
}

// Unmarshal 从 JSON 字节解码便携值并还原为内存值。
func Unmarshal(data []byte, opts ...Option) (any, error) {
	var pv Value
	if err := json.Unmarshal(data, &pv); err != nil {
		return nil, err
	}
	return Deserialize(&pv, opts...)
}
