//go:build (linux || windows || darwin) && amd64

package json

import (
	"github.com/bytedance/sonic"
)

// config 使用 sonic 的标准兼容模式，行为与 encoding/json 保持一致
// （包括 HTML 转义与 key 排序），以保证跨实现的字节级稳定性。
var config = sonic.ConfigStd

// Marshal 将对象编码为 JSON 字节序列。
func Marshal(v any) ([]byte, error) {
	return config.Marshal(v)
}

// MarshalIndent 将对象编码为带缩进的 JSON 字节序列。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return config.MarshalIndent(v, prefix, indent)
}

// Unmarshal 将 JSON 字节序列解码到目标对象。
func Unmarshal(data []byte, v any) error {
	return config.Unmarshal(data, v)
}

// Valid 判断给定字节序列是否为合法 JSON。
func Valid(data []byte) bool {
	return config.Valid(data)
}
