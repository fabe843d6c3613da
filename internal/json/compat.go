//go:build !((linux || windows || darwin) && amd64)

package json

import (
	jsoniter "github.com/json-iterator/go"
)

// 在 sonic 不支持的平台上退回 json-iterator，
// 同样选择与标准库完全兼容的配置。
var config = jsoniter.ConfigCompatibleWithStandardLibrary

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
