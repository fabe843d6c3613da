package json

import (
	stdjson "encoding/json"
)

// RawMessage 与标准库 encoding/json.RawMessage 完全兼容，
// 便于在延迟解析场景下与第三方 JSON 实现互操作。
type RawMessage = stdjson.RawMessage

// Number 与标准库 encoding/json.Number 完全兼容。
type Number = stdjson.Number

// Marshaler 与标准库 encoding/json.Marshaler 完全兼容。
type Marshaler = stdjson.Marshaler

// Unmarshaler 与标准库 encoding/json.Unmarshaler 完全兼容。
type Unmarshaler = stdjson.Unmarshaler
