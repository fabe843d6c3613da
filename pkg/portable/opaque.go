package portable

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// DefaultMaxOpaqueBytes 是解码不透明载荷时默认允许的最大字节数。
const DefaultMaxOpaqueBytes = 16 << 20

// opaquePayload 包裹任意值，使 gob 能按接口字段编码具体类型信息。
type opaquePayload struct {
	Value any
}

// secureEnvelope 是 SecureOpaqueBlob 的载荷：
// 只携带类型定位信息和 JSON 编码的结构化状态快照，不携带完整对象编码。
type secureEnvelope struct {
	Module string
	Class  string
	State  []byte
}

// safeGobRegister 注册具体类型供 gob 编解码接口字段时使用。
// 同一类型重复注册会使 gob panic，这里吞掉以保证幂等。
func safeGobRegister(v any) {
	defer func() {
		_ = recover()
	}()
	gob.Register(v)
}

// encodeOpaque 将任意值完整编码为 hex 字符串。
// 这是 pickle_all 逃生通道的载荷格式，只应在调用方显式要求时使用。
func encodeOpaque(v any) (string, error) {
	if v != nil {
		safeGobRegister(v)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&opaquePayload{Value: v}); err != nil {
		return "", merr.WrapErrUnsupportedType(v, err.Error())
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// decodeOpaque 从 hex 字符串还原完整编码的值。
func decodeOpaque(blob string, maxBytes int) (any, error) {
	raw, err := decodeBlob(blob, maxBytes)
	if err != nil {
		return nil, err
	}

	var payload opaquePayload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&payload); err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}
	return payload.Value, nil
}

func encodeSecure(env *secureEnvelope) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return "", merr.WrapErrMalformedPortable(err.Error())
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func decodeSecure(blob string, maxBytes int) (*secureEnvelope, error) {
	raw, err := decodeBlob(blob, maxBytes)
	if err != nil {
		return nil, err
	}

	var env secureEnvelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}
	return &env, nil
}

func decodeBlob(blob string, maxBytes int) ([]byte, error) {
	if maxBytes > 0 && hex.DecodedLen(len(blob)) > maxBytes {
		return nil, merr.WrapErrPortableTooLarge(hex.DecodedLen(len(blob)), maxBytes)
	}
	raw, err := hex.DecodeString(blob)
	if err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}
	return raw, nil
}
