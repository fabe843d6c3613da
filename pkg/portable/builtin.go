package portable

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// seedBuiltins 向注册表播种内置转换函数。
// uuid.UUID 序列化为 32 位小写 hex 字符串，time.Time 序列化为 RFC3339Nano。
func seedBuiltins(r *Registry) {
	_ = r.Register(uuid.UUID{},
		func(v any) (*Value, error) {
			id, ok := v.(uuid.UUID)
			if !ok {
				return nil, merr.WrapErrUnsupportedType(v, "uuid converter")
			}
			return Primitive(hex.EncodeToString(id[:])), nil
		},
		func(pv *Value) (any, error) {
			text, ok := scalarString(pv)
			if !ok {
				return nil, merr.WrapErrMalformedPortable("uuid payload must be a hex string")
			}
			id, err := uuid.Parse(text)
			if err != nil {
				return nil, merr.WrapErrMalformedPortable(err.Error())
			}
			return id, nil
		},
	)

	_ = r.Register(time.Time{},
		func(v any) (*Value, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, merr.WrapErrUnsupportedType(v, "time converter")
			}
			return Primitive(t.Format(time.RFC3339Nano)), nil
		},
		func(pv *Value) (any, error) {
			text, ok := scalarString(pv)
			if !ok {
				return nil, merr.WrapErrMalformedPortable("time payload must be an RFC3339 string")
			}
			t, err := time.Parse(time.RFC3339Nano, text)
			if err != nil {
				return nil, merr.WrapErrMalformedPortable(err.Error())
			}
			return t, nil
		},
	)
}

func scalarString(pv *Value) (string, bool) {
	if pv == nil || pv.Tag != TagPrimitive {
		return "", false
	}
	s, ok := pv.Scalar.(string)
	return s, ok
}
