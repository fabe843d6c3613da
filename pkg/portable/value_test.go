package portable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

type ValueSuite struct {
	suite.Suite
}

func (s *ValueSuite) TestPrimitiveWireFormat() {
	data, err := json.Marshal(Primitive(int64(42)))
	s.NoError(err)
	s.JSONEq(`{"type":"Primitive","data":42}`, string(data))

	var decoded Value
	s.NoError(json.Unmarshal(data, &decoded))
	s.Equal(TagPrimitive, decoded.Tag)
	s.Equal(int64(42), decoded.Scalar)
}

func (s *ValueSuite) TestScalarKinds() {
	cases := []struct {
		wire string
		want any
	}{
		{`{"type":"Primitive","data":null}`, nil},
		{`{"type":"Primitive","data":true}`, true},
		{`{"type":"Primitive","data":-7}`, int64(-7)},
		{`{"type":"Primitive","data":18446744073709551615}`, uint64(18446744073709551615)},
		{`{"type":"Primitive","data":1.5}`, 1.5},
		{`{"type":"Primitive","data":"hello"}`, "hello"},
	}

	for _, c := range cases {
		var v Value
		s.NoError(json.Unmarshal([]byte(c.wire), &v), c.wire)
		s.Equal(c.want, v.Scalar, c.wire)
	}
}

func (s *ValueSuite) TestBigIntegerFidelity() {
	in := Primitive(int64(1) << 62)
	data, err := json.Marshal(in)
	s.NoError(err)

	var out Value
	s.NoError(json.Unmarshal(data, &out))
	s.Equal(int64(1)<<62, out.Scalar)
}

func (s *ValueSuite) TestSequenceRoundTrip() {
	in := &Value{
		Tag:     TagSequence,
		Subtype: SubtypeList,
		Items: []*Value{
			Primitive(int64(1)),
			Primitive("a"),
			Primitive(nil),
		},
	}
	data, err := json.Marshal(in)
	s.NoError(err)
	s.JSONEq(`{"type":"Sequence","subtype":"list","data":[
		{"type":"Primitive","data":1},
		{"type":"Primitive","data":"a"},
		{"type":"Primitive","data":null}]}`, string(data))

	var out Value
	s.NoError(json.Unmarshal(data, &out))
	s.Equal(in, &out)
}

func (s *ValueSuite) TestMappingRoundTrip() {
	in := &Value{
		Tag: TagMapping,
		Pairs: []Pair{
			{Key: Primitive("b"), Value: Primitive(int64(2))},
			{Key: Primitive("a"), Value: Primitive(int64(1))},
		},
	}
	data, err := json.Marshal(in)
	s.NoError(err)

	var out Value
	s.NoError(json.Unmarshal(data, &out))
	s.Equal(in, &out)
	// 键序必须保持写入顺序。
	s.Equal("b", out.Pairs[0].Key.Scalar)
	s.Equal("a", out.Pairs[1].Key.Scalar)
}

func (s *ValueSuite) TestInstanceRequiresLocation() {
	wire := `{"type":"ClassInstance","data":{"type":"Primitive","data":1}}`
	var v Value
	err := v.UnmarshalJSON([]byte(wire))
	s.ErrorIs(err, merr.ErrPortableMalformed)
}

func (s *ValueSuite) TestUnknownTag() {
	var v Value
	err := v.UnmarshalJSON([]byte(`{"type":"Exotic","data":1}`))
	s.ErrorIs(err, merr.ErrPortableUnknownTag)

	err = v.UnmarshalJSON([]byte(`{"data":1}`))
	s.ErrorIs(err, merr.ErrPortableMalformed)
}

func (s *ValueSuite) TestMalformedMappingPair() {
	wire := `{"type":"Mapping","data":[[{"type":"Primitive","data":"k"}]]}`
	var v Value
	err := v.UnmarshalJSON([]byte(wire))
	s.ErrorIs(err, merr.ErrPortableMalformed)
}

func (s *ValueSuite) TestDecodeDepthGuard() {
	depth := maxWireDepth + 10
	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString(`{"type":"Sequence","subtype":"list","data":[`)
	}
	b.WriteString(`{"type":"Primitive","data":0}`)
	for i := 0; i < depth; i++ {
		b.WriteString(`]}`)
	}

	var v Value
	err := v.UnmarshalJSON([]byte(b.String()))
	s.ErrorIs(err, merr.ErrPortableDepthExceeded)
}

func TestValue(t *testing.T) {
	suite.Run(t, new(ValueSuite))
}
