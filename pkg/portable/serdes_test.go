package portable

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

// chatRecord 实现 Convertible 协议，作为自定义类序列化的测试对象。
type chatRecord struct {
	Role string
	Text string
}

func (r *chatRecord) ToPortable() (*Value, error) {
	om := typeutil.NewOrderedMap[any, any]()
	om.Set("role", r.Role)
	om.Set("text", r.Text)
	return Serialize(om)
}

func (r *chatRecord) FromPortable(pv *Value) error {
	v, err := Deserialize(pv)
	if err != nil {
		return err
	}
	om, ok := v.(*typeutil.OrderedMap[any, any])
	if !ok {
		return merr.WrapErrMalformedPortable("chat record payload must be a mapping")
	}
	if role, ok := om.Get("role"); ok {
		r.Role = role.(string)
	}
	if text, ok := om.Get("text"); ok {
		r.Text = text.(string)
	}
	return nil
}

// gadget 只实现结构化状态快照，序列化为 SecureOpaqueBlob。
type gadget struct {
	Name  string
	Count int64
}

func (g *gadget) CaptureState() (map[string]any, error) {
	return map[string]any{
		"name":  g.Name,
		"count": g.Count,
	}, nil
}

func (g *gadget) RestoreState(state map[string]any) error {
	if name, ok := state["name"].(string); ok {
		g.Name = name
	}
	if count, ok := state["count"].(int64); ok {
		g.Count = count
	}
	return nil
}

// opaqueProbe 不实现任何协议，只能走 pickle_all 逃生通道。
type opaqueProbe struct {
	Payload string
}

// celsius 是伪装成浮点的具名标量。
type celsius float64

type recordingResolver struct {
	called bool
	inner  Resolver
}

func (r *recordingResolver) Resolve(module, class string) (Factory, bool) {
	r.called = true
	if r.inner == nil {
		return nil, false
	}
	return r.inner.Resolve(module, class)
}

type SerDesSuite struct {
	suite.Suite
}

func (s *SerDesSuite) SetupSuite() {
	s.Require().NoError(RegisterClass(&chatRecord{}))
	s.Require().NoError(RegisterClass(&gadget{}))
}

func (s *SerDesSuite) roundTrip(v any, opts ...Option) any {
	pv, err := Serialize(v, opts...)
	s.Require().NoError(err)
	out, err := Deserialize(pv, opts...)
	s.Require().NoError(err)
	return out
}

func (s *SerDesSuite) TestScalar() {
	pv, err := Serialize(42)
	s.NoError(err)
	s.Equal(TagPrimitive, pv.Tag)
	s.Equal(int64(42), pv.Scalar)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal(int64(42), out)
}

func (s *SerDesSuite) TestList() {
	pv, err := Serialize([]any{1, "a", nil})
	s.NoError(err)
	s.Equal(TagSequence, pv.Tag)
	s.Equal(SubtypeList, pv.Subtype)
	s.Len(pv.Items, 3)
	for _, item := range pv.Items {
		s.Equal(TagPrimitive, item.Tag)
	}

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal([]any{int64(1), "a", nil}, out)
}

func (s *SerDesSuite) TestTuple() {
	out := s.roundTrip([2]any{"x", int64(9)})
	s.Equal([2]any{"x", int64(9)}, out)
}

func (s *SerDesSuite) TestSet() {
	pv, err := Serialize(map[string]struct{}{"x": {}, "y": {}})
	s.NoError(err)
	s.Equal(TagSequence, pv.Tag)
	s.Equal(SubtypeSet, pv.Subtype)

	out, err := Deserialize(pv)
	s.NoError(err)
	set, ok := out.(typeutil.Set[any])
	s.Require().True(ok)
	s.Equal(2, set.Len())
	s.True(set.Contain("x"))
	s.True(set.Contain("y"))
}

func (s *SerDesSuite) TestBytes() {
	pv, err := Serialize([]byte{0xde, 0xad})
	s.NoError(err)
	s.Equal(TagPrimitive, pv.Tag)
	s.Equal(SubtypeBytes, pv.Subtype)
	s.Equal("dead", pv.Scalar)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal([]byte{0xde, 0xad}, out)
}

func (s *SerDesSuite) TestOrderedMappingPreservesInsertionOrder() {
	om := typeutil.NewOrderedMap[any, any]()
	om.Set("b", 2)
	om.Set("a", 1)

	pv, err := Serialize(om)
	s.NoError(err)
	s.Equal(TagMapping, pv.Tag)
	s.Require().Len(pv.Pairs, 2)
	s.Equal("b", pv.Pairs[0].Key.Scalar)
	s.Equal("a", pv.Pairs[1].Key.Scalar)

	out, err := Deserialize(pv)
	s.NoError(err)
	restored, ok := out.(*typeutil.OrderedMap[any, any])
	s.Require().True(ok)
	s.Equal([]any{"b", "a"}, restored.Keys())
}

func (s *SerDesSuite) TestNativeMap() {
	pv, err := Serialize(map[string]any{"k": "v"})
	s.NoError(err)
	s.Equal(TagMapping, pv.Tag)
	s.Equal(SubtypeMap, pv.Subtype)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal(map[string]any{"k": "v"}, out)
}

func (s *SerDesSuite) TestRegisteredConverter() {
	id := uuid.New()
	pv, err := Serialize(id)
	s.NoError(err)
	s.Equal(TagHandlerInstance, pv.Tag)
	s.Equal("github.com/google/uuid", pv.Module)
	s.Equal("UUID", pv.Class)
	s.Require().NotNil(pv.Inner)
	s.Equal(TagPrimitive, pv.Inner.Tag)
	s.Len(pv.Inner.Scalar, 32)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal(id, out)
}

func (s *SerDesSuite) TestTimeConverter() {
	now := time.Now().Truncate(time.Nanosecond)
	out := s.roundTrip(now)
	restored, ok := out.(time.Time)
	s.Require().True(ok)
	s.True(now.Equal(restored))
}

func (s *SerDesSuite) TestRegistrationOverwrite() {
	reg := NewRegistry()
	s.NoError(reg.Register(celsius(0),
		func(v any) (*Value, error) { return Primitive("first"), nil },
		func(pv *Value) (any, error) { return celsius(1), nil },
	))
	s.NoError(reg.Register(celsius(0),
		func(v any) (*Value, error) { return Primitive("second"), nil },
		func(pv *Value) (any, error) { return celsius(2), nil },
	))

	pv, err := Serialize(celsius(36.6), WithRegistry(reg))
	s.NoError(err)
	s.Equal("second", pv.Inner.Scalar)

	out, err := Deserialize(pv, WithRegistry(reg))
	s.NoError(err)
	s.Equal(celsius(2), out)
}

func (s *SerDesSuite) TestMissingHandler() {
	reg := NewRegistry()
	s.NoError(reg.Register(celsius(0),
		func(v any) (*Value, error) { return Primitive(float64(v.(celsius))), nil },
		func(pv *Value) (any, error) { return celsius(pv.Scalar.(float64)), nil },
	))

	pv, err := Serialize(celsius(1), WithRegistry(reg))
	s.NoError(err)

	_, err = Deserialize(pv, WithRegistry(NewRegistry()))
	s.ErrorIs(err, merr.ErrDeserializeHandlerNotRegistered)
}

func (s *SerDesSuite) TestConvertibleRoundTrip() {
	in := &chatRecord{Role: "user", Text: "hello"}
	pv, err := Serialize(in)
	s.NoError(err)
	s.Equal(TagClassInstance, pv.Tag)
	s.Equal("chatRecord", pv.Class)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal(in, out)
}

func (s *SerDesSuite) TestResolverPrecedence() {
	in := &chatRecord{Role: "system", Text: "hi"}
	pv, err := Serialize(in)
	s.Require().NoError(err)

	resolver := &recordingResolver{inner: Namespace{
		pv.Module + "." + pv.Class: func() any { return &chatRecord{} },
	}}
	out, err := Deserialize(pv, WithResolver(resolver))
	s.NoError(err)
	s.True(resolver.called)
	s.Equal(in, out)
}

func (s *SerDesSuite) TestResolutionFailure() {
	pv := &Value{
		Tag:    TagClassInstance,
		Module: "example.com/ghost",
		Class:  "Phantom",
		Inner:  Primitive(nil),
	}
	_, err := Deserialize(pv)
	s.ErrorIs(err, merr.ErrDeserializeResolution)
}

func (s *SerDesSuite) TestStateCaptureRoundTrip() {
	in := &gadget{Name: "probe", Count: 3}
	pv, err := Serialize(in)
	s.NoError(err)
	s.Equal(TagSecureOpaqueBlob, pv.Tag)

	// 结构化快照不受 unpickle_all 约束。
	out, err := Deserialize(pv)
	s.NoError(err)
	s.Equal(in, out)
}

func (s *SerDesSuite) TestNilConvertiblePointer() {
	// typed-nil 不触发 ToPortable，降级为 null 标量。
	pv, err := Serialize((*chatRecord)(nil))
	s.Require().NoError(err)
	s.Equal(TagPrimitive, pv.Tag)
	s.Nil(pv.Scalar)

	out, err := Deserialize(pv)
	s.NoError(err)
	s.Nil(out)

	pv, err = Serialize([]any{&chatRecord{Role: "user", Text: "hi"}, (*chatRecord)(nil)})
	s.Require().NoError(err)
	s.Require().Len(pv.Items, 2)
	s.Equal(TagClassInstance, pv.Items[0].Tag)
	s.Equal(TagPrimitive, pv.Items[1].Tag)

	pv, err = Serialize((*gadget)(nil))
	s.Require().NoError(err)
	s.Equal(TagPrimitive, pv.Tag)
	s.Nil(pv.Scalar)
}

func (s *SerDesSuite) TestOpaqueRefusedByDefault() {
	in := opaqueProbe{Payload: "secret"}

	_, err := Serialize(in)
	s.ErrorIs(err, merr.ErrSerializeUnsupportedType)

	pv, err := Serialize(in, WithPickleAll(true))
	s.NoError(err)
	s.Equal(TagOpaqueBlob, pv.Tag)

	_, err = Deserialize(pv)
	s.ErrorIs(err, merr.ErrDeserializeUnsafe)

	out, err := Deserialize(pv, WithUnpickleAll(true))
	s.NoError(err)
	s.Equal(in, out)
}

func (s *SerDesSuite) TestNamedScalarMasquerade() {
	_, err := Serialize(celsius(36.6))
	s.ErrorIs(err, merr.ErrSerializeUnsupportedType)

	pv, err := Serialize(celsius(36.6), WithPickleAll(true))
	s.NoError(err)
	s.Equal(TagOpaqueBlob, pv.Tag)
}

func (s *SerDesSuite) TestDepthExceeded() {
	v := any(0)
	for i := 0; i < DefaultMaxDepth+10; i++ {
		v = []any{v}
	}
	_, err := Serialize(v)
	s.ErrorIs(err, merr.ErrPortableDepthExceeded)
}

func (s *SerDesSuite) TestMarshalRoundTrip() {
	om := typeutil.NewOrderedMap[any, any]()
	om.Set("b", 2)
	om.Set("a", []any{1, nil, "z"})

	data, err := Marshal(om)
	s.NoError(err)

	out, err := Unmarshal(data)
	s.NoError(err)
	restored, ok := out.(*typeutil.OrderedMap[any, any])
	s.Require().True(ok)
	s.Equal([]any{"b", "a"}, restored.Keys())
	val, _ := restored.Get("a")
	s.Equal([]any{int64(1), nil, "z"}, val)
}

func TestSerDes(t *testing.T) {
	suite.Run(t, new(SerDesSuite))
}
