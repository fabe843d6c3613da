package handler

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/AutoDone-AI/AutoDone-AI/internal/session"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

type HandlerSuite struct {
	suite.Suite

	handler *Handler
}

func (s *HandlerSuite) SetupTest() {
	s.handler = NewHandler()

	iface := NewInterface("calculator")
	s.Require().NoError(iface.RegisterCommand(&Command{
		Name: "add",
		Params: []Param{
			{Name: "a", Type: ParamInt, Required: true},
			{Name: "b", Type: ParamInt, Required: true},
		},
		Func: func(ctx context.Context, sess *session.Session, args map[string]any) (any, error) {
			return args["a"].(int64) + args["b"].(int64), nil
		},
	}))
	s.Require().NoError(s.handler.RegisterInterface(iface))
}

func (s *HandlerSuite) TearDownTest() {
	s.handler.Close()
}

func (s *HandlerSuite) TestCall() {
	out, err := s.handler.Call(context.Background(), nil, "add", map[string]any{"a": 1, "b": 2})
	s.NoError(err)
	s.Equal(int64(3), out)
}

func (s *HandlerSuite) TestArgumentCoercion() {
	// 字符串实参向声明的整型归一化。
	out, err := s.handler.Call(context.Background(), nil, "add", map[string]any{"a": "40", "b": int64(2)})
	s.NoError(err)
	s.Equal(int64(42), out)

	_, err = s.handler.Call(context.Background(), nil, "add", map[string]any{"a": "forty", "b": 2})
	s.ErrorIs(err, merr.ErrCommandInvalidArgument)
}

func (s *HandlerSuite) TestMissingRequiredArgument() {
	_, err := s.handler.Call(context.Background(), nil, "add", map[string]any{"a": 1})
	s.ErrorIs(err, merr.ErrCommandInvalidArgument)
}

func (s *HandlerSuite) TestUnknownCommand() {
	_, err := s.handler.Call(context.Background(), nil, "subtract", nil)
	s.ErrorIs(err, merr.ErrCommandNotFound)
}

func (s *HandlerSuite) TestDuplicateRegistration() {
	dup := NewInterface("calculator")
	s.ErrorIs(s.handler.RegisterInterface(dup), merr.ErrInterfaceDuplicate)

	other := NewInterface("math")
	s.Require().NoError(other.RegisterCommand(&Command{
		Name: "add",
		Func: func(ctx context.Context, sess *session.Session, args map[string]any) (any, error) {
			return nil, nil
		},
	}))
	s.ErrorIs(s.handler.RegisterInterface(other), merr.ErrCommandDuplicate)
}

func (s *HandlerSuite) TestDuplicateCommandWithinInterface() {
	iface := NewInterface("echo")
	cmd := &Command{
		Name: "say",
		Func: func(ctx context.Context, sess *session.Session, args map[string]any) (any, error) {
			return args["text"], nil
		},
	}
	s.NoError(iface.RegisterCommand(cmd))
	s.ErrorIs(iface.RegisterCommand(cmd), merr.ErrCommandDuplicate)
}

func (s *HandlerSuite) TestPost() {
	future := s.handler.Post(context.Background(), nil, "add", map[string]any{"a": 20, "b": 22})
	out, err := future.Await()
	s.NoError(err)
	s.Equal(int64(42), out)
}

func (s *HandlerSuite) TestClosedSessionRejected() {
	sess := session.NewSession(context.Background())
	s.NoError(sess.Close())

	_, err := s.handler.Call(context.Background(), sess, "add", map[string]any{"a": 1, "b": 2})
	s.ErrorIs(err, merr.ErrSessionClosed)
}

func (s *HandlerSuite) TestDispatch() {
	sess := session.NewSession(context.Background())
	defer sess.Close()

	msg := session.NewMessage(sess.ID(), "user", "calculator", map[string]any{
		"command": "add",
		"args":    map[string]any{"a": 2, "b": 3},
	})
	out, err := s.handler.Dispatch(context.Background(), sess, msg)
	s.NoError(err)
	s.Equal(int64(5), out)
	s.Len(sess.History(), 1)
}

func (s *HandlerSuite) TestDispatchRequiresSession() {
	msg := session.NewMessage(uuid.New(), "user", "calculator", map[string]any{
		"command": "add",
		"args":    map[string]any{"a": 1, "b": 2},
	})
	_, err := s.handler.Dispatch(context.Background(), nil, msg)
	s.ErrorIs(err, merr.ErrParameterMissing)

	s.ErrorIs(s.handler.Broadcast(context.Background(), nil, map[string]any{"command": "add"}),
		merr.ErrParameterMissing)
}

func (s *HandlerSuite) TestDispatchUnknownInterface() {
	sess := session.NewSession(context.Background())
	defer sess.Close()

	msg := session.NewMessage(sess.ID(), "user", "ghost", map[string]any{"command": "add"})
	_, err := s.handler.Dispatch(context.Background(), sess, msg)
	s.ErrorIs(err, merr.ErrInterfaceNotFound)
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
