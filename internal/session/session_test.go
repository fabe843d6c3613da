package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/portable"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

type SessionSuite struct {
	suite.Suite
}

func (s *SessionSuite) TestLifecycle() {
	sess := NewSession(context.Background())
	s.False(sess.Closed())
	s.NoError(sess.SetData("topic", "weather"))

	s.NoError(sess.Close())
	s.NoError(sess.Close())
	s.True(sess.Closed())

	select {
	case <-sess.Context().Done():
	default:
		s.Fail("context should be canceled after close")
	}

	err := sess.SetData("topic", "news")
	s.ErrorIs(err, merr.ErrSessionClosed)
	s.ErrorIs(sess.Append(NewMessage(sess.ID(), "user", "agent", "hi")), merr.ErrSessionClosed)
}

func (s *SessionSuite) TestDataOrder() {
	sess := NewSession(context.Background())
	defer sess.Close()

	s.NoError(sess.SetData("b", 2))
	s.NoError(sess.SetData("a", 1))
	s.Equal([]string{"b", "a"}, sess.Data().Keys())
}

func (s *SessionSuite) TestManager() {
	m := NewManager()
	sess := m.Open(context.Background())
	s.Equal(1, m.Len())

	got, err := m.Get(sess.ID())
	s.NoError(err)
	s.Equal(sess, got)

	_, err = m.Get(uuid.New())
	s.ErrorIs(err, merr.ErrSessionNotFound)

	s.NoError(m.Close(sess.ID()))
	s.Equal(0, m.Len())
	s.True(sess.Closed())
}

func (s *SessionSuite) TestSnapshotRoundTrip() {
	ctx := context.Background()
	sess := NewSession(ctx)
	defer sess.Close()

	s.NoError(sess.SetData("topic", "weather"))
	s.NoError(sess.SetData("turns", 3))
	msg := NewMessage(sess.ID(), "user", "agent", "hello")
	s.NoError(sess.Append(msg))

	path := filepath.Join(s.T().TempDir(), "session.json")
	s.NoError(sess.Save(ctx, path))

	restored, err := Load(ctx, path)
	s.Require().NoError(err)
	defer restored.Close()

	s.Equal(sess.ID(), restored.ID())
	s.Equal([]string{"topic", "turns"}, restored.Data().Keys())

	topic, ok := restored.GetData("topic")
	s.True(ok)
	s.Equal("weather", topic)
	turns, ok := restored.GetData("turns")
	s.True(ok)
	s.Equal(int64(3), turns)

	history := restored.History()
	s.Require().Len(history, 1)
	s.Equal(msg.ID, history[0].ID)
	s.Equal("user", history[0].SrcInterface)
	s.Equal("agent", history[0].DestInterface)
	s.Equal("hello", history[0].Content)
	s.True(msg.CreatedAt.Equal(history[0].CreatedAt))
}

func (s *SessionSuite) TestSnapshotVersionMismatch() {
	ctx := context.Background()
	sess := NewSession(ctx)
	defer sess.Close()

	dir := s.T().TempDir()
	path := filepath.Join(dir, "session.json")
	s.NoError(sess.Save(ctx, path))

	blob, err := os.ReadFile(path)
	s.Require().NoError(err)
	var env snapshotEnvelope
	s.Require().NoError(json.Unmarshal(blob, &env))
	env.Version = "9.0.0"
	bumped, err := json.Marshal(&env)
	s.Require().NoError(err)

	stale := filepath.Join(dir, "stale.json")
	s.Require().NoError(os.WriteFile(stale, bumped, 0o600))

	_, err = Load(ctx, stale)
	s.ErrorIs(err, merr.ErrSessionVersionMismatch)
}

func (s *SessionSuite) TestLoadFailureReleasesSession() {
	ctx := context.Background()

	data, err := portable.Marshal(typeutil.NewOrderedMap[any, any]())
	s.Require().NoError(err)
	history, err := portable.Marshal([]any{"not a message"})
	s.Require().NoError(err)

	blob, err := json.Marshal(&snapshotEnvelope{
		Version: SnapshotVersion,
		ID:      uuid.NewString(),
		Data:    data,
		History: history,
	})
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "bad.json")
	s.Require().NoError(os.WriteFile(path, blob, 0o600))

	before := testutil.ToFloat64(metrics.SessionActive)
	_, err = Load(ctx, path)
	s.ErrorIs(err, merr.ErrPortableMalformed)
	// 加载失败不得泄漏活跃会话计数。
	s.Equal(before, testutil.ToFloat64(metrics.SessionActive))
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}
