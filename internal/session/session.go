package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

// Session 表示一次用户、AI 后端与各接口之间的共享会话。
//
// 约定：
//   - 每个 Session 由一个 uuid 全局唯一标识；
//   - 会话关闭后所有写操作返回 ErrSessionClosed，多次 Close 幂等；
//   - data 为会话级键值存储，保持插入顺序，随快照一并持久化。
type Session struct {
	id uuid.UUID

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	data    *typeutil.OrderedMap[string, any]
	history []*Message

	closed    *atomic.Bool
	closeOnce sync.Once
}

// NewSession 创建一个新会话。
//
// 参数：
//   - parent：会话所属的上层上下文；若为 nil，则使用 context.Background()。
func NewSession(parent context.Context) *Session {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:     uuid.New(),
		ctx:    ctx,
		cancel: cancel,
		data:   typeutil.NewOrderedMap[string, any](),
		closed: atomic.NewBool(false),
	}
	metrics.SessionActive.Inc()
	return s
}

// ID 返回会话的全局唯一标识。
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Context 返回与会话关联的上下文，会话关闭时触发 Done。
func (s *Session) Context() context.Context {
	return s.ctx
}

// Closed 返回会话是否已关闭。
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// SetData 写入会话级数据，保持键的插入顺序。
func (s *Session) SetData(key string, value any) error {
	if s.closed.Load() {
		return merr.WrapErrSessionClosed(s.id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Set(key, value)
	return nil
}

// GetData 读取会话级数据。
func (s *Session) GetData(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Get(key)
}

// Data 返回会话数据的有序快照副本。
func (s *Session) Data() *typeutil.OrderedMap[string, any] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := typeutil.NewOrderedMap[string, any]()
	s.data.Range(func(key string, value any) bool {
		snapshot.Set(key, value)
		return true
	})
	return snapshot
}

// Append 将一条消息追加到会话历史。
func (s *Session) Append(msg *Message) error {
	if s.closed.Load() {
		return merr.WrapErrSessionClosed(s.id)
	}
	if msg == nil {
		return merr.WrapErrParameterMissing("message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	return nil
}

// History 返回会话历史的副本。
func (s *Session) History() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, len(s.history))
	copy(out, s.history)
	return out
}

// Close 关闭会话并取消其上下文，幂等。
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.cancel != nil {
			s.cancel()
		}
		metrics.SessionActive.Dec()
	})
	return nil
}
