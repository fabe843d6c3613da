package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// Manager 维护进程内的活跃会话表。
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager 创建一个空的会话管理器。
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open 创建并登记一个新会话。
func (m *Manager) Open(ctx context.Context) *Session {
	s := NewSession(ctx)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get 按 ID 查找会话，不存在时报 ErrSessionNotFound。
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, merr.WrapErrSessionNotFound(id)
	}
	return s, nil
}

// Close 关闭并移除指定会话，幂等。
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// CloseAll 关闭并移除全部会话。
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}

// Len 返回当前活跃会话数量。
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
