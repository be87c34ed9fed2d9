package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wallet-send/pkg/errno"
	"wallet-send/pkg/logger"
	"wallet-send/pkg/monitor"
)

// Manager 进程内的会话表。会话不跨实例共享。
type Manager struct {
	opts    Options
	newGate func() SendGate

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager newGate 为 nil 时不启用发送关卡；关卡每个会话独立一份
func NewManager(opts Options, newGate func() SendGate) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		newGate:  newGate,
		sessions: make(map[string]*Session),
	}
}

// Create 用入口查询参数创建会话
func (m *Manager) Create(ctx context.Context, params map[string]string) (*Session, error) {
	opts := m.opts
	if m.newGate != nil {
		opts.Gate = m.newGate()
	}
	s, err := NewSession(ctx, uuid.NewString(), params, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	monitor.Workflow.SessionStarted(string(s.State().Intent))
	logger.Info("send session created",
		zap.String("session_id", s.ID),
		zap.String("intent", string(s.State().Intent)))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errno.ErrSessionNotFound
	}
	return s, nil
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 回收空闲超过 idle 的会话。关卡等待或广播中的会话保留。
func (m *Manager) Sweep(idle time.Duration) int {
	deadline := m.opts.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.Busy() || s.idleSince().After(deadline) {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		monitor.Workflow.SessionsEvicted(evicted)
		logger.Info("idle send sessions evicted", zap.Int("count", evicted), zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}
