package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manager 管理多个命名池。
type Manager struct {
	mu     sync.RWMutex
	pools  map[string]*Pool
	closed bool
}

// NewManager 创建新的池管理器
func NewManager() *Manager {
	return &Manager{pools: make(map[string]*Pool)}
}

// Register 注册新池
func (m *Manager) Register(name string, config *Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrPoolClosed
	}
	if _, exists := m.pools[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolAlreadyExists, name)
	}

	p, err := NewPool(name, config)
	if err != nil {
		return nil, err
	}
	m.pools[name] = p
	return p, nil
}

// Get 获取指定名称的池
func (m *Manager) Get(name string) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrPoolClosed
	}
	p, exists := m.pools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return p, nil
}

// Submit 提交任务到指定池
func (m *Manager) Submit(name string, task func()) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	return p.Submit(task)
}

// Stats 返回所有池的统计信息，按名称排序
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stats, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReleaseAllTimeout 关闭所有池，每个池最多等待 timeout
func (m *Manager) ReleaseAllTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	var firstErr error
	for name, p := range m.pools {
		if err := p.ReleaseTimeout(timeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release pool %s: %w", name, err)
		}
	}
	m.pools = make(map[string]*Pool)
	return firstErr
}

// Close 立即关闭所有池
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for _, p := range m.pools {
		p.Release()
	}
	m.pools = make(map[string]*Pool)
}
