package localstore

import (
	"fmt"
	"regexp"
	"sync"
)

// Medium 字符串键值槽位，对应浏览器本地存储
type Medium interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	All() (map[string]string, error)
}

// Provider 按命名空间（游客标识或用户）打开存储介质
type Provider interface {
	Open(namespace string) (Medium, error)
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidNamespace 命名空间只允许字母、数字、下划线和连字符
func ValidNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return fmt.Errorf("无效的本地存储命名空间 %q", namespace)
	}
	return nil
}

// MemoryMedium 内存实现，进程退出即丢失
type MemoryMedium struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemoryMedium 创建内存存储
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{slots: make(map[string]string)}
}

func (m *MemoryMedium) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	return v, ok, nil
}

func (m *MemoryMedium) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}

func (m *MemoryMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *MemoryMedium) All() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.slots))
	for k, v := range m.slots {
		out[k] = v
	}
	return out, nil
}

// MemoryProvider 每个命名空间一个 MemoryMedium
type MemoryProvider struct {
	mu      sync.Mutex
	mediums map[string]*MemoryMedium
}

// NewMemoryProvider 创建内存 Provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{mediums: make(map[string]*MemoryMedium)}
}

func (p *MemoryProvider) Open(namespace string) (Medium, error) {
	if err := ValidNamespace(namespace); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.mediums[namespace]
	if !ok {
		m = NewMemoryMedium()
		p.mediums[namespace] = m
	}
	return m, nil
}
