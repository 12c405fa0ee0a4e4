package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileSuffix = ".json"

// FileMedium 一个命名空间对应一个 JSON 文件，每次写入整体替换
type FileMedium struct {
	mu   sync.Mutex
	path string
}

// NewFileMedium 创建文件存储
func NewFileMedium(path string) *FileMedium {
	return &FileMedium{path: path}
}

func (m *FileMedium) read() (map[string]string, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取本地存储失败: %w", err)
	}
	slots := map[string]string{}
	if len(data) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("解析本地存储失败: %w", err)
	}
	return slots, nil
}

// write 先写临时文件再 rename，避免读到半截内容
func (m *FileMedium) write(slots map[string]string) error {
	if len(slots) == 0 {
		if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("删除本地存储失败: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("写入本地存储失败: %w", err)
	}
	return nil
}

func (m *FileMedium) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots, err := m.read()
	if err != nil {
		return "", false, err
	}
	v, ok := slots[key]
	return v, ok, nil
}

func (m *FileMedium) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots, err := m.read()
	if err != nil {
		return err
	}
	slots[key] = value
	return m.write(slots)
}

func (m *FileMedium) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots, err := m.read()
	if err != nil {
		return err
	}
	if _, ok := slots[key]; !ok {
		return nil
	}
	delete(slots, key)
	return m.write(slots)
}

func (m *FileMedium) All() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

// FileProvider 在目录下为每个命名空间保存一个文件
type FileProvider struct {
	dir     string
	mu      sync.Mutex
	mediums map[string]*FileMedium
}

// NewFileProvider 创建文件 Provider，目录不存在时自动创建
func NewFileProvider(dir string) (*FileProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}
	return &FileProvider{dir: dir, mediums: make(map[string]*FileMedium)}, nil
}

// Dir 存储目录
func (p *FileProvider) Dir() string {
	return p.dir
}

func (p *FileProvider) Open(namespace string) (Medium, error) {
	if err := ValidNamespace(namespace); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.mediums[namespace]
	if !ok {
		m = NewFileMedium(filepath.Join(p.dir, namespace+fileSuffix))
		p.mediums[namespace] = m
	}
	return m, nil
}

// namespaceOf 从文件路径还原命名空间，非存储文件返回空
func namespaceOf(path string) string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, fileSuffix) {
		return ""
	}
	ns := strings.TrimSuffix(base, fileSuffix)
	if ValidNamespace(ns) != nil {
		return ""
	}
	return ns
}
