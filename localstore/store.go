package localstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"finpalette/models"

	"github.com/google/uuid"
)

// 存储槽位名称
const (
	SlotTransactions = "transactions"
	SlotLastPalette  = "lastUsedPaletteId"
	SlotTheme        = "theme"
	SlotMigrationKey = "migrationKey"
)

// Preferences 界面偏好
type Preferences struct {
	LastPaletteID string `json:"last_palette_id"`
	Theme         string `json:"theme"`
}

// Store 单个命名空间的交易文档。
// 每次调用都完整读出、修改、写回；mu 只串行化本进程内的写入，
// 其他进程对同一文件的并发写入仍是后写覆盖。
type Store struct {
	mu     sync.Mutex
	medium Medium
	newID  func() string
}

// NewStore 基于存储介质创建 Store
func NewStore(medium Medium) *Store {
	return &Store{medium: medium, newID: uuid.NewString}
}

func (s *Store) load() ([]models.Transaction, error) {
	raw, ok, err := s.medium.Get(SlotTransactions)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []models.Transaction{}, nil
	}
	var doc []models.Transaction
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("解析本地交易失败: %w", err)
	}
	return doc, nil
}

func (s *Store) save(doc []models.Transaction) error {
	if len(doc) == 0 {
		return s.medium.Delete(SlotTransactions)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.medium.Set(SlotTransactions, string(data))
}

// mutate 一次完整的读-改-写
func (s *Store) mutate(op Op) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return models.Transaction{}, err
	}
	next, tx, err := Apply(doc, op)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.save(next); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// List 返回全部本地交易，按写入顺序
func (s *Store) List() ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add 新增交易。首次写入时为文档分配迁移键。
func (s *Store) Add(in models.TransactionInput) (models.Transaction, error) {
	if _, err := s.MigrationKey(); err != nil {
		return models.Transaction{}, err
	}
	return s.mutate(AddOp{Input: in, NewID: s.newID})
}

// Update 按本地 ID 合并更新，不存在时返回 ErrNotFound
func (s *Store) Update(localID string, patch models.TransactionPatch) (models.Transaction, error) {
	return s.mutate(UpdateOp{LocalID: localID, Patch: patch})
}

// Remove 按本地 ID 删除
func (s *Store) Remove(localID string) error {
	_, err := s.mutate(RemoveOp{LocalID: localID})
	return err
}

// Clear 清空交易文档及其迁移键
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.medium.Delete(SlotTransactions); err != nil {
		return err
	}
	return s.medium.Delete(SlotMigrationKey)
}

// MigrationKey 返回文档的迁移键，没有则生成并保存
func (s *Store) MigrationKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok, err := s.medium.Get(SlotMigrationKey)
	if err != nil {
		return "", err
	}
	if ok && key != "" {
		return key, nil
	}
	key = uuid.NewString()
	if err := s.medium.Set(SlotMigrationKey, key); err != nil {
		return "", err
	}
	return key, nil
}

// Preferences 读取界面偏好
func (s *Store) Preferences() (Preferences, error) {
	var prefs Preferences
	last, _, err := s.medium.Get(SlotLastPalette)
	if err != nil {
		return prefs, err
	}
	theme, _, err := s.medium.Get(SlotTheme)
	if err != nil {
		return prefs, err
	}
	prefs.LastPaletteID = last
	prefs.Theme = theme
	return prefs, nil
}

// SetLastPalette 记录最近使用的账本，空值表示清除
func (s *Store) SetLastPalette(paletteID string) error {
	if paletteID == "" {
		return s.medium.Delete(SlotLastPalette)
	}
	return s.medium.Set(SlotLastPalette, paletteID)
}

// SetTheme 保存主题
func (s *Store) SetTheme(theme string) error {
	if theme == "" {
		return s.medium.Delete(SlotTheme)
	}
	return s.medium.Set(SlotTheme, theme)
}

// Usage 当前命名空间占用的字节数
func (s *Store) Usage() (Usage, error) {
	slots, err := s.medium.All()
	if err != nil {
		return Usage{}, err
	}
	return MeasureSlots(slots), nil
}

// Registry 按命名空间缓存 Store，保证同一命名空间只有一个写入者
type Registry struct {
	provider Provider
	mu       sync.Mutex
	stores   map[string]*Store
}

// NewRegistry 创建 Registry
func NewRegistry(provider Provider) *Registry {
	return &Registry{provider: provider, stores: make(map[string]*Store)}
}

// Store 打开命名空间对应的 Store
func (r *Registry) Store(namespace string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[namespace]; ok {
		return s, nil
	}
	medium, err := r.provider.Open(namespace)
	if err != nil {
		return nil, err
	}
	s := NewStore(medium)
	r.stores[namespace] = s
	return s, nil
}
