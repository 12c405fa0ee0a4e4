package dataaccess

import (
	"fmt"
	"sync"

	"finpalette/models"

	"golang.org/x/sync/singleflight"
)

// Feed 累积的交易分页
type Feed struct {
	Items   []models.Transaction `json:"items"`
	Pages   int                  `json:"pages"`
	HasMore bool                 `json:"has_more"`
}

func (f Feed) clone() Feed {
	items := make([]models.Transaction, len(f.Items))
	copy(items, f.Items)
	f.Items = items
	return f
}

// Cache 读缓存。每次失效都会递增 key 的版本号，
// 失效前发起、失效后才返回的加载结果会被丢弃。
type Cache struct {
	mu       sync.Mutex
	entries  map[cacheKey]Feed
	versions map[cacheKey]uint64
	group    singleflight.Group
}

// NewCache 创建缓存
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[cacheKey]Feed),
		versions: make(map[cacheKey]uint64),
	}
}

func (c *Cache) get(k cacheKey) (Feed, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[k]
	if ok {
		f = f.clone()
	}
	// 登记 key，保证进行中的加载也能被 InvalidateWhere 作废
	v, seen := c.versions[k]
	if !seen {
		c.versions[k] = 0
	}
	return f, v, ok
}

// load 合并同一 (key, 页码, 版本) 的并发加载
func (c *Cache) load(k cacheKey, page int, version uint64, fn func() ([]models.Transaction, error)) ([]models.Transaction, error) {
	flight := fmt.Sprintf("%s|%d|%d", k, page, version)
	v, err, _ := c.group.Do(flight, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Transaction), nil
}

// put 写入第 page 页。版本已变化，或缓存中的页数不是 page-1 时不写入。
func (c *Cache) put(k cacheKey, version uint64, page int, items []models.Transaction, hasMore bool) Feed {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.entries[k]
	if page == 1 {
		cur = Feed{}
	}
	next := Feed{
		Items:   append(append(make([]models.Transaction, 0, len(cur.Items)+len(items)), cur.Items...), items...),
		Pages:   page,
		HasMore: hasMore,
	}
	if c.versions[k] == version && cur.Pages == page-1 {
		c.entries[k] = next
	}
	return next.clone()
}

// Invalidate 删除 key 并递增版本
func (c *Cache) Invalidate(k cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
	c.versions[k]++
}

// InvalidateWhere 删除满足条件的全部 key
func (c *Cache) InvalidateWhere(match func(cacheKey) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.versions {
		if match(k) {
			delete(c.entries, k)
			c.versions[k]++
			n++
		}
	}
	return n
}

// Len 缓存条目数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
