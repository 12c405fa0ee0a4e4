package dataaccess

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"finpalette/localstore"
	"finpalette/models"
	"finpalette/remotestore"
	"finpalette/summary"
)

// 变更事件
const (
	EventCreated = "transaction.created"
	EventUpdated = "transaction.updated"
	EventDeleted = "transaction.deleted"
)

// Notifier 账本数据变化时通知在线成员
type Notifier interface {
	PaletteChanged(paletteID, event string, userID uint)
}

// Option Service 选项
type Option func(*Service)

// WithTimeout 远程调用超时
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithNotifier 设置变更通知
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service 数据访问入口，按 Session 路由到本地或远程存储
type Service struct {
	local    *localstore.Registry
	remote   *remotestore.Store
	timeout  time.Duration
	notifier Notifier
	cache    *Cache
}

// New 创建数据访问服务
func New(local *localstore.Registry, remote *remotestore.Store, opts ...Option) *Service {
	s := &Service{
		local:   local,
		remote:  remote,
		timeout: 10 * time.Second,
		cache:   NewCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// For 绑定会话
func (s *Service) For(session Session) *Access {
	return &Access{svc: s, session: session}
}

// InvalidateGuest 丢弃游客的缓存（迁移完成、本地文件被外部修改时调用）
func (s *Service) InvalidateGuest(guestKey string) {
	s.cache.Invalidate(cacheKey{mode: ModeLocal, identity: guestKey})
}

// InvalidatePalette 丢弃账本相关的全部远程缓存
func (s *Service) InvalidatePalette(paletteID string) {
	s.cache.InvalidateWhere(func(k cacheKey) bool {
		return k.mode == ModeRemote && k.palette == paletteID
	})
}

// InvalidateUser 丢弃用户在所有账本上的缓存
func (s *Service) InvalidateUser(userID uint) {
	id := fmt.Sprint(userID)
	s.cache.InvalidateWhere(func(k cacheKey) bool {
		return k.mode != ModeLocal && k.identity == id
	})
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Access 某个会话上的读写操作
type Access struct {
	svc     *Service
	session Session
}

// Session 当前会话
func (a *Access) Session() Session {
	return a.session
}

// Mode 当前模式
func (a *Access) Mode() Mode {
	return a.session.Mode()
}

func (a *Access) localStore() (*localstore.Store, error) {
	if a.session.GuestKey == "" {
		return nil, ErrNoGuestKey
	}
	return a.svc.local.Store(a.session.GuestKey)
}

// localFeed 本地数据一次全部返回，按日期降序，同一天新写入的在前
func (a *Access) localFeed() ([]models.Transaction, error) {
	store, err := a.localStore()
	if err != nil {
		return nil, err
	}
	txs, err := store.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out, nil
}

func (a *Access) loadPage(ctx context.Context, page int) ([]models.Transaction, error) {
	if a.Mode() == ModeLocal {
		return a.localFeed()
	}
	ctx, cancel := a.svc.withTimeout(ctx)
	defer cancel()
	return a.svc.remote.ListTransactions(ctx, a.session.PaletteID, page, a.session.UserID)
}

func (a *Access) fetch(ctx context.Context, page int, version uint64) (Feed, error) {
	k := a.session.key()
	items, err := a.svc.cache.load(k, page, version, func() ([]models.Transaction, error) {
		return a.loadPage(ctx, page)
	})
	if err != nil {
		log.Printf("[dataaccess] 加载 %s 第 %d 页失败: %v", k, page, err)
		return Feed{}, err
	}
	hasMore := a.Mode() == ModeRemote && len(items) == remotestore.PageSize
	return a.svc.cache.put(k, version, page, items, hasMore), nil
}

// List 第一页（本地模式为全部数据），命中缓存时直接返回
func (a *Access) List(ctx context.Context) (Feed, error) {
	if a.Mode() == ModeUnresolved {
		return Feed{Items: []models.Transaction{}}, nil
	}
	if a.Mode() == ModeLocal && a.session.GuestKey == "" {
		return Feed{Items: []models.Transaction{}}, nil
	}
	feed, version, ok := a.svc.cache.get(a.session.key())
	if ok {
		return feed, nil
	}
	return a.fetch(ctx, 1, version)
}

// FetchMore 加载下一页并追加到已有结果后面
func (a *Access) FetchMore(ctx context.Context) (Feed, error) {
	feed, version, ok := a.svc.cache.get(a.session.key())
	if !ok {
		return a.List(ctx)
	}
	if !feed.HasMore {
		return feed, nil
	}
	return a.fetch(ctx, feed.Pages+1, version)
}

func (a *Access) writable() error {
	switch a.Mode() {
	case ModeUnresolved:
		return ErrNoActiveLedger
	case ModeLocal:
		if a.session.GuestKey == "" {
			return ErrNoGuestKey
		}
	}
	return nil
}

func parseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return uint(n), nil
}

// changed 写入成功后使缓存失效并通知
func (a *Access) changed(event string) {
	a.svc.cache.Invalidate(a.session.key())
	if a.Mode() != ModeRemote {
		return
	}
	a.svc.InvalidatePalette(a.session.PaletteID)
	if a.svc.notifier != nil {
		a.svc.notifier.PaletteChanged(a.session.PaletteID, event, a.session.UserID)
	}
}

// Add 新增交易
func (a *Access) Add(ctx context.Context, in models.TransactionInput) (models.Transaction, error) {
	if err := a.writable(); err != nil {
		return models.Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return models.Transaction{}, err
	}

	var (
		tx  models.Transaction
		err error
	)
	if a.Mode() == ModeLocal {
		store, serr := a.localStore()
		if serr != nil {
			return tx, serr
		}
		tx, err = store.Add(in)
	} else {
		rctx, cancel := a.svc.withTimeout(ctx)
		defer cancel()
		tx, err = a.svc.remote.AddTransaction(rctx, in, a.session.UserID, a.session.PaletteID)
	}
	if err != nil {
		return tx, err
	}
	a.changed(EventCreated)
	return tx, nil
}

// Update 合并更新交易。本地模式 id 为本地 ID，远程模式为服务端 ID。
func (a *Access) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	if err := a.writable(); err != nil {
		return models.Transaction{}, err
	}

	var (
		tx  models.Transaction
		err error
	)
	if a.Mode() == ModeLocal {
		store, serr := a.localStore()
		if serr != nil {
			return tx, serr
		}
		tx, err = store.Update(id, patch)
	} else {
		serverID, perr := parseID(id)
		if perr != nil {
			return tx, perr
		}
		rctx, cancel := a.svc.withTimeout(ctx)
		defer cancel()
		tx, err = a.svc.remote.UpdateTransaction(rctx, a.session.PaletteID, serverID, patch, a.session.UserID)
	}
	if err != nil {
		return tx, err
	}
	a.changed(EventUpdated)
	return tx, nil
}

// Remove 删除交易
func (a *Access) Remove(ctx context.Context, id string) error {
	if err := a.writable(); err != nil {
		return err
	}

	var err error
	if a.Mode() == ModeLocal {
		store, serr := a.localStore()
		if serr != nil {
			return serr
		}
		err = store.Remove(id)
	} else {
		serverID, perr := parseID(id)
		if perr != nil {
			return perr
		}
		rctx, cancel := a.svc.withTimeout(ctx)
		defer cancel()
		err = a.svc.remote.RemoveTransaction(rctx, a.session.PaletteID, serverID)
	}
	if err != nil {
		return err
	}
	a.changed(EventDeleted)
	return nil
}

// Categories 游客使用默认类别；已登录使用当前账本的类别
func (a *Access) Categories(ctx context.Context) ([]models.Category, error) {
	switch a.Mode() {
	case ModeLocal:
		return models.DefaultCategories(), nil
	case ModeUnresolved:
		return []models.Category{}, nil
	}
	rctx, cancel := a.svc.withTimeout(ctx)
	defer cancel()
	return a.svc.remote.ListCategories(rctx, a.session.PaletteID)
}

// Month 指定月份的全部交易，不分页
func (a *Access) Month(ctx context.Context, year, month int) ([]models.Transaction, error) {
	switch a.Mode() {
	case ModeUnresolved:
		return []models.Transaction{}, nil
	case ModeLocal:
		if a.session.GuestKey == "" {
			return []models.Transaction{}, nil
		}
		txs, err := a.localFeed()
		if err != nil {
			return nil, err
		}
		return summary.FilterMonth(txs, year, month), nil
	}
	from, to := summary.MonthRange(year, month)
	rctx, cancel := a.svc.withTimeout(ctx)
	defer cancel()
	return a.svc.remote.ListTransactionsBetween(rctx, a.session.PaletteID, from, to, a.session.UserID)
}

// Usage 游客本地存储占用
func (a *Access) Usage() (localstore.Usage, error) {
	store, err := a.localStore()
	if err != nil {
		return localstore.Usage{}, err
	}
	return store.Usage()
}
