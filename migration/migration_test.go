package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finpalette/database"
	"finpalette/localstore"
	"finpalette/models"
	"finpalette/remotestore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	remote *remotestore.Store
	local  *localstore.Registry
	user   models.User
	guest  string
}

func setup(t *testing.T) fixture {
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	remote := remotestore.New(db)
	user := models.User{Username: "alice", Password: "x"}
	require.NoError(t, remote.CreateUser(context.Background(), &user))
	return fixture{
		remote: remote,
		local:  localstore.NewRegistry(localstore.NewMemoryProvider()),
		user:   user,
		guest:  uuid.NewString(),
	}
}

func (f fixture) guestStore(t *testing.T) *localstore.Store {
	s, err := f.local.Store(f.guest)
	require.NoError(t, err)
	return s
}

func lunch() models.TransactionInput {
	return models.TransactionInput{Date: "2024-01-15", Type: models.TypeExpense, Amount: 4500, CategoryCode: "c01", Description: "午餐"}
}

func TestMigrate_OneTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.guestStore(t).Add(lunch())
	require.NoError(t, err)

	res, err := NewMigrator(f.remote, f.local).Migrate(ctx, f.user.ID, f.guest)
	require.NoError(t, err)
	assert.True(t, res.Migrated)
	assert.Equal(t, 1, res.Count)

	local, err := f.guestStore(t).List()
	require.NoError(t, err)
	assert.Empty(t, local)

	remote, err := f.remote.ListTransactions(ctx, res.PaletteID, 1, f.user.ID)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, lunch(), remote[0].Input())
	assert.Equal(t, f.user.ID, *remote[0].UserID)

	cats, err := f.remote.ListCategories(ctx, res.PaletteID)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.DefaultCategories()))
}

func TestMigrate_TwiceNoExtraInserts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.guestStore(t).Add(lunch())
	require.NoError(t, err)

	m := NewMigrator(f.remote, f.local)
	first, err := m.Migrate(ctx, f.user.ID, f.guest)
	require.NoError(t, err)
	second, err := m.Migrate(ctx, f.user.ID, f.guest)
	require.NoError(t, err)

	assert.False(t, second.Migrated)
	assert.Equal(t, first.PaletteID, second.PaletteID, "复用已有账本")
	total, err := f.remote.CountTransactions(ctx, first.PaletteID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	palettes, err := f.remote.ListPalettes(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, palettes, 1)
}

func TestMigrate_EmptyLocalStillEnsuresPalette(t *testing.T) {
	f := setup(t)
	res, err := NewMigrator(f.remote, f.local).Migrate(context.Background(), f.user.ID, f.guest)
	require.NoError(t, err)
	assert.False(t, res.Migrated)
	assert.NotEmpty(t, res.PaletteID)

	res2, err := NewMigrator(f.remote, f.local).Migrate(context.Background(), f.user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, res.PaletteID, res2.PaletteID)
}

func TestMigrate_FailureKeepsLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := NewMigrator(f.remote, f.local)
	_, err := m.EnsurePalette(ctx, f.user.ID)
	require.NoError(t, err)

	_, err = f.guestStore(t).Add(lunch())
	require.NoError(t, err)
	require.NoError(t, f.remote.DB().Migrator().DropTable(&models.TransactionRow{}))

	res, err := m.Migrate(ctx, f.user.ID, f.guest)
	require.Error(t, err)
	assert.False(t, res.Migrated)

	local, err := f.guestStore(t).List()
	require.NoError(t, err)
	assert.Len(t, local, 1)

	// 批次记录随事务回滚
	var n int64
	require.NoError(t, f.remote.DB().Model(&models.MigrationBatch{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMigrate_ReplayedBatchDoesNotDuplicate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store := f.guestStore(t)
	_, err := store.Add(lunch())
	require.NoError(t, err)

	m := NewMigrator(f.remote, f.local)
	p, err := m.EnsurePalette(ctx, f.user.ID)
	require.NoError(t, err)

	// 模拟上次导入成功但本地未清理
	key, err := store.MigrationKey()
	require.NoError(t, err)
	local, err := store.List()
	require.NoError(t, err)
	_, _, err = f.remote.ImportBatch(ctx, key, f.user.ID, p.ID, local)
	require.NoError(t, err)

	res, err := m.Migrate(ctx, f.user.ID, f.guest)
	require.NoError(t, err)
	assert.True(t, res.Migrated)
	assert.Equal(t, 0, res.Count)

	total, err := f.remote.CountTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	local, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, local)
}

// flakyProvider 的介质在 failDelete 为真时删除失败
type flakyProvider struct {
	inner      *localstore.MemoryProvider
	failDelete *atomic.Bool
}

type flakyMedium struct {
	localstore.Medium
	failDelete *atomic.Bool
}

func (p flakyProvider) Open(namespace string) (localstore.Medium, error) {
	m, err := p.inner.Open(namespace)
	if err != nil {
		return nil, err
	}
	return flakyMedium{Medium: m, failDelete: p.failDelete}, nil
}

func (m flakyMedium) Delete(key string) error {
	if m.failDelete.Load() {
		return errors.New("disk full")
	}
	return m.Medium.Delete(key)
}

func TestMigrate_ClearFailureThenNewLocalRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	failDelete := &atomic.Bool{}
	f.local = localstore.NewRegistry(flakyProvider{inner: localstore.NewMemoryProvider(), failDelete: failDelete})
	store := f.guestStore(t)
	m := NewMigrator(f.remote, f.local)

	_, err := store.Add(lunch())
	require.NoError(t, err)

	failDelete.Store(true)
	res, err := m.Migrate(ctx, f.user.ID, f.guest)
	require.Error(t, err)
	assert.False(t, res.Migrated)
	failDelete.Store(false)

	dinner := lunch()
	dinner.Description = "晚餐"
	_, err = store.Add(dinner)
	require.NoError(t, err)

	res, err = m.Migrate(ctx, f.user.ID, f.guest)
	require.NoError(t, err)
	assert.True(t, res.Migrated)
	assert.Equal(t, 1, res.Count)

	remote, err := f.remote.ListTransactions(ctx, res.PaletteID, 1, f.user.ID)
	require.NoError(t, err)
	var names []string
	for _, tx := range remote {
		names = append(names, tx.Description)
	}
	assert.ElementsMatch(t, []string{"午餐", "晚餐"}, names)

	local, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, local)
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (r *blockingRunner) Migrate(ctx context.Context, userID uint, guestKey string) (Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	close(r.started)
	<-r.release
	return Result{Migrated: true, Count: 1, PaletteID: "p"}, nil
}

func TestDispatcher_ConcurrentTriggerIgnored(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(runner)

	var hooked []uint
	d.OnMigrated(func(userID uint, guestKey string, result Result) {
		hooked = append(hooked, userID)
	})

	done := make(chan bool)
	go func() {
		_, ok := d.OnSignIn(context.Background(), 1, "g")
		done <- ok
	}()
	<-runner.started
	assert.True(t, d.Running(1))
	assert.False(t, d.Running(2))

	_, ok := d.OnSignIn(context.Background(), 1, "g")
	assert.False(t, ok, "第二次触发应被忽略")

	close(runner.release)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("迁移未结束")
	}
	assert.False(t, d.Running(1))
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []uint{1}, hooked)
}

// gatedRunner 只阻塞用户 1 的迁移
type gatedRunner struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	users   []uint
}

func (r *gatedRunner) Migrate(ctx context.Context, userID uint, guestKey string) (Result, error) {
	r.mu.Lock()
	r.users = append(r.users, userID)
	r.mu.Unlock()
	if userID == 1 {
		close(r.started)
		<-r.release
	}
	return Result{Migrated: true, Count: 1, PaletteID: fmt.Sprintf("p%d", userID)}, nil
}

func TestDispatcher_DifferentUsersRunConcurrently(t *testing.T) {
	runner := &gatedRunner{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(runner)

	done := make(chan bool)
	go func() {
		_, ok := d.OnSignIn(context.Background(), 1, "g1")
		done <- ok
	}()
	<-runner.started

	res, ok := d.OnSignIn(context.Background(), 2, "g2")
	assert.True(t, ok, "其他用户的迁移不应被阻塞")
	assert.Equal(t, "p2", res.PaletteID)

	close(runner.release)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("迁移未结束")
	}
	assert.ElementsMatch(t, []uint{1, 2}, runner.users)
}

type failingRunner struct{}

func (failingRunner) Migrate(ctx context.Context, userID uint, guestKey string) (Result, error) {
	return Result{}, errors.New("backend down")
}

func TestDispatcher_FailureReleasesGuard(t *testing.T) {
	d := NewDispatcher(failingRunner{})
	_, ok := d.OnSignIn(context.Background(), 1, "g")
	assert.False(t, ok)
	assert.False(t, d.Running(1))

	_, ok = d.OnSignIn(context.Background(), 1, "g")
	assert.False(t, ok)
}

func TestDispatcher_EndToEnd(t *testing.T) {
	f := setup(t)
	_, err := f.guestStore(t).Add(lunch())
	require.NoError(t, err)

	d := NewDispatcher(NewMigrator(f.remote, f.local))
	res, ok := d.OnSignIn(context.Background(), f.user.ID, f.guest)
	assert.True(t, ok)
	assert.Equal(t, 1, res.Count)

	_, ok = d.OnSignIn(context.Background(), f.user.ID, f.guest)
	assert.False(t, ok)
}
