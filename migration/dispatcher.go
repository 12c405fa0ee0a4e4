package migration

import (
	"context"
	"log"
	"sync"
)

// Runner 执行一次迁移
type Runner interface {
	Migrate(ctx context.Context, userID uint, guestKey string) (Result, error)
}

// Dispatcher 处理登录事件并触发迁移。
// 同一用户同一时刻只允许一次迁移，重复触发直接忽略，不排队；不同用户互不影响。
type Dispatcher struct {
	runner     Runner
	inFlight   sync.Map // userID -> struct{}
	onMigrated func(userID uint, guestKey string, result Result)
}

// NewDispatcher 创建登录事件分发器
func NewDispatcher(runner Runner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// OnMigrated 设置迁移成功后的回调（用于失效缓存）
func (d *Dispatcher) OnMigrated(fn func(userID uint, guestKey string, result Result)) {
	d.onMigrated = fn
}

// Running 用户是否有迁移正在进行
func (d *Dispatcher) Running(userID uint) bool {
	_, ok := d.inFlight.Load(userID)
	return ok
}

// OnSignIn 登录后调用，返回是否发生了迁移。
// 错误只记录日志，不会阻断登录。
func (d *Dispatcher) OnSignIn(ctx context.Context, userID uint, guestKey string) (Result, bool) {
	if _, busy := d.inFlight.LoadOrStore(userID, struct{}{}); busy {
		log.Printf("[migration] 用户 %d 已有迁移在进行，忽略重复触发", userID)
		return Result{}, false
	}
	defer d.inFlight.Delete(userID)

	result, err := d.runner.Migrate(ctx, userID, guestKey)
	if err != nil {
		log.Printf("[migration] 用户 %d 迁移失败，本地数据已保留: %v", userID, err)
		return result, false
	}
	if !result.Migrated {
		return result, false
	}
	log.Printf("[migration] 用户 %d 导入 %d 条交易到账本 %s", userID, result.Count, result.PaletteID)
	if d.onMigrated != nil {
		d.onMigrated(userID, guestKey, result)
	}
	return result, true
}
