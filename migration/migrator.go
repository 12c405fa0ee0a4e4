// Package migration 将游客的本地交易一次性导入用户的个人账本。
package migration

import (
	"context"
	"errors"
	"fmt"
	"log"

	"finpalette/localstore"
	"finpalette/models"
	"finpalette/remotestore"
)

// Result 一次迁移的结果
type Result struct {
	Migrated  bool   `json:"migrated"`
	Count     int    `json:"count"`
	PaletteID string `json:"palette_id"`
}

// Migrator 迁移流程
type Migrator struct {
	remote *remotestore.Store
	local  *localstore.Registry
}

// NewMigrator 创建迁移流程
func NewMigrator(remote *remotestore.Store, local *localstore.Registry) *Migrator {
	return &Migrator{remote: remote, local: local}
}

// EnsurePalette 返回用户拥有的账本，没有则创建并写入默认类别
func (m *Migrator) EnsurePalette(ctx context.Context, userID uint) (models.Palette, error) {
	p, err := m.remote.FindOwnedPalette(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, remotestore.ErrNotFound) {
		return models.Palette{}, err
	}
	// CreatePalette 已在同一事务中写入类别，这里再次写入只会跳过已存在的编码
	p, err = m.remote.CreatePalette(ctx, userID, models.DefaultPaletteName, "")
	if err != nil {
		return models.Palette{}, err
	}
	if err := m.remote.SeedCategories(ctx, p.ID); err != nil {
		return models.Palette{}, err
	}
	log.Printf("[migration] 为用户 %d 创建个人账本 %s", userID, p.ID)
	return p, nil
}

// Migrate 确保个人账本存在，并把游客 guestKey 的本地交易导入其中。
// 任一步骤失败时本地数据保持不变，可在下次登录时重试。
func (m *Migrator) Migrate(ctx context.Context, userID uint, guestKey string) (Result, error) {
	palette, err := m.EnsurePalette(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("准备个人账本失败: %w", err)
	}
	result := Result{PaletteID: palette.ID}
	if guestKey == "" {
		return result, nil
	}

	store, err := m.local.Store(guestKey)
	if err != nil {
		return result, err
	}
	txs, err := store.List()
	if err != nil {
		return result, fmt.Errorf("读取本地交易失败: %w", err)
	}
	if len(txs) == 0 {
		return result, nil
	}

	batchKey, err := store.MigrationKey()
	if err != nil {
		return result, err
	}
	count, replayed, err := m.remote.ImportBatch(ctx, batchKey, userID, palette.ID, txs)
	if err != nil {
		return result, err
	}
	if replayed {
		log.Printf("[migration] 批次 %s 曾导入过，本次补入 %d 条新记录", batchKey, count)
	}

	if err := store.Clear(); err != nil {
		// 远程数据已提交；重试时按本地 ID 跳过已导入的记录
		return result, fmt.Errorf("清理本地数据失败: %w", err)
	}
	result.Migrated = true
	result.Count = count
	return result, nil
}
