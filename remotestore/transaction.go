package remotestore

import (
	"context"
	"errors"
	"fmt"

	"finpalette/models"

	"gorm.io/gorm"
)

const transactionOrder = "date DESC, created_at DESC, id DESC"

func decodeRows(rows []models.TransactionRow, viewer uint) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.Decode(viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// ListTransactions 分页查询交易，page 从 1 开始，每页 PageSize 条
func (s *Store) ListTransactions(ctx context.Context, paletteID string, page int, viewer uint) ([]models.Transaction, error) {
	var rows []models.TransactionRow
	err := s.db.WithContext(ctx).
		Where("palette_id = ?", paletteID).
		Order(transactionOrder).
		Offset(offsetOf(page)).
		Limit(PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return decodeRows(rows, viewer)
}

// ListTransactionsBetween 查询 [from, to] 日期范围内的全部交易，用于统计与导出
func (s *Store) ListTransactionsBetween(ctx context.Context, paletteID, from, to string, viewer uint) ([]models.Transaction, error) {
	var rows []models.TransactionRow
	err := s.db.WithContext(ctx).
		Where("palette_id = ? AND date >= ? AND date <= ?", paletteID, from, to).
		Order(transactionOrder).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return decodeRows(rows, viewer)
}

// CountTransactions 账本中的交易总数
func (s *Store) CountTransactions(ctx context.Context, paletteID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.TransactionRow{}).
		Where("palette_id = ?", paletteID).
		Count(&total).Error
	return total, err
}

func (s *Store) findRow(db *gorm.DB, paletteID string, id uint) (models.TransactionRow, error) {
	var row models.TransactionRow
	err := db.Where("id = ? AND palette_id = ?", id, paletteID).First(&row).Error
	if err != nil {
		return row, notFound(err, fmt.Sprintf("transaction %d", id))
	}
	return row, nil
}

// GetTransaction 查询单条交易
func (s *Store) GetTransaction(ctx context.Context, paletteID string, id, viewer uint) (models.Transaction, error) {
	row, err := s.findRow(s.db.WithContext(ctx), paletteID, id)
	if err != nil {
		return models.Transaction{}, err
	}
	return row.Decode(viewer)
}

// AddTransaction 新增交易，ID 由数据库分配
func (s *Store) AddTransaction(ctx context.Context, in models.TransactionInput, userID uint, paletteID string) (models.Transaction, error) {
	if err := in.Validate(); err != nil {
		return models.Transaction{}, err
	}
	row := models.NewTransactionRow(in, userID, paletteID)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Transaction{}, fmt.Errorf("创建交易失败: %w", err)
	}
	return row.Decode(userID)
}

// UpdateTransaction 合并更新交易，私密备注只有作者本人可以修改
func (s *Store) UpdateTransaction(ctx context.Context, paletteID string, id uint, patch models.TransactionPatch, viewer uint) (models.Transaction, error) {
	var row models.TransactionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.findRow(tx, paletteID, id)
		if err != nil {
			return err
		}
		current, err := row.Decode(row.UserID)
		if err != nil {
			return err
		}
		if viewer != row.UserID {
			patch.PrivateMemo = nil
		}
		merged := patch.Apply(current.Input())
		if err := merged.Validate(); err != nil {
			return err
		}
		row.Assign(merged)
		return tx.Save(&row).Error
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return row.Decode(viewer)
}

// RemoveTransaction 删除交易，不存在时返回 ErrNotFound
func (s *Store) RemoveTransaction(ctx context.Context, paletteID string, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND palette_id = ?", id, paletteID).
		Delete(&models.TransactionRow{})
	if res.Error != nil {
		return fmt.Errorf("删除交易失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
	}
	return nil
}

// ImportBatch 在一个事务中批量导入游客交易。
// 同一 batchKey 下已导入过的本地 ID 会被跳过，因此重试只补齐上次之后新增的记录。
// 返回插入条数以及该批次是否此前已导入。
func (s *Store) ImportBatch(ctx context.Context, batchKey string, userID uint, paletteID string, txs []models.Transaction) (int, bool, error) {
	if batchKey == "" {
		return 0, false, errors.New("batch key is required")
	}
	for _, t := range txs {
		if err := t.Input().Validate(); err != nil {
			return 0, false, err
		}
	}

	replayed := false
	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.MigrationBatch
		err := tx.Where("batch_key = ?", batchKey).First(&batch).Error
		switch {
		case err == nil:
			replayed = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			batch = models.MigrationBatch{BatchKey: batchKey, UserID: userID, PaletteID: paletteID}
		default:
			return err
		}

		seen := make(map[string]bool)
		if replayed {
			var ids []string
			if err := tx.Model(&models.TransactionRow{}).
				Where("migration_key = ? AND source_id IS NOT NULL", batchKey).
				Pluck("source_id", &ids).Error; err != nil {
				return err
			}
			for _, id := range ids {
				seen[id] = true
			}
		}

		rows := make([]models.TransactionRow, 0, len(txs))
		for _, t := range txs {
			if t.LocalID != "" && seen[t.LocalID] {
				continue
			}
			row := models.NewTransactionRow(t.Input(), userID, paletteID)
			key := batchKey
			row.MigrationKey = &key
			if t.LocalID != "" {
				localID := t.LocalID
				row.SourceID = &localID
				seen[localID] = true
			}
			rows = append(rows, row)
		}

		batch.Count += len(rows)
		if err := tx.Save(&batch).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
				return err
			}
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("导入交易失败: %w", err)
	}
	return inserted, replayed, nil
}
