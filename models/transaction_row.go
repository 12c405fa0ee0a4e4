package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMalformedRow 数据库中的交易行不符合领域约束
var ErrMalformedRow = errors.New("malformed transaction row")

// TransactionRow 交易记录表
type TransactionRow struct {
	ID           uint      `gorm:"primaryKey"`
	PaletteID    string    `gorm:"size:36;not null;index:idx_tx_palette_date,priority:1"`
	UserID       uint      `gorm:"index;not null"`
	Date         string    `gorm:"size:10;not null;index:idx_tx_palette_date,priority:2"`
	Type         string    `gorm:"size:16;not null"`
	Amount       int64     `gorm:"not null"`
	CategoryCode string    `gorm:"size:16;not null"`
	Description  string    `gorm:"size:255"`
	PrivateMemo  *string   `gorm:"type:text"`
	MigrationKey *string   `gorm:"size:36;index:idx_tx_migration,priority:1"`
	SourceID     *string   `gorm:"size:36;index:idx_tx_migration,priority:2"` // 迁移前的本地 ID
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName 设置表名
func (TransactionRow) TableName() string {
	return "transactions"
}

// NewTransactionRow 由用户输入构造待插入的行
func NewTransactionRow(in TransactionInput, userID uint, paletteID string) TransactionRow {
	return TransactionRow{
		PaletteID:    paletteID,
		UserID:       userID,
		Date:         in.Date,
		Type:         in.Type,
		Amount:       in.Amount,
		CategoryCode: in.CategoryCode,
		Description:  in.Description,
		PrivateMemo:  in.PrivateMemo,
	}
}

// Assign 用输入覆盖行上的可编辑字段
func (r *TransactionRow) Assign(in TransactionInput) {
	r.Date = in.Date
	r.Type = in.Type
	r.Amount = in.Amount
	r.CategoryCode = in.CategoryCode
	r.Description = in.Description
	r.PrivateMemo = in.PrivateMemo
}

// Decode 校验并转换为领域模型，私密备注按 viewer 过滤
func (r TransactionRow) Decode(viewer uint) (Transaction, error) {
	if r.ID == 0 || r.PaletteID == "" {
		return Transaction{}, fmt.Errorf("%w: 缺少标识 (id=%d)", ErrMalformedRow, r.ID)
	}
	if !IsValidType(r.Type) {
		return Transaction{}, fmt.Errorf("%w: id=%d 类型 %q", ErrMalformedRow, r.ID, r.Type)
	}
	if r.Amount < 0 {
		return Transaction{}, fmt.Errorf("%w: id=%d 金额为负", ErrMalformedRow, r.ID)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return Transaction{}, fmt.Errorf("%w: id=%d 日期 %q", ErrMalformedRow, r.ID, r.Date)
	}

	id := r.ID
	userID := r.UserID
	t := Transaction{
		LocalID:      strconv.FormatUint(uint64(r.ID), 10),
		ID:           &id,
		Date:         r.Date,
		Type:         r.Type,
		Amount:       r.Amount,
		CategoryCode: r.CategoryCode,
		Description:  r.Description,
		PrivateMemo:  r.PrivateMemo,
		PaletteID:    r.PaletteID,
		UserID:       &userID,
	}
	return t.VisibleTo(viewer), nil
}
