package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 交易类型
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// DateLayout 交易日期格式（按自然日记账）
const DateLayout = "2006-01-02"

// ErrValidation 交易数据校验失败
var ErrValidation = errors.New("invalid transaction")

// Transaction 交易记录（本地存储与服务端共用的领域模型）
// 本地模式下 ID 为空，仅有 LocalID；服务端记录的 LocalID 为 ID 的字符串形式
type Transaction struct {
	LocalID      string  `json:"local_id" example:"0b6f3c1e-7f0e-4b8a-9a55-1d2f7c1f2e10"`
	ID           *uint   `json:"id"`
	Date         string  `json:"date" example:"2024-01-15"`
	Type         string  `json:"type" example:"expense"`
	Amount       int64   `json:"amount" example:"4500"`
	CategoryCode string  `json:"category_code" example:"c01"`
	Description  string  `json:"description" example:"午餐"`
	PrivateMemo  *string `json:"private_memo,omitempty"`
	PaletteID    string  `json:"palette_id"`
	UserID       *uint   `json:"user_id"`
}

// TransactionInput 新建交易时用户可填写的字段
type TransactionInput struct {
	Date         string  `json:"date" binding:"required" example:"2024-01-15"`
	Type         string  `json:"type" binding:"required" example:"expense"`
	Amount       int64   `json:"amount" example:"4500"`
	CategoryCode string  `json:"category_code" binding:"required" example:"c01"`
	Description  string  `json:"description" example:"午餐"`
	PrivateMemo  *string `json:"private_memo,omitempty"`
}

// TransactionPatch 更新交易，nil 字段保持原值
type TransactionPatch struct {
	Date         *string `json:"date,omitempty"`
	Type         *string `json:"type,omitempty"`
	Amount       *int64  `json:"amount,omitempty"`
	CategoryCode *string `json:"category_code,omitempty"`
	Description  *string `json:"description,omitempty"`
	PrivateMemo  *string `json:"private_memo,omitempty"`
}

// Validate 校验交易字段
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.CategoryCode) == "" {
		return fmt.Errorf("%w: 类别不能为空", ErrValidation)
	}
	if in.Amount < 0 {
		return fmt.Errorf("%w: 金额不能为负数", ErrValidation)
	}
	if !IsValidType(in.Type) {
		return fmt.Errorf("%w: 无效的交易类型 %q", ErrValidation, in.Type)
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return fmt.Errorf("%w: 日期格式错误，应为 2006-01-02", ErrValidation)
	}
	return nil
}

// IsValidType 是否为合法的交易类型
func IsValidType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}

// Input 取出可编辑字段
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Date:         t.Date,
		Type:         t.Type,
		Amount:       t.Amount,
		CategoryCode: t.CategoryCode,
		Description:  t.Description,
		PrivateMemo:  t.PrivateMemo,
	}
}

// Synced 是否已同步到服务端
func (t Transaction) Synced() bool {
	return t.ID != nil
}

// Time 解析交易日期
func (t Transaction) Time() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// VisibleTo 返回 viewer 可见的副本：私密备注只对作者本人可见
func (t Transaction) VisibleTo(viewer uint) Transaction {
	if t.PrivateMemo != nil && t.UserID != nil && *t.UserID != viewer {
		t.PrivateMemo = nil
	}
	return t
}

// Empty 是否没有任何需要更新的字段
func (p TransactionPatch) Empty() bool {
	return p.Date == nil && p.Type == nil && p.Amount == nil &&
		p.CategoryCode == nil && p.Description == nil && p.PrivateMemo == nil
}

// Apply 将 patch 合并到已有输入上
func (p TransactionPatch) Apply(in TransactionInput) TransactionInput {
	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.Type != nil {
		in.Type = *p.Type
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.CategoryCode != nil {
		in.CategoryCode = *p.CategoryCode
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.PrivateMemo != nil {
		memo := *p.PrivateMemo
		if memo == "" {
			in.PrivateMemo = nil
		} else {
			in.PrivateMemo = &memo
		}
	}
	return in
}

// WithInput 用 in 覆盖可编辑字段，标识字段保持不变
func (t Transaction) WithInput(in TransactionInput) Transaction {
	t.Date = in.Date
	t.Type = in.Type
	t.Amount = in.Amount
	t.CategoryCode = in.CategoryCode
	t.Description = in.Description
	t.PrivateMemo = in.PrivateMemo
	return t
}
