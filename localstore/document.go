package localstore

import (
	"errors"
	"fmt"

	"finpalette/models"

	"github.com/google/uuid"
)

// ErrNotFound 本地交易不存在
var ErrNotFound = errors.New("transaction not found")

// Op 对整份交易文档的一次修改
type Op interface {
	apply(doc []models.Transaction) ([]models.Transaction, models.Transaction, error)
}

// AddOp 新增交易，分配新的本地 ID
type AddOp struct {
	Input models.TransactionInput
	// NewID 为空时使用 UUID
	NewID func() string
}

// UpdateOp 按本地 ID 合并更新
type UpdateOp struct {
	LocalID string
	Patch   models.TransactionPatch
}

// RemoveOp 按本地 ID 删除，不存在时返回 ErrNotFound
type RemoveOp struct {
	LocalID string
}

// Apply 纯函数：(旧文档, 操作) -> (新文档, 受影响的记录)。不修改传入的 doc。
func Apply(doc []models.Transaction, op Op) ([]models.Transaction, models.Transaction, error) {
	return op.apply(doc)
}

func (op AddOp) apply(doc []models.Transaction) ([]models.Transaction, models.Transaction, error) {
	if err := op.Input.Validate(); err != nil {
		return doc, models.Transaction{}, err
	}
	newID := op.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	tx := models.Transaction{LocalID: newID()}.WithInput(op.Input)

	out := make([]models.Transaction, 0, len(doc)+1)
	out = append(out, doc...)
	out = append(out, tx)
	return out, tx, nil
}

func (op UpdateOp) apply(doc []models.Transaction) ([]models.Transaction, models.Transaction, error) {
	idx := indexOf(doc, op.LocalID)
	if idx < 0 {
		return doc, models.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, op.LocalID)
	}
	merged := op.Patch.Apply(doc[idx].Input())
	if err := merged.Validate(); err != nil {
		return doc, models.Transaction{}, err
	}
	updated := doc[idx].WithInput(merged)

	out := make([]models.Transaction, len(doc))
	copy(out, doc)
	out[idx] = updated
	return out, updated, nil
}

func (op RemoveOp) apply(doc []models.Transaction) ([]models.Transaction, models.Transaction, error) {
	idx := indexOf(doc, op.LocalID)
	if idx < 0 {
		return doc, models.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, op.LocalID)
	}
	removed := doc[idx]
	out := make([]models.Transaction, 0, len(doc)-1)
	out = append(out, doc[:idx]...)
	out = append(out, doc[idx+1:]...)
	return out, removed, nil
}

func indexOf(doc []models.Transaction, localID string) int {
	for i, tx := range doc {
		if tx.LocalID == localID {
			return i
		}
	}
	return -1
}
