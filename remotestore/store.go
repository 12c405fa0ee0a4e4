// Package remotestore 基于 gorm 的服务端存储：交易、类别、账本、成员与邀请。
// 所有操作都以 palette 为作用域，成员权限由 HTTP 层的中间件校验。
package remotestore

import (
	"errors"
	"fmt"

	"finpalette/models"

	"gorm.io/gorm"
)

// PageSize 交易分页大小
const PageSize = 20

var (
	ErrNotFound          = errors.New("record not found")
	ErrMalformedRow      = models.ErrMalformedRow
	ErrInvitationInvalid = errors.New("invitation is invalid or expired")
	ErrOwnerCannotLeave  = errors.New("owner cannot leave the palette")
	ErrDuplicateCategory = errors.New("category code already exists")
	ErrDuplicateUser     = errors.New("username already exists")
	ErrInvalidRole       = errors.New("invalid role")
	ErrOwnerImmutable    = errors.New("owner role cannot be assigned or changed")
)

// Store 远程存储，db 由调用方注入
type Store struct {
	db *gorm.DB
}

// New 创建远程存储
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB 底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// notFound 将 gorm 的未找到错误转换为 ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func offsetOf(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}
