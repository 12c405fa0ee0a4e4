package remotestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finpalette/models"

	"gorm.io/gorm"
)

// CreateUser 创建用户，用户名重复时返回 ErrDuplicateUser
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateUser
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateUser
			}
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	})
}

// FindUserByLogin 按用户名或邮箱查询
func (s *Store) FindUserByLogin(ctx context.Context, login string) (models.User, error) {
	var u models.User
	login = strings.TrimSpace(login)
	err := s.db.WithContext(ctx).
		Where("username = ? OR (email <> '' AND email = ?)", login, login).
		First(&u).Error
	return u, notFound(err, "user")
}

// GetUser 按 ID 查询用户
func (s *Store) GetUser(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	return u, notFound(err, "user")
}
