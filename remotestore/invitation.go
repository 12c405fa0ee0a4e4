package remotestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finpalette/models"

	"gorm.io/gorm"
)

// CreateInvitation 生成 24 小时内有效的一次性邀请码
func (s *Store) CreateInvitation(ctx context.Context, paletteID string, inviterID uint, now time.Time) (models.PaletteInvitation, error) {
	inv := models.PaletteInvitation{
		PaletteID: paletteID,
		InviterID: inviterID,
		Code:      models.NewInvitationCode(),
		ExpiresAt: now.Add(models.InvitationTTL),
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return inv, fmt.Errorf("创建邀请失败: %w", err)
	}
	return inv, nil
}

// GetInvitation 按邀请码查询
func (s *Store) GetInvitation(ctx context.Context, code string) (models.PaletteInvitation, error) {
	var inv models.PaletteInvitation
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&inv).Error
	return inv, notFound(err, "invitation")
}

// AcceptInvitation 接受邀请并返回账本 ID。
// 邀请不存在、已使用或已过期时返回 ErrInvitationInvalid，不会创建成员关系；
// 已是成员时直接返回账本 ID，邀请保持未使用。
func (s *Store) AcceptInvitation(ctx context.Context, code string, userID uint, now time.Time) (string, error) {
	var paletteID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.PaletteInvitation
		if err := tx.Where("code = ?", code).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationInvalid
			}
			return err
		}
		if !inv.IsValidAt(now) {
			return ErrInvitationInvalid
		}
		paletteID = inv.PaletteID

		var n int64
		if err := tx.Model(&models.PaletteMember{}).
			Where("palette_id = ? AND user_id = ?", inv.PaletteID, userID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		// 条件更新防止同一邀请被并发使用两次
		res := tx.Model(&models.PaletteInvitation{}).
			Where("id = ? AND is_used = ?", inv.ID, false).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationInvalid
		}
		member := models.PaletteMember{PaletteID: inv.PaletteID, UserID: userID, Role: models.RoleEditor}
		return tx.Create(&member).Error
	})
	if err != nil {
		return "", err
	}
	return paletteID, nil
}
