package remotestore

import (
	"context"
	"fmt"
	"log"

	"finpalette/models"

	"gorm.io/gorm"
)

// GetMembership 查询用户在账本中的成员关系
func (s *Store) GetMembership(ctx context.Context, paletteID string, userID uint) (models.PaletteMember, error) {
	var m models.PaletteMember
	err := s.db.WithContext(ctx).
		Where("palette_id = ? AND user_id = ?", paletteID, userID).
		First(&m).Error
	return m, notFound(err, "membership")
}

// ListMembers 成员列表附带用户资料。
// 关联用户表失败时记录日志并退回只含成员关系的数据。
func (s *Store) ListMembers(ctx context.Context, paletteID string) ([]models.Member, error) {
	var members []models.Member
	err := s.db.WithContext(ctx).
		Table("palette_members AS m").
		Select(`m.palette_id, m.user_id, m.role, m.joined_at,
			COALESCE(u.username, '') AS username,
			COALESCE(u.display_name, '') AS display_name,
			COALESCE(u.avatar_url, '') AS avatar_url,
			COALESCE(u.email, '') AS email`).
		Joins("LEFT JOIN users u ON u.id = m.user_id AND u.deleted_at IS NULL").
		Where("m.palette_id = ?", paletteID).
		Order("m.joined_at ASC, m.id ASC").
		Scan(&members).Error
	if err == nil {
		return members, nil
	}
	log.Printf("[remotestore] 查询成员资料失败，仅返回成员关系: %v", err)

	var rows []models.PaletteMember
	if err := s.db.WithContext(ctx).
		Where("palette_id = ?", paletteID).
		Order("joined_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询成员失败: %w", err)
	}
	members = make([]models.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, models.Member{
			PaletteID: r.PaletteID,
			UserID:    r.UserID,
			Role:      r.Role,
			JoinedAt:  r.JoinedAt,
		})
	}
	return members, nil
}

// UpdateMemberRole 修改成员角色，所有者角色不能通过此方法授予或变更
func (s *Store) UpdateMemberRole(ctx context.Context, paletteID string, userID uint, role string) (models.PaletteMember, error) {
	if !models.IsValidRole(role) {
		return models.PaletteMember{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if role == models.RoleOwner {
		return models.PaletteMember{}, ErrOwnerImmutable
	}

	var m models.PaletteMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("palette_id = ? AND user_id = ?", paletteID, userID).First(&m).Error; err != nil {
			return notFound(err, "membership")
		}
		if m.Role == models.RoleOwner {
			return ErrOwnerImmutable
		}
		m.Role = role
		return tx.Model(&models.PaletteMember{}).Where("id = ?", m.ID).Update("role", role).Error
	})
	return m, err
}

// RemoveMember 移除成员（包括自己退出），所有者不能退出
func (s *Store) RemoveMember(ctx context.Context, paletteID string, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.PaletteMember
		if err := tx.Where("palette_id = ? AND user_id = ?", paletteID, userID).First(&m).Error; err != nil {
			return notFound(err, "membership")
		}
		if m.Role == models.RoleOwner {
			return ErrOwnerCannotLeave
		}
		return tx.Delete(&models.PaletteMember{}, m.ID).Error
	})
}
