package remotestore

import (
	"context"
	"fmt"
	"strings"

	"finpalette/models"

	"gorm.io/gorm"
)

// ListPalettes 用户所属的全部账本，按创建时间升序
func (s *Store) ListPalettes(ctx context.Context, userID uint) ([]models.Palette, error) {
	var palettes []models.Palette
	err := s.db.WithContext(ctx).
		Select("palettes.*").
		Joins("JOIN palette_members ON palette_members.palette_id = palettes.id").
		Where("palette_members.user_id = ?", userID).
		Order("palettes.created_at ASC, palettes.id ASC").
		Find(&palettes).Error
	if err != nil {
		return nil, fmt.Errorf("查询账本失败: %w", err)
	}
	return palettes, nil
}

// FindOwnedPalette 用户拥有的最早创建的账本，没有时返回 ErrNotFound
func (s *Store) FindOwnedPalette(ctx context.Context, ownerID uint) (models.Palette, error) {
	var p models.Palette
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		First(&p).Error
	return p, notFound(err, "owned palette")
}

// GetPalette 按 ID 查询账本
func (s *Store) GetPalette(ctx context.Context, id string) (models.Palette, error) {
	var p models.Palette
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return p, notFound(err, "palette "+id)
}

// CreatePalette 在一个事务中创建账本、所有者成员关系并写入默认类别
func (s *Store) CreatePalette(ctx context.Context, ownerID uint, name, color string) (models.Palette, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultPaletteName
	}
	p := models.Palette{Name: name, ThemeColor: color, OwnerID: ownerID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		owner := models.PaletteMember{PaletteID: p.ID, UserID: ownerID, Role: models.RoleOwner}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		return seedCategories(tx, p.ID)
	})
	if err != nil {
		return models.Palette{}, fmt.Errorf("创建账本失败: %w", err)
	}
	return p, nil
}

// UpdatePalette 修改名称或主题色，空值表示不修改
func (s *Store) UpdatePalette(ctx context.Context, id, name, color string) (models.Palette, error) {
	updates := map[string]interface{}{}
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if color != "" {
		updates["theme_color"] = color
	}

	var p models.Palette
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return notFound(err, "palette "+id)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&p).Error
	})
	return p, err
}

// DeletePalette 删除账本及其交易、类别、邀请和成员
func (s *Store) DeletePalette(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.TransactionRow{},
			&models.Category{},
			&models.PaletteInvitation{},
			&models.PaletteMember{},
		} {
			if err := tx.Where("palette_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Palette{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: palette %s", ErrNotFound, id)
		}
		return nil
	})
}
