package remotestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finpalette/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListCategories 账本的全部类别，按编码排序
func (s *Store) ListCategories(ctx context.Context, paletteID string) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Where("palette_id = ?", paletteID).
		Order("code ASC").
		Find(&cats).Error
	return cats, err
}

// AddCategory 新增类别，编码在账本内唯一
func (s *Store) AddCategory(ctx context.Context, cat models.Category) (models.Category, error) {
	cat.Code = strings.TrimSpace(cat.Code)
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Code == "" || cat.Name == "" {
		return cat, fmt.Errorf("%w: 类别编码和名称不能为空", models.ErrValidation)
	}
	if cat.Color == "" {
		cat.Color = models.DefaultCategoryColor
	}
	cat.ID = 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Category{}).
			Where("palette_id = ? AND code = ?", cat.PaletteID, cat.Code).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateCategory
		}
		if err := tx.Create(&cat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCategory
			}
			return err
		}
		return nil
	})
	return cat, err
}

// UpdateCategory 修改类别；隐藏类别也通过此方法完成
func (s *Store) UpdateCategory(ctx context.Context, paletteID, code string, upd models.CategoryUpdate) (models.Category, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Category{}, fmt.Errorf("%w: 类别名称不能为空", models.ErrValidation)
		}
		updates["name"] = name
	}
	if upd.Color != nil {
		updates["color"] = *upd.Color
	}
	if upd.Icon != nil {
		updates["icon"] = *upd.Icon
	}
	if upd.Hidden != nil {
		updates["hidden"] = *upd.Hidden
	}

	var cat models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("palette_id = ? AND code = ?", paletteID, code).First(&cat).Error; err != nil {
			return notFound(err, "category "+code)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&cat).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&cat, cat.ID).Error
	})
	return cat, err
}

// DeleteCategory 删除类别，引用它的交易在展示时归入未分类
func (s *Store) DeleteCategory(ctx context.Context, paletteID, code string) error {
	res := s.db.WithContext(ctx).
		Where("palette_id = ? AND code = ?", paletteID, code).
		Delete(&models.Category{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: category %s", ErrNotFound, code)
	}
	return nil
}

// SeedCategories 写入默认类别，已存在的 (palette, code) 跳过
func (s *Store) SeedCategories(ctx context.Context, paletteID string) error {
	return seedCategories(s.db.WithContext(ctx), paletteID)
}

func seedCategories(db *gorm.DB, paletteID string) error {
	cats := models.CategoriesFor(paletteID)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "palette_id"}, {Name: "code"}},
		DoNothing: true,
	}).Create(&cats).Error
	if err != nil {
		return fmt.Errorf("初始化类别失败: %w", err)
	}
	return nil
}
