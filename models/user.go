package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
type User struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Username    string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Password    string         `json:"-" gorm:"size:255;not null"`
	Email       string         `json:"email" gorm:"size:100"`
	DisplayName string         `json:"display_name" gorm:"size:50"`
	AvatarURL   string         `json:"avatar_url" gorm:"size:255"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// Name 展示名称，未设置时使用用户名
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// AllModels 需要自动迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Palette{},
		&PaletteMember{},
		&PaletteInvitation{},
		&Category{},
		&TransactionRow{},
		&MigrationBatch{},
	}
}
