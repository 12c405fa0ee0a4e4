package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 默认 palette 设置
const (
	DefaultPaletteName  = "My Palette"
	DefaultPaletteColor = "#6366F1"
)

// Palette 账本（可与其他成员共享）
type Palette struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Name       string    `json:"name" gorm:"size:50;not null" example:"My Palette"`
	ThemeColor string    `json:"theme_color" gorm:"size:20;default:#6366F1" example:"#6366F1"`
	OwnerID    uint      `json:"owner_id" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time `json:"-"`
}

func (Palette) TableName() string {
	return "palettes"
}

// BeforeCreate 未指定 ID 时生成 UUID
func (p *Palette) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ThemeColor == "" {
		p.ThemeColor = DefaultPaletteColor
	}
	return nil
}

// 成员角色
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// IsValidRole 是否为合法角色
func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// PaletteMember 成员关系，每个 (palette, user) 仅一条
type PaletteMember struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	PaletteID string    `json:"palette_id" gorm:"size:36;not null;uniqueIndex:idx_member_palette_user,priority:1"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_member_palette_user,priority:2;index"`
	Role      string    `json:"role" gorm:"size:16;not null" example:"editor"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

func (PaletteMember) TableName() string {
	return "palette_members"
}

// Member 成员列表展示用，附带用户资料
type Member struct {
	PaletteID   string    `json:"palette_id"`
	UserID      uint      `json:"user_id"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Email       string    `json:"email,omitempty"`
}

// InvitationTTL 邀请有效期
const InvitationTTL = 24 * time.Hour

// PaletteInvitation 邀请码，一次性使用
type PaletteInvitation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PaletteID string    `json:"palette_id" gorm:"size:36;not null;index"`
	InviterID uint      `json:"inviter_id" gorm:"not null"`
	Code      string    `json:"code" gorm:"uniqueIndex;size:36;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	IsUsed    bool      `json:"is_used" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (PaletteInvitation) TableName() string {
	return "palette_invitations"
}

// NewInvitationCode 生成邀请码
func NewInvitationCode() string {
	return uuid.NewString()
}

// IsExpiredAt 检查邀请在 now 时是否过期
func (p *PaletteInvitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IsExpired 检查邀请是否过期
func (p *PaletteInvitation) IsExpired() bool {
	return p.IsExpiredAt(time.Now())
}

// IsValidAt 未使用且未过期
func (p *PaletteInvitation) IsValidAt(now time.Time) bool {
	return !p.IsUsed && !p.IsExpiredAt(now)
}

// MigrationBatch 记录已导入的游客数据批次，batch_key 唯一，防止重复导入
type MigrationBatch struct {
	ID        uint      `gorm:"primaryKey"`
	BatchKey  string    `gorm:"uniqueIndex;size:36;not null"`
	UserID    uint      `gorm:"index;not null"`
	PaletteID string    `gorm:"size:36;not null"`
	Count     int       `gorm:"not null"`
	CreatedAt time.Time
}

func (MigrationBatch) TableName() string {
	return "migration_batches"
}
