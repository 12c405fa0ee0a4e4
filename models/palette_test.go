package models

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInvitationCode(t *testing.T) {
	code := NewInvitationCode()
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	assert.True(t, uuidRegex.MatchString(code), "code should be uuid")
	assert.NotEqual(t, code, NewInvitationCode())
}

func TestPaletteInvitation_IsExpired(t *testing.T) {
	now := time.Now()

	p := &PaletteInvitation{ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, p.IsExpired())

	p2 := &PaletteInvitation{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p2.IsExpired())

	// 到期时刻即视为过期
	assert.True(t, p2.IsExpiredAt(p2.ExpiresAt))
}

func TestPaletteInvitation_IsValidAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// 有效
	p := &PaletteInvitation{IsUsed: false, ExpiresAt: now.Add(InvitationTTL)}
	assert.True(t, p.IsValidAt(now))

	// 无效：已使用
	p2 := &PaletteInvitation{IsUsed: true, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, p2.IsValidAt(now))

	// 无效：已过期
	assert.False(t, p.IsValidAt(now.Add(25*time.Hour)))
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{RoleOwner, RoleAdmin, RoleEditor, RoleViewer} {
		assert.True(t, IsValidRole(r))
	}
	assert.False(t, IsValidRole("member"))
	assert.False(t, IsValidRole(""))
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()
	seen := map[string]bool{}
	for _, c := range cats {
		assert.False(t, seen[c.Code], "duplicate code %s", c.Code)
		seen[c.Code] = true
		assert.True(t, strings.HasPrefix(c.Code, IncomeCodePrefix) || strings.HasPrefix(c.Code, ExpenseCodePrefix))
		assert.NotEmpty(t, c.Color)
		assert.NotEmpty(t, c.Icon)
	}
	assert.Equal(t, TypeIncome, Category{Code: "i01"}.Kind())
	assert.Equal(t, TypeExpense, Category{Code: "c01"}.Kind())

	for _, c := range CategoriesFor("p1") {
		assert.Equal(t, "p1", c.PaletteID)
	}
}

func TestLookupCategory(t *testing.T) {
	idx := CategoryIndex(DefaultCategories())
	assert.Equal(t, "餐饮", LookupCategory(idx, "c01").Name)

	missing := LookupCategory(idx, "c42")
	assert.Equal(t, UnclassifiedCategory.Name, missing.Name)
	assert.Equal(t, "c42", missing.Code)
}
