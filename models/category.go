package models

import (
	"strings"
	"time"
)

// 类别编码前缀：收入类别以 i 开头，支出类别以 c 开头
const (
	IncomeCodePrefix  = "i"
	ExpenseCodePrefix = "c"
)

// DefaultCategoryColor 默认灰色
const DefaultCategoryColor = "#BDBDBD"

// Category 交易类别（每个 palette 独立维护）
type Category struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	PaletteID string    `json:"palette_id" gorm:"size:36;not null;uniqueIndex:idx_category_palette_code,priority:1"`
	Code      string    `json:"code" gorm:"size:16;not null;uniqueIndex:idx_category_palette_code,priority:2" example:"c01"`
	Name      string    `json:"name" gorm:"size:50;not null" example:"餐饮"`
	Color     string    `json:"color" gorm:"size:20;default:#BDBDBD" example:"#FF7043"`
	Icon      string    `json:"icon" gorm:"size:32" example:"Utensils"`
	Hidden    bool      `json:"hidden" gorm:"default:false"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryUpdate 类别可修改字段，nil 表示不修改
type CategoryUpdate struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=50"`
	Color  *string `json:"color" binding:"omitempty,max=20"`
	Icon   *string `json:"icon" binding:"omitempty,max=32"`
	Hidden *bool   `json:"hidden"`
}

// Kind 根据编码前缀推断类别对应的交易类型
func (c Category) Kind() string {
	if strings.HasPrefix(c.Code, IncomeCodePrefix) {
		return TypeIncome
	}
	return TypeExpense
}

// UnclassifiedCategory 交易引用的类别不存在时的展示兜底
var UnclassifiedCategory = Category{
	Code:  "",
	Name:  "未分类",
	Color: DefaultCategoryColor,
	Icon:  "HelpCircle",
}

// DefaultCategories 新建 palette 时写入的默认类别
func DefaultCategories() []Category {
	return []Category{
		{Code: "i01", Name: "工资", Icon: "Briefcase", Color: "#4CAF50"},
		{Code: "i02", Name: "零花钱", Icon: "Coins", Color: "#81C784"},
		{Code: "i03", Name: "理财收入", Icon: "Landmark", Color: "#66BB6A"},
		{Code: "i04", Name: "经营收入", Icon: "Store", Color: "#A5D6A7"},
		{Code: "i99", Name: "其他", Icon: "PlusSquare", Color: "#C8E6C9"},
		{Code: "c01", Name: "餐饮", Icon: "Utensils", Color: "#FF7043"},
		{Code: "c02", Name: "交通", Icon: "Bus", Color: "#5C6BC0"},
		{Code: "c03", Name: "通讯", Icon: "Smartphone", Color: "#26A69A"},
		{Code: "c04", Name: "购物", Icon: "ShoppingBag", Color: "#FFCA28"},
		{Code: "c05", Name: "住房", Icon: "Home", Color: "#78909C"},
		{Code: "c06", Name: "医疗健康", Icon: "HeartPulse", Color: "#EF5350"},
		{Code: "c07", Name: "休闲娱乐", Icon: "Film", Color: "#AB47BC"},
		{Code: "c08", Name: "教育", Icon: "GraduationCap", Color: "#42A5F5"},
		{Code: "c09", Name: "人情往来", Icon: "Users", Color: "#8D6E63"},
		{Code: "c10", Name: "储蓄投资", Icon: "PiggyBank", Color: "#66BB6A"},
		{Code: "c99", Name: "其他", Icon: "PlusSquare", Color: DefaultCategoryColor},
	}
}

// CategoriesFor 返回带 palette 归属的默认类别；游客模式传空字符串
func CategoriesFor(paletteID string) []Category {
	cats := DefaultCategories()
	for i := range cats {
		cats[i].PaletteID = paletteID
	}
	return cats
}

// CategoryIndex 按编码索引类别
func CategoryIndex(cats []Category) map[string]Category {
	idx := make(map[string]Category, len(cats))
	for _, c := range cats {
		idx[c.Code] = c
	}
	return idx
}

// LookupCategory 查找类别，不存在时返回未分类
func LookupCategory(idx map[string]Category, code string) Category {
	if c, ok := idx[code]; ok {
		return c
	}
	fallback := UnclassifiedCategory
	fallback.Code = code
	return fallback
}
