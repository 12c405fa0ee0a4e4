package summary

import (
	"fmt"
	"time"

	"finpalette/models"
)

// DateGroup 同一天的连续交易
type DateGroup struct {
	Date    string               `json:"date"`
	Label   string               `json:"label"`
	Items   []models.Transaction `json:"items"`
	Income  int64                `json:"income"`
	Expense int64                `json:"expense"`
}

// GroupByDate 将按日期降序排列的交易切分为同一天的连续分段，不改变顺序。
// now 决定 "今天" / "昨天" 标签。
func GroupByDate(txs []models.Transaction, now time.Time) []DateGroup {
	var groups []DateGroup
	for _, tx := range txs {
		if n := len(groups); n == 0 || groups[n-1].Date != tx.Date {
			groups = append(groups, DateGroup{Date: tx.Date, Label: DateLabel(tx.Date, now)})
		}
		g := &groups[len(groups)-1]
		g.Items = append(g.Items, tx)
		switch tx.Type {
		case models.TypeIncome:
			g.Income += tx.Amount
		case models.TypeExpense:
			g.Expense += tx.Amount
		}
	}
	return groups
}

// Flatten 按分组顺序展开
func Flatten(groups []DateGroup) []models.Transaction {
	var out []models.Transaction
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

// DateLabel 日期展示文本
func DateLabel(date string, now time.Time) string {
	d, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return date
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case d.Equal(today):
		return "今天"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "昨天"
	case d.Year() == now.Year():
		return fmt.Sprintf("%d月%d日", d.Month(), d.Day())
	default:
		return fmt.Sprintf("%d年%d月%d日", d.Year(), d.Month(), d.Day())
	}
}

// Item 交易与其展示用类别
type Item struct {
	models.Transaction
	Category models.Category `json:"category"`
}

// Itemize 为每条交易关联类别，未知编码使用未分类
func Itemize(txs []models.Transaction, categories []models.Category) []Item {
	idx := models.CategoryIndex(categories)
	out := make([]Item, 0, len(txs))
	for _, tx := range txs {
		out = append(out, Item{Transaction: tx, Category: models.LookupCategory(idx, tx.CategoryCode)})
	}
	return out
}
