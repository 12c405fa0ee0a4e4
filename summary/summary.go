// Package summary 对内存中的交易列表做纯函数统计：月度汇总、类别占比、按月趋势和按日分组。
// 金额一律按 int64 整数累加。
package summary

import (
	"fmt"
	"sort"
	"strings"

	"finpalette/models"

	"github.com/shopspring/decimal"
)

// Summary 收支汇总
type Summary struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	Balance      int64 `json:"balance"`
}

// MonthPrefix 返回 "2006-01-" 形式的日期前缀
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d-", year, month)
}

// MonthRange 月份的首尾日期（含）
func MonthRange(year, month int) (string, string) {
	prefix := MonthPrefix(year, month)
	return prefix + "01", prefix + "31"
}

// FilterMonth 选出指定年月的交易，保持原有顺序
func FilterMonth(txs []models.Transaction, year, month int) []models.Transaction {
	prefix := MonthPrefix(year, month)
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if strings.HasPrefix(tx.Date, prefix) {
			out = append(out, tx)
		}
	}
	return out
}

// Summarize 按类型累加金额
func Summarize(txs []models.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome:
			s.TotalIncome += tx.Amount
		case models.TypeExpense:
			s.TotalExpense += tx.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

// Monthly 指定月份的汇总
func Monthly(txs []models.Transaction, year, month int) Summary {
	return Summarize(FilterMonth(txs, year, month))
}

// CategoryAmount 单个支出类别的合计
type CategoryAmount struct {
	Category models.Category `json:"category"`
	Amount   int64           `json:"amount"`
	Share    decimal.Decimal `json:"share"`
}

// CategoryBreakdown 支出按类别合计，合计为 0 的类别不出现，按金额降序。
// Share 为该类别占总支出的百分比，保留两位小数。
func CategoryBreakdown(txs []models.Transaction, categories []models.Category) []CategoryAmount {
	sums := map[string]int64{}
	var total int64
	for _, tx := range txs {
		if tx.Type != models.TypeExpense {
			continue
		}
		sums[tx.CategoryCode] += tx.Amount
		total += tx.Amount
	}

	idx := models.CategoryIndex(categories)
	out := make([]CategoryAmount, 0, len(sums))
	for code, amount := range sums {
		if amount == 0 {
			continue
		}
		share := decimal.NewFromInt(amount).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(total), 2)
		out = append(out, CategoryAmount{
			Category: models.LookupCategory(idx, code),
			Amount:   amount,
			Share:    share,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category.Code < out[j].Category.Code
	})
	return out
}

// MonthTotal 某月收支合计
type MonthTotal struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
}

// ByMonth 按月合计，按时间升序，用于趋势图
func ByMonth(txs []models.Transaction) []MonthTotal {
	totals := map[[2]int]*MonthTotal{}
	for _, tx := range txs {
		t, err := tx.Time()
		if err != nil {
			continue
		}
		key := [2]int{t.Year(), int(t.Month())}
		mt, ok := totals[key]
		if !ok {
			mt = &MonthTotal{Year: key[0], Month: key[1]}
			totals[key] = mt
		}
		switch tx.Type {
		case models.TypeIncome:
			mt.Income += tx.Amount
		case models.TypeExpense:
			mt.Expense += tx.Amount
		}
	}

	out := make([]MonthTotal, 0, len(totals))
	for _, mt := range totals {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
