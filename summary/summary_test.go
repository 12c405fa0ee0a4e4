package summary

import (
	"testing"
	"time"

	"finpalette/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id, date, kind string, amount int64, code string) models.Transaction {
	return models.Transaction{LocalID: id, Date: date, Type: kind, Amount: amount, CategoryCode: code}
}

func TestMonthly_GuestScenario(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-05-03", models.TypeExpense, 1500, "c01"),
		tx("2", "2024-05-10", models.TypeExpense, 4500, "c02"),
		tx("3", "2024-05-25", models.TypeIncome, 3000000, "i01"),
		tx("4", "2024-04-30", models.TypeExpense, 999, "c01"),
	}
	s := Monthly(txs, 2024, 5)
	assert.Equal(t, Summary{TotalIncome: 3000000, TotalExpense: 6000, Balance: 2994000}, s)

	// 类别合计与总支出一致
	var sum int64
	for _, c := range CategoryBreakdown(FilterMonth(txs, 2024, 5), models.DefaultCategories()) {
		sum += c.Amount
	}
	assert.Equal(t, s.TotalExpense, sum)
	assert.Equal(t, s.TotalIncome-s.TotalExpense, s.Balance)
}

func TestFilterMonth(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-12-31", models.TypeExpense, 1, "c01"),
		tx("2", "2024-01-01", models.TypeExpense, 1, "c01"),
		tx("3", "2024-01-31", models.TypeExpense, 1, "c01"),
	}
	got := FilterMonth(txs, 2024, 1)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].LocalID)
	assert.Equal(t, "3", got[1].LocalID)

	from, to := MonthRange(2024, 2)
	assert.Equal(t, "2024-02-01", from)
	assert.Equal(t, "2024-02-31", to)
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-05-01", models.TypeExpense, 100, "c02"),
		tx("2", "2024-05-01", models.TypeExpense, 300, "c01"),
		tx("3", "2024-05-01", models.TypeExpense, 100, "c03"),
		tx("4", "2024-05-01", models.TypeExpense, 0, "c04"),
		tx("5", "2024-05-01", models.TypeIncome, 5000, "i01"),
		tx("6", "2024-05-01", models.TypeExpense, 100, "zz"),
	}
	got := CategoryBreakdown(txs, models.DefaultCategories())
	require.Len(t, got, 4)

	assert.Equal(t, "c01", got[0].Category.Code)
	assert.Equal(t, int64(300), got[0].Amount)
	assert.Equal(t, "50", got[0].Share.String())

	// 金额相同按编码排序
	assert.Equal(t, "c02", got[1].Category.Code)
	assert.Equal(t, "c03", got[2].Category.Code)
	assert.Equal(t, "16.67", got[1].Share.StringFixed(2))

	// 未知编码归入未分类
	assert.Equal(t, "zz", got[3].Category.Code)
	assert.Equal(t, models.UnclassifiedCategory.Name, got[3].Category.Name)

	assert.Empty(t, CategoryBreakdown(nil, nil))
}

func TestByMonth(t *testing.T) {
	txs := []models.Transaction{
		tx("1", "2024-03-01", models.TypeExpense, 10, "c01"),
		tx("2", "2023-12-01", models.TypeIncome, 20, "i01"),
		tx("3", "2024-03-05", models.TypeIncome, 30, "i01"),
		tx("4", "bad", models.TypeIncome, 30, "i01"),
	}
	got := ByMonth(txs)
	assert.Equal(t, []MonthTotal{
		{Year: 2023, Month: 12, Income: 20},
		{Year: 2024, Month: 3, Income: 30, Expense: 10},
	}, got)
}

func TestGroupByDate(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("1", "2024-05-20", models.TypeExpense, 100, "c01"),
		tx("2", "2024-05-20", models.TypeIncome, 500, "i01"),
		tx("3", "2024-05-19", models.TypeExpense, 200, "c01"),
		tx("4", "2024-05-01", models.TypeExpense, 300, "c01"),
		tx("5", "2023-12-31", models.TypeExpense, 400, "c01"),
	}
	groups := GroupByDate(txs, now)
	require.Len(t, groups, 4)

	assert.Equal(t, "今天", groups[0].Label)
	assert.Equal(t, int64(500), groups[0].Income)
	assert.Equal(t, int64(100), groups[0].Expense)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "昨天", groups[1].Label)
	assert.Equal(t, "5月1日", groups[2].Label)
	assert.Equal(t, "2023年12月31日", groups[3].Label)

	assert.Equal(t, txs, Flatten(groups))
	assert.Empty(t, GroupByDate(nil, now))
}

func TestGroupByDate_FlattenPreservesInput(t *testing.T) {
	now := time.Now()
	dates := []string{"2024-05-09", "2024-05-09", "2024-05-08", "2024-05-08", "2024-05-08", "2024-05-01", "2024-04-30"}
	var txs []models.Transaction
	for i, d := range dates {
		txs = append(txs, tx(string(rune('a'+i)), d, models.TypeExpense, int64(i), "c01"))
	}
	groups := GroupByDate(txs, now)
	assert.Len(t, groups, 4)
	assert.Equal(t, txs, Flatten(groups))
}

func TestItemize(t *testing.T) {
	items := Itemize([]models.Transaction{
		tx("1", "2024-05-01", models.TypeExpense, 1, "c01"),
		tx("2", "2024-05-01", models.TypeExpense, 1, "nope"),
	}, models.DefaultCategories())
	require.Len(t, items, 2)
	assert.Equal(t, "餐饮", items[0].Category.Name)
	assert.Equal(t, models.UnclassifiedCategory.Name, items[1].Category.Name)
	assert.Equal(t, "1", items[0].LocalID)
}
