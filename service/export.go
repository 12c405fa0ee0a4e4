package service

import (
	"fmt"
	"io"

	"finpalette/models"
	"finpalette/summary"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet  = "交易记录"
	monthlySheet = "月度汇总"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

// ExportWorkbook 生成交易明细工作簿，末尾附收支汇总行
func ExportWorkbook(palette models.Palette, txs []models.Transaction, categories []models.Category) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})

	for col, width := range map[string]float64{"A": 10, "B": 14, "C": 10, "D": 14, "E": 12, "F": 30} {
		_ = f.SetColWidth(exportSheet, col, col, width)
	}

	headers := []string{"ID", "日期", "类型", "类别", "金额", "描述"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = f.SetCellValue(exportSheet, cell, h)
		_ = f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for i, item := range summary.Itemize(txs, categories) {
		row := i + 2
		kind := "支出"
		if item.Type == models.TypeIncome {
			kind = "收入"
		}
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), item.LocalID)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), item.Date)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), kind)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), item.Category.Name)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), item.Amount)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("F%d", row), item.Description)
		_ = f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)
	}

	totals := summary.Summarize(txs)
	r := len(txs) + 2
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("A%d", r), "合计")
	_ = f.MergeCell(exportSheet, fmt.Sprintf("A%d", r), fmt.Sprintf("D%d", r))
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("E%d", r), totals.Balance)
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("F%d", r),
		fmt.Sprintf("%s：收入 %d，支出 %d，共 %d 条", palette.Name, totals.TotalIncome, totals.TotalExpense, len(txs)))
	_ = f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", r), fmt.Sprintf("F%d", r), summaryStyle)

	if err := writeMonthlySheet(f, txs, headerStyle, dataStyle); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// writeMonthlySheet 按月收支
func writeMonthlySheet(f *excelize.File, txs []models.Transaction, headerStyle, dataStyle int) error {
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return err
	}
	for i, h := range []string{"月份", "收入", "支出", "结余"} {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = f.SetCellValue(monthlySheet, cell, h)
		_ = f.SetCellStyle(monthlySheet, cell, cell, headerStyle)
	}
	for i, m := range summary.ByMonth(txs) {
		row := i + 2
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%04d-%02d", m.Year, m.Month))
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("B%d", row), m.Income)
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("C%d", row), m.Expense)
		_ = f.SetCellValue(monthlySheet, fmt.Sprintf("D%d", row), m.Income-m.Expense)
		_ = f.SetCellStyle(monthlySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), dataStyle)
	}
	return nil
}

// WriteWorkbook 生成工作簿并写入 w
func WriteWorkbook(w io.Writer, palette models.Palette, txs []models.Transaction, categories []models.Category) error {
	f, err := ExportWorkbook(palette, txs, categories)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("生成 Excel 失败: %w", err)
	}
	return nil
}
