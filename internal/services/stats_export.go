package services

import (
	"fmt"
	"io"

	"ocha/internal/models"

	"github.com/tealeg/xlsx"
)

// WriteStatsXLSX writes the per-user rollup as a single-sheet workbook.
func WriteStatsXLSX(w io.Writer, stats []models.UserOrderStats) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Order stats")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range []string{"User ID", "User", "Total orders", "Total spent"} {
		headerRow.AddCell().SetValue(h)
	}

	for _, st := range stats {
		row := sheet.AddRow()
		row.AddCell().SetValue(st.UserID)
		row.AddCell().SetValue(st.DisplayName)
		row.AddCell().SetValue(st.TotalOrders)
		spent, _ := st.TotalSpent.Round(2).Float64()
		row.AddCell().SetFloat(spent)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
