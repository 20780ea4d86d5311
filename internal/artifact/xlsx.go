package artifact

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/pagescan/internal/aggregate"
)

const xlsxSheetName = "Extraction"

// writeXLSX writes the table as an XLSX workbook with a header row.
func writeXLSX(path string, table *aggregate.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, h := range table.Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(xlsxSheetName, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell: %w", err)
		}
	}

	for r, row := range table.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetCellValue(xlsxSheetName, cell, v); err != nil {
				return fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
