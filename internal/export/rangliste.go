// Package export renders the Rangliste as an Excel workbook for download.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/example/vereinsverwaltung/internal/roster"
)

const sheetName = "Rangliste"

// WriteRangliste writes the ranked users as an xlsx workbook to w.
func WriteRangliste(w io.Writer, ranked []roster.RankedUser) error {
	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: drop default sheet: %w", err)
	}

	header := []any{"Platz", "Benutzername", "Score"}
	if err := setRow(file, 1, header); err != nil {
		return err
	}

	for i, entry := range ranked {
		row := []any{entry.Rank, entry.Username, entry.Score}
		if err := setRow(file, i+2, row); err != nil {
			return err
		}
	}

	if err := file.SetColWidth(sheetName, "A", "C", 18); err != nil {
		return fmt.Errorf("export: set column width: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setRow(file *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := file.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("export: set row %d: %w", row, err)
	}
	return nil
}
