package artifact

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// sheetNames are limited to 31 characters by the XLSX format.
var sheetNames = map[string]string{
	"Summary":                     "Summary",
	"Devices":                     "Devices",
	"Cable Pull Sheet":            "Pull Sheet",
	"Reflected Bill of Materials": "BOM",
	"Verification Notes":          "Verification",
}

// buildWorkbook writes one sheet per table in the given order.
func buildWorkbook(creator string, tables []*table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:  creator,
		Created:  renderEpoch.Format("2006-01-02T15:04:05Z"),
		Modified: renderEpoch.Format("2006-01-02T15:04:05Z"),
		Title:    "AV plan interpretation",
	}); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, t := range tables {
		sheet := sheetNames[t.Title]
		if sheet == "" {
			sheet = fmt.Sprintf("Sheet %d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		if err := writeSheetRow(f, sheet, 1, t.Columns); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			if err := writeSheetRow(f, sheet, r+2, row); err != nil {
				return nil, err
			}
		}
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return nil, err
		}
		last, _ := excelize.ColumnNumberToName(len(t.Columns))
		_ = f.SetColWidth(sheet, "A", last, 22)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, cells []string) error {
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
