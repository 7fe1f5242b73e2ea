package table

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet of a workbook. The first non-empty row is the
// header; trailing cells that excelize omits are padded with empty strings.
// Cells are read as stored, so number formats such as percentages or
// thousands separators do not leak into the values and dates arrive as
// serial numbers.
func readXLSX(path, name string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var records [][]string
	width := 0
	for _, row := range rows {
		if len(records) == 0 && len(row) == 0 {
			continue
		}
		if len(records) == 0 {
			width = len(row)
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	return fromRecords(name, records)
}
