package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/zalepa/vaultstats/report"
)

// Export formats.
const (
	exportCSV     = "csv"
	exportXLSX    = "xlsx"
	exportParquet = "parquet"
)

const exportBase = "vault-analytics"

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write the derived section tables as CSV, XLSX or Parquet.",
	Long: `Export builds the report and writes the table behind each chart:
  csv      one <section-id>.csv per section
  xlsx     vault-analytics.xlsx with one sheet per section
  parquet  vault-analytics.parquet with one row per table cell

Failed sections are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		rep, err := newGenerator().Render(cmd.Context())
		if err != nil {
			return err
		}
		for _, sec := range rep.Failed() {
			logger.Warn("skipping failed section", zap.String("section", sec.ID), zap.Error(sec.Err))
		}

		var written []string
		switch exportFormat {
		case exportCSV:
			written, err = writeCSVTables(dir, rep)
		case exportXLSX:
			path := filepath.Join(dir, exportBase+".xlsx")
			written, err = []string{path}, writeWorkbook(path, rep)
		case exportParquet:
			path := filepath.Join(dir, exportBase+".parquet")
			written, err = []string{path}, writeParquetCells(path, rep)
		default:
			return fmt.Errorf("invalid format '%s'. must be %s, %s or %s", exportFormat, exportCSV, exportXLSX, exportParquet)
		}
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
		}
		return nil
	},
}

// exported returns the sections that have a derived table.
func exported(rep *report.Report) []*report.Section {
	var out []*report.Section
	for _, sec := range rep.Sections {
		if !sec.Failed() && sec.Data != nil {
			out = append(out, sec)
		}
	}
	return out
}

func writeCSVTables(dir string, rep *report.Report) ([]string, error) {
	var written []string
	for _, sec := range exported(rep) {
		path := filepath.Join(dir, sec.ID+".csv")
		if err := writeCSVTable(path, sec); err != nil {
			return written, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSVTable(path string, sec *report.Section) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(sec.Data.Header()); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(sec.Data.Rows()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// cellValue stores numeric cells as numbers.
func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func writeWorkbook(path string, rep *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, sec := range exported(rep) {
		sheet := sec.ID
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		header := sec.Data.Header()
		row := make([]any, len(header))
		for j, h := range header {
			row[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
		for r, rec := range sec.Data.Rows() {
			cells := make([]any, len(rec))
			for j, v := range rec {
				cells[j] = cellValue(v)
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// parquetCell is one cell of a derived table in long form.
type parquetCell struct {
	Section string   `parquet:"section,snappy,dict"`
	Row     int32    `parquet:"row,snappy"`
	Column  string   `parquet:"column,snappy,dict"`
	Value   string   `parquet:"value,snappy"`
	Number  *float64 `parquet:"number,optional,snappy"`
}

func parquetCells(rep *report.Report) []parquetCell {
	var cells []parquetCell
	for _, sec := range exported(rep) {
		header := sec.Data.Header()
		for r, rec := range sec.Data.Rows() {
			for j, v := range rec {
				c := parquetCell{Section: sec.ID, Row: int32(r), Column: header[j], Value: v}
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					c.Number = &n
				}
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func writeParquetCells(path string, rep *report.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[parquetCell](file)
	if _, err := writer.Write(parquetCells(rep)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", exportCSV, "output format: csv, xlsx or parquet")
	rootCmd.AddCommand(exportCmd)
}
