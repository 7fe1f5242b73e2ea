package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zalepa/vaultstats/report"
)

func TestWriteCSVTables(t *testing.T) {
	dir := t.TempDir()
	written, err := writeCSVTables(dir, testReport(t))
	require.NoError(t, err)
	require.Len(t, written, 6)

	f, err := os.Open(filepath.Join(dir, report.SupportHoursID+".csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"hour_of_day", "support_unlocks", "cum_frac"}, records[0])
	assert.Equal(t, []string{"18", "4", "1"}, records[len(records)-1])
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeWorkbook(path, testReport(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, report.SectionIDs(), f.GetSheetList())

	rows, err := f.GetRows(report.LockDurationsID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket", "locks", "share"}, rows[0])
	assert.Len(t, rows, 4)

	typ, err := f.GetCellType(report.LockDurationsID, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestWriteParquetCells(t *testing.T) {
	rep := testReport(t)
	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, writeParquetCells(path, rep))

	cells, err := parquet.ReadFile[parquetCell](path)
	require.NoError(t, err)

	want := 0
	for _, sec := range rep.Sections {
		want += sec.Data.Len() * len(sec.Data.Header())
	}
	assert.Len(t, cells, want)

	first := cells[0]
	assert.Equal(t, report.LockDurationsID, first.Section)
	assert.Equal(t, "bucket", first.Column)
	assert.Nil(t, first.Number)
	require.NotNil(t, cells[1].Number)
	assert.Equal(t, "locks", cells[1].Column)
}

func TestExportedSkipsFailedSections(t *testing.T) {
	rep := testReport(t)
	rep.Sections[2] = &report.Section{ID: report.EarlyRateID, Err: assert.AnError}
	secs := exported(rep)
	require.Len(t, secs, 5)
	for _, s := range secs {
		assert.NotEqual(t, report.EarlyRateID, s.ID)
	}
}
