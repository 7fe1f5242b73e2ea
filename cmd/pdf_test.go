package cmd

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/report"
)

func TestPDFText(t *testing.T) {
	assert.Equal(t, "Next Early Unlock - by Cohort", pdfText("Next Early Unlock — by Cohort"))
	assert.Equal(t, "1-6 days, >=90 days early, +/-1%", pdfText("1–6 days, ≥90 days early, ±1%"))
}

func TestWrapText(t *testing.T) {
	sty := bodyStyle(color.Black)
	txt := strings.Repeat("word ", 60)
	width := sty.Width("word word word word word word word word word word")

	lines := wrapText(txt, sty, width)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, sty.Width(l), width)
	}
	assert.Equal(t, 60, len(strings.Fields(strings.Join(lines, " "))))
	assert.Nil(t, wrapText("   ", sty, width))
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	pages, err := writePDFFile(path, testReport(t), chart.NewPlotRenderer(800, 500))
	require.NoError(t, err)
	assert.Equal(t, 7, pages)
	require.NoError(t, verifyPDF(path, pages))

	assert.Error(t, verifyPDF(path, pages+1))
}

func TestWritePDFWithFailedSection(t *testing.T) {
	dir := writeSources(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "adoption rate_excl.csv")))
	rep, err := testGenerator(dir).Render(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Failed(), 1)

	path := filepath.Join(t.TempDir(), "report.pdf")
	pages, err := writePDFFile(path, rep, chart.NewPlotRenderer(800, 500))
	require.NoError(t, err)
	assert.Equal(t, 1+len(report.SectionIDs()), pages)
	assert.NoError(t, verifyPDF(path, pages))
}

func TestVerifyPDFRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	assert.Error(t, verifyPDF(path, 1))
	assert.Error(t, verifyPDF(filepath.Join(t.TempDir(), "missing.pdf"), 1))
}
