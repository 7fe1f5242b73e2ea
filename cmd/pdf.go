package cmd

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/report"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	chartHeight = 4.75 * vg.Inch
	bodySize    = 10
	lineGap     = 1.45
)

var (
	textGray  = color.Gray{Y: 100}
	ruleGray  = color.Gray{Y: 180}
	errorRed  = color.RGBA{R: 180, G: 30, B: 30, A: 255}
	warnAmber = color.RGBA{R: 160, G: 110, B: 0, A: 255}
)

// pdfText replaces glyphs the Liberation font in vgpdf does not render.
var pdfText = strings.NewReplacer(
	"—", "-",
	"–", "-",
	"≥", ">=",
	"≤", "<=",
	"±", "+/-",
).Replace

var pdfVerify bool

var pdfCmd = &cobra.Command{
	Use:   "pdf [output.pdf]",
	Short: "Write the report as a PDF, one page per section.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "vault-analytics.pdf"
		if len(args) == 1 {
			out = args[0]
		}
		rep, err := newGenerator().Render(cmd.Context())
		if err != nil {
			return err
		}
		pages, err := writePDFFile(out, rep, chart.NewPlotRenderer(cfg.ChartWidth, cfg.ChartHeight))
		if err != nil {
			return fmt.Errorf("error writing PDF: %w", err)
		}
		if pdfVerify {
			if err := verifyPDF(out, pages); err != nil {
				return fmt.Errorf("verify %s: %w", out, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", out, pages)
		return nil
	},
}

func writePDFFile(path string, rep *report.Report, r chart.PlotRenderer) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	pages, err := writePDF(f, rep, r)
	if err != nil {
		f.Close()
		return 0, err
	}
	return pages, f.Close()
}

// writePDF writes a cover page followed by one page per section and returns
// the number of pages written. Narratives that do not fit continue on a new
// page.
func writePDF(w io.Writer, rep *report.Report, r chart.PlotRenderer) (int, error) {
	c := vgpdf.New(pageWidth, pageHeight)
	pages := 1
	drawCover(pageArea(c), rep)

	for _, sec := range rep.Sections {
		c.NextPage()
		pages++
		n, err := drawSection(c, sec, r)
		if err != nil {
			return 0, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		pages += n
	}

	if _, err := c.WriteTo(w); err != nil {
		return 0, err
	}
	return pages, nil
}

func pageArea(c *vgpdf.Canvas) draw.Canvas {
	return draw.Crop(draw.New(c), pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
}

func drawCover(area draw.Canvas, rep *report.Report) {
	y := area.Max.Y - vg.Points(20)
	fillText(area, pdfText(rep.Title), vg.Points(20), area.Min.X, y, color.Black)
	y -= 0.35 * vg.Inch
	fillText(area, "Generated "+rep.Generated.Format(time.RFC1123), vg.Points(bodySize), area.Min.X, y, textGray)

	y -= 0.5 * vg.Inch
	fillText(area, "Section", vg.Points(bodySize), area.Min.X, y, textGray)
	fillText(area, "Status", vg.Points(bodySize), area.Max.X-1.2*vg.Inch, y, textGray)
	y -= vg.Points(6)
	strokeHLine(area, area.Min.X, area.Max.X, y, ruleGray)

	for i, sec := range rep.Sections {
		y -= 0.3 * vg.Inch
		fillText(area, fmt.Sprintf("%d. %s", i+1, pdfText(sec.Title)), vg.Points(bodySize), area.Min.X, y, color.Black)
		status, clr := "ok", color.Color(color.Black)
		switch {
		case sec.Failed():
			status, clr = "failed", errorRed
		case len(sec.Warnings) > 0:
			status, clr = fmt.Sprintf("%d warnings", len(sec.Warnings)), warnAmber
		}
		fillText(area, status, vg.Points(bodySize), area.Max.X-1.2*vg.Inch, y, clr)
	}
}

// drawSection draws sec on the current page and returns how many extra
// pages it needed.
func drawSection(c *vgpdf.Canvas, sec *report.Section, r chart.PlotRenderer) (int, error) {
	area := pageArea(c)
	if sec.Failed() {
		y := area.Max.Y - vg.Points(14)
		fillText(area, pdfText(sec.Title), vg.Points(14), area.Min.X, y, color.Black)
		lines := wrapText(pdfText(sec.Err.Error()), bodyStyle(errorRed), area.Max.X-area.Min.X)
		for i, l := range lines {
			fillText(area, l, vg.Points(bodySize), area.Min.X, y-0.4*vg.Inch-vg.Length(i)*lineHeight(), errorRed)
		}
		return 0, nil
	}

	chartArea := draw.Canvas{
		Canvas: area.Canvas,
		Rectangle: vg.Rectangle{
			Min: vg.Point{X: area.Min.X, Y: area.Max.Y - chartHeight},
			Max: area.Max,
		},
	}
	if err := r.Draw(chartArea, sec.Chart.MapText(pdfText)); err != nil {
		return 0, err
	}

	type line struct {
		text string
		clr  color.Color
	}
	var body []line
	width := area.Max.X - area.Min.X
	for _, msg := range sec.Warnings {
		for _, l := range wrapText("Warning: "+pdfText(msg), bodyStyle(warnAmber), width) {
			body = append(body, line{l, warnAmber})
		}
	}
	for _, md := range []string{sec.Summary, sec.Action} {
		if md == "" {
			continue
		}
		if len(body) > 0 {
			body = append(body, line{})
		}
		for _, para := range strings.Split(pdfText(narrative.Plain(md)), "\n") {
			for _, l := range wrapText(para, bodyStyle(color.Black), width) {
				body = append(body, line{l, color.Black})
			}
		}
	}

	extra := 0
	y := area.Max.Y - chartHeight - 0.3*vg.Inch
	for _, l := range body {
		if y < area.Min.Y {
			c.NextPage()
			extra++
			area = pageArea(c)
			y = area.Max.Y - vg.Points(8)
			fillText(area, pdfText(sec.Title)+" (continued)", vg.Points(bodySize), area.Min.X, y, textGray)
			y -= 0.35 * vg.Inch
		}
		if l.text != "" {
			fillText(area, l.text, vg.Points(bodySize), area.Min.X, y, l.clr)
		}
		y -= lineHeight()
	}
	return extra, nil
}

func bodyStyle(clr color.Color) draw.TextStyle {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = vg.Points(bodySize)
	return sty
}

func lineHeight() vg.Length {
	return vg.Points(bodySize * lineGap)
}

// wrapText breaks txt into lines no wider than width in sty.
func wrapText(txt string, sty draw.TextStyle, width vg.Length) []string {
	words := strings.Fields(txt)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		next := cur + " " + w
		if sty.Width(next) > width {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = next
	}
	return append(lines, cur)
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := bodyStyle(clr)
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}

func init() {
	pdfCmd.Flags().BoolVar(&pdfVerify, "verify", true, "re-read the written PDF and check its pages")
	rootCmd.AddCommand(pdfCmd)
}
