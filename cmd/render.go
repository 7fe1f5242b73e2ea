package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/zalepa/vaultstats/report"
)

// termOptions controls terminal output.
type termOptions struct {
	width  int
	color  bool
	charts bool
	data   bool
}

var renderOpts termOptions

var renderCmd = &cobra.Command{
	Use:   "render [section-id...]",
	Short: "Print the report to the terminal.",
	Long: `Render builds the report and prints every section (or only the named
ones) with a block-character chart, its narrative and optionally the derived
data table.

Section ids: lock-durations, early-unlocks, early-rate, adoption,
support-hours, repeat-early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := buildReport(cmd.Context(), newGenerator(), args)
		if err != nil {
			return err
		}
		opts := renderOpts
		opts.width = terminalWidth(opts.width)
		return writeReport(cmd.OutOrStdout(), rep, opts)
	},
}

// buildReport renders the whole report, or only the sections in ids, in the
// order given.
func buildReport(ctx context.Context, g *report.Generator, ids []string) (*report.Report, error) {
	if len(ids) == 0 {
		return g.Render(ctx)
	}
	rep := &report.Report{Title: report.Title, Generated: time.Now()}
	for _, id := range ids {
		sec, err := g.Section(ctx, id)
		if err != nil {
			var se *report.SectionError
			if g.Strict || !errors.As(err, &se) {
				return nil, err
			}
			sec = &report.Section{ID: se.ID, Title: se.Title, Err: err}
		}
		rep.Sections = append(rep.Sections, sec)
	}
	return rep, nil
}

func paint(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func newMarkdownRenderer(opts termOptions) (*glamour.TermRenderer, error) {
	style := glamour.WithStandardStyle("notty")
	if opts.color {
		style = glamour.WithAutoStyle()
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(opts.width))
}

// writeReport prints rep section by section. A failed section prints its
// error in place of the chart.
func writeReport(w io.Writer, rep *report.Report, opts termOptions) error {
	title := paint(opts.color, color.Bold, color.Underline)
	heading := paint(opts.color, color.FgCyan, color.Bold)
	warn := paint(opts.color, color.FgYellow)
	fail := paint(opts.color, color.FgRed, color.Bold)

	md, err := newMarkdownRenderer(opts)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}

	if _, err := title.Fprintln(w, rep.Title); err != nil {
		return err
	}
	fmt.Fprintf(w, "Generated %s\n", rep.Generated.Format(time.RFC1123))

	for _, sec := range rep.Sections {
		fmt.Fprintln(w)
		heading.Fprintln(w, sec.Title)
		if sec.Failed() {
			fail.Fprintln(w, sec.Err.Error())
			continue
		}
		if opts.charts {
			fmt.Fprintln(w)
			if err := termChart(w, sec.Chart, opts.width); err != nil {
				return fmt.Errorf("section %s: %w", sec.ID, err)
			}
		}
		for _, msg := range sec.Warnings {
			warn.Fprintf(w, "warning: %s\n", msg)
		}
		for _, text := range []string{sec.Summary, sec.Action} {
			if text == "" {
				continue
			}
			out, err := md.Render(text)
			if err != nil {
				return fmt.Errorf("section %s narrative: %w", sec.ID, err)
			}
			fmt.Fprint(w, out)
		}
		if opts.data && sec.Data != nil {
			if err := writeDataTable(w, sec); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDataTable(w io.Writer, sec *report.Section) error {
	tbl := tablewriter.NewWriter(w)
	tbl.Header(sec.Data.Header())
	if err := tbl.Bulk(sec.Data.Rows()); err != nil {
		return fmt.Errorf("section %s table: %w", sec.ID, err)
	}
	return tbl.Render()
}

func init() {
	renderCmd.Flags().IntVar(&renderOpts.width, "width", 0, "output width in columns (default: terminal width)")
	renderCmd.Flags().BoolVar(&renderOpts.color, "color", true, "colourize headings and narrative")
	renderCmd.Flags().BoolVar(&renderOpts.charts, "charts", true, "draw block-character charts")
	renderCmd.Flags().BoolVar(&renderOpts.data, "data", false, "print the derived data table of each section")
	rootCmd.AddCommand(renderCmd)
}
