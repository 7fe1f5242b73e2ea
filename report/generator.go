package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zalepa/vaultstats/table"
)

// ErrUnknownSection is returned for a section id that is not part of the
// report.
var ErrUnknownSection = errors.New("unknown section")

// DefaultSources maps each section id to its default file name.
var DefaultSources = map[string]string{
	LockDurationsID: "lock_duration.csv",
	EarlyUnlocksID:  "early_unlocks.csv",
	EarlyRateID:     "lock_duration_with_early_unlock.csv",
	AdoptionID:      "adoption rate_excl.csv",
	SupportHoursID:  "hour_of_contact.csv",
	RepeatEarlyID:   "early unlock.csv",
}

type builder struct {
	id    string
	title string
	build func(g *Generator, t *table.Table) (*Section, error)
}

var builders = []builder{
	{LockDurationsID, LockDurationsTitle, func(_ *Generator, t *table.Table) (*Section, error) { return LockDurations(t) }},
	{EarlyUnlocksID, EarlyUnlocksTitle, func(_ *Generator, t *table.Table) (*Section, error) { return EarlyUnlocks(t) }},
	{EarlyRateID, EarlyRateTitle, func(_ *Generator, t *table.Table) (*Section, error) { return EarlyRate(t) }},
	{AdoptionID, AdoptionTitle, func(_ *Generator, t *table.Table) (*Section, error) { return Adoption(t) }},
	{SupportHoursID, SupportHoursTitle, func(g *Generator, t *table.Table) (*Section, error) { return SupportHours(t, g.window()) }},
	{RepeatEarlyID, RepeatEarlyTitle, func(_ *Generator, t *table.Table) (*Section, error) { return RepeatEarly(t) }},
}

// SectionIDs returns the section ids in report order.
func SectionIDs() []string {
	ids := make([]string, len(builders))
	for i, b := range builders {
		ids[i] = b.id
	}
	return ids
}

// Generator loads the source tables and builds the report.
type Generator struct {
	Loader *table.Loader
	// DataDir is joined with relative source paths.
	DataDir string
	// Sources overrides DefaultSources per section id.
	Sources map[string]string
	// Coverage is the support-hours window; the zero value means
	// DefaultWindow.
	Coverage Window
	// Strict stops at the first failing section instead of reporting it in
	// place.
	Strict bool
	Log    *zap.Logger
}

func (g *Generator) log() *zap.Logger {
	if g.Log == nil {
		return zap.NewNop()
	}
	return g.Log
}

func (g *Generator) window() Window {
	if g.Coverage == (Window{}) {
		return DefaultWindow
	}
	return g.Coverage
}

// SourcePath returns the file a section is built from.
func (g *Generator) SourcePath(id string) string {
	p, ok := g.Sources[id]
	if !ok || p == "" {
		p = DefaultSources[id]
	}
	if filepath.IsAbs(p) || g.DataDir == "" {
		return p
	}
	return filepath.Join(g.DataDir, p)
}

// SourcePaths returns the source file of every section in report order.
func (g *Generator) SourcePaths() []string {
	out := make([]string, len(builders))
	for i, b := range builders {
		out[i] = g.SourcePath(b.id)
	}
	return out
}

// Render builds every section in order. A failing section is kept in place
// with its error set, unless Strict is set, in which case the first failure
// is returned as a *SectionError.
func (g *Generator) Render(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{Title: Title, Generated: start}
	for _, b := range builders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec, err := g.run(b)
		if err != nil {
			if g.Strict {
				return nil, err
			}
			sec = &Section{ID: b.id, Title: b.title, Err: err}
		}
		rep.Sections = append(rep.Sections, sec)
	}
	g.log().Info("report rendered",
		zap.Int("sections", len(rep.Sections)),
		zap.Int("failed", len(rep.Failed())),
		zap.Duration("elapsed", time.Since(start)))
	return rep, nil
}

// Section builds a single section. Failures are returned as *SectionError.
func (g *Generator) Section(ctx context.Context, id string) (*Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, b := range builders {
		if b.id == id {
			return g.run(b)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, id)
}

func (g *Generator) run(b builder) (*Section, error) {
	log := g.log().With(zap.String("section", b.id))
	fail := func(err error) (*Section, error) {
		log.Warn("section failed", zap.Error(err))
		return nil, &SectionError{ID: b.id, Title: b.title, Err: err}
	}

	path := g.SourcePath(b.id)
	t, err := g.Loader.Load(path)
	if err != nil {
		return fail(err)
	}
	sec, err := b.build(g, t)
	if err != nil {
		return fail(err)
	}
	for _, w := range sec.Warnings {
		log.Warn("section warning", zap.String("warning", w))
	}
	log.Debug("section built", zap.String("path", path), zap.Int("rows", t.Len()))
	return sec, nil
}
