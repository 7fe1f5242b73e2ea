package cmd

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/report"
)

//go:embed web.html
var webContent embed.FS

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the report as a web dashboard.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g := newGenerator()
		if cfg.Watch {
			if err := g.Loader.Watch(ctx, g.SourcePaths()...); err != nil {
				return err
			}
		}
		renderer, err := chart.NewRenderer(cfg.ChartBackend, cfg.ChartWidth, cfg.ChartHeight)
		if err != nil {
			return err
		}
		s, err := newServer(g, renderer, prometheus.NewRegistry(), logger)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Port),
			Handler:           s.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		logger.Info("serving dashboard", zap.String("addr", "http://localhost"+srv.Addr), zap.Bool("watch", cfg.Watch))

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		}
	},
}

// server serves the report over HTTP.
type server struct {
	gen      *report.Generator
	renderer chart.Renderer
	reg      *prometheus.Registry
	metrics  *serverMetrics
	log      *zap.Logger
	page     *template.Template
}

func newServer(g *report.Generator, r chart.Renderer, reg *prometheus.Registry, log *zap.Logger) (*server, error) {
	page, err := template.New("web.html").Funcs(template.FuncMap{
		// Narrative HTML comes from goldmark, which escapes raw HTML.
		"markup": func(s string) template.HTML { return template.HTML(s) },
	}).ParseFS(webContent, "web.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &server{
		gen:      g,
		renderer: r,
		reg:      reg,
		metrics:  newServerMetrics(reg, g.Loader),
		log:      log,
		page:     page,
	}, nil
}

// Routes returns the dashboard and API routes.
func (s *server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/", s.dashboard)
	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/report", s.getReport)
		r.Get("/sections/{id}", s.getSection)
		r.Get("/sections/{id}/chart.{format}", s.getChart)
	})
	return r
}

// observe logs each request and counts it by route pattern and status.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// build renders the full report and records per-section failures.
func (s *server) build(ctx context.Context) (*report.Report, error) {
	start := time.Now()
	rep, err := s.gen.Render(ctx)
	s.metrics.renderSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		var se *report.SectionError
		if errors.As(err, &se) {
			s.metrics.sectionFailure.WithLabelValues(se.ID).Inc()
		}
		return nil, err
	}
	for _, sec := range rep.Failed() {
		s.metrics.sectionFailure.WithLabelValues(sec.ID).Inc()
	}
	return rep, nil
}

type dataResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type sectionResponse struct {
	*report.Section
	SummaryHTML string        `json:"summary_html,omitempty"`
	ActionHTML  string        `json:"action_html,omitempty"`
	Error       string        `json:"error,omitempty"`
	Data        *dataResponse `json:"data,omitempty"`
}

type reportResponse struct {
	Title     string            `json:"title"`
	Generated time.Time         `json:"generated"`
	Sections  []sectionResponse `json:"sections"`
}

func newSectionResponse(sec *report.Section) (sectionResponse, error) {
	out := sectionResponse{Section: sec}
	if sec.Failed() {
		out.Error = sec.Err.Error()
		return out, nil
	}
	var err error
	if out.SummaryHTML, err = narrative.HTML(sec.Summary); err != nil {
		return out, err
	}
	if out.ActionHTML, err = narrative.HTML(sec.Action); err != nil {
		return out, err
	}
	if sec.Data != nil {
		out.Data = &dataResponse{Columns: sec.Data.Header(), Rows: sec.Data.Rows()}
	}
	return out, nil
}

func newReportResponse(rep *report.Report) (reportResponse, error) {
	out := reportResponse{Title: rep.Title, Generated: rep.Generated}
	for _, sec := range rep.Sections {
		sr, err := newSectionResponse(sec)
		if err != nil {
			return out, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		out.Sections = append(out.Sections, sr)
	}
	return out, nil
}

func (s *server) dashboard(w http.ResponseWriter, r *http.Request) {
	rep, err := s.build(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp, err := newReportResponse(rep)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, resp); err != nil {
		s.log.Error("dashboard template", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok", "version": version})
}

func (s *server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.build(r.Context())
	if err != nil {
		var se *report.SectionError
		if errors.As(err, &se) {
			_ = render.Render(w, r, errSectionFailed(err))
			return
		}
		_ = render.Render(w, r, errInternal(err))
		return
	}
	resp, err := newReportResponse(rep)
	if err != nil {
		_ = render.Render(w, r, errInternal(err))
		return
	}
	render.JSON(w, r, resp)
}

// section builds the section named in the URL, writing the API error itself
// when it cannot.
func (s *server) section(w http.ResponseWriter, r *http.Request) (*report.Section, bool) {
	id := chi.URLParam(r, "id")
	sec, err := s.gen.Section(r.Context(), id)
	switch {
	case errors.Is(err, report.ErrUnknownSection):
		_ = render.Render(w, r, errSectionNotFound(id))
		return nil, false
	case err != nil:
		s.metrics.sectionFailure.WithLabelValues(id).Inc()
		_ = render.Render(w, r, errSectionFailed(err))
		return nil, false
	}
	return sec, true
}

func (s *server) getSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.section(w, r)
	if !ok {
		return
	}
	resp, err := newSectionResponse(sec)
	if err != nil {
		_ = render.Render(w, r, errInternal(err))
		return
	}
	render.JSON(w, r, resp)
}

var contentTypes = map[chart.Format]string{
	chart.PNG: "image/png",
	chart.SVG: "image/svg+xml",
}

func (s *server) getChart(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "format")
	f, err := chart.ParseFormat(raw)
	if _, ok := contentTypes[f]; err != nil || !ok {
		_ = render.Render(w, r, errUnsupportedFormat(raw))
		return
	}
	sec, ok := s.section(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, sec.Chart, f); err != nil {
		_ = render.Render(w, r, errInternal(err))
		return
	}
	w.Header().Set("Content-Type", contentTypes[f])
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

func init() {
	webCmd.Flags().Int("port", 8501, "HTTP server port")
	webCmd.Flags().Bool("watch", false, "reload source files when they change")
	_ = viper.BindPFlag("port", webCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("watch", webCmd.Flags().Lookup("watch"))
	rootCmd.AddCommand(webCmd)
}
