package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/chart"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/energy"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/sites"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// chartSource is a job that owns a tank's chart.
type chartSource interface {
	Tank() string
	Holder() *chart.Holder
}

// Dashboard serves the screens, their state and the live update stream.
type Dashboard struct {
	cfg     *config.Config
	pages   map[string]*render.DocumentSurface
	index   string
	hub     *Hub
	metrics *observability.Metrics
	logger  *slog.Logger
	mux     *http.ServeMux

	mu         sync.RWMutex
	jobs       map[string][]monitor.ScreenJob
	refreshers map[string]monitor.Refresher
	charts     map[string]*chart.Holder

	server *http.Server
	addr   string
}

// NewDashboard builds a page for every screen cfg describes.
func NewDashboard(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Dashboard, error) {
	d := &Dashboard{
		cfg:        cfg,
		pages:      make(map[string]*render.DocumentSurface),
		metrics:    metrics,
		logger:     logger.With("component", "dashboard"),
		mux:        http.NewServeMux(),
		jobs:       make(map[string][]monitor.ScreenJob),
		refreshers: make(map[string]monitor.Refresher),
		charts:     make(map[string]*chart.Holder),
	}
	d.hub = NewHub(d.Replay, metrics, logger)

	add := func(screen string, html string, err error) error {
		if err != nil {
			return fmt.Errorf("build page %s: %w", screen, err)
		}
		doc, err := render.NewDocumentSurface(html)
		if err != nil {
			return fmt.Errorf("build page %s: %w", screen, err)
		}
		d.pages[screen] = doc
		return nil
	}

	for _, t := range cfg.Tanks {
		html, err := TankPage(t)
		if err := add(monitor.TankScreen(t.Name), html, err); err != nil {
			return nil, err
		}
	}
	if len(sites.Names(cfg.Sites)) > 0 {
		html, err := SitesPage(cfg.Sites)
		if err := add(monitor.SitesScreen, html, err); err != nil {
			return nil, err
		}
	}
	for _, site := range cfg.Wells.Sites {
		html, err := WellPage(site)
		if err := add(monitor.WellScreen(site), html, err); err != nil {
			return nil, err
		}
	}

	index, err := IndexPage(cfg)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	d.index = index

	d.registerRoutes()
	return d, nil
}

// Screens returns the names of every page, sorted.
func (d *Dashboard) Screens() []string {
	out := make([]string, 0, len(d.pages))
	for name := range d.pages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Page returns the server-side document of a screen.
func (d *Dashboard) Page(screen string) (*render.DocumentSurface, bool) {
	p, ok := d.pages[screen]
	return p, ok
}

// Hub returns the WebSocket hub.
func (d *Dashboard) Hub() *Hub { return d.hub }

// Surface returns what a screen's jobs render into: the server-side page
// plus the live stream.
func (d *Dashboard) Surface(screen string) render.Surface {
	if p, ok := d.pages[screen]; ok {
		return render.NewMultiSurface(p, d.hub.Surface(screen))
	}
	return d.hub.Surface(screen)
}

// Register makes jobs visible to the state, refresh and chart endpoints.
func (d *Dashboard) Register(jobs ...monitor.ScreenJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, j := range jobs {
		d.jobs[j.Screen()] = append(d.jobs[j.Screen()], j)
		if r, ok := j.(monitor.Refresher); ok {
			d.refreshers[j.Screen()] = r
		}
		if c, ok := j.(chartSource); ok {
			d.charts[c.Tank()] = c.Holder()
		}
	}
}

// Replay returns the operations that reproduce a screen's current state.
func (d *Dashboard) Replay(screen string) []render.Op {
	d.mu.RLock()
	jobs := d.jobs[screen]
	d.mu.RUnlock()

	var ops []render.Op
	for _, j := range jobs {
		ops = append(ops, j.State().Ops()...)
	}
	return ops
}

func (d *Dashboard) registerRoutes() {
	d.mux.HandleFunc("GET /{$}", d.handleIndex)
	d.mux.HandleFunc("GET /tanque/{name}", d.handlePage)
	d.mux.HandleFunc("GET /sitios", d.handlePage)
	d.mux.HandleFunc("GET /pozo/{site}", d.handlePage)

	d.mux.HandleFunc("GET /api/state/{screen...}", d.handleState)
	d.mux.HandleFunc("POST /api/refresh/{screen...}", d.handleRefresh)
	d.mux.HandleFunc("GET /chart/{file}", d.handleChart)
	d.mux.HandleFunc("GET /energia", d.handleEnergyIndex)
	d.mux.HandleFunc("GET /energia/{site}", d.handleEnergy)
	d.mux.HandleFunc("GET /energia/{site}/{file}", d.handleEnergyChart)
	d.mux.HandleFunc("GET /ws", d.hub.ServeWS)
	d.mux.HandleFunc("GET /health", d.handleHealth)

	if d.cfg.Metrics.Enabled && d.metrics != nil {
		path := d.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		d.mux.Handle("GET "+path, d.metrics.Handler())
	}
}

// Handler returns the HTTP handler of the dashboard.
func (d *Dashboard) Handler() http.Handler { return d.mux }

// Start listens on the configured port and serves until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", d.cfg.Dashboard.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dashboard listen %s: %w", addr, err)
	}
	d.server = &http.Server{
		Handler:           d.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.addr = ln.Addr().String()
	d.logger.Info("dashboard starting", "addr", d.addr)

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("dashboard error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		d.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("dashboard shutdown", "error", err)
		}
	}()
	return nil
}

// Addr returns the address the dashboard listens on once started.
func (d *Dashboard) Addr() string { return d.addr }

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(d.index))
}

func (d *Dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	screen := strings.TrimPrefix(r.URL.Path, "/")
	page, ok := d.pages[screen]
	if !ok {
		http.NotFound(w, r)
		return
	}
	html, err := page.HTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(html))
}

// ScreenState is the JSON view of a screen.
type ScreenState struct {
	Screen   string            `json:"screen"`
	Degraded bool              `json:"degraded"`
	Level    string            `json:"level,omitempty"`
	Labels   map[string]string `json:"labels"`
	Version  uint64            `json:"version"`
}

func (d *Dashboard) handleState(w http.ResponseWriter, r *http.Request) {
	screen := r.PathValue("screen")
	page, ok := d.pages[screen]
	if !ok {
		d.jsonResponse(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("%s: %s", types.ErrUnknownScreen, screen)})
		return
	}

	d.mu.RLock()
	jobs := d.jobs[screen]
	primary := d.refreshers[screen]
	d.mu.RUnlock()

	st := ScreenState{
		Screen:  screen,
		Labels:  make(map[string]string),
		Version: page.Version(),
	}
	for _, j := range jobs {
		for id, text := range j.State().Texts() {
			st.Labels[id] = text
		}
	}
	if primary != nil {
		ps := primary.State()
		st.Degraded = ps.Degraded
		st.Level = ps.Level
	}
	d.jsonResponse(w, http.StatusOK, st)
}

func (d *Dashboard) handleRefresh(w http.ResponseWriter, r *http.Request) {
	screen := r.PathValue("screen")
	d.mu.RLock()
	job, ok := d.refreshers[screen]
	d.mu.RUnlock()
	if !ok {
		d.jsonResponse(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("%s: %s", types.ErrUnknownScreen, screen)})
		return
	}

	res, err := job.Refresh(r.Context())
	if err != nil {
		d.logger.Warn("manual refresh failed", "screen", screen, "error", err)
		d.jsonResponse(w, http.StatusBadGateway, map[string]string{"error": RefreshError})
		return
	}
	d.jsonResponse(w, http.StatusOK, map[string]any{
		"screen":  screen,
		"changed": res.Changed,
		"writes":  res.Writes,
		"notice":  res.Notice,
	})
}

func (d *Dashboard) handleChart(w http.ResponseWriter, r *http.Request) {
	tank, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	d.mu.RLock()
	holder, ok := d.charts[tank]
	d.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	png, _ := holder.PNG()
	if png == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (d *Dashboard) handleEnergyIndex(w http.ResponseWriter, r *http.Request) {
	body, err := EnergyIndexPage(d.cfg.Energy.Sites)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(body))
}

// energyReport loads the bills of the requested site and builds its
// report, answering the request itself when it cannot.
func (d *Dashboard) energyReport(w http.ResponseWriter, r *http.Request) (*energy.Report, bool) {
	site, ok := d.cfg.EnergySite(r.PathValue("site"))
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	data, err := energy.Load(d.cfg.Energy.Dir, site)
	if err != nil {
		if errors.Is(err, types.ErrNoData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return nil, false
		}
		d.logger.Warn("energy report failed", "site", site, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return energy.Build(data), true
}

func (d *Dashboard) handleEnergy(w http.ResponseWriter, r *http.Request) {
	report, ok := d.energyReport(w, r)
	if !ok {
		return
	}
	body, err := EnergyPage(report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(body))
}

func (d *Dashboard) handleEnergyChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || !slices.Contains(energy.Charts, name) {
		http.NotFound(w, r)
		return
	}
	report, ok := d.energyReport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := energy.RenderChart(&buf, name, report); err != nil {
		if errors.Is(err, energy.ErrNotEnoughData) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   config.Version,
		"screens":   len(d.pages),
		"clients":   d.hub.Clients(),
		"stats":     d.metrics.Snapshot(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (d *Dashboard) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
