package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/chart"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/fetcher"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/observability"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/pipeline"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/well"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type countJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int64
}

func (c *countJob) Name() string            { return c.name }
func (c *countJob) Interval() time.Duration { return c.interval }
func (c *countJob) Run(ctx context.Context) error {
	c.runs.Add(1)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSchedulerRunsImmediately(t *testing.T) {
	s := NewScheduler(testLogger)
	job := &countJob{name: "slow", interval: time.Hour}
	s.Add(job)
	if s.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", s.Len())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, types.ErrStopped) {
		t.Errorf("second Start = %v, want ErrStopped", err)
	}
	waitFor(t, func() bool { return job.runs.Load() == 1 })
	s.Stop()

	if got := job.runs.Load(); got != 1 {
		t.Errorf("expected exactly one run, got %d", got)
	}
}

func TestSchedulerTicksUntilStopped(t *testing.T) {
	s := NewScheduler(testLogger)
	job := &countJob{name: "fast", interval: 10 * time.Millisecond}
	s.Add(job)

	s.Start(context.Background())
	waitFor(t, func() bool { return job.runs.Load() >= 3 })
	s.Stop()

	after := job.runs.Load()
	time.Sleep(50 * time.Millisecond)
	if job.runs.Load() != after {
		t.Error("job kept running after Stop")
	}
}

func TestSchedulerStopsWithParentContext(t *testing.T) {
	s := NewScheduler(testLogger)
	job := &countJob{name: "ctx", interval: 10 * time.Millisecond}
	s.Add(job)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitFor(t, func() bool { return job.runs.Load() >= 1 })
	cancel()
	s.Stop()
}

// upstream is a switchable fake of the telemetry endpoints.
type upstream struct {
	mu     sync.Mutex
	status int
	bodies map[string]string
}

func newUpstream() *upstream {
	return &upstream{status: http.StatusOK, bodies: make(map[string]string)}
}

func (u *upstream) set(path, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[path] = body
}

func (u *upstream) fail(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status != http.StatusOK {
		w.WriteHeader(u.status)
		fmt.Fprint(w, "unavailable")
		return
	}
	body, ok := u.bodies[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func testConfig(base string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Sources.APIBaseURL = base
	cfg.Sources.DataBaseURL = base
	cfg.Sources.StatusBaseURL = base
	cfg.Fetcher.RequestTimeout = 2 * time.Second
	return cfg
}

func testDeps(cfg *config.Config) Deps {
	return Deps{
		Fetcher:  fetcher.NewHTTPFetcher(&cfg.Fetcher, testLogger),
		Pipeline: pipeline.Default(testLogger),
		Metrics:  observability.NewMetrics(testLogger),
		Location: time.UTC,
		Logger:   testLogger,
	}
}

func TestTankJobRendersAndDegrades(t *testing.T) {
	up := newUpstream()
	up.set("/datos-resumidos/tanque3cantos", `{"nivel": 2.5, "entrada": 10.5, "salida": 3, "timestamp": "2024-05-01T10:00:00"}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	d := testDeps(cfg)
	rec := &render.Recorder{}
	job := NewTankJob(cfg, cfg.Tanks[0], rec, d)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for id, want := range map[string]string{
		"ultimo7":  "Nivel: 2.50 m",
		"ultimo8":  "Q= Entrada: 10.50 L/s",
		"ultimo10": "Q= Salida: 3.00 L/s",
	} {
		if got, _ := rec.LastText(id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}

	rec.Reset()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(rec.Ops()); n != 0 {
		t.Errorf("same payload wrote %d ops", n)
	}

	up.fail(http.StatusInternalServerError)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("degraded Run returned %v", err)
	}
	if got, _ := rec.LastText("ultimo7"); got != "Nivel: N/A" {
		t.Errorf("degraded ultimo7 = %q", got)
	}
	if !job.State().Degraded {
		t.Error("state should be degraded")
	}
	if job.Screen() != "tanque/tanque3cantos" {
		t.Errorf("screen = %q", job.Screen())
	}
	if d.Metrics.PollsDegraded.Load() != 1 {
		t.Errorf("degraded polls = %d", d.Metrics.PollsDegraded.Load())
	}
}

func TestTankJobRequiredLevel(t *testing.T) {
	up := newUpstream()
	up.set("/datos-resumidos/tanque3cantos", `{"entrada": 10.5, "salida": 3}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Pipeline.Required = []config.RequiredFields{{Site: "tanque3cantos", Fields: []string{"nivel"}}}
	d := testDeps(cfg)
	d.Pipeline = pipeline.FromConfig(cfg.Pipeline, testLogger)
	rec := &render.Recorder{}
	job := NewTankJob(cfg, cfg.Tanks[0], rec, d)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !job.State().Degraded {
		t.Error("reading without level should degrade the screen")
	}
	if got, _ := rec.LastText("ultimo8"); got == "Q= Entrada: 10.50 L/s" {
		t.Error("incomplete reading was rendered")
	}
}

func TestTankJobRefresh(t *testing.T) {
	up := newUpstream()
	up.set("/datos-resumidos/tanque3cantos", `{"nivel": 2.5, "entrada": 1, "salida": 1}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	rec := &render.Recorder{}
	job := NewTankJob(cfg, cfg.Tanks[0], rec, testDeps(cfg))

	res, err := job.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Notice != render.NoticeManualUpdated {
		t.Errorf("notice = %q", res.Notice)
	}

	res, err = job.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Notice != render.NoticeNoChanges {
		t.Errorf("notice = %q", res.Notice)
	}

	up.fail(http.StatusBadGateway)
	rec.Reset()
	if _, err := job.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if n := len(rec.Ops()); n != 0 {
		t.Errorf("failed refresh wrote %d ops", n)
	}
	if job.State().Degraded {
		t.Error("failed refresh should not degrade the page")
	}
}

func TestTankJobLevelAlert(t *testing.T) {
	var (
		mu     sync.Mutex
		alerts []Alert
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Alerts []Alert `json:"alerts"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &payload)
		mu.Lock()
		alerts = append(alerts, payload.Alerts...)
		mu.Unlock()
	}))
	defer hook.Close()

	up := newUpstream()
	up.set("/datos-resumidos/tanque3cantos", `{"nivel": 1.2}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	d := testDeps(cfg)
	d.Notifier = NewNotifier(config.NotifyConfig{WebhookURL: hook.URL, Timeout: time.Second}, testLogger)
	job := NewTankJob(cfg, cfg.Tanks[0], &render.Recorder{}, d)

	steps := []string{`{"nivel": 1.2}`, `{"nivel": 1.25}`, `{"nivel": 2.0}`, `{"nivel": 3.9}`}
	for _, body := range steps {
		up.set("/datos-resumidos/tanque3cantos", body)
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].State != "low" || alerts[0].Message != "Nivel Bajo" {
		t.Errorf("first alert = %+v", alerts[0])
	}
	if alerts[1].State != "high" || alerts[1].Previous != "normal" {
		t.Errorf("second alert = %+v", alerts[1])
	}
	if d.Metrics.LevelAlerts.Load() != 2 {
		t.Errorf("level alert metric = %d", d.Metrics.LevelAlerts.Load())
	}
}

func chartSrc(ops []render.Op) (string, bool) {
	src, found := "", false
	for _, op := range ops {
		if op.Kind == render.OpAttr && op.ID == chart.ElementChart && op.Name == "src" {
			src, found = op.Value, true
		}
	}
	return src, found
}

func TestHistoryJob(t *testing.T) {
	up := newUpstream()
	up.set("/historial/tanque3cantos", `{"historial": [
		{"fecha_hora": "2024-05-01T10:00:00", "Nivel_1": 2.1},
		{"fecha_hora": "2024-05-01T10:05:00", "Nivel_1": 2.3}
	]}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	rec := &render.Recorder{}
	job := NewHistoryJob(cfg, cfg.Tanks[0], rec, testDeps(cfg))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	src, ok := chartSrc(rec.Ops())
	if !ok || src != "/chart/tanque3cantos.png?v=1" {
		t.Errorf("chart src = %q (found %v)", src, ok)
	}
	if png, _ := job.Holder().PNG(); len(png) == 0 {
		t.Error("expected a chart image")
	}

	up.set("/historial/tanque3cantos", `{"historial": []}`)
	rec.Reset()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := chartSrc(rec.Ops()); ok {
		t.Error("empty history should keep the previous chart")
	}
	if _, v := job.Holder().PNG(); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}

	up.fail(http.StatusInternalServerError)
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("failed history returned %v", err)
	}
}

func TestSitesJob(t *testing.T) {
	up := newUpstream()
	csv := "Gasto_Instantaneo,Presion_Instantanea\n1,1\n%s,%s\n"
	up.set("/datos-individuales/p263.csv", fmt.Sprintf(csv, "10", "8"))
	up.set("/datos-individuales/p25.csv", fmt.Sprintf(csv, "5", "9"))
	up.set("/datos-individuales/reb62.csv", fmt.Sprintf(csv, "3", "20"))
	up.set("/datos-individuales/tanque3cantos.csv", "Nivel_1\n2.5\n")
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	rec := &render.Recorder{}
	job := NewSitesJob(cfg, rec, testDeps(cfg))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for id, want := range map[string]string{
		"ultimo8":  " 15.00 L/s",
		"ultimo10": " 3.00 L/s",
		"ultimo4":  "Q= 10.00 L/s",
		"ultimo16": "Q= N/A",
		"ultimo7":  "Nivel: 2.50 m",
	} {
		if got, _ := rec.LastText(id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}
	if job.State().Degraded {
		t.Error("partial failure should not degrade the screen")
	}

	up.fail(http.StatusInternalServerError)
	if _, err := job.Refresh(context.Background()); err == nil {
		t.Error("expected refresh error when every site fails")
	}
	if job.State().Degraded {
		t.Error("failed refresh should not degrade the screen")
	}

	before := len(rec.Ops())
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run with every site down: %v", err)
	}
	if !job.State().Degraded {
		t.Error("screen should be degraded when no site answers")
	}
	for _, op := range rec.Ops()[before:] {
		if op.Kind == render.OpNotify {
			t.Errorf("unexpected notice %q", op.Value)
		}
	}
	raised := map[string]bool{}
	for _, op := range rec.Ops() {
		if op.Kind == render.OpClass {
			raised[op.ID] = strings.Contains(strings.Join(op.Add, " "), "blink")
		}
	}
	for _, id := range cfg.Sites.Indicators {
		if !raised[id] {
			t.Errorf("indicator %s not raised", id)
		}
	}
	if got, _ := rec.LastText("ultimo4"); got != "Q= N/A" {
		t.Errorf("ultimo4 = %q", got)
	}
}

func TestWellJob(t *testing.T) {
	up := newUpstream()
	up.set("/datos-resumidos-detallados-new/p263", `{"Gasto_Instantaneo": 12.5, "Presion_Instantanea": 3.2, "Nivel_1": 20, "estado_motor": 1, "ult_dato": "2024-05-01 10:00"}`)
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	rec := &render.Recorder{}
	job := NewWellJob(cfg, "P263", rec, testDeps(cfg))
	if job.Screen() != "pozo/p263" {
		t.Errorf("screen = %q", job.Screen())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, _ := rec.LastText(well.ElementFlow); got != "Q = 12.50" {
		t.Errorf("flow = %q", got)
	}
	if got, _ := rec.LastText(well.ElementTitle); got != "Pozo P263" {
		t.Errorf("title = %q", got)
	}

	up.fail(http.StatusInternalServerError)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("degraded Run: %v", err)
	}
	if got, _ := rec.LastText(well.ElementStatus); got != "Estatus: Sin conexión" {
		t.Errorf("status = %q", got)
	}
	for _, id := range []string{well.ElementLight, well.ElementPump, well.ElementFlowIn, well.ElementFlowOut, well.ElementMotor} {
		found := false
		for _, op := range rec.Ops() {
			if op.Kind == render.OpAttr && op.ID == id {
				found = op.Value == well.ImageClosed
			}
		}
		if !found {
			t.Errorf("%s not closed", id)
		}
	}
}

func TestAveragesJob(t *testing.T) {
	up := newUpstream()
	up.set("/templates/datos_new/p25_promedios_horarios.csv", strings.Join([]string{
		"hora,Gasto_Instantaneo,Presion_Instantanea,Nivel_1",
		"07:00,10,5,30",
		"08:00,20,7,31",
		"20:00,4,2,",
	}, "\n"))
	srv := httptest.NewServer(up)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	rec := &render.Recorder{}
	job := NewAveragesJob(cfg, "p25", rec, testDeps(cfg))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := map[string]string{
		well.ElementAvgFlow:     "Diurno: 15.00 | Nocturno: 4.00",
		well.ElementAvgPressure: "Diurno: 6.00 | Nocturno: 2.00",
		well.ElementAvgLevel:    "Diurno: 30.50 | Nocturno: --",
	}
	for id, w := range want {
		if got, _ := rec.LastText(id); got != w {
			t.Errorf("%s = %q, want %q", id, got, w)
		}
	}

	rec.Reset()
	up.fail(http.StatusInternalServerError)
	if err := job.Run(context.Background()); err != nil {
		t.Errorf("failed averages returned %v", err)
	}
	if n := len(rec.Ops()); n != 0 {
		t.Errorf("failed averages wrote %d ops", n)
	}
}

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	surfaces := make(map[string]*render.Recorder)
	jobs := Build(cfg, func(screen string) render.Surface {
		r := &render.Recorder{}
		surfaces[screen] = r
		return r
	}, Deps{Logger: testLogger})

	want := 2*len(cfg.Tanks) + 1 + 2*len(cfg.Wells.Sites)
	if len(jobs) != want {
		t.Fatalf("expected %d jobs, got %d", want, len(jobs))
	}
	names := make(map[string]bool)
	for _, j := range jobs {
		if names[j.Name()] {
			t.Errorf("duplicate job name %q", j.Name())
		}
		names[j.Name()] = true
		if _, ok := surfaces[j.Screen()]; !ok {
			t.Errorf("job %q has no surface for %q", j.Name(), j.Screen())
		}
	}
	for _, n := range []string{"tanque/tanque3cantos", "historial/tanquelajas", "sitios", "pozo/p254", "promedios/p85"} {
		if !names[n] {
			t.Errorf("missing job %q", n)
		}
	}
}

func TestWebhookChannelRejects(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer hook.Close()

	ch := NewWebhookChannel(hook.URL, time.Second)
	err := ch.Send(context.Background(), []Alert{{Tank: "t", State: "low"}})
	if err == nil {
		t.Fatal("expected error from failing webhook")
	}
	if ch.Type() != ChannelWebhook {
		t.Errorf("type = %s", ch.Type())
	}

	var nilNotifier *Notifier
	nilNotifier.Notify(context.Background(), Alert{Tank: "t"})
}
