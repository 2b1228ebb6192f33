package energy

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

const historyCSV = `Mes,KWH,KVARH,Consumo base,Consumo inter,Consumo punta,"TOTAL KWh (suma b,i,p)",Demanda Base,Demanda intermedia,Demanda punta,Factor de potencia,Factor de carga,Carga contratada (KW)
Marzo,0,0,4000,5000,1000,10000,50,60,40,93,35,100
Enero,0,0,4000,4000,2000,10000,50,60,40,96,40,100
Febrero,0,0,4000,4500,1500,10000,50,60,40,95,38,100
Abril,0,0,5000,6000,2000,13000,50,60,40,88,30,100
`

const billCSV = `Mes,Consumo base,Consumo inter,Consumo punta,"TOTAL KWh (suma b,i,p)",Factor de potencia,Factor de carga,SUBTOTAL,IVA 8%,DAP,Cargos y depósitos,Créditos y redondeos,TOTAL RECIBO
Abril,5000,6000,2000,13000,88,30,20000,1600,500,100,-0.5,22199.5
`

func writeSite(t *testing.T, site, history, bill string) string {
	t.Helper()
	dir := t.TempDir()
	if history != "" {
		if err := os.WriteFile(HistoryPath(dir, site), []byte(history), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if bill != "" {
		if err := os.WriteFile(BillPath(dir, site), []byte(bill), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func months(totals ...float64) []Month {
	names := []string{"Enero", "Febrero", "Marzo", "Abril", "Mayo"}
	out := make([]Month, len(totals))
	for i, v := range totals {
		out[i] = Month{Name: names[i], Total: v}
	}
	return out
}

func TestFileName(t *testing.T) {
	tests := []struct{ site, want string }{
		{"1-RR", "1_RR"},
		{"REB 60-A", "REB_60_A"},
		{"231 (CEFERESO 9)", "231_(CEFERESO_9)"},
		{"a/b", "a_b"},
	}
	for _, tt := range tests {
		if got := FileName(tt.site); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.site, got, tt.want)
		}
	}
	if got := BillPath("output", "5-R_CH"); got != filepath.Join("output", "pozo_5_R_CH.csv") {
		t.Errorf("bill path = %s", got)
	}
}

func TestReadHistorySortsMonths(t *testing.T) {
	history, err := ReadHistory(strings.NewReader(historyCSV))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range history {
		names = append(names, m.Name)
	}
	if got := strings.Join(names, ","); got != "Enero,Febrero,Marzo,Abril" {
		t.Errorf("order = %s", got)
	}
	if history[3].Total != 13000 || history[3].PowerFactor != 88 {
		t.Errorf("april = %+v", history[3])
	}
}

func TestReadHistoryUnknownMonthsLast(t *testing.T) {
	csv := "Mes,Factor de potencia\nTrimestre,1\nMayo,2\nOtro,3\nEnero,4\n"
	history, err := ReadHistory(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range history {
		names = append(names, m.Name)
	}
	if got := strings.Join(names, ","); got != "Enero,Mayo,Trimestre,Otro" {
		t.Errorf("order = %s", got)
	}
}

func TestReadBillCoercesNumbers(t *testing.T) {
	csv := "\ufeffMes,Consumo base,Consumo inter,Consumo punta,Factor de potencia,SUBTOTAL\nMayo, 1200 ,n/d,,NaN,1000\n"
	b, err := ReadBill(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "Mayo" || b.Base != 1200 || b.Inter != 0 || b.Peak != 0 || b.PowerFactor != 0 {
		t.Errorf("bill = %+v", b.Month)
	}
	if b.Subtotal != 1000 {
		t.Errorf("subtotal = %v", b.Subtotal)
	}
	if len(b.Missing) != 5 {
		t.Errorf("missing = %v", b.Missing)
	}
	if b.Cost() != 1000 {
		t.Errorf("cost = %v", b.Cost())
	}
}

func TestReadBillEmpty(t *testing.T) {
	if _, err := ReadBill(strings.NewReader("Mes,SUBTOTAL\n")); !errors.Is(err, types.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	dir := writeSite(t, "12", historyCSV, "")
	_, err := Load(dir, "12")
	if !errors.Is(err, types.ErrNoData) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}

func TestConsumption(t *testing.T) {
	tests := []struct {
		name    string
		history []Month
		current float64
		want    []string
	}{
		{"short history", months(100), 100, []string{"SIN DATOS SUFICIENTES"}},
		{"high and rising", months(100, 110, 121), 150, []string{"ALTO CONSUMO", "TENDENCIA ALCISTA"}},
		{"low and falling", months(100, 90, 81), 80, []string{"BUEN DESEMPEÑO", "TENDENCIA BAJISTA"}},
		{"stable", months(100, 102, 98), 100, []string{"CONSUMO ESTABLE", "TENDENCIA ESTABLE"}},
		{"zero month skipped", months(0, 100, 100), 70, []string{"CONSUMO ESTABLE", "TENDENCIA ESTABLE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consumption(tt.history, tt.current)
			if len(got) != len(tt.want) {
				t.Fatalf("findings = %+v", got)
			}
			for i, title := range tt.want {
				if got[i].Title != title {
					t.Errorf("finding %d = %q, want %q", i, got[i].Title, title)
				}
			}
		})
	}

	high := Consumption(months(1000, 1000), 1500)[0]
	if high.Severity != Alert || len(high.Recommendations) != 3 {
		t.Errorf("high = %+v", high)
	}
	if !strings.Contains(high.Message, "(1,500 KWh) es un 50.0% mayor") {
		t.Errorf("message = %q", high.Message)
	}
}

func TestPowerFactor(t *testing.T) {
	history := []Month{{PowerFactor: 95}, {PowerFactor: 85}, {PowerFactor: 86}}

	got := PowerFactor(history, 86)
	if got[0].Title != "FACTOR DE POTENCIA BAJO" || got[0].Severity != Alert {
		t.Fatalf("first = %+v", got[0])
	}
	if !strings.Contains(got[0].Message, "Este es el 2° mes") {
		t.Errorf("repeat count missing: %q", got[0].Message)
	}
	if len(got[0].Recommendations) != 4 {
		t.Errorf("recommendations = %v", got[0].Recommendations)
	}
	if len(got) != 2 || got[1].Title != "DETERIORO" {
		t.Errorf("comparison = %+v", got)
	}

	first := PowerFactor([]Month{{PowerFactor: 96}, {PowerFactor: 89}}, 89)
	if !strings.Contains(first[0].Message, "Primer mes") {
		t.Errorf("first low month = %q", first[0].Message)
	}

	if got := PowerFactor([]Month{{PowerFactor: 92}, {PowerFactor: 92}}, 92); got[0].Title != "FACTOR DE POTENCIA EN LÍMITE" || len(got) != 1 {
		t.Errorf("at limit = %+v", got)
	}
	if got := PowerFactor([]Month{{PowerFactor: 90}, {PowerFactor: 92}}, 97); got[0].Severity != Good || got[1].Title != "MEJORA" {
		t.Errorf("good = %+v", got)
	}
}

func TestLoadFactor(t *testing.T) {
	tests := []struct {
		current  float64
		title    string
		severity Severity
		recs     bool
	}{
		{15, "FACTOR DE CARGA MUY BAJO", Alert, true},
		{25, "FACTOR DE CARGA BAJO", Warning, true},
		{50, "FACTOR DE CARGA MODERADO", Info, false},
		{75, "BUEN FACTOR DE CARGA", Good, false},
	}
	history := []Month{{LoadFactor: 10}, {LoadFactor: 12}, {LoadFactor: 90}}
	for _, tt := range tests {
		got := LoadFactor(history, tt.current)[0]
		if got.Title != tt.title || got.Severity != tt.severity || (len(got.Recommendations) > 0) != tt.recs {
			t.Errorf("LoadFactor(%v) = %+v", tt.current, got)
		}
	}
	if got := LoadFactor(history, 15)[0]; !strings.Contains(got.Message, "Este es el 2° mes") {
		t.Errorf("repeat count missing: %q", got.Message)
	}
}

func TestDistribution(t *testing.T) {
	got := Distribution(2000, 3000, 5000)
	var titles []string
	for _, f := range got {
		titles = append(titles, f.Title)
	}
	if strings.Join(titles, "|") != "DISTRIBUCIÓN DEL CONSUMO|ALTO CONSUMO EN HORARIO PUNTA|BAJO CONSUMO EN HORARIO BASE" {
		t.Errorf("titles = %v", titles)
	}
	if !strings.Contains(got[0].Message, "Punta: 50.0% (5,000 KWh)") {
		t.Errorf("shares = %q", got[0].Message)
	}

	if got := Distribution(6000, 3000, 1000); len(got) != 1 {
		t.Errorf("balanced = %+v", got)
	}
	if got := Distribution(0, 0, 0); got[0].Title != "SIN DATOS SUFICIENTES" {
		t.Errorf("empty = %+v", got)
	}
	if b, i, p := Shares(0, 0, 0); b != 0 || i != 0 || p != 0 {
		t.Error("shares of nothing should be zero")
	}
}

func TestTrends(t *testing.T) {
	if got := Trends(months(1, 2)); got[0].Message != NotEnoughHistory {
		t.Errorf("short = %+v", got)
	}

	history := []Month{
		{Name: "Enero", Total: 1000, PowerFactor: 95, LoadFactor: 40},
		{Name: "Febrero", Total: 1100, PowerFactor: 93, LoadFactor: 41},
		{Name: "Marzo", Total: 1200, PowerFactor: 91, LoadFactor: 45},
	}
	got := Trends(history)
	if len(got) != 4 {
		t.Fatalf("findings = %+v", got)
	}
	if got[0].Message != "Aumento significativo del 20.0% desde Enero." {
		t.Errorf("consumption = %q", got[0].Message)
	}
	if got[1].Severity != Alert || got[1].Message != "Deterioro de 4.0 puntos desde Enero." {
		t.Errorf("power factor = %+v", got[1])
	}
	if got[2].Severity != Good {
		t.Errorf("load factor = %+v", got[2])
	}
	if got[3].Title != "ALERTA" || !strings.Contains(got[3].Message, "factor de potencia") {
		t.Errorf("combined = %+v", got[3])
	}

	history[2].PowerFactor = 96
	history[2].LoadFactor = 39
	if got := Trends(history); got[3].Title != "ALERTA" || !strings.Contains(got[3].Message, "factor de carga") {
		t.Errorf("combined load = %+v", got)
	}
}

func TestBuildReport(t *testing.T) {
	dir := writeSite(t, "5-R_CH", historyCSV, billCSV)
	data, err := Load(dir, "5-R_CH")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := Build(data)

	if r.Month != "Abril" || r.Consumption != 13000 {
		t.Errorf("report = %+v", r)
	}
	if len(r.Deltas) != 3 {
		t.Fatalf("deltas = %+v", r.Deltas)
	}
	if d := r.Deltas[0]; math.Abs(d.Change-30) > 1e-9 || d.Better || d.Previous != "Marzo" {
		t.Errorf("consumption delta = %+v", d)
	}
	if d := r.Deltas[1]; d.String() != "-5.00 pts vs Marzo" || d.Better {
		t.Errorf("power factor delta = %s", d)
	}

	if r.Costs.Total != 22199.5 {
		t.Errorf("total = %v", r.Costs.Total)
	}
	if !r.Costs.HasPerKWh || math.Abs(r.Costs.PerKWh-22199.5/13000) > 1e-9 {
		t.Errorf("per kWh = %v", r.Costs.PerKWh)
	}
	if _, ok := r.Find("FACTOR DE POTENCIA BAJO"); !ok {
		t.Error("expected low power factor finding")
	}
	if r.Alerts() == 0 {
		t.Error("expected alerts")
	}

	var out bytes.Buffer
	if err := r.WriteText(&out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Eficiencia energética - 5-R_CH (Abril)",
		"Consumo total:      13,000 KWh",
		"+30.0% vs Marzo",
		"Costo total:          $22,199.50",
		"Costo por kWh:        $1.7077",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRenderCharts(t *testing.T) {
	dir := writeSite(t, "12", historyCSV, billCSV)
	data, err := Load(dir, "12")
	if err != nil {
		t.Fatal(err)
	}
	r := Build(data)
	for _, name := range Charts {
		var buf bytes.Buffer
		if err := RenderChart(&buf, name, r); err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Errorf("%s: not a png", name)
		}
	}

	if err := RenderChart(&bytes.Buffer{}, "pastel", r); !errors.Is(err, ErrUnknownChart) {
		t.Errorf("err = %v", err)
	}
	short := &Report{History: months(10)}
	if err := RenderChart(&bytes.Buffer{}, ChartConsumption, short); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("err = %v", err)
	}
	if err := RenderChart(&bytes.Buffer{}, ChartDistribution, short); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("err = %v", err)
	}
}
