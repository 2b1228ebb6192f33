package energy

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Severity grades a finding.
type Severity int

const (
	Info Severity = iota
	Good
	Warning
	Alert
)

func (s Severity) String() string {
	switch s {
	case Good:
		return "good"
	case Warning:
		return "warning"
	case Alert:
		return "alert"
	default:
		return "info"
	}
}

// Icon returns the marker printed before a finding.
func (s Severity) Icon() string {
	switch s {
	case Good:
		return "✅"
	case Warning, Alert:
		return "⚠️"
	default:
		return "📊"
	}
}

// Finding is one observation about a site, with what to do about it.
type Finding struct {
	Severity        Severity
	Title           string
	Message         string
	Recommendations []string
}

// Analysis thresholds.
const (
	ConsumptionBand   = 0.10 // current vs historical mean
	VariationTrend    = 5.0  // mean month-over-month change, percent
	PowerFactorLimit  = 90.0
	PowerFactorTarget = 95.0
	PowerFactorBand   = 0.02
	LoadFactorMinimum = 20.0
	LoadFactorLow     = 30.0
	LoadFactorGood    = 70.0
	LoadFactorBand    = 0.10
	PeakShareLimit    = 40.0
	BaseShareMinimum  = 30.0
	TrendConsumption  = 10.0 // first to last month, percent
	TrendPoints       = 3.0  // first to last month, factor points
)

// NotEnoughHistory is reported when a history is too short to compare.
const NotEnoughHistory = "No hay suficientes datos históricos para realizar un análisis de tendencias."

var printer = message.NewPrinter(language.English)

// KWh formats an amount of energy with thousands separators.
func KWh(v float64) string { return printer.Sprintf("%.0f", v) }

// Money formats an amount of pesos with thousands separators.
func Money(v float64) string { return printer.Sprintf("$%.2f", v) }

func notEnough() []Finding {
	return []Finding{{Severity: Info, Title: "SIN DATOS SUFICIENTES", Message: NotEnoughHistory}}
}

func mean(history []Month, field func(Month) float64) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range history {
		sum += field(m)
	}
	return sum / float64(len(history))
}

func billedTotal(m Month) float64 { return m.Total }
func powerFactor(m Month) float64 { return m.PowerFactor }
func loadFactor(m Month) float64  { return m.LoadFactor }

// Consumption compares the current consumption with the historical mean
// and reports the month-over-month trend.
func Consumption(history []Month, current float64) []Finding {
	if len(history) < 2 {
		return notEnough()
	}
	avg := mean(history, billedTotal)

	// months billed at zero have no meaningful relative change
	var variations []float64
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Total
		if prev == 0 {
			continue
		}
		variations = append(variations, (history[i].Total-prev)/prev*100)
	}
	trend := 0.0
	if len(variations) > 0 {
		for _, v := range variations {
			trend += v
		}
		trend /= float64(len(variations))
	}

	var out []Finding
	high := avg > 0 && current > avg*(1+ConsumptionBand)
	switch {
	case high:
		out = append(out, Finding{
			Severity: Alert,
			Title:    "ALTO CONSUMO",
			Message: printer.Sprintf("El consumo actual (%s KWh) es un %.1f%% mayor que el promedio histórico (%s KWh).",
				KWh(current), (current/avg-1)*100, KWh(avg)),
			Recommendations: []string{
				"Revisar horarios de operación para identificar posibles ineficiencias.",
				"Verificar el estado de los equipos (bombas, motores) que puedan estar consumiendo más energía.",
				"Considerar un mantenimiento preventivo para optimizar el consumo.",
			},
		})
	case avg > 0 && current < avg*(1-ConsumptionBand):
		out = append(out, Finding{
			Severity: Good,
			Title:    "BUEN DESEMPEÑO",
			Message: printer.Sprintf("El consumo actual (%s KWh) es un %.1f%% menor que el promedio histórico (%s KWh).",
				KWh(current), (1-current/avg)*100, KWh(avg)),
		})
	default:
		out = append(out, Finding{
			Severity: Info,
			Title:    "CONSUMO ESTABLE",
			Message: printer.Sprintf("El consumo actual (%s KWh) está cerca del promedio histórico (%s KWh).",
				KWh(current), KWh(avg)),
		})
	}

	switch {
	case trend > VariationTrend:
		out = append(out, Finding{Severity: Alert, Title: "TENDENCIA ALCISTA",
			Message: "En los últimos meses se observa una tendencia al alza en el consumo."})
	case trend < -VariationTrend:
		out = append(out, Finding{Severity: Good, Title: "TENDENCIA BAJISTA",
			Message: "En los últimos meses se observa una tendencia a la baja en el consumo."})
	default:
		out = append(out, Finding{Severity: Info, Title: "TENDENCIA ESTABLE",
			Message: "El consumo ha mantenido una tendencia estable."})
	}
	return out
}

// PowerFactor grades the current power factor against the 90% limit and
// the site's historical mean.
func PowerFactor(history []Month, current float64) []Finding {
	if len(history) < 2 {
		return notEnough()
	}
	avg := mean(history, powerFactor)
	low := 0
	for _, m := range history {
		if m.PowerFactor < PowerFactorLimit {
			low++
		}
	}

	var out []Finding
	switch {
	case current < PowerFactorLimit:
		f := Finding{
			Severity: Alert,
			Title:    "FACTOR DE POTENCIA BAJO",
			Message:  printer.Sprintf("El valor actual (%.1f%%) está por debajo del límite recomendado (90%%).", current),
			Recommendations: []string{
				"Instalar capacitores para corregir el factor de potencia.",
				"Revisar motores y equipos que puedan estar causando baja eficiencia.",
				"Considerar un estudio de calidad de energía.",
				"Verificar si hay equipos operando en vacío o con carga parcial.",
			},
		}
		if low > 1 {
			f.Message += printer.Sprintf(" Este es el %d° mes con factor de potencia bajo. ¡Acción urgente requerida!", low)
		} else {
			f.Message += " Primer mes con factor de potencia bajo. Se recomienda atención inmediata."
		}
		out = append(out, f)
	case current < PowerFactorTarget:
		out = append(out, Finding{
			Severity: Warning,
			Title:    "FACTOR DE POTENCIA EN LÍMITE",
			Message:  printer.Sprintf("El valor actual (%.1f%%) está cerca del límite recomendado (90%%).", current),
		})
	default:
		out = append(out, Finding{
			Severity: Good,
			Title:    "BUEN FACTOR DE POTENCIA",
			Message:  printer.Sprintf("El valor actual (%.1f%%) está por encima del límite recomendado.", current),
		})
	}

	switch {
	case current < avg*(1-PowerFactorBand):
		out = append(out, Finding{Severity: Alert, Title: "DETERIORO",
			Message: printer.Sprintf("El factor de potencia ha empeorado respecto al promedio histórico (%.1f%%).", avg)})
	case current > avg*(1+PowerFactorBand):
		out = append(out, Finding{Severity: Good, Title: "MEJORA",
			Message: printer.Sprintf("El factor de potencia ha mejorado respecto al promedio histórico (%.1f%%).", avg)})
	}
	return out
}

// LoadFactor grades how much of the contracted capacity the site uses.
func LoadFactor(history []Month, current float64) []Finding {
	if len(history) < 2 {
		return notEnough()
	}
	avg := mean(history, loadFactor)
	low := 0
	for _, m := range history {
		if m.LoadFactor < LoadFactorMinimum {
			low++
		}
	}
	recs := []string{
		"Revisar la distribución de la carga a lo largo del día.",
		"Considerar la implementación de un sistema de almacenamiento de energía.",
		"Evaluar la posibilidad de agregar cargas en horarios de baja demanda.",
		"Verificar si hay equipos que puedan operar en horarios de menor demanda.",
	}

	var out []Finding
	switch {
	case current < LoadFactorMinimum:
		f := Finding{
			Severity:        Alert,
			Title:           "FACTOR DE CARGA MUY BAJO",
			Message:         printer.Sprintf("El valor actual (%.1f%%) está por debajo del mínimo recomendado (20%%).", current),
			Recommendations: recs,
		}
		if low > 1 {
			f.Message += printer.Sprintf(" Este es el %d° mes con factor de carga bajo. ¡Acción urgente requerida!", low)
		}
		out = append(out, f)
	case current < LoadFactorLow:
		out = append(out, Finding{
			Severity:        Warning,
			Title:           "FACTOR DE CARGA BAJO",
			Message:         printer.Sprintf("El valor actual (%.1f%%) está por debajo del óptimo.", current),
			Recommendations: recs,
		})
	case current > LoadFactorGood:
		out = append(out, Finding{
			Severity: Good,
			Title:    "BUEN FACTOR DE CARGA",
			Message:  printer.Sprintf("El valor actual (%.1f%%) indica una buena utilización de la capacidad instalada.", current),
		})
	default:
		out = append(out, Finding{
			Severity: Info,
			Title:    "FACTOR DE CARGA MODERADO",
			Message:  printer.Sprintf("El valor actual (%.1f%%) está en un rango aceptable.", current),
		})
	}

	switch {
	case current < avg*(1-LoadFactorBand):
		out = append(out, Finding{Severity: Alert, Title: "DETERIORO",
			Message: printer.Sprintf("El factor de carga ha empeorado respecto al promedio histórico (%.1f%%).", avg)})
	case current > avg*(1+LoadFactorBand):
		out = append(out, Finding{Severity: Good, Title: "MEJORA",
			Message: printer.Sprintf("El factor de carga ha mejorado respecto al promedio histórico (%.1f%%).", avg)})
	}
	return out
}

// Shares returns the percentage of consumption in each time-of-use block.
// All are zero when nothing was consumed.
func Shares(base, inter, peak float64) (float64, float64, float64) {
	total := base + inter + peak
	if total <= 0 {
		return 0, 0, 0
	}
	return base / total * 100, inter / total * 100, peak / total * 100
}

// Distribution reports how consumption splits across base, intermediate
// and peak hours, flagging heavy peak use and light base use.
func Distribution(base, inter, peak float64) []Finding {
	if base+inter+peak <= 0 {
		return []Finding{{Severity: Info, Title: "SIN DATOS SUFICIENTES",
			Message: "No hay datos suficientes para analizar la distribución del consumo."}}
	}
	pb, pi, pp := Shares(base, inter, peak)
	out := []Finding{{
		Severity: Info,
		Title:    "DISTRIBUCIÓN DEL CONSUMO",
		Message: printer.Sprintf("Base: %.1f%% (%s KWh). Intermedio: %.1f%% (%s KWh). Punta: %.1f%% (%s KWh).",
			pb, KWh(base), pi, KWh(inter), pp, KWh(peak)),
	}}
	if pp > PeakShareLimit {
		out = append(out, Finding{
			Severity: Alert,
			Title:    "ALTO CONSUMO EN HORARIO PUNTA",
			Message:  "Más del 40% del consumo ocurre en horario punta.",
			Recommendations: []string{
				"Revisar si hay equipos que puedan operar en horarios de menor demanda.",
				"Considerar la implementación de un sistema de almacenamiento de energía para reducir el consumo en horario punta.",
				"Evaluar la posibilidad de cambiar tarifas o contratos de suministro.",
			},
		})
	}
	if pb < BaseShareMinimum {
		out = append(out, Finding{
			Severity: Warning,
			Title:    "BAJO CONSUMO EN HORARIO BASE",
			Message:  "Menos del 30% del consumo ocurre en horario base.",
			Recommendations: []string{
				"Intentar redistribuir cargas al horario base cuando sea posible.",
				"Revisar si hay oportunidades para operar equipos en horarios de menor costo.",
			},
		})
	}
	return out
}

// Trends compares the first and last months of the history.
func Trends(history []Month) []Finding {
	if len(history) < 3 {
		return notEnough()
	}
	first, last := history[0], history[len(history)-1]
	since := first.Name

	consumption := 0.0
	if first.Total != 0 {
		consumption = (last.Total - first.Total) / first.Total * 100
	}
	pf := last.PowerFactor - first.PowerFactor
	lf := last.LoadFactor - first.LoadFactor

	var out []Finding
	switch {
	case consumption > TrendConsumption:
		out = append(out, Finding{Severity: Alert, Title: "TENDENCIA DE CONSUMO",
			Message: printer.Sprintf("Aumento significativo del %.1f%% desde %s.", consumption, since)})
	case consumption < -TrendConsumption:
		out = append(out, Finding{Severity: Good, Title: "TENDENCIA DE CONSUMO",
			Message: printer.Sprintf("Disminución significativa del %.1f%% desde %s.", math.Abs(consumption), since)})
	default:
		out = append(out, Finding{Severity: Info, Title: "TENDENCIA DE CONSUMO",
			Message: printer.Sprintf("Estable con variación del %.1f%% desde %s.", consumption, since)})
	}
	out = append(out, pointTrend("TENDENCIA FACTOR DE POTENCIA", pf, since))
	out = append(out, pointTrend("TENDENCIA FACTOR DE CARGA", lf, since))

	switch {
	case consumption > TrendConsumption && pf < 0:
		out = append(out, Finding{Severity: Alert, Title: "ALERTA",
			Message: "Aumento en consumo con deterioro en factor de potencia. Revisión urgente recomendada."})
	case consumption > TrendConsumption && lf < 0:
		out = append(out, Finding{Severity: Alert, Title: "ALERTA",
			Message: "Aumento en consumo con deterioro en factor de carga. Revisión urgente recomendada."})
	}
	return out
}

func pointTrend(title string, delta float64, since string) Finding {
	switch {
	case delta < -TrendPoints:
		return Finding{Severity: Alert, Title: title,
			Message: printer.Sprintf("Deterioro de %.1f puntos desde %s.", math.Abs(delta), since)}
	case delta > TrendPoints:
		return Finding{Severity: Good, Title: title,
			Message: printer.Sprintf("Mejora de %.1f puntos desde %s.", delta, since)}
	default:
		return Finding{Severity: Info, Title: title,
			Message: printer.Sprintf("Estable con variación de %.1f puntos desde %s.", delta, since)}
	}
}
