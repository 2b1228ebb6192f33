package energy

import (
	"fmt"
	"io"
	"strings"
)

// Delta compares a current value with the previous month.
type Delta struct {
	Label    string
	Previous string  // month compared against
	Change   float64 // percent for consumption, points for factors
	Unit     string
	Better   bool
}

// String formats the change the way the report cards show it.
func (d Delta) String() string {
	if d.Unit == "%" {
		return fmt.Sprintf("%+.1f%% vs %s", d.Change, d.Previous)
	}
	return fmt.Sprintf("%+.2f %s vs %s", d.Change, d.Unit, d.Previous)
}

// Section groups the findings of one analysis.
type Section struct {
	Title    string
	Findings []Finding
}

// Costs breaks down the current bill.
type Costs struct {
	Subtotal  float64
	VAT       float64
	DAP       float64
	Charges   float64
	Credits   float64
	Total     float64
	PerKWh    float64
	HasPerKWh bool
	Missing   []string
}

// Report is the efficiency report of one site.
type Report struct {
	Site        string
	Month       string
	Base        float64
	Inter       float64
	Peak        float64
	Consumption float64
	PowerFactor float64
	LoadFactor  float64
	Deltas      []Delta
	Sections    []Section
	Costs       Costs
	History     []Month
}

// Section titles.
const (
	SectionConsumption  = "Consumo"
	SectionDistribution = "Distribución del consumo"
	SectionPowerFactor  = "Factor de potencia"
	SectionLoadFactor   = "Factor de carga"
	SectionTrends       = "Tendencias históricas"
)

// Build runs every analysis over d.
func Build(d *Data) *Report {
	cur := d.Current
	r := &Report{
		Site:        d.Site,
		Month:       cur.Name,
		Base:        cur.Base,
		Inter:       cur.Inter,
		Peak:        cur.Peak,
		Consumption: cur.Consumption(),
		PowerFactor: cur.PowerFactor,
		LoadFactor:  cur.LoadFactor,
		History:     d.History,
	}
	if r.Month == "" && len(d.History) > 0 {
		r.Month = d.History[len(d.History)-1].Name
	}

	if n := len(d.History); n > 1 {
		prev := d.History[n-2]
		if prev.Total > 0 {
			change := (r.Consumption - prev.Total) / prev.Total * 100
			r.Deltas = append(r.Deltas, Delta{Label: "Consumo total", Previous: prev.Name, Change: change, Unit: "%", Better: change < 0})
		}
		pf := r.PowerFactor - prev.PowerFactor
		lf := r.LoadFactor - prev.LoadFactor
		r.Deltas = append(r.Deltas,
			Delta{Label: "Factor de potencia", Previous: prev.Name, Change: pf, Unit: "pts", Better: pf > 0},
			Delta{Label: "Factor de carga", Previous: prev.Name, Change: lf, Unit: "pts", Better: lf > 0},
		)
	}

	r.Sections = []Section{
		{Title: SectionConsumption, Findings: Consumption(d.History, r.Consumption)},
		{Title: SectionDistribution, Findings: Distribution(cur.Base, cur.Inter, cur.Peak)},
		{Title: SectionPowerFactor, Findings: PowerFactor(d.History, cur.PowerFactor)},
		{Title: SectionLoadFactor, Findings: LoadFactor(d.History, cur.LoadFactor)},
		{Title: SectionTrends, Findings: Trends(d.History)},
	}

	perKWh, ok := cur.CostPerKWh()
	r.Costs = Costs{
		Subtotal:  cur.Subtotal,
		VAT:       cur.VAT,
		DAP:       cur.DAP,
		Charges:   cur.Charges,
		Credits:   cur.Credits,
		Total:     cur.Cost(),
		PerKWh:    perKWh,
		HasPerKWh: ok,
		Missing:   cur.Missing,
	}
	return r
}

// Alerts counts the findings graded as alerts.
func (r *Report) Alerts() int {
	n := 0
	for _, s := range r.Sections {
		for _, f := range s.Findings {
			if f.Severity == Alert {
				n++
			}
		}
	}
	return n
}

// Find returns the first finding titled title, searching every section.
func (r *Report) Find(title string) (Finding, bool) {
	for _, s := range r.Sections {
		for _, f := range s.Findings {
			if f.Title == title {
				return f, true
			}
		}
	}
	return Finding{}, false
}

// WriteText prints the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n⚡ Eficiencia energética - %s", r.Site)
	if r.Month != "" {
		fmt.Fprintf(&b, " (%s)", r.Month)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "   Consumo total:      %s KWh\n", KWh(r.Consumption))
	fmt.Fprintf(&b, "   Factor de potencia: %.2f%%\n", r.PowerFactor)
	fmt.Fprintf(&b, "   Factor de carga:    %.2f%%\n", r.LoadFactor)
	for _, d := range r.Deltas {
		fmt.Fprintf(&b, "   %-19s %s\n", d.Label+":", d)
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, f := range s.Findings {
			fmt.Fprintf(&b, "  %s %s: %s\n", f.Severity.Icon(), f.Title, f.Message)
			for _, rec := range f.Recommendations {
				fmt.Fprintf(&b, "     💡 %s\n", rec)
			}
		}
	}

	c := r.Costs
	b.WriteString("\nInformación económica\n")
	fmt.Fprintf(&b, "   Subtotal:             %s\n", Money(c.Subtotal))
	fmt.Fprintf(&b, "   IVA 8%%:               %s\n", Money(c.VAT))
	fmt.Fprintf(&b, "   DAP:                  %s\n", Money(c.DAP))
	fmt.Fprintf(&b, "   Cargos y depósitos:   %s\n", Money(c.Charges))
	fmt.Fprintf(&b, "   Créditos y redondeos: %s\n", Money(c.Credits))
	fmt.Fprintf(&b, "   Costo total:          %s\n", Money(c.Total))
	if c.HasPerKWh {
		fmt.Fprintf(&b, "   Costo por kWh:        $%.4f\n", c.PerKWh)
	}
	for _, col := range c.Missing {
		fmt.Fprintf(&b, "   (columna %q no encontrada, se usó 0)\n", col)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
