// Package energy reads the monthly electricity bills of wells and pumping
// stations and derives their efficiency report: consumption against the
// site's history, power and load factor, time-of-use distribution, trends
// and cost.
package energy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

// Bill columns.
const (
	ColMonth       = "Mes"
	ColKWh         = "KWH"
	ColKVArh       = "KVARH"
	ColBase        = "Consumo base"
	ColInter       = "Consumo inter"
	ColPeak        = "Consumo punta"
	ColTotal       = "TOTAL KWh (suma b,i,p)"
	ColDemandBase  = "Demanda Base"
	ColDemandInter = "Demanda intermedia"
	ColDemandPeak  = "Demanda punta"
	ColPowerFactor = "Factor de potencia"
	ColLoadFactor  = "Factor de carga"
	ColContracted  = "Carga contratada (KW)"
	ColSubtotal    = "SUBTOTAL"
	ColVAT         = "IVA 8%"
	ColDAP         = "DAP"
	ColCharges     = "Cargos y depósitos"
	ColCredits     = "Créditos y redondeos"
	ColReceipt     = "TOTAL RECIBO"
)

// Months in calendar order. Bills of unknown months sort after these.
var Months = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Month is one billing period of a site.
type Month struct {
	Name        string
	KWh         float64
	KVArh       float64
	Base        float64
	Inter       float64
	Peak        float64
	Total       float64 // as billed: base + intermediate + peak
	DemandBase  float64
	DemandInter float64
	DemandPeak  float64
	PowerFactor float64 // percent
	LoadFactor  float64 // percent
	Contracted  float64
}

// Consumption sums the three time-of-use blocks.
func (m Month) Consumption() float64 { return m.Base + m.Inter + m.Peak }

// Bill is the current billing period with its charges.
type Bill struct {
	Month
	Subtotal float64
	VAT      float64
	DAP      float64
	Charges  float64
	Credits  float64
	Receipt  float64 // total printed on the bill

	// Missing lists the charge columns the file did not have; they count
	// as zero.
	Missing []string
}

// Cost is the amount due: subtotal, VAT, public lighting fee, charges and
// credits.
func (b Bill) Cost() float64 {
	return b.Subtotal + b.VAT + b.DAP + b.Charges + b.Credits
}

// CostPerKWh divides the cost by the consumption. It reports false when
// nothing was consumed.
func (b Bill) CostPerKWh() (float64, bool) {
	c := b.Consumption()
	if c <= 0 {
		return 0, false
	}
	return b.Cost() / c, true
}

// Data is everything known about one site.
type Data struct {
	Site    string
	History []Month // oldest first; the last entry is the current month
	Current Bill
}

// FileName turns a site name into the stem used by its files.
func FileName(site string) string {
	return strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(site)
}

// HistoryPath returns the monthly history file of a site.
func HistoryPath(dir, site string) string {
	return filepath.Join(dir, "historial_"+FileName(site)+".csv")
}

// BillPath returns the current bill file of a site.
func BillPath(dir, site string) string {
	return filepath.Join(dir, "pozo_"+FileName(site)+".csv")
}

// Load reads the history and current bill of site from dir. A missing file
// is reported as types.ErrNoData.
func Load(dir, site string) (*Data, error) {
	history, err := readFile(HistoryPath(dir, site), ReadHistory)
	if err != nil {
		return nil, loadError(site, err)
	}
	bill, err := readFile(BillPath(dir, site), ReadBill)
	if err != nil {
		return nil, loadError(site, err)
	}
	return &Data{Site: site, History: history, Current: bill}, nil
}

func loadError(site string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w for %s: %w", types.ErrNoData, site, err)
	}
	return fmt.Errorf("load %s: %w", site, err)
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		var zero T
		return zero, &types.ParseError{URL: path, Format: "csv", Err: err}
	}
	return v, nil
}

// ReadHistory parses a monthly history and sorts it by calendar month.
func ReadHistory(r io.Reader) ([]Month, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	months := make([]Month, 0, len(t.rows))
	for _, row := range t.rows {
		months = append(months, t.month(row))
	}
	SortMonths(months)
	return months, nil
}

// ReadBill parses the first row of a current bill file.
func ReadBill(r io.Reader) (Bill, error) {
	t, err := readTable(r)
	if err != nil {
		return Bill{}, err
	}
	if len(t.rows) == 0 {
		return Bill{}, types.ErrNoData
	}
	row := t.rows[0]
	b := Bill{
		Month:    t.month(row),
		Subtotal: t.number(row, ColSubtotal),
		VAT:      t.number(row, ColVAT),
		DAP:      t.number(row, ColDAP),
		Charges:  t.number(row, ColCharges),
		Credits:  t.number(row, ColCredits),
		Receipt:  t.number(row, ColReceipt),
	}
	for _, col := range []string{ColSubtotal, ColVAT, ColDAP, ColCharges, ColCredits, ColReceipt} {
		if _, ok := t.index[col]; !ok {
			b.Missing = append(b.Missing, col)
		}
	}
	return b, nil
}

// SortMonths orders months by calendar month, keeping the file order of
// months with the same or an unknown name.
func SortMonths(months []Month) {
	slices.SortStableFunc(months, func(a, b Month) int {
		return monthIndex(a.Name) - monthIndex(b.Name)
	})
}

func monthIndex(name string) int {
	for i, m := range Months {
		if strings.EqualFold(strings.TrimSpace(name), m) {
			return i
		}
	}
	return len(Months)
}

type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: %w", types.ErrEmptyResponse)
	}
	t := &table{index: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		t.index[strings.TrimSpace(h)] = i
	}
	return t, nil
}

func (t *table) text(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// number reads a numeric cell. Missing or unparseable cells count as zero.
func (t *table) number(row []string, col string) float64 {
	f, err := strconv.ParseFloat(t.text(row, col), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (t *table) month(row []string) Month {
	return Month{
		Name:        t.text(row, ColMonth),
		KWh:         t.number(row, ColKWh),
		KVArh:       t.number(row, ColKVArh),
		Base:        t.number(row, ColBase),
		Inter:       t.number(row, ColInter),
		Peak:        t.number(row, ColPeak),
		Total:       t.number(row, ColTotal),
		DemandBase:  t.number(row, ColDemandBase),
		DemandInter: t.number(row, ColDemandInter),
		DemandPeak:  t.number(row, ColDemandPeak),
		PowerFactor: t.number(row, ColPowerFactor),
		LoadFactor:  t.number(row, ColLoadFactor),
		Contracted:  t.number(row, ColContracted),
	}
}
