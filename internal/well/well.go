// Package well derives the detail view of a pumping well: status code,
// labels and the state of every icon and animation.
package well

import (
	"fmt"
	"math"
	"strings"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/telemetry"
)

// Status codes reported for a well.
const (
	CodeTesting       = "0"
	CodeOff           = "1"
	CodeCommFailure   = "2"
	CodeAlarm         = "3"
	CodeLocalControl  = "4"
	CodeRemoteControl = "5"
)

var statusText = map[string]string{
	CodeTesting:       "Pozo en prueba",
	CodeOff:           "Pozo apagado",
	CodeCommFailure:   "Falla de Comunicación",
	CodeAlarm:         "Alarma",
	CodeLocalControl:  "Comunicación en local",
	CodeRemoteControl: "Señal en remoto",
}

// StatusText returns the description of a status code.
func StatusText(code string) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Estado desconocido"
}

// Images used on the well page.
const (
	ImageClosed = "/static/img/cerrado.gif"
	ImageLight  = "/static/img/luz.gif"
	ImageReload = "/static/img/reload.gif"
	ImageFlow   = "/static/img/flujo_izq.gif"
)

// Element ids on the well page.
const (
	ElementTitle    = "pozo-title"
	ElementFlow     = "label1"
	ElementPressure = "label2"
	ElementUpdated  = "label3"
	ElementStatus   = "label4"
	ElementLight    = "img4"
	ElementPump     = "img5"
	ElementFlowIn   = "img6"
	ElementFlowOut  = "img7"
	ElementMotor    = "motorImage"
	ElementOrbital  = "orbital"
	ElementWarning  = "gastoWarningIcon"

	ElementAvgFlow     = "gastoValue"
	ElementAvgPressure = "presionValue"
	ElementAvgLevel    = "nivelValue"
	ElementAvgCaption  = "fechaHoraValue"
)

// Code derives the status code of a reading: communication failure when
// flow and level are both missing, off when both are exactly zero, and
// testing otherwise.
func Code(flow, level float64) string {
	switch {
	case math.IsNaN(flow) && math.IsNaN(level):
		return CodeCommFailure
	case flow == 0 && level == 0:
		return CodeOff
	default:
		return CodeTesting
	}
}

// Title returns the page title of site.
func Title(site string) string {
	return "Pozo " + strings.ToUpper(site)
}

// View is the derived state of a well page.
type View struct {
	Site     string
	Code     string
	Flow     string // label1
	Pressure string // label2
	Updated  string // label3
	Status   string // label4

	Light   string // img4
	Pump    string // img5, empty leaves it unchanged
	Motor   string // motorImage src, empty leaves it unchanged
	FlowIn  string // img6
	FlowOut string // img7

	MotorVisible   bool
	OrbitalVisible bool
	WarningVisible bool
}

// Derive computes the view of a well reading.
func Derive(site string, rec *telemetry.Record) View {
	site = strings.ToLower(site)
	flow := rec.Number(telemetry.FieldFlow)
	pressure := rec.Number(telemetry.FieldPressure)
	level := rec.Number(telemetry.FieldLevel1)
	motorOn := rec.Number(telemetry.FieldMotorState) == 1

	updated := rec.String(telemetry.FieldLastData)
	if updated == "" {
		updated = telemetry.NotAvailable
	}

	code := Code(flow, level)
	v := View{
		Site:     site,
		Code:     code,
		Flow:     "Q = " + telemetry.FormatNumber(flow),
		Pressure: telemetry.FormatNumber(pressure),
		Updated:  "Actualización: " + updated,
		Status:   "Estatus: " + StatusText(code),
		Light:    ImageClosed,
	}

	if pressure != 0 && !math.IsNaN(pressure) {
		v.Light = ImageLight
	}

	if motorOn {
		v.Pump = ImageReload
		v.OrbitalVisible = true
	} else {
		v.MotorVisible = true
	}

	flowing := !math.IsNaN(flow) && flow > 0
	switch site {
	case "p25", "p85":
		v.Motor = pick(flowing, ImageLight, ImageClosed)
		v.Pump = pick(flowing, ImageReload, ImageClosed)
	case "p254":
		v.Motor = pick(flowing, ImageLight, ImageClosed)
	}

	animate := flowing && !math.IsNaN(pressure) && pressure > 0
	if site == "p263" {
		animate = motorOn
	}
	if animate {
		v.FlowIn, v.FlowOut = ImageFlow, ImageFlow
	} else {
		v.FlowIn, v.FlowOut = ImageClosed, ImageClosed
		v.WarningVisible = true
	}
	return v
}

// Degraded is the view shown when the well cannot be reached.
func Degraded(site string) View {
	return View{
		Site:         strings.ToLower(site),
		Code:         CodeCommFailure,
		Flow:         "Q = " + telemetry.NotAvailable,
		Pressure:     telemetry.NotAvailable,
		Updated:      "Actualización: --",
		Status:       "Estatus: Sin conexión",
		Light:        ImageClosed,
		Pump:         ImageClosed,
		Motor:        ImageClosed,
		FlowIn:       ImageClosed,
		FlowOut:      ImageClosed,
		MotorVisible: true,
	}
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func display(visible bool, shown string) string {
	if visible {
		return shown
	}
	return "none"
}

// String summarizes the view for logs and the CLI.
func (v View) String() string {
	return fmt.Sprintf("%s | %s | presión %s | %s | %s", Title(v.Site), v.Flow, v.Pressure, v.Updated, v.Status)
}
