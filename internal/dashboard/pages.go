package dashboard

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/chart"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/energy"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/level"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/monitor"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/render"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/sites"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/well"
)

// RefreshError is the message shown when a manual refresh fails.
const RefreshError = "Error al obtener datos desde el servidor."

const pageHTML = `<!DOCTYPE html>
<html lang="es">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title></title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; color: #38bdf8; }
        .header button { padding: 0.5rem 1rem; border-radius: 9999px; border: 0; background: #166534; color: #4ade80; font-weight: 600; cursor: pointer; }
        main { display: grid; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; font-size: 1.25rem; }
        .card a { color: #38bdf8; text-decoration: none; }
        .tanque { position: relative; height: 50vh; width: 8rem; border: 2px solid #475569; border-radius: 12px; overflow: hidden; }
        .cilindro { position: absolute; bottom: 0; width: 100%; height: 0; background-color: rgba(81, 255, 0, 0.84); transition: height 0.5s; }
        .flecha { position: absolute; left: 100%; white-space: nowrap; }
        .alerta { background: #991b1b; color: #fca5a5; border-radius: 12px; padding: 1rem; font-weight: 700; }
        .circle { width: 2rem; height: 2rem; border-radius: 50%; background: #475569; }
        .circle.green { background: #4ade80; }
        .circle.red { background: #f87171; }
        .blink { animation: blink 1s step-start infinite; }
        @keyframes blink { 50% { opacity: 0; } }
        .grafica { grid-column: 1 / -1; width: 100%; }
        .notif { position: fixed; bottom: 1rem; right: 1rem; background: #1e293b; border: 1px solid #38bdf8; border-radius: 12px; padding: 0.75rem 1rem; transition: opacity 0.5s; }
        .hallazgo { grid-column: 1 / -1; }
        .hallazgo.alerta { background: #991b1b; }
        .hallazgo.advertencia { border-color: #f59e0b; }
        .hallazgo.bueno { border-color: #4ade80; }
        .hallazgo li { font-size: 1rem; margin-left: 1.5rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1 id="titulo"></h1>
    </div>
    <main></main>
    <div class="footer" id="fechaDatos"></div>
    <div id="notif" class="notif" style="opacity: 0"></div>
    <script>
        const screenName = document.body.dataset.screen;
        function apply(op) {
            if (op.op === 'notify') {
                const n = document.getElementById('notif');
                n.innerText = op.value || '';
                n.style.opacity = '1';
                setTimeout(() => { n.style.opacity = '0'; }, 3000);
                return;
            }
            const el = document.getElementById(op.id);
            if (!el) return;
            switch (op.op) {
            case 'text': el.innerText = op.value || ''; break;
            case 'style': el.style.setProperty(op.name, op.value || ''); break;
            case 'attr': el.setAttribute(op.name, op.value || ''); break;
            case 'class':
                el.classList.remove(...(op.remove || []));
                el.classList.add(...(op.add || []));
                break;
            }
        }
        function connect() {
            if (!screenName) return;
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            const ws = new WebSocket(proto + location.host + '/ws?screen=' + encodeURIComponent(screenName));
            ws.onmessage = (e) => apply(JSON.parse(e.data));
            ws.onclose = () => setTimeout(connect, 3000);
        }
        async function refresh() {
            try {
                const r = await fetch('/api/refresh/' + screenName, { method: 'POST' });
                if (!r.ok) throw new Error(r.status);
            } catch (e) {
                alert('` + RefreshError + `');
            }
        }
        const button = document.getElementById('actualizar');
        if (button) button.addEventListener('click', refresh);
        connect();
    </script>
</body>
</html>`

func element(tag, id, class, text string) string {
	var b strings.Builder
	b.WriteString("<" + tag)
	if id != "" {
		fmt.Fprintf(&b, ` id="%s"`, html.EscapeString(id))
	}
	if class != "" {
		fmt.Fprintf(&b, ` class="%s"`, html.EscapeString(class))
	}
	b.WriteString(">" + html.EscapeString(text) + "</" + tag + ">")
	return b.String()
}

func image(id, class, src string) string {
	return fmt.Sprintf(`<img id="%s" class="%s" src="%s" alt="">`,
		html.EscapeString(id), html.EscapeString(class), html.EscapeString(src))
}

// page parses the shared skeleton and lets build fill its main section.
// A non-empty screen adds the refresh button and the live update stream.
func page(title, screen string, build func(main *goquery.Selection)) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", fmt.Errorf("parse page skeleton: %w", err)
	}
	doc.Find("title").SetText(title)
	doc.Find("#titulo").SetText(title)
	if screen != "" {
		doc.Find("body").SetAttr("data-screen", screen)
		doc.Find(".header").AppendHtml(`<button id="actualizar">Actualizar</button>`)
	}
	build(doc.Find("main"))
	return doc.Html()
}

// bindingCards adds one card per binding, skipping ids already present.
func bindingCards(main *goquery.Selection, bindings []config.Binding, seen map[string]bool) {
	for _, b := range bindings {
		if seen[b.Element] {
			continue
		}
		seen[b.Element] = true
		main.AppendHtml(element("div", b.Element, "card", b.Prefix))
	}
}

// TankPage builds the page of a tank: labels, level gauge, alert banner and
// history chart.
func TankPage(tank config.TankConfig) (string, error) {
	title := tank.Title
	if title == "" {
		title = tank.Name
	}
	return page(title, monitor.TankScreen(tank.Name), func(main *goquery.Selection) {
		bindingCards(main, tank.Bindings, map[string]bool{})
		main.AppendHtml(`<div class="card"><div class="tanque">` +
			element("div", level.ElementCylinder, "cilindro", "") +
			element("div", level.ElementArrow, "flecha", "") +
			`</div></div>`)
		main.AppendHtml(`<div id="` + level.ElementAlert + `" class="alerta" style="display: none">` +
			element("span", level.ElementAlertText, "", "") + `</div>`)
		main.AppendHtml(image(chart.ElementChart, "grafica", ""))
	})
}

// SitesPage builds the network view: per-site labels, flow totals and
// indicators.
func SitesPage(sc config.SitesConfig) (string, error) {
	return page("Red de distribución", monitor.SitesScreen, func(main *goquery.Selection) {
		seen := map[string]bool{}
		bindingCards(main, sc.Bindings, seen)
		for _, id := range []string{sc.InflowElement, sc.OutflowElement} {
			if id != "" && !seen[id] {
				seen[id] = true
				main.AppendHtml(element("div", id, "card", ""))
			}
		}
		for _, site := range sortedKeys(sc.Indicators) {
			main.AppendHtml(`<div class="card">` + html.EscapeString(strings.ToUpper(site)) +
				element("div", sc.Indicators[site], "circle", "") + `</div>`)
		}
	})
}

// WellPage builds the detail page of a well.
func WellPage(site string) (string, error) {
	return page(well.Title(site), monitor.WellScreen(site), func(main *goquery.Selection) {
		main.AppendHtml(element("h2", well.ElementTitle, "card", well.Title(site)))
		for _, id := range []string{well.ElementFlow, well.ElementPressure, well.ElementUpdated, well.ElementStatus} {
			main.AppendHtml(element("div", id, "card", ""))
		}
		main.AppendHtml(`<div class="card">` +
			image(well.ElementLight, "", render.ImageClosed) +
			image(well.ElementPump, "", render.ImageClosed) +
			image(well.ElementMotor, "", render.ImageClosed) +
			element("div", well.ElementOrbital, "", "") +
			`</div>`)
		main.AppendHtml(`<div class="card">` +
			image(well.ElementFlowIn, "", render.ImageClosed) +
			image(well.ElementFlowOut, "", render.ImageClosed) +
			element("span", well.ElementWarning, "", "⚠") +
			`</div>`)
		for _, id := range []string{well.ElementAvgCaption, well.ElementAvgFlow, well.ElementAvgPressure, well.ElementAvgLevel} {
			main.AppendHtml(element("div", id, "card", ""))
		}
	})
}

// IndexPage lists every screen.
func IndexPage(cfg *config.Config) (string, error) {
	return page("Telemetría", "", func(main *goquery.Selection) {
		link := func(href, text string) {
			main.AppendHtml(`<div class="card"><a href="/` + html.EscapeString(href) + `">` + html.EscapeString(text) + `</a></div>`)
		}
		for _, t := range cfg.Tanks {
			title := t.Title
			if title == "" {
				title = t.Name
			}
			link(monitor.TankScreen(t.Name), title)
		}
		if len(sites.Names(cfg.Sites)) > 0 {
			link(monitor.SitesScreen, "Red de distribución")
		}
		for _, site := range cfg.Wells.Sites {
			link(monitor.WellScreen(site), well.Title(site))
		}
		if len(cfg.Energy.Sites) > 0 {
			link(energyPath, "Eficiencia energética")
		}
	})
}

const energyPath = "energia"

func energyLink(site string) string {
	return "/" + energyPath + "/" + url.PathEscape(site)
}

// EnergyIndexPage lists the sites with an energy report.
func EnergyIndexPage(sites []string) (string, error) {
	return page("Eficiencia energética", "", func(main *goquery.Selection) {
		for _, site := range sites {
			main.AppendHtml(`<div class="card"><a href="` + html.EscapeString(energyLink(site)) + `">` +
				html.EscapeString(site) + `</a></div>`)
		}
	})
}

var severityClass = map[energy.Severity]string{
	energy.Good:    "bueno",
	energy.Warning: "advertencia",
	energy.Alert:   "alerta",
}

// EnergyPage renders an efficiency report with its charts.
func EnergyPage(r *energy.Report) (string, error) {
	title := "Eficiencia energética - " + r.Site
	if r.Month != "" {
		title += " (" + r.Month + ")"
	}
	return page(title, "", func(main *goquery.Selection) {
		main.AppendHtml(element("div", "", "card", "Consumo total: "+energy.KWh(r.Consumption)+" KWh"))
		main.AppendHtml(element("div", "", "card", fmt.Sprintf("Factor de potencia: %.2f%%", r.PowerFactor)))
		main.AppendHtml(element("div", "", "card", fmt.Sprintf("Factor de carga: %.2f%%", r.LoadFactor)))
		for _, d := range r.Deltas {
			main.AppendHtml(element("div", "", "card", d.Label+": "+d.String()))
		}

		for _, s := range r.Sections {
			main.AppendHtml(element("h2", "", "hallazgo", s.Title))
			for _, f := range s.Findings {
				var b strings.Builder
				b.WriteString(`<div class="card hallazgo ` + severityClass[f.Severity] + `">`)
				b.WriteString(element("strong", "", "", f.Severity.Icon()+" "+f.Title))
				b.WriteString(element("p", "", "", f.Message))
				if len(f.Recommendations) > 0 {
					b.WriteString("<ul>")
					for _, rec := range f.Recommendations {
						b.WriteString(element("li", "", "", rec))
					}
					b.WriteString("</ul>")
				}
				b.WriteString("</div>")
				main.AppendHtml(b.String())
			}
		}

		c := r.Costs
		main.AppendHtml(element("h2", "", "hallazgo", "Información económica"))
		for _, row := range [][2]string{
			{"Subtotal", energy.Money(c.Subtotal)},
			{"IVA 8%", energy.Money(c.VAT)},
			{"DAP", energy.Money(c.DAP)},
			{"Cargos y depósitos", energy.Money(c.Charges)},
			{"Créditos y redondeos", energy.Money(c.Credits)},
			{"Costo total", energy.Money(c.Total)},
		} {
			main.AppendHtml(element("div", "", "card", row[0]+": "+row[1]))
		}
		if c.HasPerKWh {
			main.AppendHtml(element("div", "", "card", fmt.Sprintf("Costo por kWh: $%.4f", c.PerKWh)))
		}

		for _, name := range energy.Charts {
			main.AppendHtml(image("grafica-"+name, "grafica", energyLink(r.Site)+"/"+name+".png"))
		}
	})
}
