package render

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/config"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

const (
	jsSetText  = `(id, v) => { const el = document.getElementById(id); if (el) el.innerText = v; }`
	jsSetStyle = `(id, p, v) => { const el = document.getElementById(id); if (el) el.style.setProperty(p, v); }`
	jsSetAttr  = `(id, n, v) => { const el = document.getElementById(id); if (el) el.setAttribute(n, v); }`
	jsSetClass = `(id, add, rm) => {
		const el = document.getElementById(id);
		if (!el) return;
		el.classList.remove(...rm);
		el.classList.add(...add);
	}`
	jsNotify = `(msg) => {
		let n = document.getElementById("notif");
		if (!n) {
			n = document.createElement("div");
			n.id = "notif";
			document.body.appendChild(n);
		}
		n.innerText = msg;
		n.style.opacity = "1";
		setTimeout(() => { n.style.opacity = "0"; }, 3000);
	}`
)

// BrowserSurface mirrors element updates into a live page driven by a
// headless Chromium.
type BrowserSurface struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewBrowserSurface launches a browser and opens cfg.URL.
func NewBrowserSurface(cfg config.BrowserConfig, logger *slog.Logger) (*BrowserSurface, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	bs := &BrowserSurface{
		browser: browser,
		page:    page,
		timeout: 10 * time.Second,
		logger:  logger.With("component", "browser_surface"),
	}

	if err := page.Timeout(bs.timeout).Navigate(cfg.URL); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("navigate %s: %w", cfg.URL, err)
	}
	if err := page.Timeout(bs.timeout).WaitLoad(); err != nil {
		bs.logger.Warn("page load timeout, continuing", "url", cfg.URL, "error", err)
	}

	bs.logger.Info("browser surface ready", "url", cfg.URL, "stealth", cfg.Stealth)
	return bs, nil
}

func (b *BrowserSurface) eval(id, js string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.page.Timeout(b.timeout).Eval(js, args...); err != nil {
		return &types.RenderError{Surface: "browser", Element: id, Err: err}
	}
	return nil
}

func (b *BrowserSurface) SetText(id, text string) error {
	return b.eval(id, jsSetText, id, text)
}

func (b *BrowserSurface) SetStyle(id, prop, value string) error {
	return b.eval(id, jsSetStyle, id, prop, value)
}

func (b *BrowserSurface) SetAttr(id, name, value string) error {
	return b.eval(id, jsSetAttr, id, name, value)
}

func (b *BrowserSurface) SetClass(id string, add, remove []string) error {
	if add == nil {
		add = []string{}
	}
	if remove == nil {
		remove = []string{}
	}
	return b.eval(id, jsSetClass, id, add, remove)
}

func (b *BrowserSurface) Notify(msg string) error {
	return b.eval(ElementNotice, jsNotify, msg)
}

// HTML returns the live page's current markup.
func (b *BrowserSurface) HTML() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page.Timeout(b.timeout).HTML()
}

// Close shuts the browser down.
func (b *BrowserSurface) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser.Close()
}
