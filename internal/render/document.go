package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ElementNotice is the id of the notification element.
const ElementNotice = "notif"

// DocumentSurface is a server-side HTML page kept in memory and mutated by
// element id. The dashboard serves its current HTML.
type DocumentSurface struct {
	mu      sync.RWMutex
	doc     *goquery.Document
	version uint64
}

// NewDocumentSurface parses page into a surface.
func NewDocumentSurface(page string) (*DocumentSurface, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &DocumentSurface{doc: doc}, nil
}

func (d *DocumentSurface) find(id string) *goquery.Selection {
	return d.doc.Find(fmt.Sprintf("[id=%q]", id))
}

func (d *DocumentSurface) mutate(id string, fn func(sel *goquery.Selection)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.find(id)
	if sel.Length() == 0 {
		return nil
	}
	fn(sel)
	d.version++
	return nil
}

func (d *DocumentSurface) SetText(id, text string) error {
	return d.mutate(id, func(sel *goquery.Selection) { sel.SetText(text) })
}

func (d *DocumentSurface) SetStyle(id, prop, value string) error {
	return d.mutate(id, func(sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		sel.SetAttr("style", setStyleProperty(style, prop, value))
	})
}

func (d *DocumentSurface) SetAttr(id, name, value string) error {
	return d.mutate(id, func(sel *goquery.Selection) { sel.SetAttr(name, value) })
}

func (d *DocumentSurface) SetClass(id string, add, remove []string) error {
	return d.mutate(id, func(sel *goquery.Selection) {
		sel.RemoveClass(remove...)
		sel.AddClass(add...)
	})
}

// Notify writes msg into the notification element, creating it if needed.
func (d *DocumentSurface) Notify(msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.find(ElementNotice)
	if sel.Length() == 0 {
		d.doc.Find("body").AppendHtml(`<div id="` + ElementNotice + `" class="notif"></div>`)
		sel = d.find(ElementNotice)
	}
	sel.SetText(msg)
	d.version++
	return nil
}

// HTML renders the current page.
func (d *DocumentSurface) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Html()
}

// Version counts the mutations applied so far.
func (d *DocumentSurface) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the text of element id.
func (d *DocumentSurface) Text(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sel := d.find(id)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// Attr returns an attribute of element id.
func (d *DocumentSurface) Attr(id, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.find(id).Attr(name)
}

// setStyleProperty replaces or appends one declaration of an inline style,
// keeping the order of the others.
func setStyleProperty(style, prop, value string) string {
	var decls []string
	found := false
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), prop) {
			if !found {
				decls = append(decls, prop+": "+value)
				found = true
			}
			continue
		}
		decls = append(decls, decl)
	}
	if !found {
		decls = append(decls, prop+": "+value)
	}
	return strings.Join(decls, "; ")
}

// StyleProperty returns the value of prop in an inline style.
func StyleProperty(style, prop string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), prop) {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}
