package render

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

func parsePage(page string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func findByID(doc *html.Node, id string) (*html.Node, error) {
	return htmlquery.Query(doc, fmt.Sprintf("//*[@id=%q]", id))
}

// ReadLabels extracts the text of the given element ids from an HTML page.
// Ids that are absent are left out of the result.
func ReadLabels(page string, ids []string) (map[string]string, error) {
	doc, err := parsePage(page)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		node, err := findByID(doc, id)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", id, err)
		}
		if node == nil {
			continue
		}
		labels[id] = strings.TrimSpace(htmlquery.InnerText(node))
	}
	return labels, nil
}

// ReadAttr extracts an attribute of element id from an HTML page.
func ReadAttr(page, id, name string) (string, bool, error) {
	doc, err := parsePage(page)
	if err != nil {
		return "", false, err
	}
	node, err := findByID(doc, id)
	if err != nil || node == nil {
		return "", false, err
	}
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}
