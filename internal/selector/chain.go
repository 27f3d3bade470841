// Package selector implements ordered selector chains: a list of structural
// queries for one logical field, tried in sequence until one yields a
// non-empty match. Chains replace inline try-this-then-that selector
// branching with a single testable abstraction.
package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chain is an ordered list of CSS queries for one logical field. The first
// query that yields a non-empty match wins; later queries are never
// evaluated.
type Chain []string

// First returns the selection matched by the first query with at least one
// node. The boolean is false when the chain is exhausted.
func (c Chain) First(root *goquery.Selection) (*goquery.Selection, bool) {
	if root == nil {
		return nil, false
	}
	for _, query := range c {
		found := root.Find(query)
		if found.Length() > 0 {
			return found.First(), true
		}
	}
	return nil, false
}

// All returns every node matched by the first query with at least one node.
// Listing extractors use this to keep on-page row order.
func (c Chain) All(root *goquery.Selection) (*goquery.Selection, bool) {
	if root == nil {
		return nil, false
	}
	for _, query := range c {
		found := root.Find(query)
		if found.Length() > 0 {
			return found, true
		}
	}
	return nil, false
}

// Text returns the trimmed text of the first query yielding non-empty text.
// A query that matches a node with empty text does not win; the chain keeps
// going.
func (c Chain) Text(root *goquery.Selection) (string, bool) {
	if root == nil {
		return "", false
	}
	for _, query := range c {
		found := root.Find(query)
		if found.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(found.First().Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// Attr returns the named attribute of the first query yielding a node that
// carries it non-empty.
func (c Chain) Attr(root *goquery.Selection, name string) (string, bool) {
	if root == nil {
		return "", false
	}
	for _, query := range c {
		found := root.Find(query)
		if found.Length() == 0 {
			continue
		}
		val, exists := found.First().Attr(name)
		if exists && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val), true
		}
	}
	return "", false
}

// HTML returns the inner HTML of the first query yielding non-empty markup.
func (c Chain) HTML(root *goquery.Selection) (string, bool) {
	if root == nil {
		return "", false
	}
	for _, query := range c {
		found := root.Find(query)
		if found.Length() == 0 {
			continue
		}
		html, err := found.First().Html()
		if err != nil {
			continue
		}
		if strings.TrimSpace(html) != "" {
			return html, true
		}
	}
	return "", false
}

// Matches reports whether any query in the chain matches at least one node.
// Used for marker checks (notice rows, logged-in indicators) where presence
// is the signal.
func (c Chain) Matches(root *goquery.Selection) bool {
	if root == nil {
		return false
	}
	for _, query := range c {
		if root.Find(query).Length() > 0 {
			return true
		}
	}
	return false
}
