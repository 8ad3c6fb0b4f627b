// Package extract turns a loaded detail panel into a business record.
package extract

import (
	"context"

	"mapharvest/internal/browser"
	"mapharvest/internal/engine/selectors"
)

// FieldExtractor resolves semantic fields against a page. Every method is
// total: a missing element, a malformed selector, or a page error all come
// back as the empty value. Empty string is the canonical "absent" for text;
// attributes report absence explicitly.
type FieldExtractor struct {
	page  browser.Page
	table *selectors.Table
}

func NewFieldExtractor(page browser.Page, table *selectors.Table) *FieldExtractor {
	return &FieldExtractor{page: page, table: table}
}

// Text resolves the field's locator chain and returns the first non-empty
// text content, or "".
func (e *FieldExtractor) Text(ctx context.Context, field string) string {
	loc, ok := e.table.Lookup(field)
	if !ok {
		return ""
	}
	for _, sel := range loc.All() {
		if txt, err := e.page.Text(ctx, sel); err == nil && txt != "" {
			return txt
		}
	}
	return ""
}

// Attr returns the named attribute from the first locator in the chain that
// carries it.
func (e *FieldExtractor) Attr(ctx context.Context, field, name string) (string, bool) {
	loc, ok := e.table.Lookup(field)
	if !ok {
		return "", false
	}
	for _, sel := range loc.All() {
		if val, found, err := e.page.Attr(ctx, sel, name); err == nil && found {
			return val, true
		}
	}
	return "", false
}

// TextAll returns the text of every match of the first locator in the chain
// that matches anything.
func (e *FieldExtractor) TextAll(ctx context.Context, field string) []string {
	loc, ok := e.table.Lookup(field)
	if !ok {
		return nil
	}
	for _, sel := range loc.All() {
		if texts, err := e.page.TextAll(ctx, sel); err == nil && len(texts) > 0 {
			return texts
		}
	}
	return nil
}

// AttrAll returns the named attribute of every match of the first locator in
// the chain that matches anything.
func (e *FieldExtractor) AttrAll(ctx context.Context, field, name string) []string {
	loc, ok := e.table.Lookup(field)
	if !ok {
		return nil
	}
	for _, sel := range loc.All() {
		if vals, err := e.page.AttrAll(ctx, sel, name); err == nil && len(vals) > 0 {
			return vals
		}
	}
	return nil
}

// Exists reports whether any locator in the field's chain matches.
func (e *FieldExtractor) Exists(ctx context.Context, field string) bool {
	loc, ok := e.table.Lookup(field)
	if !ok {
		return false
	}
	for _, sel := range loc.All() {
		if e.page.Exists(ctx, sel) {
			return true
		}
	}
	return false
}
