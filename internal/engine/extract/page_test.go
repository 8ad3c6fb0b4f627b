package extract

import (
	"context"
	"errors"
	"time"
)

// fakePage backs the extractor tests with canned DOM responses. Selectors in
// badSels behave like malformed selectors: every query against them errors.
type fakePage struct {
	texts    map[string]string
	attrs    map[string]map[string]string
	textAlls map[string][]string
	attrAlls map[string]map[string][]string
	counts   map[string]int
	badSels  map[string]bool
	url      string
}

var errBadSelector = errors.New("DOMException: not a valid selector")

func (f *fakePage) Navigate(ctx context.Context, url string) error { return nil }

func (f *fakePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if f.badSels[sel] {
		return errBadSelector
	}
	return nil
}

func (f *fakePage) Exists(ctx context.Context, sel string) bool {
	if f.badSels[sel] {
		return false
	}
	if f.texts[sel] != "" || f.counts[sel] > 0 {
		return true
	}
	if _, ok := f.attrs[sel]; ok {
		return true
	}
	if len(f.textAlls[sel]) > 0 {
		return true
	}
	return false
}

func (f *fakePage) Count(ctx context.Context, sel string) (int, error) {
	if f.badSels[sel] {
		return 0, errBadSelector
	}
	return f.counts[sel], nil
}

func (f *fakePage) Text(ctx context.Context, sel string) (string, error) {
	if f.badSels[sel] {
		return "", errBadSelector
	}
	return f.texts[sel], nil
}

func (f *fakePage) Attr(ctx context.Context, sel, name string) (string, bool, error) {
	if f.badSels[sel] {
		return "", false, errBadSelector
	}
	m, ok := f.attrs[sel]
	if !ok {
		return "", false, nil
	}
	v, ok := m[name]
	return v, ok, nil
}

func (f *fakePage) TextAll(ctx context.Context, sel string) ([]string, error) {
	if f.badSels[sel] {
		return nil, errBadSelector
	}
	return f.textAlls[sel], nil
}

func (f *fakePage) AttrAll(ctx context.Context, sel, name string) ([]string, error) {
	if f.badSels[sel] {
		return nil, errBadSelector
	}
	m, ok := f.attrAlls[sel]
	if !ok {
		return nil, nil
	}
	return m[name], nil
}

func (f *fakePage) ClickNth(ctx context.Context, sel string, index int) error { return nil }

func (f *fakePage) ScrollBottom(ctx context.Context, containerSel string) (float64, error) {
	return 0, nil
}

func (f *fakePage) URL(ctx context.Context) (string, error) { return f.url, nil }

func (f *fakePage) Close() error { return nil }
