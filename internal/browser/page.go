// Package browser drives a headless Chrome tab and exposes it behind a
// small Page interface so the extraction pipeline never touches chromedp
// directly.
package browser

import (
	"context"
	"time"
)

// Page is the accessor the extraction pipeline runs against. Read methods
// (Text, Attr, TextAll, AttrAll, Count) are query-and-return: they never
// wait for an element to appear. All waiting belongs to WaitVisible, called
// once after navigation or a card click.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error

	// Exists reports whether the selector matches at least one element right
	// now. A malformed selector is a plain miss.
	Exists(ctx context.Context, sel string) bool
	Count(ctx context.Context, sel string) (int, error)

	Text(ctx context.Context, sel string) (string, error)
	Attr(ctx context.Context, sel, name string) (string, bool, error)
	TextAll(ctx context.Context, sel string) ([]string, error)
	AttrAll(ctx context.Context, sel, name string) ([]string, error)

	// ClickNth clicks the index-th match of sel in DOM order.
	ClickNth(ctx context.Context, sel string, index int) error

	// ScrollBottom scrolls the container to its current bottom and returns
	// the container's scroll extent afterwards.
	ScrollBottom(ctx context.Context, containerSel string) (float64, error)

	// URL returns the tab's current location.
	URL(ctx context.Context) (string, error)

	Close() error
}
