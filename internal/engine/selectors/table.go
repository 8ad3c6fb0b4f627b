// Package selectors holds the single table mapping semantic fields to DOM
// locators. The target site's markup drifts, so the table can be overridden
// from a JSON file at runtime instead of recompiling.
package selectors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Semantic field names. Structural locators (feed, card, panel) live in the
// same table so a markup change is a data patch everywhere.
const (
	FieldFeed        = "feed"
	FieldCard        = "card"
	FieldNoResults   = "no_results"
	FieldPanelTitle  = "panel_title"
	FieldName        = "name"
	FieldCategory    = "category"
	FieldAddress     = "address"
	FieldPhone       = "phone"
	FieldWebsite     = "website"
	FieldRating      = "rating"
	FieldReviewCount = "review_count"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldHoursRow    = "hours_row"
	FieldClosedNote  = "closed_note"
	FieldAttributes  = "attributes"
	FieldImages      = "images"
	FieldLogo        = "logo"
)

// Locator is one primary selector plus ordered fallbacks tried in sequence.
type Locator struct {
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// All returns the primary and fallbacks in resolution order.
func (l Locator) All() []string {
	out := make([]string, 0, 1+len(l.Fallbacks))
	if l.Primary != "" {
		out = append(out, l.Primary)
	}
	return append(out, l.Fallbacks...)
}

// Table is an immutable field → locator mapping, safe to share across
// sessions.
type Table struct {
	fields map[string]Locator
}

// Lookup returns the locator for a semantic field.
func (t *Table) Lookup(field string) (Locator, bool) {
	l, ok := t.fields[field]
	return l, ok
}

// Default returns the built-in table for the maps listing site. High-value
// fields carry fallback chains because those break most often.
func Default() *Table {
	return &Table{fields: map[string]Locator{
		FieldFeed:       {Primary: `div[role="feed"]`},
		FieldCard:       {Primary: `div[role="feed"] a.hfpxzc`, Fallbacks: []string{`div[role="feed"] div[role="article"] a`}},
		FieldNoResults:  {Primary: `div.m6QErb div.Nv2PK ~ div:empty`, Fallbacks: []string{`div[aria-label*="No results"]`, `div.m6QErb span.HlvSq`}},
		FieldPanelTitle: {Primary: `h1.DUwDvf`, Fallbacks: []string{`div[role="main"] h1`}},

		FieldName: {Primary: `h1.DUwDvf`, Fallbacks: []string{`div[role="main"] h1`, `h1[class*="fontHeadline"]`}},
		FieldPhone: {
			Primary:   `button[data-item-id^="phone:tel:"] div.Io6YTe`,
			Fallbacks: []string{`button[data-tooltip="Copy phone number"] div.Io6YTe`, `a[href^="tel:"]`},
		},
		FieldWebsite: {
			Primary:   `a[data-item-id="authority"]`,
			Fallbacks: []string{`a[data-tooltip="Open website"]`, `a[aria-label^="Website"]`},
		},
		FieldAddress: {
			Primary:   `button[data-item-id="address"] div.Io6YTe`,
			Fallbacks: []string{`button[data-tooltip="Copy address"] div.Io6YTe`},
		},
		FieldCategory:    {Primary: `button.DkEaL`, Fallbacks: []string{`span.DkEaL`}},
		FieldRating:      {Primary: `div.F7nice span[role="img"]`, Fallbacks: []string{`span.ceNzKf`}},
		FieldReviewCount: {Primary: `div.F7nice span[aria-label*="review"]`, Fallbacks: []string{`button[jsaction*="reviewChart"] span`}},
		FieldPrice:       {Primary: `span[aria-label*="Price"]`, Fallbacks: []string{`span.mgr77e span[aria-hidden]`}},
		FieldDescription: {Primary: `div.PYvSYb span`, Fallbacks: []string{`div[class*="editorial"] span`}},
		FieldHoursRow:    {Primary: `table.eK4R0e tr`, Fallbacks: []string{`div[aria-label*="Hours"] tr`}},
		FieldClosedNote:  {Primary: `span.fCEvvc`, Fallbacks: []string{`div.o0Svhf span.ZDu9vd`}},
		FieldAttributes:  {Primary: `div.LTs0Rc`, Fallbacks: []string{`span[aria-label^="Has "]`, `span[aria-label^="No "]`}},
		FieldImages:      {Primary: `button[jsaction*="heroHeaderImage"] img`, Fallbacks: []string{`div.RZ66Rb img`}},
		FieldLogo:        {Primary: `img.NhBTye`, Fallbacks: []string{`button[aria-label*="logo"] img`}},
	}}
}

// Load returns the default table with overrides from a JSON file merged on
// top. Fields absent from the file keep their defaults. An empty path just
// returns the defaults.
func Load(path string) (*Table, error) {
	table := Default()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading selector table: %w", err)
	}

	var overrides map[string]Locator
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing selector table: %w", err)
	}

	merged := make(map[string]Locator, len(table.fields))
	for k, v := range table.fields {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return &Table{fields: merged}, nil
}
