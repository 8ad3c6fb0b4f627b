package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"mapharvest/internal/browser"
	"mapharvest/internal/engine/faults"
	"mapharvest/internal/engine/selectors"
	"mapharvest/internal/model"
)

var (
	ratingPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*stars?`)
	reviewPattern = regexp.MustCompile(`(?i)([\d,.]+)\s*reviews?`)
	coordsPattern = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	atPattern     = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)

	weekdays = []string{
		"Monday", "Tuesday", "Wednesday", "Thursday",
		"Friday", "Saturday", "Sunday",
	}
)

// Assemble builds one record from a loaded detail panel. Individual field
// misses never abort the assembly; the only error is a panel that was never
// queryable, which means the caller's wait precondition did not hold.
func Assemble(ctx context.Context, page browser.Page, table *selectors.Table) (*model.Record, error) {
	ex := NewFieldExtractor(page, table)

	if !ex.Exists(ctx, selectors.FieldPanelTitle) {
		return nil, &faults.SelectorMissError{Field: selectors.FieldPanelTitle}
	}

	rec := model.NewRecord()

	rec.Name = ex.Text(ctx, selectors.FieldName)
	if containsHebrew(rec.Name) {
		rec.NameHE = rec.Name
	} else {
		rec.NameEN = rec.Name
	}

	if url, err := page.URL(ctx); err == nil {
		rec.SourceURL = url
		rec.Lat, rec.Lng = parseCoords(url)
		rec.PlaceID = parsePlaceID(url)
	}

	// Contact group.
	rec.Phone = ex.Text(ctx, selectors.FieldPhone)
	if href, ok := ex.Attr(ctx, selectors.FieldPhone, "href"); ok {
		alt := strings.TrimPrefix(href, "tel:")
		if alt != "" && alt != rec.Phone {
			rec.PhoneAlt = alt
		}
	}
	if href, ok := ex.Attr(ctx, selectors.FieldWebsite, "href"); ok {
		rec.Website = href
	} else {
		rec.Website = normalizeWebsite(ex.Text(ctx, selectors.FieldWebsite))
	}
	rec.Address = ex.Text(ctx, selectors.FieldAddress)
	rec.City = DeriveCity(rec.Address)

	// Classification group.
	rec.BusinessType = ex.Text(ctx, selectors.FieldCategory)
	if rec.BusinessType != "" {
		rec.Categories = append(rec.Categories, rec.BusinessType)
	}
	rec.Description = ex.Text(ctx, selectors.FieldDescription)

	// Metrics group.
	label, _ := ex.Attr(ctx, selectors.FieldRating, "aria-label")
	if label == "" {
		label = ex.Text(ctx, selectors.FieldRating)
	}
	rec.Rating = ParseRating(label)

	reviews, _ := ex.Attr(ctx, selectors.FieldReviewCount, "aria-label")
	if reviews == "" {
		reviews = ex.Text(ctx, selectors.FieldReviewCount)
	}
	rec.ReviewCount = ParseReviewCount(reviews)
	rec.PriceRange = strings.TrimSpace(ex.Text(ctx, selectors.FieldPrice))

	// Lower-priority groups; all of these may come back empty.
	rec.Attributes = parseAttributes(ex.TextAll(ctx, selectors.FieldAttributes))
	fillHours(rec, ex.TextAll(ctx, selectors.FieldHoursRow))
	applyClosedNote(rec, ex.Text(ctx, selectors.FieldClosedNote))
	rec.Images = ex.AttrAll(ctx, selectors.FieldImages, "src")
	if len(rec.Images) > 0 {
		rec.CoverURL = rec.Images[0]
	}
	if logo, ok := ex.Attr(ctx, selectors.FieldLogo, "src"); ok {
		rec.LogoURL = logo
	}

	rec.Finalize()
	return rec, nil
}

// DeriveCity takes the second-to-last comma segment of the address. It is a
// heuristic, not a geocoder, and is allowed to be wrong for irregular
// address formats.
func DeriveCity(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}

// ParseRating extracts a star rating from an aria-label such as
// "4.5 stars". Labels that do not match the pattern yield nil.
func ParseRating(label string) *float64 {
	m := ratingPattern.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// ParseReviewCount extracts a count from text such as "1,234 reviews".
func ParseReviewCount(label string) *int {
	m := reviewPattern.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parseCoords(url string) (*float64, *float64) {
	m := coordsPattern.FindStringSubmatch(url)
	if m == nil {
		m = atPattern.FindStringSubmatch(url)
	}
	if m == nil {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &lat, &lng
}

var placeIDPattern = regexp.MustCompile(`!1s(ChIJ[\w-]+)`)

func parsePlaceID(url string) string {
	if m := placeIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

var attributeFlags = []struct {
	keyword string
	set     func(*model.Attributes, *bool)
}{
	{"delivery", func(a *model.Attributes, v *bool) { a.Delivery = v }},
	{"takeout", func(a *model.Attributes, v *bool) { a.Takeout = v }},
	{"takeaway", func(a *model.Attributes, v *bool) { a.Takeout = v }},
	{"dine-in", func(a *model.Attributes, v *bool) { a.DineIn = v }},
	{"wheelchair", func(a *model.Attributes, v *bool) { a.WheelchairAccess = v }},
	{"wi-fi", func(a *model.Attributes, v *bool) { a.WiFi = v }},
	{"wifi", func(a *model.Attributes, v *bool) { a.WiFi = v }},
	{"parking", func(a *model.Attributes, v *bool) { a.Parking = v }},
}

// parseAttributes reads capability labels such as "Has delivery" or
// "No wheelchair-accessible entrance". Unmentioned capabilities stay
// unknown.
func parseAttributes(labels []string) model.Attributes {
	var attrs model.Attributes
	for _, raw := range labels {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		val := !strings.HasPrefix(label, "no ") && !strings.HasPrefix(label, "doesn't ")
		for _, flag := range attributeFlags {
			if strings.Contains(label, flag.keyword) {
				v := val
				flag.set(&attrs, &v)
			}
		}
	}
	return attrs
}

// fillHours parses rows of the shape "Monday9 AM–5 PM" as rendered by the
// hours table.
func fillHours(rec *model.Record, rows []string) {
	for _, row := range rows {
		row = strings.TrimSpace(row)
		for _, day := range weekdays {
			if !strings.HasPrefix(row, day) {
				continue
			}
			schedule := strings.TrimSpace(strings.TrimPrefix(row, day))
			if schedule == "" {
				continue
			}
			rec.Hours[day] = schedule
			if strings.EqualFold(schedule, "open 24 hours") {
				rec.Open24Hours = true
			}
			break
		}
	}
}

func applyClosedNote(rec *model.Record, note string) {
	note = strings.ToLower(note)
	switch {
	case strings.Contains(note, "permanently closed"):
		rec.PermanentlyClosed = true
	case strings.Contains(note, "temporarily closed"):
		rec.TemporarilyClosed = true
	}
}

func containsHebrew(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}
