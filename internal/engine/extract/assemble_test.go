package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"mapharvest/internal/engine/faults"
	"mapharvest/internal/engine/selectors"
)

func TestDeriveCity(t *testing.T) {
	cases := []struct {
		address string
		expect  string
	}{
		{"Dizengoff 123, Tel Aviv, Israel", "Tel Aviv"},
		{"Herzl 1, Haifa, Israel", "Haifa"},
		{"Unknown Street", ""},
		{"", ""},
		{"Main St,  Jerusalem , Israel", "Jerusalem"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expect, DeriveCity(tc.address), "address=%q", tc.address)
	}
}

func TestParseRating(t *testing.T) {
	cases := []struct {
		label  string
		expect *float64
	}{
		{"4.5 stars", f(4.5)},
		{"4.5 Stars", f(4.5)},
		{"5 stars", f(5)},
		{"0.0 stars", f(0)},
		{"Rated 4.5 out of 5", nil}, // unexpected phrasing stays absent
		{"stars", nil},
		{"", nil},
		{"9.9 stars", nil}, // out of range
	}
	for _, tc := range cases {
		got := ParseRating(tc.label)
		if tc.expect == nil {
			require.Nil(t, got, "label=%q", tc.label)
		} else {
			require.NotNil(t, got, "label=%q", tc.label)
			require.Equal(t, *tc.expect, *got)
		}
	}
}

func TestParseReviewCount(t *testing.T) {
	cases := []struct {
		label  string
		expect *int
	}{
		{"1,234 reviews", i(1234)},
		{"1 review", i(1)},
		{"120 Reviews", i(120)},
		{"reviews", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := ParseReviewCount(tc.label)
		if tc.expect == nil {
			require.Nil(t, got, "label=%q", tc.label)
		} else {
			require.NotNil(t, got, "label=%q", tc.label)
			require.Equal(t, *tc.expect, *got)
		}
	}
}

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes([]string{
		"Has delivery",
		"No wheelchair-accessible entrance",
		"Offers takeout",
		"Doesn't offer dine-in",
		"Free Wi-Fi",
	})
	require.NotNil(t, attrs.Delivery)
	require.True(t, *attrs.Delivery)
	require.NotNil(t, attrs.WheelchairAccess)
	require.False(t, *attrs.WheelchairAccess)
	require.NotNil(t, attrs.Takeout)
	require.True(t, *attrs.Takeout)
	require.NotNil(t, attrs.DineIn)
	require.False(t, *attrs.DineIn)
	require.NotNil(t, attrs.WiFi)
	require.True(t, *attrs.WiFi)
	// Unmentioned capability stays unknown.
	require.Nil(t, attrs.Parking)
}

func TestAssembleFullPanel(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	sel := func(field string) selectors.Locator {
		loc, _ := table.Lookup(field)
		return loc
	}

	page := &fakePage{
		url: "https://www.google.com/maps/place/Cafe+Shalom/@32.0809,34.7806,15z/data=!3d32.0809!4d34.7806!1sChIJd8BlQ2BZwokRAFUEcm_qrcA",
		texts: map[string]string{
			sel(selectors.FieldName).Primary:        "Cafe Shalom",
			sel(selectors.FieldAddress).Primary:     "Dizengoff 123, Tel Aviv, Israel",
			sel(selectors.FieldPhone).Primary:       "03-1234567",
			sel(selectors.FieldCategory).Primary:    "Cafe",
			sel(selectors.FieldDescription).Primary: "Neighborhood coffee spot",
		},
		attrs: map[string]map[string]string{
			sel(selectors.FieldWebsite).Primary:     {"href": "https://cafeshalom.example"},
			sel(selectors.FieldRating).Primary:      {"aria-label": "4.5 stars"},
			sel(selectors.FieldReviewCount).Primary: {"aria-label": "1,234 reviews"},
			sel(selectors.FieldLogo).Primary:        {"src": "https://img.example/logo.png"},
		},
		textAlls: map[string][]string{
			sel(selectors.FieldHoursRow).Primary:   {"Monday9 AM–5 PM", "Sunday Open 24 hours"},
			sel(selectors.FieldAttributes).Primary: {"Has delivery", "No dine-in"},
		},
		attrAlls: map[string]map[string][]string{
			sel(selectors.FieldImages).Primary: {"src": {"https://img.example/1.jpg", "https://img.example/2.jpg"}},
		},
	}

	rec, err := Assemble(ctx, page, table)
	require.NoError(t, err)

	require.Equal(t, "Cafe Shalom", rec.Name)
	require.Equal(t, "Cafe Shalom", rec.NameEN)
	require.Empty(t, rec.NameHE)
	require.Equal(t, "Dizengoff 123, Tel Aviv, Israel", rec.Address)
	require.Equal(t, "Tel Aviv", rec.City)
	require.Equal(t, "Israel", rec.Country)
	require.Equal(t, "03-1234567", rec.Phone)
	require.Equal(t, "https://cafeshalom.example", rec.Website)
	require.True(t, rec.HasWebsite)
	require.Equal(t, "Cafe", rec.BusinessType)
	require.Equal(t, []string{"Cafe"}, rec.Categories)

	require.NotNil(t, rec.Rating)
	require.Equal(t, 4.5, *rec.Rating)
	require.NotNil(t, rec.ReviewCount)
	require.Equal(t, 1234, *rec.ReviewCount)

	require.NotNil(t, rec.Lat)
	require.Equal(t, 32.0809, *rec.Lat)
	require.NotNil(t, rec.Lng)
	require.Equal(t, 34.7806, *rec.Lng)
	require.Equal(t, "ChIJd8BlQ2BZwokRAFUEcm_qrcA", rec.PlaceID)

	require.Equal(t, "9 AM–5 PM", rec.Hours["Monday"])
	require.True(t, rec.Open24Hours)
	require.NotNil(t, rec.Attributes.Delivery)
	require.True(t, *rec.Attributes.Delivery)
	require.NotNil(t, rec.Attributes.DineIn)
	require.False(t, *rec.Attributes.DineIn)

	require.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, rec.Images)
	require.Equal(t, "https://img.example/1.jpg", rec.CoverURL)
	require.Equal(t, "https://img.example/logo.png", rec.LogoURL)

	require.NotEmpty(t, rec.ID)
	require.Greater(t, rec.Completeness, 0)
}

func TestAssembleHebrewName(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)

	page := &fakePage{texts: map[string]string{nameLoc.Primary: "קפה שלום"}}
	rec, err := Assemble(ctx, page, table)
	require.NoError(t, err)
	require.Equal(t, "קפה שלום", rec.NameHE)
	require.Empty(t, rec.NameEN)
}

func TestAssembleSparsePanel(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)

	// Only a title; every other field missing. Assembly still succeeds with
	// absent values instead of zero-ish fakes.
	page := &fakePage{texts: map[string]string{nameLoc.Primary: "Lonely Biz"}}
	rec, err := Assemble(ctx, page, table)
	require.NoError(t, err)

	require.Equal(t, "Lonely Biz", rec.Name)
	require.Nil(t, rec.Rating)
	require.Nil(t, rec.ReviewCount)
	require.Nil(t, rec.Lat)
	require.Empty(t, rec.City)
	require.False(t, rec.HasWebsite)
	require.Empty(t, rec.Hours)
}

func TestAssembleMissingPanelFails(t *testing.T) {
	ctx := context.Background()
	rec, err := Assemble(ctx, &fakePage{}, selectors.Default())
	require.Nil(t, rec)

	var miss *faults.SelectorMissError
	require.True(t, errors.As(err, &miss))
	require.Equal(t, selectors.FieldPanelTitle, miss.Field)
}

func TestAssembleClosedNotes(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)
	noteLoc, _ := table.Lookup(selectors.FieldClosedNote)

	page := &fakePage{texts: map[string]string{
		nameLoc.Primary: "Gone Fishing",
		noteLoc.Primary: "Temporarily closed",
	}}
	rec, err := Assemble(ctx, page, table)
	require.NoError(t, err)
	require.True(t, rec.TemporarilyClosed)
	require.False(t, rec.PermanentlyClosed)

	page.texts[noteLoc.Primary] = "Permanently closed"
	rec, err = Assemble(ctx, page, table)
	require.NoError(t, err)
	require.True(t, rec.PermanentlyClosed)
}

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
