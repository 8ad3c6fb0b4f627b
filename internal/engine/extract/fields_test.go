package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mapharvest/internal/engine/selectors"
)

func TestTextFirstNonEmptyWins(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)

	// Primary empty, first fallback populated.
	page := &fakePage{texts: map[string]string{
		nameLoc.Fallbacks[0]: "Fallback Name",
	}}
	ex := NewFieldExtractor(page, table)
	require.Equal(t, "Fallback Name", ex.Text(ctx, selectors.FieldName))

	// Primary populated shadows the fallback.
	page.texts[nameLoc.Primary] = "Primary Name"
	require.Equal(t, "Primary Name", ex.Text(ctx, selectors.FieldName))
}

func TestTextMissingFieldIsEmpty(t *testing.T) {
	ctx := context.Background()
	ex := NewFieldExtractor(&fakePage{}, selectors.Default())

	require.Equal(t, "", ex.Text(ctx, selectors.FieldName))
	require.Equal(t, "", ex.Text(ctx, "no_such_field"))
}

func TestExtractorSwallowsSelectorErrors(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)

	// Every locator in the chain errors like a malformed selector; the
	// extractor must report plain absence, never propagate.
	bad := map[string]bool{nameLoc.Primary: true}
	for _, sel := range nameLoc.Fallbacks {
		bad[sel] = true
	}
	ex := NewFieldExtractor(&fakePage{badSels: bad}, table)

	require.Equal(t, "", ex.Text(ctx, selectors.FieldName))
	v, ok := ex.Attr(ctx, selectors.FieldName, "href")
	require.False(t, ok)
	require.Equal(t, "", v)
	require.Nil(t, ex.TextAll(ctx, selectors.FieldName))
	require.Nil(t, ex.AttrAll(ctx, selectors.FieldName, "src"))
	require.False(t, ex.Exists(ctx, selectors.FieldName))
}

func TestErroringPrimaryFallsThrough(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	nameLoc, _ := table.Lookup(selectors.FieldName)

	page := &fakePage{
		badSels: map[string]bool{nameLoc.Primary: true},
		texts:   map[string]string{nameLoc.Fallbacks[0]: "Recovered"},
	}
	ex := NewFieldExtractor(page, table)
	require.Equal(t, "Recovered", ex.Text(ctx, selectors.FieldName))
}

func TestAttrReportsAbsenceExplicitly(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	webLoc, _ := table.Lookup(selectors.FieldWebsite)

	page := &fakePage{attrs: map[string]map[string]string{
		webLoc.Primary: {"href": "https://biz.example"},
	}}
	ex := NewFieldExtractor(page, table)

	v, ok := ex.Attr(ctx, selectors.FieldWebsite, "href")
	require.True(t, ok)
	require.Equal(t, "https://biz.example", v)

	_, ok = ex.Attr(ctx, selectors.FieldWebsite, "data-missing")
	require.False(t, ok)
}

func TestTextAllReturnsFirstMatchingChainLink(t *testing.T) {
	ctx := context.Background()
	table := selectors.Default()
	hoursLoc, _ := table.Lookup(selectors.FieldHoursRow)

	page := &fakePage{textAlls: map[string][]string{
		hoursLoc.Primary:     {"Monday9 AM–5 PM", "Tuesday9 AM–5 PM"},
		hoursLoc.Fallbacks[0]: {"should not be used"},
	}}
	ex := NewFieldExtractor(page, table)
	require.Equal(t, []string{"Monday9 AM–5 PM", "Tuesday9 AM–5 PM"},
		ex.TextAll(ctx, selectors.FieldHoursRow))
}
