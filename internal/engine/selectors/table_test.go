package selectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCoversAllFields(t *testing.T) {
	table := Default()
	fields := []string{
		FieldFeed, FieldCard, FieldNoResults, FieldPanelTitle,
		FieldName, FieldCategory, FieldAddress, FieldPhone, FieldWebsite,
		FieldRating, FieldReviewCount, FieldPrice, FieldDescription,
		FieldHoursRow, FieldClosedNote, FieldAttributes, FieldImages, FieldLogo,
	}
	for _, f := range fields {
		loc, ok := table.Lookup(f)
		require.True(t, ok, "field %q missing", f)
		require.NotEmpty(t, loc.Primary, "field %q has no primary selector", f)
	}
}

func TestLocatorAllOrder(t *testing.T) {
	loc := Locator{Primary: "a", Fallbacks: []string{"b", "c"}}
	require.Equal(t, []string{"a", "b", "c"}, loc.All())

	// A locator without a primary still yields its fallbacks.
	loc = Locator{Fallbacks: []string{"b"}}
	require.Equal(t, []string{"b"}, loc.All())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)

	def := Default()
	loc, _ := table.Lookup(FieldName)
	defLoc, _ := def.Lookup(FieldName)
	require.Equal(t, defLoc, loc)
}

func TestLoadMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.json")
	override := `{
		"name": {"primary": "h2.NewName", "fallbacks": ["h2.Alt"]},
		"phone": {"primary": "span.NewPhone"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(override), 0644))

	table, err := Load(path)
	require.NoError(t, err)

	name, ok := table.Lookup(FieldName)
	require.True(t, ok)
	require.Equal(t, "h2.NewName", name.Primary)
	require.Equal(t, []string{"h2.Alt"}, name.Fallbacks)

	// Overridden field replaces wholesale, fallbacks included.
	phone, _ := table.Lookup(FieldPhone)
	require.Equal(t, "span.NewPhone", phone.Primary)
	require.Empty(t, phone.Fallbacks)

	// Untouched fields keep their defaults.
	def := Default()
	addr, _ := table.Lookup(FieldAddress)
	defAddr, _ := def.Lookup(FieldAddress)
	require.Equal(t, defAddr, addr)
}

func TestLoadRejectsBadFile(t *testing.T) {
	_, err := Load("/nonexistent/selectors.json")
	require.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = Load(path)
	require.Error(t, err)
}
