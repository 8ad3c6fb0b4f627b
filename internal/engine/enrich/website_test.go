package enrich

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParsePageMailto(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	body := []byte(`<html><body>
		<a href="mailto:Hello@CafeShalom.example?subject=Hi">Email us</a>
	</body></html>`)

	var out Contacts
	out.Social = map[string]string{}
	parsePage(base, body, &out)
	require.Equal(t, "hello@cafeshalom.example", out.Email)
}

func TestParsePageWhatsAppAndSocial(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	body := []byte(`<html><body>
		<a href="https://wa.me/972501234567">WhatsApp</a>
		<a href="https://www.facebook.com/cafeshalom">Facebook</a>
		<a href="https://www.instagram.com/cafeshalom">Instagram</a>
		<a href="https://x.com/cafeshalom">X</a>
	</body></html>`)

	out := Contacts{Social: map[string]string{}}
	parsePage(base, body, &out)

	require.Equal(t, "https://wa.me/972501234567", out.WhatsApp)
	require.Equal(t, "https://www.facebook.com/cafeshalom", out.Social["facebook"])
	require.Equal(t, "https://www.instagram.com/cafeshalom", out.Social["instagram"])
	require.Equal(t, "https://x.com/cafeshalom", out.Social["twitter"])
}

func TestParsePageFollowsContactLinks(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	body := []byte(`<html><body>
		<a href="/contact">Contact us</a>
		<a href="/about">About</a>
		<a href="/menu">Menu</a>
		<a href="https://other.example/contact">External contact</a>
	</body></html>`)

	out := Contacts{Social: map[string]string{}}
	followups := parsePage(base, body, &out)

	require.Contains(t, followups, "https://cafeshalom.example/contact")
	require.Contains(t, followups, "https://cafeshalom.example/about")
	require.NotContains(t, followups, "https://cafeshalom.example/menu")
	// Off-site links are never crawled.
	for _, f := range followups {
		require.Contains(t, f, "cafeshalom.example")
	}
}

func TestParsePageHebrewContactAnchor(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	body := []byte(`<html><body>
		<a href="/he/page7">צור קשר</a>
	</body></html>`)

	out := Contacts{Social: map[string]string{}}
	followups := parsePage(base, body, &out)
	require.Equal(t, []string{"https://cafeshalom.example/he/page7"}, followups)
}

func TestParsePageBodyEmailFallback(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	body := []byte(`<html><body><p>Reach us at INFO@CafeShalom.example for bookings.</p></body></html>`)

	out := Contacts{Social: map[string]string{}}
	parsePage(base, body, &out)
	require.Equal(t, "info@cafeshalom.example", out.Email)
}

func TestParsePageNothingFound(t *testing.T) {
	base := mustParse(t, "https://cafeshalom.example")
	out := Contacts{Social: map[string]string{}}
	parsePage(base, []byte(`<html><body><p>Just text.</p></body></html>`), &out)
	require.True(t, out.Empty())
}

func TestContactsEmpty(t *testing.T) {
	require.True(t, Contacts{}.Empty())
	require.False(t, Contacts{Email: "a@b.co"}.Empty())
	require.False(t, Contacts{WhatsApp: "https://wa.me/1"}.Empty())
	require.False(t, Contacts{Social: map[string]string{"facebook": "x"}}.Empty())
}
