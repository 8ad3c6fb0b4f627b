package enrich

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"mapharvest/internal/model"
)

const maxContactPages = 3

var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// Anchor texts likely to lead to a contact page.
var contactKeywords = []string{
	"contact", "about", "impressum", "team",
	"צור קשר", "אודות",
}

var socialHosts = map[string]string{
	"facebook.com":  "facebook",
	"instagram.com": "instagram",
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"tiktok.com":    "tiktok",
	"youtube.com":   "youtube",
}

// Contacts is what enrichment can add to a record.
type Contacts struct {
	Email    string
	WhatsApp string
	Social   map[string]string
}

func (c Contacts) Empty() bool {
	return c.Email == "" && c.WhatsApp == "" && len(c.Social) == 0
}

// hostLimiter rate-limits per hostname so a run never hammers one business
// site.
type hostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func newHostLimiter(reqPerSec float64, burst int) *hostLimiter {
	return &hostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *hostLimiter) wait(ctx context.Context, raw string) error {
	host := "_"
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}

	hl.mu.Lock()
	lim, ok := hl.m[host]
	if !ok {
		lim = rate.NewLimiter(hl.r, hl.b)
		hl.m[host] = lim
	}
	hl.mu.Unlock()

	return lim.Wait(ctx)
}

// Enricher crawls a business website's home page plus a few contact-looking
// pages.
type Enricher struct {
	client  *Client
	limiter *hostLimiter
	logger  *log.Logger
}

func NewEnricher(proxyURL string, logger *log.Logger) *Enricher {
	return &Enricher{
		client:  NewClient(proxyURL),
		limiter: newHostLimiter(1, 2),
		logger:  logger,
	}
}

// Lookup fetches the record's website and extracts contacts. A site that
// yields nothing is not an error.
func (e *Enricher) Lookup(ctx context.Context, rec model.Record) (Contacts, error) {
	base, err := url.Parse(rec.Website)
	if err != nil || base.Host == "" {
		return Contacts{}, fmt.Errorf("invalid website url %q", rec.Website)
	}

	contacts := Contacts{Social: map[string]string{}}
	seen := map[string]bool{}
	queue := []string{base.String()}

	for len(queue) > 0 && len(seen) < maxContactPages {
		pageURL := queue[0]
		queue = queue[1:]
		if seen[pageURL] {
			continue
		}
		seen[pageURL] = true

		if err := e.limiter.wait(ctx, pageURL); err != nil {
			return contacts, err
		}
		body, err := e.client.Fetch(ctx, pageURL)
		if err != nil {
			e.logger.Printf("ENRICH_FETCH_FAIL url=%s err=%v", pageURL, err)
			continue
		}

		more := parsePage(base, body, &contacts)
		if contacts.Email != "" {
			break
		}
		queue = append(queue, more...)
	}

	return contacts, nil
}

// parsePage merges contacts found in one page into out and returns
// same-host links that look like contact pages.
func parsePage(base *url.URL, body []byte, out *Contacts) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var followups []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		switch {
		case strings.HasPrefix(href, "mailto:"):
			if out.Email == "" {
				addr := strings.TrimPrefix(href, "mailto:")
				if i := strings.IndexByte(addr, '?'); i >= 0 {
					addr = addr[:i]
				}
				if emailPattern.MatchString(addr) {
					out.Email = strings.ToLower(addr)
				}
			}
			return
		case strings.Contains(href, "wa.me/"), strings.Contains(href, "api.whatsapp.com"):
			if out.WhatsApp == "" {
				out.WhatsApp = href
			}
			return
		}

		link, err := base.Parse(href)
		if err != nil {
			return
		}

		host := strings.TrimPrefix(strings.ToLower(link.Hostname()), "www.")
		if platform, ok := socialHosts[host]; ok {
			if _, exists := out.Social[platform]; !exists {
				out.Social[platform] = link.String()
			}
			return
		}

		if link.Hostname() != base.Hostname() {
			return
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		path := strings.ToLower(link.Path)
		for _, kw := range contactKeywords {
			if strings.Contains(text, kw) || strings.Contains(path, kw) {
				followups = append(followups, link.String())
				return
			}
		}
	})

	if out.Email == "" {
		if m := emailPattern.Find(body); m != nil {
			out.Email = strings.ToLower(string(m))
		}
	}

	return followups
}
