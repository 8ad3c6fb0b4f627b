package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCountry is assigned to every record; the scraper targets one
// country per deployment and the listing pages rarely spell it out.
const DefaultCountry = "Israel"

// Attributes holds capability flags read from the detail panel.
// nil means the panel said nothing either way.
type Attributes struct {
	Delivery         *bool `json:"delivery,omitempty"`
	Takeout          *bool `json:"takeout,omitempty"`
	DineIn           *bool `json:"dine_in,omitempty"`
	WheelchairAccess *bool `json:"wheelchair_access,omitempty"`
	WiFi             *bool `json:"wifi,omitempty"`
	Parking          *bool `json:"parking,omitempty"`
}

// Record represents one scraped business.
type Record struct {
	ID      string `json:"id"`
	PlaceID string `json:"place_id,omitempty"`

	Name   string `json:"name"`
	NameEN string `json:"name_en,omitempty"`
	NameHE string `json:"name_he,omitempty"`

	BusinessType string   `json:"business_type,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Description  string   `json:"description,omitempty"`

	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`

	Phone      string `json:"phone,omitempty"`
	PhoneAlt   string `json:"phone_alt,omitempty"`
	Website    string `json:"website,omitempty"`
	HasWebsite bool   `json:"has_website"`
	Email      string `json:"email,omitempty"`
	WhatsApp   string `json:"whatsapp,omitempty"`

	// Social maps a platform name (facebook, instagram, linkedin, ...) to a
	// profile URL.
	Social map[string]string `json:"social,omitempty"`

	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`

	Attributes Attributes `json:"attributes"`

	// Hours maps a weekday name to the free-text schedule shown on the panel.
	Hours             map[string]string `json:"hours,omitempty"`
	Open24Hours       bool              `json:"open_24_hours"`
	TemporarilyClosed bool              `json:"temporarily_closed"`
	PermanentlyClosed bool              `json:"permanently_closed"`

	// Images are photo URLs in DOM order. DOM order is not stable across
	// scrapes.
	Images   []string `json:"images,omitempty"`
	LogoURL  string   `json:"logo_url,omitempty"`
	CoverURL string   `json:"cover_url,omitempty"`

	SourceURL    string    `json:"source_url,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	LastUpdated  time.Time `json:"last_updated"`
	Completeness int       `json:"completeness"`
}

// NewRecord creates an empty record. The id is assigned here and never
// changes afterwards.
func NewRecord() *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.NewString(),
		Country:     DefaultCountry,
		Social:      map[string]string{},
		Hours:       map[string]string{},
		ScrapedAt:   now,
		LastUpdated: now,
	}
}

// Finalize derives HasWebsite, refreshes LastUpdated and recomputes the
// completeness score. HasWebsite is never set independently.
func (r *Record) Finalize() {
	r.Website = strings.TrimSpace(r.Website)
	r.HasWebsite = r.Website != ""
	r.LastUpdated = time.Now().UTC()
	r.Completeness = r.CompletenessScore()
}

// completenessFields is the fixed subset the score is computed over.
const completenessFields = 9

// CompletenessScore returns the percentage of the tracked field subset
// (name, address, phone, website, rating, review count, hours, logo,
// description) that is populated, rounded to the nearest integer. It is a
// pure function of the record.
func (r *Record) CompletenessScore() int {
	filled := 0
	if strings.TrimSpace(r.Name) != "" {
		filled++
	}
	if strings.TrimSpace(r.Address) != "" {
		filled++
	}
	if strings.TrimSpace(r.Phone) != "" {
		filled++
	}
	if strings.TrimSpace(r.Website) != "" {
		filled++
	}
	if r.Rating != nil {
		filled++
	}
	if r.ReviewCount != nil {
		filled++
	}
	if len(r.Hours) > 0 || r.Open24Hours {
		filled++
	}
	if strings.TrimSpace(r.LogoURL) != "" {
		filled++
	}
	if strings.TrimSpace(r.Description) != "" {
		filled++
	}
	return int(math.Round(float64(filled) / completenessFields * 100))
}
