package model

import (
	"math/rand/v2"
	"time"
)

// SessionParams holds all configuration for a scraping run. It is built once
// by the caller and passed by value; nothing mutates it after that.
type SessionParams struct {
	Queries  []string // business types, one session each
	Location string   // free text, e.g. "Tel Aviv, Israel"

	Limit   int // max cards per session
	Workers int // concurrent browser sessions

	// Inter-card delay window. The effective window may be escalated by the
	// runner when the site starts pushing back.
	MinDelay time.Duration
	MaxDelay time.Duration

	MaxRetries int // per-session retry ceiling for retryable faults

	Headless bool
	ProxyURL string
	Lang     string

	// Enrich fetches business websites for emails and social links after the
	// scrape.
	Enrich bool

	// RadiusKm drops records farther than this from the geocoded location
	// center. 0 disables the filter.
	RadiusKm float64

	DBPath string
	Debug  bool
}

// ComposeQuery builds the search phrase for one business type.
func (p SessionParams) ComposeQuery(businessType string) string {
	if p.Location == "" {
		return businessType
	}
	return businessType + " in " + p.Location
}

// RandomDelay picks a duration inside the configured window.
func (p SessionParams) RandomDelay() time.Duration {
	if p.MaxDelay <= p.MinDelay {
		return p.MinDelay
	}
	return p.MinDelay + rand.N(p.MaxDelay-p.MinDelay)
}
