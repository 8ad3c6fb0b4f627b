// Package faults classifies scraping failures and maps them to a retry
// decision. Classification is substring matching over error text: the
// upstream site has no structured error channel, so this is best-effort by
// design.
package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category tags a failure.
type Category string

const (
	RateLimit        Category = "rate_limit"
	BotDetection     Category = "bot_detection"
	SelectorNotFound Category = "selector_not_found"
	NetworkError     Category = "network_error"
	Timeout          Category = "timeout"
	Captcha          Category = "captcha"
	Unknown          Category = "unknown"
)

// Action is what the caller should do before the next attempt.
type Action string

const (
	ActionNone            Action = "none"
	ActionEscalateDelay   Action = "escalate_delay_rotate_identity"
	ActionReloadSelectors Action = "reload_selectors"
	ActionRotateProxy     Action = "rotate_proxy"
	ActionRetry           Action = "retry"
)

// Decision is the classifier output. It never retries by itself.
type Decision struct {
	Category  Category
	Retryable bool
	Action    Action
	Err       error
}

func (d Decision) Error() string {
	if d.Err == nil {
		return string(d.Category)
	}
	return fmt.Sprintf("%s: %v", d.Category, d.Err)
}

func (d Decision) Unwrap() error { return d.Err }

// StatusError reports an HTTP status that indicates throttling or blocking.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// SelectorMissError reports that a locator (including all fallbacks)
// resolved to nothing where a result was required.
type SelectorMissError struct {
	Field string
}

func (e *SelectorMissError) Error() string {
	return fmt.Sprintf("selector miss for %q", e.Field)
}

var substringTable = []struct {
	needles  []string
	category Category
}{
	{[]string{"captcha", "unusual traffic", "/sorry/"}, Captcha},
	{[]string{"rate limit", "too many requests", "429"}, RateLimit},
	{[]string{"bot", "automated", "detected", "denied"}, BotDetection},
	{[]string{"timeout", "deadline exceeded", "timed out"}, Timeout},
	{[]string{"selector", "no such element", "not found in dom", "waiting for selector"}, SelectorNotFound},
	{[]string{"connection refused", "connection reset", "no such host", "network", "proxy", "tls", "eof"}, NetworkError},
}

// Classify maps an error to a category.
func Classify(err error) Category {
	if err == nil {
		return Unknown
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case 429:
			return RateLimit
		case 403:
			return BotDetection
		default:
			return NetworkError
		}
	}
	var miss *SelectorMissError
	if errors.As(err, &miss) {
		return SelectorNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	msg := strings.ToLower(err.Error())
	for _, row := range substringTable {
		for _, n := range row.needles {
			if strings.Contains(msg, n) {
				return row.category
			}
		}
	}
	return Unknown
}

// Decide classifies err and attaches the retry policy. attempt is how many
// times this operation already failed; maxRetries is the caller's ceiling
// for Unknown and SelectorNotFound faults.
func Decide(err error, attempt, maxRetries int) Decision {
	d := Decision{Category: Classify(err), Err: err}

	switch d.Category {
	case RateLimit, BotDetection:
		d.Retryable = true
		d.Action = ActionEscalateDelay
	case SelectorNotFound:
		// Retry once in case of a transient render; a second miss means the
		// selector table is stale.
		d.Retryable = attempt < 1
		d.Action = ActionReloadSelectors
	case NetworkError:
		d.Retryable = true
		d.Action = ActionRotateProxy
	case Timeout:
		d.Retryable = true
		d.Action = ActionRetry
	case Captcha:
		d.Retryable = false
		d.Action = ActionNone
	default:
		d.Retryable = attempt < maxRetries
		d.Action = ActionRetry
	}
	return d
}
