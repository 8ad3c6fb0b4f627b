package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	cdpage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Options configure the shared Chrome process.
type Options struct {
	Headless bool
	ProxyURL string
	Identity Identity
}

// Chrome owns one exec allocator; every session opens its own tab context
// from it so sessions stay isolated.
type Chrome struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChrome launches the allocator with stealth-leaning flags.
func NewChrome(opts Options) *Chrome {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.Identity.UserAgent),
		chromedp.WindowSize(opts.Identity.Width, opts.Identity.Height),
	)
	if opts.ProxyURL != "" {
		flags = append(flags, chromedp.ProxyServer(opts.ProxyURL))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), flags...)
	return &Chrome{allocCtx: allocCtx, cancel: cancel}
}

func (c *Chrome) Close() error {
	c.cancel()
	return nil
}

// NewPage opens a fresh tab. The caller owns the returned page and must
// close it.
func (c *Chrome) NewPage() (Page, error) {
	ctx, cancel := chromedp.NewContext(c.allocCtx)

	// The navigator overrides must be registered as an on-new-document
	// script: evaluating them in the current document only patches
	// about:blank, and the next navigation discards that document.
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdpage.AddScriptToEvaluateOnNewDocument(webdriverScript).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("installing navigator overrides: %w", err)
	}

	return &chromePage{ctx: ctx, cancel: cancel}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// webdriverScript masks the headless navigator properties the site checks
// first.
const webdriverScript = `(function () {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
})();`

const consentScript = `(function () {
  const selectors = [
    'button[aria-label="Accept all"]',
    'button[aria-label="I agree"]',
    'button.VfPpkd-LgbsSe-OWXEXe-k8QpJ'
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (btn) {
      btn.click();
      return true;
    }
  }
  return false;
})();`

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.Evaluate(consentScript, nil),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for selector %q: %w", sel, err)
	}
	return nil
}

func (p *chromePage) Exists(ctx context.Context, sel string) bool {
	n, err := p.Count(ctx, sel)
	return err == nil && n > 0
}

func (p *chromePage) Count(ctx context.Context, sel string) (int, error) {
	js := fmt.Sprintf(`(function () {
  try { return document.querySelectorAll(%s).length; } catch (e) { return 0; }
})();`, strconv.Quote(sel))
	var n int
	if err := p.run(ctx, chromedp.Evaluate(js, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *chromePage) Text(ctx context.Context, sel string) (string, error) {
	js := fmt.Sprintf(`(function () {
  try {
    const el = document.querySelector(%s);
    return el ? el.textContent.trim() : "";
  } catch (e) { return ""; }
})();`, strconv.Quote(sel))
	var out string
	if err := p.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return "", err
	}
	return out, nil
}

func (p *chromePage) Attr(ctx context.Context, sel, name string) (string, bool, error) {
	js := fmt.Sprintf(`(function () {
  try {
    const el = document.querySelector(%s);
    if (!el) return null;
    return el.getAttribute(%s);
  } catch (e) { return null; }
})();`, strconv.Quote(sel), strconv.Quote(name))
	var out *string
	if err := p.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return "", false, err
	}
	if out == nil {
		return "", false, nil
	}
	return *out, true, nil
}

func (p *chromePage) TextAll(ctx context.Context, sel string) ([]string, error) {
	js := fmt.Sprintf(`(function () {
  try {
    return Array.from(document.querySelectorAll(%s), el => el.textContent.trim());
  } catch (e) { return []; }
})();`, strconv.Quote(sel))
	var out []string
	if err := p.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *chromePage) AttrAll(ctx context.Context, sel, name string) ([]string, error) {
	js := fmt.Sprintf(`(function () {
  try {
    return Array.from(document.querySelectorAll(%s))
      .map(el => el.getAttribute(%s))
      .filter(v => v !== null);
  } catch (e) { return []; }
})();`, strconv.Quote(sel), strconv.Quote(name))
	var out []string
	if err := p.run(ctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *chromePage) ClickNth(ctx context.Context, sel string, index int) error {
	js := fmt.Sprintf(`(function () {
  const els = document.querySelectorAll(%s);
  if (els.length <= %d) return false;
  els[%d].scrollIntoView({ block: "center" });
  els[%d].click();
  return true;
})();`, strconv.Quote(sel), index, index, index)
	var clicked bool
	if err := p.run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("card %d not found for selector %q", index, sel)
	}
	return nil
}

func (p *chromePage) ScrollBottom(ctx context.Context, containerSel string) (float64, error) {
	js := fmt.Sprintf(`(function () {
  const el = document.querySelector(%s);
  if (!el) return 0;
  el.scrollTo(0, el.scrollHeight);
  return el.scrollHeight;
})();`, strconv.Quote(containerSel))
	var extent float64
	if err := p.run(ctx, chromedp.Evaluate(js, &extent)); err != nil {
		return 0, err
	}
	return extent, nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
