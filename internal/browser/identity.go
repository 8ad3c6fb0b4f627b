package browser

import (
	"math/rand/v2"
	"sync"
)

// Identity is one outward-facing browser fingerprint.
type Identity struct {
	UserAgent string
	Width     int
	Height    int
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

var viewports = [][2]int{
	{1920, 1080},
	{1600, 900},
	{1440, 900},
	{1366, 768},
}

// IdentityPool hands out randomized identities. Rotation is how the caller
// reacts to a detection fault: the next session gets a fresh fingerprint.
type IdentityPool struct {
	mu      sync.Mutex
	current Identity
}

func NewIdentityPool() *IdentityPool {
	p := &IdentityPool{}
	p.Rotate()
	return p
}

// Current returns the identity sessions should use right now.
func (p *IdentityPool) Current() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Rotate picks a new random identity and returns it.
func (p *IdentityPool) Rotate() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp := viewports[rand.IntN(len(viewports))]
	p.current = Identity{
		UserAgent: userAgents[rand.IntN(len(userAgents))],
		Width:     vp[0],
		Height:    vp[1],
	}
	return p.current
}
