package replay

import (
	"fmt"
	"sync"
	"time"

	"agentlink/internal/domain"
)

// Protector is a bounded, time-windowed nonce history per counterparty.
type Protector struct {
	window    time.Duration
	tolerance time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	peers map[string]*history
}

// history serializes checks for one counterparty.
type history struct {
	mu        sync.Mutex
	seen      map[domain.Nonce]time.Time
	lastSweep time.Time
}

// New returns a Protector with the given sliding window and clock-skew
// tolerance.
func New(window, tolerance time.Duration) *Protector {
	return &Protector{
		window:    window,
		tolerance: tolerance,
		now:       time.Now,
		peers:     make(map[string]*history),
	}
}

// Check records (nonce, ts) for counterparty and reports whether the message
// may be processed. It returns domain.ErrTimestampOutOfRange for stale or
// future-dated messages and domain.ErrReplayDetected for a nonce already
// seen within the window.
func (p *Protector) Check(counterparty string, nonce domain.Nonce, ts time.Time) error {
	now := p.now()
	if d := now.Sub(ts); d > p.tolerance || d < -p.tolerance {
		return fmt.Errorf("%w: message timestamp %s, local time %s",
			domain.ErrTimestampOutOfRange, ts.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	h := p.peer(counterparty)
	h.mu.Lock()
	defer h.mu.Unlock()

	// Lazy eviction, amortized: at most once per window fraction.
	if now.Sub(h.lastSweep) > p.window/4 {
		for n, seenAt := range h.seen {
			if now.Sub(seenAt) > p.window {
				delete(h.seen, n)
			}
		}
		h.lastSweep = now
	}

	if _, dup := h.seen[nonce]; dup {
		return fmt.Errorf("%w: counterparty %q nonce %s", domain.ErrReplayDetected, counterparty, nonce)
	}
	h.seen[nonce] = now
	return nil
}

// Forget drops all history for counterparty, for example when the session
// with it terminates.
func (p *Protector) Forget(counterparty string) {
	p.mu.Lock()
	delete(p.peers, counterparty)
	p.mu.Unlock()
}

func (p *Protector) peer(counterparty string) *history {
	p.mu.RLock()
	h, ok := p.peers[counterparty]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.peers[counterparty]; ok {
		return h
	}
	h = &history{seen: make(map[domain.Nonce]time.Time)}
	p.peers[counterparty] = h
	return h
}
