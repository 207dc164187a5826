package auth

import (
	"sync"
	"time"
)

// RevocationList tracks logged-out tokens until their natural expiry.
// State is process-local and empty on startup; losing it on restart is
// accepted because the tokens themselves still expire.
type RevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRevocationList builds an empty list. When sweepInterval is
// positive a background sweeper removes expired entries at that
// interval; lookups also evict lazily, so the sweeper is a backstop.
func NewRevocationList(sweepInterval time.Duration) *RevocationList {
	rl := &RevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go rl.sweepLoop(sweepInterval)
	}
	return rl
}

// Revoke records a token as invalid until expiresAt. Tokens already
// past their expiry are not tracked. Re-revoking overwrites the entry.
func (rl *RevocationList) Revoke(token string, expiresAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !expiresAt.After(rl.now()) {
		return
	}
	rl.entries[token] = expiresAt
}

// IsRevoked reports whether the token is currently revoked. Expired
// entries are dropped on lookup.
func (rl *RevocationList) IsRevoked(token string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	expiresAt, ok := rl.entries[token]
	if !ok {
		return false
	}
	if !rl.now().Before(expiresAt) {
		delete(rl.entries, token)
		return false
	}
	return true
}

// Unrevoke removes a token from the list unconditionally.
func (rl *RevocationList) Unrevoke(token string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, token)
}

// SweepExpired removes all expired entries and returns how many were dropped.
func (rl *RevocationList) SweepExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	removed := 0
	for token, expiresAt := range rl.entries {
		if !expiresAt.After(now) {
			delete(rl.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked entries, expired or not.
func (rl *RevocationList) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (rl *RevocationList) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RevocationList) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.SweepExpired()
		case <-rl.stop:
			return
		}
	}
}
