package providers

import (
	"sync"
	"time"
)

// KeyRing rotates API credentials round-robin. On a 429 the caller advances
// the ring and retries once after the fixed delay; other errors never
// advance it.
type KeyRing struct {
	mu    sync.Mutex
	keys  []string
	idx   int
	delay time.Duration
}

// NewKeyRing creates a ring over the given keys. An empty key list yields a
// ring whose Current is always "".
func NewKeyRing(keys []string, rotateDelay time.Duration) *KeyRing {
	return &KeyRing{keys: keys, delay: rotateDelay}
}

// Current returns the active key.
func (r *KeyRing) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[r.idx]
}

// Rotate advances to the next key and returns it.
func (r *KeyRing) Rotate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	r.idx = (r.idx + 1) % len(r.keys)
	return r.keys[r.idx]
}

// Delay returns the fixed pause before the post-rotation retry.
func (r *KeyRing) Delay() time.Duration {
	return r.delay
}

// Size returns the number of keys in the ring.
func (r *KeyRing) Size() int {
	return len(r.keys)
}
