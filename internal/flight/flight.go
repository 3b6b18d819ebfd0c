// Package flight serializes refresh work: at most one holder per key
// in-process, and optionally at most one per key across a cluster.
package flight

import (
	"errors"
	"sync"
)

// ErrLocked means another holder already owns the key. Callers are
// expected to report "busy" rather than wait.
var ErrLocked = errors.New("operation already in flight")

// Keyed hands out non-blocking per-key locks.
type Keyed struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewKeyed() *Keyed {
	return &Keyed{held: make(map[string]bool)}
}

// TryAcquire claims key without blocking. The caller must Release the
// same key exactly once on success.
func (k *Keyed) TryAcquire(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.held[key] {
		return ErrLocked
	}
	k.held[key] = true
	return nil
}

func (k *Keyed) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}

// Held reports whether key is currently claimed.
func (k *Keyed) Held(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held[key]
}
