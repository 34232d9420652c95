package app

import "sync"

// keyedMutex provides per-key mutual exclusion with a non-blocking acquire.
// A cycle that finds its group already locked skips the group instead of
// queueing behind a slow fetch.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[string]struct{})}
}

// TryLock acquires key if it is free and reports whether it did.
func (k *keyedMutex) TryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[key]; busy {
		return false
	}
	k.held[key] = struct{}{}
	return true
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	delete(k.held, key)
	k.mu.Unlock()
}
