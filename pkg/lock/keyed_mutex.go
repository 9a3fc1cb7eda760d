package lock

import "sync"

// KeyedMutex is a create-or-fetch registry of per-key mutexes. It is the
// process-local half of the idempotency guard: the Redis pre-lock repels
// duplicates across processes, this one repels them inside a process even
// when Redis is unavailable.
//
// Locks are kept for the registry's lifetime; the key space (user, product,
// idempotency key) is small and bounded by active purchase traffic.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the unlock func. Callers defer the returned func on every exit path.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
