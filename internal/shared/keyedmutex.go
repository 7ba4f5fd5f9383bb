package shared

import "sync"

// KeyedMutex serializes critical sections that share a key while leaving
// unrelated keys fully independent. Callers key by "userID:role" so that
// concurrent traffic for different pairs never contends.
//
// Mutexes are retained per key; the key space is bounded by active
// (user, role) pairs so no eviction is needed.
type KeyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// Lock acquires the mutex for key, creating it on first use.
func (m *KeyedMutex) Lock(key string) {
	l, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	l.(*sync.Mutex).Lock()
}

// Unlock releases the mutex for key. It must follow a Lock for the same key.
func (m *KeyedMutex) Unlock(key string) {
	if l, ok := m.locks.Load(key); ok {
		l.(*sync.Mutex).Unlock()
	}
}
