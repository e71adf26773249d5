package lock

import "sync"

// KeyedMutex hands out one mutex per key. Entries are reference counted
// and dropped from the pool once nobody holds or waits on them.
type KeyedMutex struct {
	mu   sync.Mutex
	pool map[string]*entry
}

type entry struct {
	usedBy int
	sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{pool: make(map[string]*entry)}
}

// Lock blocks until the mutex for key is held and returns its release func.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.pool[key]
	if !ok {
		e = &entry{}
		k.pool[key] = e
	}
	e.usedBy++
	k.mu.Unlock()

	e.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			e.usedBy--
			if e.usedBy < 1 {
				delete(k.pool, key)
			}
			k.mu.Unlock()
			e.Unlock()
		})
	}
}

// Len reports how many keys currently have holders or waiters.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pool)
}
