package services

import (
	"sort"
	"sync"
)

// keyLocker serializes writers per key inside one process. Keys are acquired
// in sorted order so multi-key callers cannot deadlock each other.
type keyLocker struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	enabled bool
}

func newKeyLocker(enabled bool) *keyLocker {
	return &keyLocker{locks: make(map[string]*sync.Mutex), enabled: enabled}
}

func (l *keyLocker) lockKeys(keys ...string) func() {
	if l == nil || !l.enabled {
		return func() {}
	}
	if len(keys) == 0 {
		return func() {}
	}
	keys = append([]string(nil), keys...)
	sort.Strings(keys)
	l.mu.Lock()
	acquired := make([]*sync.Mutex, 0, len(keys))
	for i, k := range keys {
		if i > 0 && keys[i-1] == k {
			continue
		}
		m := l.locks[k]
		if m == nil {
			m = &sync.Mutex{}
			l.locks[k] = m
		}
		acquired = append(acquired, m)
	}
	l.mu.Unlock()
	for _, m := range acquired {
		m.Lock()
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

func taskKey(id string) string {
	return "task:" + id
}
