package service

import "sync"

// scopeLocks serialises allocation runs per scope key within the process. A second run for a
// busy scope is rejected instead of queued so callers get immediate feedback.
type scopeLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{busy: make(map[string]struct{})}
}

func (l *scopeLocks) tryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[key]; ok {
		return false
	}
	l.busy[key] = struct{}{}
	return true
}

func (l *scopeLocks) unlock(key string) {
	l.mu.Lock()
	delete(l.busy, key)
	l.mu.Unlock()
}
