// Package repolock serializes writers per repository. The document core
// never locks anything itself; callers that may run concurrent commit, push,
// or pull against the same repository take a lock here around the write
// path. Keys are resolved repository roots so every writer agrees on them.
package repolock

import "sync"

// Registry hands out one lock per repository root. Entries are created on
// first use and dropped again once the last holder or waiter releases, so
// the registry does not grow with the number of repositories ever seen.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*repoLock
}

type repoLock struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*repoLock)}
}

// Acquire blocks until the caller holds the lock for repoRoot and returns
// the release function. Releasing more than once is safe; the extra calls
// do nothing.
func (r *Registry) Acquire(repoRoot string) func() {
	r.mu.Lock()
	l, ok := r.locks[repoRoot]
	if !ok {
		l = &repoLock{}
		r.locks[repoRoot] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			r.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(r.locks, repoRoot)
			}
			r.mu.Unlock()
		})
	}
}
