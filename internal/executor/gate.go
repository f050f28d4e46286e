package executor

import "sync"

// symbolLocks hands out one mutex per symbol so signals for the same
// instrument are handled strictly one at a time while different
// instruments proceed in parallel.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the symbol's mutex, creating it on first use, and
// returns the release func.
func (l *symbolLocks) lock(symbol string) func() {
	l.mu.Lock()
	m, ok := l.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.locks[symbol] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
