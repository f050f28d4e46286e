// Package filters resolves per-instrument rounding grids (tick size and
// step size) from a static table, a runtime cache, and finally the
// exchange itself.
package filters

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
)

// Remote is the fallback lookup, hit at most once per symbol.
type Remote interface {
	SymbolFilter(ctx context.Context, symbol string) (exchange.SymbolFilter, error)
}

// Cache resolves symbol filters with three tiers: the static table from
// the config file, the runtime cache of earlier remote lookups, then the
// exchange. Safe for concurrent use.
type Cache struct {
	remote Remote

	mu      sync.RWMutex
	static  map[string]exchange.SymbolFilter
	runtime map[string]exchange.SymbolFilter
}

func NewCache(staticPath string, remote Remote) (*Cache, error) {
	c := &Cache{
		remote:  remote,
		static:  make(map[string]exchange.SymbolFilter),
		runtime: make(map[string]exchange.SymbolFilter),
	}
	if strings.TrimSpace(staticPath) != "" {
		table, err := loadStaticTable(staticPath)
		if err != nil {
			return nil, err
		}
		c.static = table
		c.watchStaticTable(staticPath)
		logger.Infof("symbol filter table loaded: %d instruments", len(table))
	}
	return c, nil
}

func (c *Cache) Resolve(ctx context.Context, symbol string) (exchange.SymbolFilter, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return exchange.SymbolFilter{}, fmt.Errorf("symbol is required")
	}

	c.mu.RLock()
	if f, ok := c.static[symbol]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	if f, ok := c.runtime[symbol]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	if c.remote == nil {
		return exchange.SymbolFilter{}, fmt.Errorf("no filters for %s and no remote resolver", symbol)
	}
	f, err := c.remote.SymbolFilter(ctx, symbol)
	if err != nil {
		return exchange.SymbolFilter{}, fmt.Errorf("resolve filters for %s: %w", symbol, err)
	}
	if f.TickSize <= 0 || f.StepSize <= 0 {
		return exchange.SymbolFilter{}, fmt.Errorf("resolve filters for %s: incomplete result", symbol)
	}
	c.mu.Lock()
	c.runtime[symbol] = f
	c.mu.Unlock()
	return f, nil
}

func (c *Cache) replaceStatic(table map[string]exchange.SymbolFilter) {
	c.mu.Lock()
	c.static = table
	c.mu.Unlock()
}
