package usecase

import (
	"context"
	"slices"
	"sync"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xlogger "CoinChart/pkg/logger"
	"CoinChart/pkg/util"
)

// SymbolCatalog holds the selectable symbols. It starts with the default list
// and only replaces it with a non-empty upstream list; fetch failures keep the
// current list and are never returned to callers.
type SymbolCatalog struct {
	mu      sync.RWMutex
	source  domrepo.SymbolSource
	symbols []string
	fetched bool
	logger  *xlogger.Logger
}

func NewSymbolCatalog(source domrepo.SymbolSource, logger *xlogger.Logger) *SymbolCatalog {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SymbolCatalog{
		source:  source,
		symbols: slices.Clone(models.DefaultSymbols),
		logger:  logger,
	}
}

// Refresh reloads the list from upstream and reports whether it changed.
func (c *SymbolCatalog) Refresh(ctx context.Context) bool {
	list, err := c.source.GetSymbols(ctx)
	if err != nil {
		c.logger.Warn("symbol list unavailable, keeping current list", xlogger.Error(err))
		return false
	}
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Symbol)
	}
	if len(names) == 0 {
		c.logger.Debug("symbol list empty, keeping current list")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	changed := !slices.Equal(c.symbols, names)
	c.symbols = names
	c.fetched = true
	return changed
}

// Symbols returns a copy of the list.
func (c *SymbolCatalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.symbols)
}

// Search returns symbols containing q, ignoring case. An empty q matches all.
func (c *SymbolCatalog) Search(q string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		if util.ContainsFold(s, q) {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether symbol is listed.
func (c *SymbolCatalog) Contains(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.symbols, symbol)
}

// Reconcile returns the symbol to display for selected. Once an upstream list
// is loaded, a selection missing from it moves to the first listed symbol.
// An empty selection always resolves to the first symbol.
func (c *SymbolCatalog) Reconcile(selected string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.symbols) == 0 {
		return selected
	}
	if selected == "" || (c.fetched && !slices.Contains(c.symbols, selected)) {
		return c.symbols[0]
	}
	return selected
}
