package coinchart

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	"CoinChart/internal/service/cache"
	xlogger "CoinChart/pkg/logger"
)

// Source is the upstream the cached source wraps.
type Source interface {
	domrepo.CandleSource
	domrepo.SymbolSource
}

// CachedSource serves candles and symbols from a BytesCache and collapses
// concurrent misses for the same key into one upstream call.
type CachedSource struct {
	next       Source
	cache      cache.BytesCache
	candleTTL  time.Duration
	symbolTTL  time.Duration
	group      singleflight.Group
	logger     *xlogger.Logger
	metrics    domrepo.Metrics
	fetchLimit time.Duration
}

var (
	_ domrepo.CandleSource = (*CachedSource)(nil)
	_ domrepo.SymbolSource = (*CachedSource)(nil)
)

type CachedOption func(*CachedSource)

func WithTTL(candles, symbols time.Duration) CachedOption {
	return func(s *CachedSource) {
		s.candleTTL = candles
		s.symbolTTL = symbols
	}
}

// WithFetchTimeout bounds a shared upstream call independently of its callers.
func WithFetchTimeout(d time.Duration) CachedOption {
	return func(s *CachedSource) { s.fetchLimit = d }
}

func WithCacheLogger(l *xlogger.Logger) CachedOption {
	return func(s *CachedSource) { s.logger = l }
}

func WithCacheMetrics(m domrepo.Metrics) CachedOption {
	return func(s *CachedSource) { s.metrics = m }
}

func NewCachedSource(next Source, c cache.BytesCache, opts ...CachedOption) *CachedSource {
	s := &CachedSource{
		next:       next,
		cache:      c,
		candleTTL:  time.Minute,
		symbolTTL:  10 * time.Minute,
		logger:     xlogger.Nop(),
		fetchLimit: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func candlesKey(symbol string) string { return "candles:" + strings.ToUpper(symbol) }

const symbolsKey = "symbols"

func (s *CachedSource) GetCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	var out []models.Candle
	err := s.load(ctx, candlesKey(symbol), s.candleTTL, &out, func(ctx context.Context) (any, error) {
		return s.next.GetCandles(ctx, symbol)
	})
	return out, err
}

func (s *CachedSource) GetSymbols(ctx context.Context) ([]models.Symbol, error) {
	var out []models.Symbol
	err := s.load(ctx, symbolsKey, s.symbolTTL, &out, func(ctx context.Context) (any, error) {
		return s.next.GetSymbols(ctx)
	})
	return out, err
}

// load fills dest from cache, or from fetch on a miss. Cache failures are
// logged and never fail the call.
func (s *CachedSource) load(ctx context.Context, key string, ttl time.Duration, dest any, fetch func(context.Context) (any, error)) error {
	if b, ok, err := s.cache.GetBytes(ctx, key); err != nil {
		s.logger.Warn("cache get failed", xlogger.String("key", key), xlogger.Error(err))
	} else if ok {
		if err := json.Unmarshal(b, dest); err == nil {
			s.recordFetch(key, "cache_hit")
			return nil
		}
		s.logger.Warn("cache entry unreadable", xlogger.String("key", key))
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// A shared call must outlive the caller that started it.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchLimit)
		defer cancel()
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetBytes(fctx, key, b, ttl); err != nil {
			s.logger.Warn("cache set failed", xlogger.String("key", key), xlogger.Error(err))
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		if res.Shared {
			s.recordFetch(key, "shared")
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func (s *CachedSource) recordFetch(key, outcome string) {
	if s.metrics == nil {
		return
	}
	kind := "symbols"
	if strings.HasPrefix(key, "candles:") {
		kind = "candles"
	}
	s.metrics.RecordFetch(kind, outcome)
}
