package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xlogger "CoinChart/pkg/logger"
)

// ErrStaleResult is returned for a fetch that completed after a newer selection.
var ErrStaleResult = errors.New("stale fetch result discarded")

// Loader fetches datasets for the current selection. Every Load takes a new
// generation and cancels the fetch of the previous one; a result is committed
// only if its generation is still current when it arrives.
type Loader struct {
	mu     sync.Mutex
	source domrepo.CandleSource
	gen    uint64
	symbol string
	cancel context.CancelFunc

	logger  *xlogger.Logger
	metrics domrepo.Metrics
}

func NewLoader(source domrepo.CandleSource, logger *xlogger.Logger, metrics domrepo.Metrics) *Loader {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Loader{source: source, logger: logger, metrics: metrics}
}

// Load fetches symbol and calls commit with the result while the generation is
// still current. commit runs under the loader lock, so no newer selection can
// commit in between; it must not call back into the loader.
//
// When ctx ends before the result is committed nothing is committed: abort
// (if set) runs under the loader lock instead and Load returns ctx.Err().
func (l *Loader) Load(ctx context.Context, symbol string, commit func([]models.Candle, error), abort func(error)) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.symbol = symbol
	fctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	start := time.Now()
	candles, err := l.source.GetCandles(fctx, symbol)
	if l.metrics != nil {
		l.metrics.RecordLatency("load_dataset", time.Since(start).Seconds())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.Debug("discarding stale dataset",
			xlogger.String("symbol", symbol),
			xlogger.String("current", l.symbol),
		)
		if l.metrics != nil {
			l.metrics.RecordStaleDiscard(symbol)
		}
		return ErrStaleResult
	}
	l.cancel = nil
	if cerr := ctx.Err(); cerr != nil {
		l.logger.Debug("dataset load abandoned by caller",
			xlogger.String("symbol", symbol),
			xlogger.Error(cerr),
		)
		if abort != nil {
			abort(cerr)
		}
		return cerr
	}
	commit(candles, err)
	return err
}

// Current returns the symbol of the latest Load.
func (l *Loader) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.symbol
}

// Stop cancels any in-flight fetch and invalidates its result.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
