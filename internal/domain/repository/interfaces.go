package repository

import (
	"context"

	"CoinChart/internal/domain/models"
)

// CandleSource fetches the candle dataset of one symbol.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string) ([]models.Candle, error)
}

// SymbolSource fetches the upstream symbol list.
type SymbolSource interface {
	GetSymbols(ctx context.Context) ([]models.Symbol, error)
}

type Metrics interface {
	RecordFetch(kind, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRedraw(pane string, drawn, skipped int)
	RecordSyncUpdate(origin string, targets int)
	RecordStaleDiscard(symbol string)
	RecordRender(pane, format string)
}
