package usecase

import (
	"context"
	"errors"
	"sync"

	"CoinChart/internal/domain/models"
)

// gatedSource returns canned candles per symbol. A symbol with a gate blocks
// until the gate is closed, ignoring cancellation, so tests control arrival order.
type gatedSource struct {
	mu      sync.Mutex
	data    map[string][]models.Candle
	gates   map[string]chan struct{}
	started map[string]chan struct{}
	fail    map[string]error
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		data:    map[string][]models.Candle{},
		gates:   map[string]chan struct{}{},
		started: map[string]chan struct{}{},
		fail:    map[string]error{},
	}
}

func (s *gatedSource) gate(symbol string) (release func(), started <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	st := make(chan struct{})
	s.gates[symbol] = g
	s.started[symbol] = st
	return func() { close(g) }, st
}

func (s *gatedSource) GetCandles(_ context.Context, symbol string) ([]models.Candle, error) {
	s.mu.Lock()
	g, st := s.gates[symbol], s.started[symbol]
	data, err := s.data[symbol], s.fail[symbol]
	s.mu.Unlock()
	if st != nil {
		close(st)
	}
	if g != nil {
		<-g
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("HTTP error! status: 404")
	}
	return data, nil
}

type staticSymbols struct {
	list []models.Symbol
	err  error
}

func (s staticSymbols) GetSymbols(context.Context) ([]models.Symbol, error) {
	return s.list, s.err
}

func candles(n int, base float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		p := base + float64(i)
		out[i] = models.Candle{
			Time:   int64(1_700_000_000_000 + i*60_000),
			Open:   p,
			High:   p + 5,
			Low:    p - 5,
			Close:  p + 1,
			Volume: 100,
			Oscillators: map[string]float64{
				"DSS_UP": 80, "DSS_DOWN": 20, "DSS_4H": float64(i % 100),
			},
			Buy:  i%10 == 0,
			Sell: i%25 == 0,
		}
	}
	return out
}
