package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/chart/series"
	"CoinChart/internal/chart/surface"
	"CoinChart/internal/domain/models"
	"CoinChart/internal/usecase"
	"CoinChart/pkg/config"
	xhttp "CoinChart/pkg/http"
)

type emptySource struct{}

func (emptySource) GetCandles(context.Context, string) ([]models.Candle, error) {
	return nil, errors.New("HTTP error! status: 404")
}

func (emptySource) GetSymbols(context.Context) ([]models.Symbol, error) { return nil, nil }

func TestAppRunStopsOnContext(t *testing.T) {
	cfg := config.Default()
	deps := usecase.SessionDeps{
		Factory: surface.NewFactory(series.DefaultTheme),
		Source:  emptySource{},
		Waiter:  usecase.NewLayoutWaiter(50 * time.Millisecond),
	}
	manager := usecase.NewSessionManager(deps, usecase.NewSymbolCatalog(emptySource{}, nil), 0)
	s, _ := manager.Create(context.Background(), "BTCUSDT", 0, 0)
	require.NotNil(t, s)

	closed := false
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(cfg, srv, manager, nil, Closer{Name: "probe", Close: func() error {
		closed = true
		return errors.New("already closed")
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	assert.True(t, closed)
	assert.Empty(t, manager.IDs())
	_, err := manager.Get(s.ID())
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
}
