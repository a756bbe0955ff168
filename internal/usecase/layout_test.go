package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/chart/charttest"
	"CoinChart/internal/chart/series"
	"CoinChart/internal/chart/surface"
	"CoinChart/internal/domain/models"
)

func TestLayoutWaiterPollsUntilReady(t *testing.T) {
	p := charttest.NewFakePane(models.PanePrice, 100, 100, nil)
	go func() {
		time.Sleep(20 * time.Millisecond)
		p.SetReady(true)
	}()
	require.NoError(t, NewLayoutWaiter(time.Second).Wait(context.Background(), p))
}

func TestLayoutWaiterPollingGivesUp(t *testing.T) {
	p := charttest.NewFakePane(models.PanePrice, 100, 100, nil)
	err := NewLayoutWaiter(30 * time.Millisecond).Wait(context.Background(), p)
	assert.ErrorIs(t, err, ErrLayoutNotReady)
}

func TestLayoutWaiterUsesReadySignal(t *testing.T) {
	p := surface.NewPane(models.PanePrice, 100, 100, series.DefaultTheme)
	go func() {
		time.Sleep(20 * time.Millisecond)
		p.SetCandles(candles(5, 10))
	}()
	require.NoError(t, NewLayoutWaiter(time.Second).Wait(context.Background(), p))

	empty := surface.NewPane(models.PaneVolume, 100, 100, series.DefaultTheme)
	err := NewLayoutWaiter(20 * time.Millisecond).Wait(context.Background(), empty)
	assert.ErrorIs(t, err, ErrLayoutNotReady)
}

func TestLayoutWaiterHonoursContext(t *testing.T) {
	p := charttest.NewFakePane(models.PanePrice, 100, 100, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLayoutWaiter(time.Second).Wait(ctx, p), ErrLayoutNotReady)
}
