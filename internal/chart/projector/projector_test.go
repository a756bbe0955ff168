package projector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/chart/charttest"
	"CoinChart/internal/domain/models"
)

func TestPriceToYEndpoints(t *testing.T) {
	domain := models.PriceRange{Min: 100, Max: 200}

	y, ok := PriceToY(100, domain, 400)
	require.True(t, ok)
	assert.Equal(t, 400.0, y)

	y, ok = PriceToY(200, domain, 400)
	require.True(t, ok)
	assert.Equal(t, 0.0, y)

	y, ok = PriceToY(150, domain, 400)
	require.True(t, ok)
	assert.Equal(t, 200.0, y)
}

func TestPriceToYBoundedAndMonotonic(t *testing.T) {
	domain := models.PriceRange{Min: -3.5, Max: 17.25}
	height := 333.0
	prev := math.Inf(1)
	for p := domain.Min; p <= domain.Max; p += 0.37 {
		y, ok := PriceToY(p, domain, height)
		require.True(t, ok)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, height)
		assert.LessOrEqual(t, y, prev, "price %v", p)
		prev = y
	}
}

func TestPriceToYClampsOutsideDomain(t *testing.T) {
	domain := models.PriceRange{Min: 10, Max: 20}

	y, ok := PriceToY(5, domain, 100)
	require.True(t, ok)
	assert.Equal(t, 100.0, y)

	y, ok = PriceToY(25, domain, 100)
	require.True(t, ok)
	assert.Equal(t, 0.0, y)
}

func TestPriceToYRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		domain models.PriceRange
		height float64
	}{
		{"flat domain", 10, models.PriceRange{Min: 10, Max: 10}, 100},
		{"inverted domain", 10, models.PriceRange{Min: 20, Max: 10}, 100},
		{"zero height", 10, models.PriceRange{Min: 0, Max: 20}, 0},
		{"nan price", math.NaN(), models.PriceRange{Min: 0, Max: 20}, 100},
		{"inf price", math.Inf(1), models.PriceRange{Min: 0, Max: 20}, 100},
		{"nan domain", 10, models.PriceRange{Min: math.NaN(), Max: 20}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := PriceToY(tc.price, tc.domain, tc.height)
			assert.False(t, ok)
		})
	}
}

func TestProjectorTimeToX(t *testing.T) {
	pane := charttest.NewFakePane(models.PanePrice, 300, 200, []int64{1000, 2000, 3000, 4000})
	p := New(pane)

	x, ok := p.TimeToX(1000)
	require.True(t, ok)
	assert.Equal(t, 0.0, x)

	x, ok = p.TimeToX(4000)
	require.True(t, ok)
	assert.Equal(t, 300.0, x)

	_, ok = p.TimeToX(2500)
	assert.False(t, ok, "unknown time")

	pane.SetReady(false)
	_, ok = p.TimeToX(1000)
	assert.False(t, ok, "layout not ready")
}

func TestProjectorPrefersHostPriceScale(t *testing.T) {
	pane := charttest.NewFakePane(models.PanePrice, 300, 200, []int64{1, 2})
	pane.PriceScale = func(v float64) (float64, bool) { return 42, true }
	domain := models.PriceRange{Min: 0, Max: 100}

	y, ok := New(pane.HostScaled()).PriceToY(50, domain)
	require.True(t, ok)
	assert.Equal(t, 42.0, y)

	y, ok = New(pane.HostScaled(), WithHostPriceScale(false)).PriceToY(50, domain)
	require.True(t, ok)
	assert.Equal(t, 100.0, y)
}

func TestProjectorFallsBackWhenHostScaleFails(t *testing.T) {
	pane := charttest.NewFakePane(models.PanePrice, 300, 200, []int64{1, 2})
	pane.PriceScale = func(v float64) (float64, bool) { return 0, false }

	y, ok := New(pane.HostScaled()).PriceToY(0, models.PriceRange{Min: 0, Max: 100})
	require.True(t, ok)
	assert.Equal(t, 200.0, y)

	_, ok = New(pane.HostScaled()).PriceToY(0, models.PriceRange{Min: 5, Max: 5})
	assert.False(t, ok)
}

func TestProjectorClampsHostScale(t *testing.T) {
	pane := charttest.NewFakePane(models.PanePrice, 300, 200, []int64{1, 2})
	pane.PriceScale = func(v float64) (float64, bool) { return -15, true }

	y, ok := New(pane.HostScaled()).PriceToY(999, models.PriceRange{})
	require.True(t, ok)
	assert.Equal(t, 0.0, y)
}
