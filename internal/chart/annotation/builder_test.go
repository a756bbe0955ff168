package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/domain/models"
)

func candles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		base := float64(100 + i)
		out[i] = models.Candle{
			Time:  int64(1_700_000_000_000 + i*60_000),
			Open:  base,
			High:  base + 5,
			Low:   base - 5,
			Close: base + 1,
		}
	}
	return out
}

func TestBuildMarkersBothFlags(t *testing.T) {
	got := BuildMarkers([]models.Candle{{Time: 10, Buy: true, Sell: true}})
	require.Len(t, got, 2)

	assert.Equal(t, models.Marker{
		Time: 10, Position: models.BelowBar, Color: BuyColor,
		Shape: models.ArrowUp, Text: "BUY", Size: 3,
	}, got[0])
	assert.Equal(t, models.Marker{
		Time: 10, Position: models.AboveBar, Color: SellColor,
		Shape: models.ArrowDown, Text: "SELL", Size: 3,
	}, got[1])
}

func TestBuildMarkersNoFlags(t *testing.T) {
	assert.Empty(t, BuildMarkers([]models.Candle{{Time: 10}}))
	assert.NotNil(t, BuildMarkers(nil))
}

func TestBuildMarkersKeepsOrder(t *testing.T) {
	got := BuildMarkers([]models.Candle{
		{Time: 1, Sell: true},
		{Time: 2},
		{Time: 3, Buy: true},
	})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Time)
	assert.Equal(t, "SELL", got[0].Text)
	assert.Equal(t, int64(3), got[1].Time)
	assert.Equal(t, "BUY", got[1].Text)
}

func TestBuildRectanglesHundredCandles(t *testing.T) {
	data := candles(100)
	got := BuildRectangles(data)
	require.Len(t, got, 2)

	lower, upper := got[0], got[1]
	assert.Equal(t, data[60].Time, lower.XMin)
	assert.Equal(t, data[75].Time, lower.XMax)
	assert.Equal(t, data[75].Time, upper.XMin)
	assert.Equal(t, data[99].Time, upper.XMax)

	// Tail [60, 100): lows 155..194, highs 165..204.
	assert.Equal(t, 155.0, lower.YMin)
	assert.Equal(t, 179.5, lower.YMax)
	assert.Equal(t, 179.5, upper.YMin)
	assert.Equal(t, 204.0, upper.YMax)

	assert.Equal(t, "#FF0000", lower.Style.FillColor)
	assert.Equal(t, models.BorderSolid, lower.Style.BorderStyle)
	assert.Equal(t, "#0000FF", upper.Style.FillColor)
	assert.Equal(t, models.BorderDashed, upper.Style.BorderStyle)
	for _, r := range got {
		assert.Equal(t, 0.3, r.Style.FillOpacity)
		assert.Equal(t, 2.0, r.Style.BorderWidth)
		assert.True(t, r.Style.ShowBorder())
	}
}

func TestBuildRectanglesSortsInput(t *testing.T) {
	data := candles(100)
	shuffled := make([]models.Candle, 0, len(data))
	for i := len(data) - 1; i >= 0; i-- {
		shuffled = append(shuffled, data[i])
	}

	got := BuildRectangles(shuffled)
	require.Len(t, got, 2)
	assert.Equal(t, data[60].Time, got[0].XMin)
	assert.Equal(t, data[99].Time, got[1].XMax)
	assert.Equal(t, data[99].Time, shuffled[0].Time, "input must not be reordered")
}

func TestBuildRectanglesEmpty(t *testing.T) {
	got := BuildRectangles(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuildRectanglesSingleCandle(t *testing.T) {
	got := BuildRectangles(candles(1))
	require.Len(t, got, 2)
	assert.Equal(t, got[0].XMin, got[1].XMax)
}

func TestCutIndex(t *testing.T) {
	assert.Equal(t, 60, cutIndex(100, 0.6))
	assert.Equal(t, 75, cutIndex(100, 0.75))
	assert.Equal(t, 0, cutIndex(1, 0.75))
	assert.Equal(t, 3, cutIndex(5, 0.75))
}
