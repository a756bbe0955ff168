// Package annotation derives buy/sell markers and highlight rectangles from a
// candle dataset.
package annotation

import (
	"CoinChart/internal/domain/models"
)

const (
	BuyColor  = "#4CAF50"
	SellColor = "#FF5252"

	markerSize = 3

	// Band cut points as fractions of the dataset length.
	bandStart = 0.6
	bandSplit = 0.75

	boxOpacity     = 0.3
	boxBorderWidth = 2
)

// BuildMarkers emits a below-bar BUY marker and an above-bar SELL marker for
// every flagged candle. A candle carrying both flags yields both markers.
func BuildMarkers(candles []models.Candle) []models.Marker {
	markers := make([]models.Marker, 0)
	for _, c := range candles {
		if c.Buy {
			markers = append(markers, models.Marker{
				Time:     c.Time,
				Position: models.BelowBar,
				Color:    BuyColor,
				Shape:    models.ArrowUp,
				Text:     "BUY",
				Size:     markerSize,
			})
		}
		if c.Sell {
			markers = append(markers, models.Marker{
				Time:     c.Time,
				Position: models.AboveBar,
				Color:    SellColor,
				Shape:    models.ArrowDown,
				Text:     "SELL",
				Size:     markerSize,
			})
		}
	}
	return markers
}

// BuildRectangles highlights the most recent 40% of the dataset with two boxes:
// a lower box over [60%, 75%) and an upper box over [75%, last], split at the
// mid price of the tail's low/high bounds.
func BuildRectangles(candles []models.Candle) []models.Rectangle {
	n := len(candles)
	if n == 0 {
		return []models.Rectangle{}
	}
	sorted := models.SortedByTime(candles)

	start := cutIndex(n, bandStart)
	split := cutIndex(n, bandSplit)
	end := n - 1

	bounds, _ := models.PriceBounds(sorted[start:])
	mid := (bounds.Min + bounds.Max) / 2

	visible := true
	lower := models.Rectangle{
		XMin: sorted[start].Time,
		XMax: sorted[split].Time,
		YMin: bounds.Min,
		YMax: mid,
		Style: models.RectangleStyle{
			FillColor:     "#FF0000",
			FillOpacity:   boxOpacity,
			BorderColor:   "#FF0000",
			BorderWidth:   boxBorderWidth,
			BorderStyle:   models.BorderSolid,
			BorderVisible: &visible,
		},
	}
	upper := models.Rectangle{
		XMin: sorted[split].Time,
		XMax: sorted[end].Time,
		YMin: mid,
		YMax: bounds.Max,
		Style: models.RectangleStyle{
			FillColor:     "#0000FF",
			FillOpacity:   boxOpacity,
			BorderColor:   "#0000FF",
			BorderWidth:   boxBorderWidth,
			BorderStyle:   models.BorderDashed,
			BorderVisible: &visible,
		},
	}
	return []models.Rectangle{lower, upper}
}

// cutIndex returns floor(n*frac) clamped to a valid index.
func cutIndex(n int, frac float64) int {
	i := int(float64(n) * frac)
	if i > n-1 {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
