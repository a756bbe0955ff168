// Package series formats candle datasets into per-pane series data and holds
// the chart theme and pane layout.
package series

import (
	"math"
	"sort"
	"strings"

	"CoinChart/internal/domain/models"
)

// CandlePoint is one bar of the candlestick series.
type CandlePoint struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Up reports whether the bar closed at or above its open.
func (p CandlePoint) Up() bool { return p.Close >= p.Open }

// ValuePoint is one histogram bar with its own color.
type ValuePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// LinePoint is one point of a line series. Index is the bar index in the
// dataset, so lines with gaps stay aligned with the other panes.
type LinePoint struct {
	Index int     `json:"index"`
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Candles formats the candlestick series.
func Candles(candles []models.Candle) []CandlePoint {
	out := make([]CandlePoint, len(candles))
	for i, c := range candles {
		out[i] = CandlePoint{Time: c.Time, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return out
}

// Volume formats the volume histogram, colored by bar direction.
func Volume(candles []models.Candle) []ValuePoint {
	out := make([]ValuePoint, len(candles))
	for i, c := range candles {
		color := VolumeDownColor
		if c.Close >= c.Open {
			color = VolumeUpColor
		}
		out[i] = ValuePoint{Time: c.Time, Value: c.Volume, Color: color}
	}
	return out
}

// Oscillator formats one named oscillator line. Candles without a finite value
// for field are left out of the line.
func Oscillator(candles []models.Candle, field string) []LinePoint {
	out := make([]LinePoint, 0, len(candles))
	for i, c := range candles {
		v, ok := c.Oscillator(field)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, LinePoint{Index: i, Time: c.Time, Value: v})
	}
	return out
}

// OscillatorFields lists the oscillator lines drawn on the oscillator pane, in
// draw order.
var OscillatorFields = []string{
	"DSS_UP", "DSS_DOWN", "DSS_2H", "DSS_4H", "DSS_8H", "DSS_12H", "DSS_DAILY", "DSS_3D",
}

var oscillatorColors = map[string]string{
	"DSS_UP":    "#4CAF50",
	"DSS_DOWN":  "#FF5252",
	"DSS_2H":    "#9C27B0",
	"DSS_4H":    "#009688",
	"DSS_8H":    "#FF9800",
	"DSS_12H":   "#FFEB3B",
	"DSS_DAILY": "#E91E63",
	"DSS_3D":    "#00BCD4",
}

// OscillatorColor returns the palette color of field, or the theme text color
// for fields outside the palette.
func OscillatorColor(field string) string {
	if c, ok := oscillatorColors[field]; ok {
		return c
	}
	return DefaultTheme.Text
}

// PlotFields returns the palette fields followed by any other DSS field found
// in candles, sorted by name.
func PlotFields(candles []models.Candle) []string {
	fields := append([]string(nil), OscillatorFields...)
	extra := map[string]struct{}{}
	for _, c := range candles {
		for name := range c.Oscillators {
			if _, known := oscillatorColors[name]; known {
				continue
			}
			if strings.HasPrefix(name, "DSS_") {
				extra[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(fields, names...)
}
