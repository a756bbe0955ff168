package models

import "sort"

// Candle is one OHLCV record of a symbol's dataset.
// Time is epoch milliseconds and is unique and increasing within a dataset.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	// Oscillators maps indicator name (DSS_UP, DSS_4H, ...) to its value.
	// A missing key means the value is absent for this candle.
	Oscillators map[string]float64 `json:"oscillators,omitempty"`

	Buy  bool `json:"buy,omitempty"`
	Sell bool `json:"sell,omitempty"`
}

// Oscillator returns the named oscillator value and whether it is present.
func (c Candle) Oscillator(name string) (float64, bool) {
	v, ok := c.Oscillators[name]
	return v, ok
}

// Dataset is the candle set of one symbol. It is replaced wholesale on every selection.
type Dataset struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// Len returns the candle count.
func (d Dataset) Len() int { return len(d.Candles) }

// SignalCounts returns how many candles carry buy and sell flags.
func (d Dataset) SignalCounts() (buys, sells int) {
	for _, c := range d.Candles {
		if c.Buy {
			buys++
		}
		if c.Sell {
			sells++
		}
	}
	return buys, sells
}

// SortedByTime returns a time-ascending copy of candles.
func SortedByTime(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// PriceBounds returns (min low, max high) over candles. ok is false for an empty slice.
func PriceBounds(candles []Candle) (PriceRange, bool) {
	if len(candles) == 0 {
		return PriceRange{}, false
	}
	r := PriceRange{Min: candles[0].Low, Max: candles[0].High}
	for _, c := range candles[1:] {
		if c.Low < r.Min {
			r.Min = c.Low
		}
		if c.High > r.Max {
			r.Max = c.High
		}
	}
	return r, true
}
