package coinchart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valyala/fastjson"

	"CoinChart/internal/domain/models"
	"CoinChart/pkg/util"
)

const (
	defaultDSSUp   = 80
	defaultDSSDown = 20
)

// flagMismatch reports a record whose lower- and upper-case signal flags disagree.
type flagMismatch struct {
	Time  int64
	Field string
}

type decodeResult struct {
	Candles    []models.Candle
	Dropped    int
	Mismatches []flagMismatch
}

// decodeCandles parses a candle_data payload. Records whose time or OHLC cannot
// be read as numbers are dropped. Later duplicates of a time replace earlier ones.
func decodeCandles(body []byte) (decodeResult, error) {
	var p fastjson.Parser
	val, err := p.ParseBytes(body)
	if err != nil {
		return decodeResult{}, fmt.Errorf("parse candles: %w", err)
	}
	items, err := val.Array()
	if err != nil {
		return decodeResult{}, fmt.Errorf("candles payload is not an array: %w", err)
	}

	var res decodeResult
	byTime := make(map[int64]int, len(items))
	for _, item := range items {
		c, mismatches, ok := decodeCandle(item)
		if !ok {
			res.Dropped++
			continue
		}
		res.Mismatches = append(res.Mismatches, mismatches...)
		if i, dup := byTime[c.Time]; dup {
			res.Candles[i] = c
			continue
		}
		byTime[c.Time] = len(res.Candles)
		res.Candles = append(res.Candles, c)
	}
	sort.SliceStable(res.Candles, func(i, j int) bool { return res.Candles[i].Time < res.Candles[j].Time })
	return res, nil
}

func decodeCandle(v *fastjson.Value) (models.Candle, []flagMismatch, bool) {
	obj, err := v.Object()
	if err != nil {
		return models.Candle{}, nil, false
	}

	t, ok := timeValue(v.Get("time"))
	if !ok {
		return models.Candle{}, nil, false
	}
	c := models.Candle{Time: t}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
	} {
		n, ok := numberValue(v.Get(f.key))
		if !ok {
			return models.Candle{}, nil, false
		}
		*f.dst = n
	}
	c.Volume, _ = numberValue(v.Get("volume"))

	c.Oscillators = make(map[string]float64)
	obj.Visit(func(key []byte, fv *fastjson.Value) {
		k := string(key)
		if !strings.HasPrefix(k, "DSS_") {
			return
		}
		if n, ok := numberValue(fv); ok {
			c.Oscillators[k] = n
		}
	})
	if _, ok := c.Oscillators["DSS_UP"]; !ok {
		c.Oscillators["DSS_UP"] = defaultDSSUp
	}
	if _, ok := c.Oscillators["DSS_DOWN"]; !ok {
		c.Oscillators["DSS_DOWN"] = defaultDSSDown
	}
	// DSS_1D only fills a missing DSS_DAILY; a raw DSS_DAILY wins.
	if _, ok := c.Oscillators["DSS_DAILY"]; !ok {
		if daily, ok := c.Oscillators["DSS_1D"]; ok && daily != 0 {
			c.Oscillators["DSS_DAILY"] = daily
		}
	}
	delete(c.Oscillators, "DSS_1D")

	var mismatches []flagMismatch
	var mismatch bool
	c.Buy, mismatch = signalFlag(v, "buy", "BUY")
	if mismatch {
		mismatches = append(mismatches, flagMismatch{Time: t, Field: "buy"})
	}
	c.Sell, mismatch = signalFlag(v, "sell", "SELL")
	if mismatch {
		mismatches = append(mismatches, flagMismatch{Time: t, Field: "sell"})
	}
	return c, mismatches, true
}

// signalFlag ORs both case variants of a flag. mismatch is set only when both
// variants are present and disagree.
func signalFlag(v *fastjson.Value, lower, upper string) (set, mismatch bool) {
	lv, uv := v.Get(lower), v.Get(upper)
	l := lv != nil && lv.Type() == fastjson.TypeTrue
	u := uv != nil && uv.Type() == fastjson.TypeTrue
	return l || u, lv != nil && uv != nil && l != u
}

func numberValue(v *fastjson.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		n, err := v.Float64()
		return n, err == nil
	case fastjson.TypeString:
		return util.ParseFloat(string(v.GetStringBytes()))
	default:
		return 0, false
	}
}

func timeValue(v *fastjson.Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		n, err := v.Float64()
		if err != nil || n <= 0 {
			return 0, false
		}
		return util.EpochMillis(n), true
	case fastjson.TypeString:
		return util.ParseMillis(string(v.GetStringBytes()))
	default:
		return 0, false
	}
}

// decodeSymbols parses a symbol_list payload and keeps the unique symbols of
// one exchange in upstream order.
func decodeSymbols(body []byte, exchange string) ([]models.Symbol, error) {
	var p fastjson.Parser
	val, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse symbols: %w", err)
	}
	items, err := val.Array()
	if err != nil {
		return nil, fmt.Errorf("symbols payload is not an array: %w", err)
	}

	out := make([]models.Symbol, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s := models.Symbol{
			Symbol:   string(item.GetStringBytes("symbol")),
			Exchange: string(item.GetStringBytes("exchange")),
		}
		if s.Symbol == "" || s.Exchange != exchange {
			continue
		}
		if _, dup := seen[s.Symbol]; dup {
			continue
		}
		seen[s.Symbol] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
