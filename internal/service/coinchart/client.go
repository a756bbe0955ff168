// Package coinchart reads candle and symbol data from the coinchart REST API.
package coinchart

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"CoinChart/internal/domain/models"
	domrepo "CoinChart/internal/domain/repository"
	xhttp "CoinChart/pkg/http"
	xlogger "CoinChart/pkg/logger"
	"CoinChart/pkg/util"
)

const (
	DefaultBaseURL  = "https://api.coinchart.fun"
	DefaultExchange = "binance"
)

// Client implements CandleSource and SymbolSource over HTTP.
type Client struct {
	baseURL  string
	exchange string
	http     *xhttp.Client
	logger   *xlogger.Logger
	metrics  domrepo.Metrics
}

var (
	_ domrepo.CandleSource = (*Client)(nil)
	_ domrepo.SymbolSource = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithExchange(exchange string) Option {
	return func(cl *Client) { cl.exchange = exchange }
}

func WithLogger(l *xlogger.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		exchange: DefaultExchange,
		logger:   xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	}
	return c
}

// CandleURL returns the candle endpoint of symbol: the USDT quote is removed
// and the rest lower-cased.
func CandleURL(baseURL, symbol string) string {
	name := strings.ToLower(strings.Replace(symbol, "USDT", "", 1))
	return strings.TrimRight(baseURL, "/") + "/candle_data/" + url.PathEscape(name)
}

// GetCandles fetches and normalizes the candle dataset of symbol.
func (c *Client) GetCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	start := time.Now()
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     CandleURL(c.baseURL, symbol),
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	c.recordLatency("fetch_candles", start)
	if err != nil {
		c.recordFetch("candles", "error")
		return nil, fmt.Errorf("get candles %s: %w", symbol, err)
	}

	res, err := decodeCandles(body)
	if err != nil {
		c.recordFetch("candles", "error")
		return nil, fmt.Errorf("get candles %s: %w", symbol, err)
	}
	for _, m := range res.Mismatches {
		c.logger.Debug("signal flag case variants disagree",
			xlogger.String("symbol", symbol),
			xlogger.String("time", util.FormatMillis(m.Time)),
			xlogger.String("flag", m.Field),
		)
	}
	if res.Dropped > 0 {
		c.logger.Warn("dropped unreadable candle records",
			xlogger.String("symbol", symbol),
			xlogger.Int("dropped", res.Dropped),
		)
	}
	c.recordFetch("candles", "ok")
	return res.Candles, nil
}

// GetSymbols fetches the symbol list of the configured exchange.
func (c *Client) GetSymbols(ctx context.Context) ([]models.Symbol, error) {
	start := time.Now()
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/symbol_list",
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	c.recordLatency("fetch_symbols", start)
	if err != nil {
		c.recordFetch("symbols", "error")
		return nil, fmt.Errorf("get symbols: %w", err)
	}
	symbols, err := decodeSymbols(body, c.exchange)
	if err != nil {
		c.recordFetch("symbols", "error")
		return nil, fmt.Errorf("get symbols: %w", err)
	}
	c.recordFetch("symbols", "ok")
	return symbols, nil
}

func (c *Client) recordFetch(kind, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordFetch(kind, outcome)
	}
}

func (c *Client) recordLatency(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
