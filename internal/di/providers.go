package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"CoinChart/internal/chart/series"
	"CoinChart/internal/chart/surface"
	"CoinChart/internal/domain/repository"
	"CoinChart/internal/handler/api"
	"CoinChart/internal/service/cache"
	"CoinChart/internal/service/coinchart"
	"CoinChart/internal/service/ratelimit"
	"CoinChart/internal/usecase"
	"CoinChart/pkg/config"
	xhttp "CoinChart/pkg/http"
	applogger "CoinChart/pkg/logger"
	"CoinChart/pkg/metrics"
	"CoinChart/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegistry(reg)
}

// ProvideCache selects Redis when enabled, else the in-process TTL cache.
// The Redis client is pinged once so a bad address fails at startup.
func ProvideCache(cfg *config.Config) (cache.BytesCache, error) {
	cc := cache.Config{MaxEntries: cfg.Cache.MaxEntries}
	if cfg.Cache.Redis.Enabled {
		cc.RedisAddr = cfg.Cache.Redis.Addr
		cc.RedisPassword = cfg.Cache.Redis.Password
		cc.RedisDB = cfg.Cache.Redis.DB
		cc.Prefix = cfg.Cache.Redis.Prefix
	}
	c := cache.New(cc)

	if rc, ok := c.(*cache.RedisCache); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close() // no logger in the DI layer; propagate error
			return nil, fmt.Errorf("redis cache: %w", err)
		}
	}
	return c, nil
}

// ProvideClosers collects the clients App closes on shutdown.
func ProvideClosers(c cache.BytesCache) []server.Closer {
	var out []server.Closer
	if rc, ok := c.(*cache.RedisCache); ok {
		out = append(out, server.Closer{Name: "redis", Close: rc.Close})
	}
	return out
}

// ProvideHTTPClient creates the upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.CoinChart.Timeout))
}

// ProvideCoinChartClient creates the REST data source client.
func ProvideCoinChartClient(
	cfg *config.Config,
	httpClient *xhttp.Client,
	logger *applogger.Logger,
	m repository.Metrics,
) *coinchart.Client {
	return coinchart.NewClient(cfg.CoinChart.APIURL,
		coinchart.WithHTTPClient(httpClient),
		coinchart.WithExchange(cfg.CoinChart.Exchange),
		coinchart.WithLogger(logger),
		coinchart.WithMetrics(m),
	)
}

// ProvideCachedSource wraps the client with the cache and request collapsing.
func ProvideCachedSource(
	cfg *config.Config,
	client *coinchart.Client,
	c cache.BytesCache,
	logger *applogger.Logger,
	m repository.Metrics,
) *coinchart.CachedSource {
	return coinchart.NewCachedSource(client, c,
		coinchart.WithTTL(cfg.CoinChart.CandleTTL, cfg.CoinChart.SymbolTTL),
		coinchart.WithFetchTimeout(2*cfg.CoinChart.Timeout),
		coinchart.WithCacheLogger(logger),
		coinchart.WithCacheMetrics(m),
	)
}

// ProvideCandleSource exposes the cached source as the candle source.
func ProvideCandleSource(s *coinchart.CachedSource) repository.CandleSource { return s }

// ProvideSymbolCatalog creates the shared symbol catalog.
func ProvideSymbolCatalog(s *coinchart.CachedSource, logger *applogger.Logger) *usecase.SymbolCatalog {
	return usecase.NewSymbolCatalog(s, logger)
}

// ProvideSessionDeps bundles the collaborators of every session.
func ProvideSessionDeps(
	cfg *config.Config,
	source repository.CandleSource,
	logger *applogger.Logger,
	m repository.Metrics,
) usecase.SessionDeps {
	return usecase.SessionDeps{
		Factory: surface.NewFactory(series.DefaultTheme),
		Source:  source,
		Waiter:  usecase.NewLayoutWaiter(cfg.Chart.LayoutTimeout),
		Logger:  logger,
		Metrics: m,
	}
}

// ProvideSessionManager creates the session manager.
func ProvideSessionManager(cfg *config.Config, deps usecase.SessionDeps, catalog *usecase.SymbolCatalog) *usecase.SessionManager {
	return usecase.NewSessionManager(deps, catalog, cfg.Chart.MaxSessions)
}

// ProvideRenderLimiter creates the per-session render limiter.
func ProvideRenderLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Chart.RenderBurst, cfg.Chart.RenderPerSec)
}

// ProvideChartHandler creates the chart HTTP handler.
func ProvideChartHandler(
	logger *applogger.Logger,
	manager *usecase.SessionManager,
	source repository.CandleSource,
	limiter *ratelimit.Limiter,
) *api.ChartHandler {
	return api.NewChartHandler(logger, manager, source, limiter)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	handler *api.ChartHandler,
	logger *applogger.Logger,
	reg *prometheus.Registry,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	manager *usecase.SessionManager,
	logger *applogger.Logger,
	closers []server.Closer,
) *server.App {
	return server.New(cfg, srv, manager, logger, closers...)
}
