//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CoinChart/internal/usecase"
	"CoinChart/pkg/config"
	"CoinChart/pkg/server"
)

var chartSet = wire.NewSet(
	// Observability
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,

	// Data source
	ProvideCache,
	ProvideHTTPClient,
	ProvideCoinChartClient,
	ProvideCachedSource,
	ProvideCandleSource,

	// Use cases
	ProvideSymbolCatalog,
	ProvideSessionDeps,
	ProvideSessionManager,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		chartSet,
		ProvideClosers,

		// HTTP
		ProvideRenderLimiter,
		ProvideChartHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeSessionManager wires the session stack without the HTTP server.
func InitializeSessionManager(cfg *config.Config) (*usecase.SessionManager, error) {
	wire.Build(chartSet)
	return &usecase.SessionManager{}, nil
}
