package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"CoinChart/internal/usecase"
	"CoinChart/pkg/config"
	xhttp "CoinChart/pkg/http"
	applogger "CoinChart/pkg/logger"
)

// Closer releases an infrastructure client on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	manager    *usecase.SessionManager
	logger     *applogger.Logger
	closers    []Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	httpServer *xhttp.Server,
	manager *usecase.SessionManager,
	logger *applogger.Logger,
	closers ...Closer,
) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		manager:    manager,
		logger:     logger,
		closers:    closers,
	}
}

// Server returns the HTTP server.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the HTTP server and blocks until ctx is done, an interrupt
// arrives, or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := a.httpServer.Start()
	a.logger.Info("coinchart started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("api_url", a.cfg.CoinChart.APIURL),
		applogger.Int("port", a.cfg.Server.Port),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err, ok := <-errc:
		if ok && err != nil {
			runErr = err
		}
	}

	return errors.Join(runErr, a.shutdown(context.WithoutCancel(ctx)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	// Sessions go after the server so no request races a closed session.
	a.manager.Close()

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("client", c.Name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
