package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/animuse/animuse/internal/domain/recommend"
	"github.com/animuse/animuse/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	registry *recommend.Registry
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, registry *recommend.Registry) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With("component", "bootstrap"),
		server:   server,
		registry: registry,
	}
}

// Run starts the HTTP server and blocks until shutdown. Coordinators are
// disposed once in-flight requests have drained.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "storage", a.cfg.Storage.Driver)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		err := a.server.Shutdown(shutdownCtx)
		a.registry.Close()
		return err
	case err := <-errCh:
		a.registry.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
