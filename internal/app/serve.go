package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Serve runs the HTTP server until ctx is done, then drains connections and
// gives running scans until the shutdown deadline to finish.
func (a *App) Serve(ctx context.Context) error {
	router, err := a.Handler()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      router,
		ReadTimeout:  sec(a.Config.Server.ReadTimeoutSec),
		WriteTimeout: sec(a.Config.Server.WriteTimeoutSec),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Scanner.Shutdown(shutdownCtx)

	a.logger.Info("server stopped")
	return nil
}
