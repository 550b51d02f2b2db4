package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"library-lms/config"
	pkgerrors "library-lms/errors"
	"library-lms/logger"
)

const shutdownTimeout = 10 * time.Second

// Run serves handler on cfg.Addr until ctx is cancelled, then drains
// in-flight requests.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, logg *logger.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.Addr), "http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "http server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logg.Info(shutdownCtx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "http server shutdown")
	}
	return nil
}
