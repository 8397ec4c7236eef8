package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/goto/salt/log"
	"github.com/goto/salt/mux"
)

// Serve listens on the configured address until ctx is cancelled, then
// shuts down within the grace period.
func Serve(ctx context.Context, cfg Config, logger log.Logger, h http.Handler) error {
	logger.Info("starting server", "http_port", cfg.addr())
	err := mux.Serve(
		ctx,
		mux.WithHTTPTarget(cfg.addr(), &http.Server{
			Handler:      handlers.CompressHandler(h),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}),
		mux.WithGracePeriod(cfg.GracePeriod),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve http: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
