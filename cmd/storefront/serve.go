package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	httpapi "github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/http"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			if cfg.RunMigrations {
				if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
					return err
				}
			}

			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			h := httpapi.NewHandler(a.store, a.accounts, logger, httpapi.Options{
				RequestTimeout:  cfg.RequestTimeout,
				CheckoutTimeout: cfg.CheckoutTimeout,
			})
			r := httpapi.NewRouter(h, httpapi.RouterOptions{
				Logger:      logger,
				Metrics:     a.metrics,
				Gatherer:    a.registry,
				CORSOrigins: cfg.CORSOrigins,
			})

			httpServer := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)

			go func() {
				logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			var runErr error
			select {
			case sig := <-sigCh:
				logger.WithField("signal", sig.String()).Info("shutdown signal")
			case runErr = <-errCh:
				logger.WithError(runErr).Error("http server failed")
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("http shutdown")
			}
			logger.Info("shutdown complete")
			return runErr
		},
	}
}
