package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	httphandler "github.com/ericfisherdev/campnudge/internal/adapter/driving/http"
)

func cmdServe(configFile *string) *cli.Command {
	var addr string

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the one-time authorization server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "HTTP listen address (overrides listen_addr)",
				Sources:     cli.EnvVars("CAMPNUDGE_LISTEN_ADDR"),
				Destination: &addr,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			rt, err := newRuntime(ctx, *configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			if addr == "" {
				addr = rt.cfg.ListenAddr
			}

			logger := slog.Default()
			handler := httphandler.NewHandler(rt.launchpad.AuthorizationURL(), rt.creds, rt.tokens, logger)

			srv := &http.Server{
				Addr:              addr,
				Handler:           httphandler.NewServeMux(handler, logger),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			srvErr := make(chan error, 1)
			go func() {
				slog.Info("authorization server starting", "addr", addr, "redirect_uri", rt.cfg.RedirectURI)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvErr <- err
				}
				close(srvErr)
			}()

			select {
			case err := <-srvErr:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			slog.Info("shutdown complete")
			return nil
		},
	}
}
