package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ericfisherdev/campnudge/internal/config"
)

const defaultListenAddr = "127.0.0.1:8000"

// cmdHealthcheck probes a running `serve` process. It exists so scratch
// container images can declare a HEALTHCHECK without shipping curl.
func cmdHealthcheck(configFile *string) *cli.Command {
	var addr string

	return &cli.Command{
		Name:  "healthcheck",
		Usage: "Exit non-zero unless the authorization server reports healthy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "Address the server listens on (overrides listen_addr)",
				Sources:     cli.EnvVars("CAMPNUDGE_LISTEN_ADDR"),
				Destination: &addr,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			target, err := probeAddr(addr, *configFile)
			if err != nil {
				return err
			}
			return probe(ctx, &http.Client{Timeout: 2 * time.Second}, target)
		},
	}
}

// probeAddr picks the address to probe: the flag or CAMPNUDGE_LISTEN_ADDR
// first, then listen_addr from configuration, as `serve` does.
func probeAddr(addr, configFile string) (string, error) {
	if addr == "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return "", err
		}
		addr = cfg.ListenAddr
	}
	return normalizeAddr(addr), nil
}

func probe(ctx context.Context, client *http.Client, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe: HTTP %d", resp.StatusCode)
	}
	return nil
}

// normalizeAddr points the probe at loopback rather than the bind-all
// address. Containers bind 0.0.0.0 but the probe runs inside the same
// container.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultListenAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultListenAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
