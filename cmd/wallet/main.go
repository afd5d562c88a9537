// Command wallet is the terminal front end for the ambulance fleet ledger.
// It drives the admin history and self-service wallet views against the
// ledger API configured by API_BASE_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/config"
	"ambulance-finance/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Tables go to stdout; keep log lines out of them.
	if cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	log, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	api, err := client.NewTransactionClient(client.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		AccessToken: cfg.API.AccessToken,
		UserAgent:   cfg.API.UserAgent,
		SocketPath:  cfg.WebSocket.Path,
	}, log.WithField("component", "client"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		api:    api,
		cfg:    cfg,
		logger: log,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	os.Exit(c.run(ctx, os.Args[1:]))
}
