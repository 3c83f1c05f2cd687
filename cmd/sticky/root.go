package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/sticky"
	"github.com/aretw0/sticky/internal/config"
	"github.com/aretw0/sticky/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sticky",
		Short: "Inspect and serve persisted browser sessions",
		Long: `sticky manages the browser session records kept in Redis.

Connection settings come from the environment (REDIS_URL or REDIS_HOST /
REDIS_PORT / REDIS_DB, SESSION_PERSISTENCE_ENABLED, SESSION_NAMESPACE, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		lsCmd(),
		inspectCmd(),
		existsCmd(),
		rmCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// openClient reads the environment once and connects.
// The returned close func is bounded by shutdownTimeout.
func openClient(cmd *cobra.Command, reg prometheus.Registerer) (*sticky.Client, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))
	client := sticky.Open(cmd.Context(), cfg.Redis(),
		sticky.WithLogger(logger),
		sticky.WithNamespace(cfg.Namespace),
		sticky.WithTTL(cfg.TTL),
		sticky.WithOpTimeout(cfg.OpTimeout),
		sticky.WithRegisterer(reg),
	)

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		client.Close(ctx)
	}
	return client, closeFn, nil
}

// requireEnabled turns the silent disabled mode into an error for
// commands whose only purpose is to talk to the store.
func requireEnabled(client *sticky.Client) error {
	if !client.IsEnabled() {
		return fmt.Errorf("session persistence is not available (check SESSION_PERSISTENCE_ENABLED and the redis settings)")
	}
	return nil
}
