package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vnykmshr/gatekeep/internal/server"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store/memory"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store/redisstore"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/tiered"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server with graceful shutdown support.

SIGINT or SIGTERM stops accepting requests and drains in-flight ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "listen host")
	cmd.Flags().Int("port", 8000, "listen port")
	cmd.Flags().String("store", "redis", "counter store (redis or memory)")
	cmd.Flags().String("redis-addr", "localhost:6379", "redis address")
	cmd.Flags().String("rules", "", "tier rules file (yaml)")
	cmd.Flags().Bool("watch-rules", false, "reload the rules file when it changes")

	_ = v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("store", cmd.Flags().Lookup("store"))
	_ = v.BindPFlag("redis.addr", cmd.Flags().Lookup("redis-addr"))
	_ = v.BindPFlag("rules.file", cmd.Flags().Lookup("rules"))
	_ = v.BindPFlag("rules.watch", cmd.Flags().Lookup("watch-rules"))

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	logger, err := newLogger(v.GetString("logging.level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, resolver, cleanup, err := buildStore(ctx, v, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rules := tiered.DefaultRules()
	rulesFile := v.GetString("rules.file")
	if rulesFile != "" {
		if rules, err = tiered.LoadRulesFile(rulesFile); err != nil {
			return err
		}
	}

	srv, err := server.New(server.Config{
		Host:      v.GetString("server.host"),
		Port:      v.GetInt("server.port"),
		Store:     st,
		Resolver:  resolver,
		Rules:     rules,
		Namespace: v.GetString("limiter.namespace"),
		Timeout:   v.GetDuration("limiter.timeout"),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if rulesFile != "" && v.GetBool("rules.watch") {
		w, err := tiered.NewWatcher(srv.Tiered(), tiered.WatcherConfig{Path: rulesFile, Logger: logger})
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), v.GetDuration("server.shutdown_timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped gracefully")
	return nil
}

// buildStore returns the counter store and tier resolver selected by the
// store key, and a cleanup function releasing them.
func buildStore(ctx context.Context, v *viper.Viper, logger *zap.Logger) (store.Store, tiered.TierResolver, func(), error) {
	switch kind := v.GetString("store"); kind {
	case "memory":
		st, err := memory.New(memory.Config{Logger: logger})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := st.Start(); err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using in-memory store")
		return st, tiered.StaticResolver{}, st.Stop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),

			ContextTimeoutEnabled: true,
		})
		st, err := redisstore.New(redisstore.Config{Client: client})
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}

		loadCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := st.Load(loadCtx); err != nil {
			// Requests fail open until Redis is reachable.
			logger.Warn("redis unavailable at startup", zap.String("addr", v.GetString("redis.addr")), zap.Error(err))
		}

		logger.Info("using redis store", zap.String("addr", v.GetString("redis.addr")))
		return st, tiered.NewRedisResolver(client, logger), func() { _ = client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (want redis or memory)", kind)
	}
}
