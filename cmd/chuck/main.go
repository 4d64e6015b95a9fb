package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chuck/internal/bot"
	"chuck/internal/config"
	"chuck/internal/prefix"
	"chuck/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "chuck",
	Short:         "Chuck Discord bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			_ = os.Setenv("CONFIG_PATH", configPath)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands",
	RunE:  runBot,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config.json or CONFIG_PATH)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func setup() (*config.File, config.Config, *zap.Logger, error) {
	file, cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return file, cfg, logger, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cmd.Context(), cfg.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func runBot(cmd *cobra.Command, args []string) error {
	file, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to database")
	store, err := storage.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("could not connect to database", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		logger.Fatal("migrations failed", zap.Error(err))
	}

	cache := prefix.NewCache(store, cfg.DefaultPrefix)
	warmed, err := cache.Warm(ctx)
	if err != nil {
		store.Close()
		logger.Fatal("prefix cache warm-up failed", zap.Error(err))
	}
	logger.Info("connected to database", zap.Int("cached_prefixes", warmed))

	botSvc, err := bot.New(cfg, file, logger, store, cache)
	if err != nil {
		store.Close()
		logger.Fatal("bot init failed", zap.Error(err))
	}

	logger.Info("connecting to discord")
	if err := botSvc.Start(); err != nil {
		botSvc.Close()
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Health.Enabled {
		server := healthServer(cfg.Health.Addr)
		g.Go(func() error {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")
		botSvc.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("health server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func healthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
