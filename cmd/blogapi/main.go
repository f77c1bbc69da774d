package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/article"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/auth"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/config"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/secrets"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/seed"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/server"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "blogapi",
	Short: "blogapi - article reads, upvotes and comments over HTTP",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Connect to the store, then serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The listener is only bound once the store has answered a ping.
		st, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()
		logger.Info("Store ready", zap.String("backend", cfg.Store))

		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentials)
		if err != nil {
			return err
		}
		provider, err := newSecretProvider()
		if err != nil {
			return err
		}

		svc := article.NewService(st, logger, article.UpvoteMode(cfg.UpvoteMode))
		srv := server.NewServer(svc, st, verifier, provider, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.Addr)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown failed", zap.Error(err))
			}
		}

		logger.Info("Goodbye!")
		return nil
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load article fixtures from a YAML file into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		defer f.Close()

		articles, err := seed.Parse(f)
		if err != nil {
			return err
		}

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		n, err := seed.Apply(ctx, st, articles, logger)
		if err != nil {
			return err
		}
		logger.Info("Fixtures loaded", zap.Int("inserted", n), zap.Int("total", len(articles)))
		return nil
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret [name]",
	Short: "Resolve a secret through the configured provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newSecretProvider()
		if err != nil {
			return err
		}
		value, err := provider.GetSecret(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

func openStore(ctx context.Context) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Store {
	case config.StoreRedis:
		return store.NewRedisStore(connectCtx, cfg.RedisAddr)
	case config.StoreBadger:
		st, err := store.NewBadgerStore(cfg.BadgerPath, logger)
		if err != nil {
			return nil, err
		}
		go st.RunGC(ctx, 5*time.Minute)
		return st, nil
	default:
		return store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	}
}

func newSecretProvider() (secrets.Provider, error) {
	opts := secrets.Options{
		VaultName:     cfg.KeyVaultName,
		TenantID:      cfg.AzureTenantID,
		ClientID:      cfg.AzureClientID,
		ClientSecret:  cfg.AzureClientSecret,
		UseFallback:   cfg.SecretsFallback,
		FallbackValue: cfg.FallbackSecret,
	}
	if opts.ImplicitFallback() {
		logger.Warn("No key vault configured, serving the fallback secret for every name",
			zap.Bool("fallback_value_set", opts.FallbackValue != ""))
	}
	return secrets.New(opts)
}

func newLogger(c config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("store", config.StoreMongo, "Store backend: mongo, redis or badger")
	rootCmd.PersistentFlags().String("mongo-uri", "mongodb://127.0.0.1:27017/", "MongoDB connection URI")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Address of Redis server")
	rootCmd.PersistentFlags().String("badger-path", "./badger-data", "Path to BadgerDB data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")
	rootCmd.PersistentFlags().Bool("dev", false, "Use the development logger")

	serverCmd.Flags().String("addr", ":8000", "HTTP listen address")
	serverCmd.Flags().String("upvote-mode", "conditional", "Upvote guard: conditional or legacy")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "articles.yaml", "Fixture file")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(secretCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
