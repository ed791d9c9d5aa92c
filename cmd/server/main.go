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

	"github.com/diewo77/care-meals/auth"
	"github.com/diewo77/care-meals/internal/config"
	"github.com/diewo77/care-meals/internal/db"
	"github.com/diewo77/care-meals/internal/events"
	"github.com/diewo77/care-meals/internal/handlers"
	"github.com/diewo77/care-meals/internal/logging"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	identityCacheTTL = 5 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool

	root := &cobra.Command{
		Use:          "care-meals",
		Short:        "Meal ordering for care facilities",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			e.cfg = config.Load()
			level := e.cfg.App.LogLevel
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(level, e.cfg.App.Dev)
			if err != nil {
				return err
			}
			e.log = logger
			auth.SetSecret(e.cfg.App.SessionSecret)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newServeCmd(e),
		newMigrateCmd(e),
		newSeedCmd(e),
		newKitchenCmd(e),
	)
	return root
}

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := db.Connect(e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			if err := db.Setup(conn, e.cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if e.cfg.App.Seed {
				if err := db.Seed(ctx, conn, e.cfg.App.SeedPassword, e.log); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}

			pub := events.New(e.cfg.Kafka.Broker, e.cfg.Kafka.OrderTopic)
			defer pub.Close()
			if e.cfg.Kafka.Broker != "" {
				e.log.Info("publishing order events", zap.String("broker", e.cfg.Kafka.Broker), zap.String("topic", e.cfg.Kafka.OrderTopic))
			}

			auth.SetUserVerifier(userExists(conn))
			rc := handlers.NewRouterConfig(conn, pub, identityCacheTTL, e.log)
			app := NewApp(rc, e.log, e.cfg.Server.CORSOrigins, e.cfg.App.Dev)

			srv := &http.Server{
				Addr:         ":" + e.cfg.Server.Port,
				Handler:      app,
				ReadTimeout:  time.Duration(e.cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(e.cfg.Server.WriteTimeout) * time.Second,
				IdleTimeout:  time.Duration(e.cfg.Server.IdleTimeout) * time.Second,
			}
			return run(ctx, srv, e.log)
		},
	}
}

// run serves until ctx is cancelled, then shuts the server down gracefully.
func run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	})
	return g.Wait()
}

func userExists(conn *gorm.DB) auth.UserVerifier {
	return func(ctx context.Context, uid uint) bool {
		var count int64
		conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
		return count > 0
	}
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Connect(e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			if err := db.Setup(conn, e.cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			e.log.Info("migrations completed")
			return nil
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users, residents and today's orders",
		Long: `Create the demo users, residents and today's orders.

Nothing is written when admin@example.com already exists, so the command can
run on every deploy. Passwords come from SEED_PASSWORD (default "test").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Connect(e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			if err := db.Setup(conn, e.cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return db.Seed(cmd.Context(), conn, e.cfg.App.SeedPassword, e.log)
		},
	}
}
