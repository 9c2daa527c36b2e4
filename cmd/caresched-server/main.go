package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caresched/caresched/internal/config"
	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/imaging"
	"github.com/caresched/caresched/internal/domain/records"
	"github.com/caresched/caresched/internal/domain/reporting"
	"github.com/caresched/caresched/internal/domain/scheduling"
	"github.com/caresched/caresched/internal/platform/auth"
	"github.com/caresched/caresched/internal/platform/db"
	"github.com/caresched/caresched/internal/platform/middleware"
	"github.com/caresched/caresched/internal/registry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caresched-server",
		Short: "Appointment coordination API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coordination server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.MirrorEnabled() {
				return fmt.Errorf("DATABASE_URL is not set; nothing to migrate")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./db/migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.MirrorEnabled() {
				return fmt.Errorf("DATABASE_URL is not set; nothing to inspect")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./db/migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Backing store. The in-memory registry stays authoritative either way;
	// an unreachable database only disables mirroring.
	ctx := context.Background()
	var mirror registry.Mirror
	var pool *pgxpool.Pool
	if cfg.MirrorEnabled() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Warn().Err(err).Msg("backing store unreachable, running memory-only")
			pool = nil
		} else {
			defer pool.Close()
			if n, err := db.NewMigrator(pool, "./db/migrations").Up(ctx); err != nil {
				logger.Warn().Err(err).Msg("migrations failed, mirroring against existing schema")
			} else if n > 0 {
				logger.Info().Int("applied", n).Msg("migrations applied")
			}
			mirror = registry.NewPGMirror(pool)
			logger.Info().Msg("mirroring to backing store")
		}
	} else {
		logger.Info().Msg("DATABASE_URL not set, running memory-only")
	}

	reg := registry.New(mirror, logger)

	// Services
	identitySvc := identity.NewService(reg)
	schedulingSvc := scheduling.NewService(reg)
	recordsSvc := records.NewService(reg)
	reportingSvc := reporting.NewService(reg)

	fileStore, err := imaging.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to open upload directory")
	}
	imagingSvc := imaging.NewService(reg, fileStore)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "caresched-dev-secret"
		logger.Warn().Msg("JWT_SECRET not set, using development secret")
	}
	issuer := auth.Issuer{
		Secret: []byte(secret),
		TTL:    time.Duration(cfg.TokenTTLMinutes) * time.Minute,
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", db.HealthHandler(pool))

	public := e.Group("/api/v1")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	api := public.Group("", auth.Middleware(issuer))

	identity.NewHandler(identitySvc, issuer).RegisterRoutes(public, api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	records.NewHandler(recordsSvc).RegisterRoutes(api)
	imaging.NewHandler(imagingSvc).RegisterRoutes(api)
	reporting.NewHandler(reportingSvc).RegisterRoutes(api)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}
