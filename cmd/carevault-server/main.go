package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carevault/carevault/internal/config"
	"github.com/carevault/carevault/internal/domain/alert"
	"github.com/carevault/carevault/internal/domain/audit"
	"github.com/carevault/carevault/internal/domain/bloodreport"
	"github.com/carevault/carevault/internal/domain/consent"
	"github.com/carevault/carevault/internal/domain/device"
	"github.com/carevault/carevault/internal/domain/emergency"
	"github.com/carevault/carevault/internal/domain/ingest"
	"github.com/carevault/carevault/internal/domain/notes"
	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/domain/vitals"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/db"
	"github.com/carevault/carevault/internal/platform/middleware"
	"github.com/carevault/carevault/internal/platform/notecrypt"
	"github.com/carevault/carevault/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carevault-server",
		Short: "CareVault health record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// tokenCmd mints a signed JWT for a subject and role. Identity lives
// outside this service, so this is how operators and integration
// environments get credentials the API middleware accepts.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roleStr, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			role, err := auth.ParseRole(roleStr)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not configured")
			}

			token, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     "carevault",
				SigningKey: []byte(cfg.JWTSecret),
				TTL:        ttl,
			}, subject, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "actor id the token identifies")
	cmd.Flags().String("role", "doctor", "actor role (admin, doctor, patient)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().String("dir", "migrations", "migrations directory")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
				MaxConns:        cfg.DBMaxConns,
				MinConns:        cfg.DBMinConns,
				MaxConnLifetime: cfg.DBConnMaxLifetime,
				MaxConnIdleTime: cfg.DBConnMaxIdleTime,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", count)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
				MaxConns:        cfg.DBMaxConns,
				MinConns:        cfg.DBMinConns,
				MaxConnLifetime: cfg.DBConnMaxLifetime,
				MaxConnIdleTime: cfg.DBConnMaxIdleTime,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBConnMaxLifetime,
		MaxConnIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Notification channel
	var notifier notification.Sender = notification.NopSender{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notification.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
	}

	// Note encryption, per-role keys
	passphrases := map[auth.Role]string{
		auth.RoleAdmin:   cfg.NoteKeyAdmin,
		auth.RoleDoctor:  cfg.NoteKeyDoctor,
		auth.RolePatient: cfg.NoteKeyPatient,
	}
	if cfg.IsDev() {
		for role, p := range passphrases {
			if p == "" {
				passphrases[role] = "dev-" + string(role) + "-note-key"
			}
		}
	}
	encryptor, err := notecrypt.New(passphrases)
	if err != nil {
		logger.Fatal().Err(err).Msg("note encryption setup failed")
	}

	inTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// Services
	auditorSvc := audit.NewService(audit.NewRepoPG(pool), logger, cfg.AuditRetentionDays)
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, auditorSvc)
	consentSvc := consent.NewService(consent.NewRepoPG(pool), inTx)
	alertSvc := alert.NewService(alert.NewRepoPG(pool), logger)
	vitalsRepo := vitals.NewRepoPG(pool)
	vitalsSvc := vitals.NewService(vitalsRepo, patientRepo, consentSvc, alertSvc, auditorSvc, inTx, logger)
	deviceSvc := device.NewService(device.NewRepoPG(pool), auditorSvc)
	ingestSvc := ingest.NewService(deviceSvc, vitalsRepo, consentSvc, alertSvc, auditorSvc, inTx, logger)
	emergencySvc := emergency.NewService(emergency.NewRepoPG(pool), patientRepo, auditorSvc, notifier, cfg.EmergencyAccessWindow, logger)
	notesSvc := notes.NewService(notes.NewRepoPG(pool), consentSvc, encryptor, auditorSvc)
	reportSvc := bloodreport.NewService(bloodreport.NewRepoPG(pool), consentSvc, auditorSvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", ingest.HeaderDeviceID, ingest.HeaderAPIKey},
	}))

	// Health checks and device ingestion sit outside user auth. Devices
	// authenticate with their own credentials.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	ingest.NewHandler(ingestSvc).RegisterRoutes(e.Group(""))

	// Authenticated API
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     "carevault",
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	consent.NewHandler(consentSvc, auditorSvc).RegisterRoutes(apiV1)
	vitals.NewHandler(vitalsSvc).RegisterRoutes(apiV1)
	alert.NewHandler(alertSvc, auditorSvc).RegisterRoutes(apiV1)
	device.NewHandler(deviceSvc).RegisterRoutes(apiV1)
	emergency.NewHandler(emergencySvc).RegisterRoutes(apiV1)
	notes.NewHandler(notesSvc).RegisterRoutes(apiV1)
	bloodreport.NewHandler(reportSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditorSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
