// Package app wires the puzzlepals data layer together: local database,
// remote document store, sync orchestrator and the services built on them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"puzzlepals/internal/auth"
	"puzzlepals/internal/clock"
	"puzzlepals/internal/config"
	"puzzlepals/internal/credentials"
	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
	"puzzlepals/internal/notify"
	"puzzlepals/internal/remote"
	"puzzlepals/internal/remote/memory"
	"puzzlepals/internal/remote/redis"
	"puzzlepals/internal/remote/s3"
	"puzzlepals/internal/remote/sqldoc"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/security"
	"puzzlepals/internal/service"
	"puzzlepals/internal/syncer"
	"puzzlepals/migrations"
)

// App holds every long-lived component of a running device
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB     *database.DB
	Store  *repository.Store
	Remote *remote.Client // nil when no remote driver is configured
	Syncer *syncer.Orchestrator

	Sessions   *service.SessionService
	Profiles   *service.ProfileService
	Parental   *service.ParentalService
	Settings   *service.SettingsService
	Statistics *service.StatisticsService
	Backup     *service.BackupService
}

// Options overrides pieces of the default wiring
type Options struct {
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
	Credentials credentials.Store
	Clock       clock.Clock
}

// NewLogger builds a text logger at the named level. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// New opens the local database, runs migrations and wires every service.
// Nothing touches the network until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	creds := opts.Credentials
	if creds == nil {
		creds = credentials.NewFileStore(cfg.CredentialsPath)
	}

	db, err := database.OpenNamed(cfg.DatabaseDriver, database.DialectConfig{Path: cfg.DatabasePath})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	if err := db.RunMigrations(migrations.FS, migrations.Local); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("local database ready", slog.String("driver", cfg.DatabaseDriver), slog.String("path", cfg.DatabasePath))

	a := &App{Config: cfg, Logger: logger, DB: db, Store: repository.NewStore(db)}

	docs, err := OpenRemote(ctx, cfg)
	if err != nil {
		// A broken remote configuration leaves the device offline rather than unusable
		logger.Warn("remote store unavailable", slog.String("driver", cfg.RemoteDriver), slog.Any("error", err))
	}
	if docs != nil {
		a.Remote = remote.NewClient(docs, opts.Clock)
	}

	mailer, err := notify.New(ctx, notify.Config{
		AWSRegion: cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	a.Syncer = syncer.New(a.Store, a.Remote, syncer.Config{
		ProbeTimeout:   cfg.ProbeTimeout,
		RestoreTimeout: cfg.RestoreTimeout,
		PushTimeout:    cfg.PushTimeout,
		QueueSize:      cfg.SyncQueueSize,
		Workers:        cfg.SyncWorkers,
	}, logger.With(slog.String("component", "syncer")), reg)

	backend := auth.NewLocalBackend(a.Store.Accounts, auth.LocalConfig{
		Secret:     []byte(cfg.TokenSecret),
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, opts.Clock, logger)

	limiter := security.NewAttemptLimiter(cfg.PinMaxAttempts, cfg.PinWindow, opts.Clock)

	a.Sessions = service.NewSessionService(backend, creds, a.Store, a.Syncer, mailer, logger)
	a.Profiles = service.NewProfileService(a.Sessions, a.Store, a.Syncer, logger)
	a.Sessions.Subscribe(a.Profiles.OnIdentityChanged)
	a.Parental = service.NewParentalService(a.Store, a.Sessions, a.Profiles, limiter, a.Syncer, mailer, logger)
	a.Settings = service.NewSettingsService(a.Store, a.Profiles, a.Syncer, logger)
	a.Statistics = service.NewStatisticsService(a.Store, a.Profiles, a.Syncer, logger)
	a.Backup = service.NewBackupService(a.Store, logger)

	return a, nil
}

// Start probes the remote store and restores the last session.
// It returns the identity the device starts with.
func (a *App) Start(ctx context.Context) models.Identity {
	a.Syncer.Start(ctx)
	identity := a.Sessions.RestoreSession(ctx)
	a.Logger.Info("session restored",
		slog.String("identity", string(identity.ID)),
		slog.Bool("online", a.Syncer.Online()))
	return identity
}

// Close stops background sync and releases every connection
func (a *App) Close() error {
	var errs []error
	if a.Syncer != nil {
		a.Syncer.Stop()
	}
	if a.Remote != nil {
		if err := a.Remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close remote store: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close local database: %w", err))
	}
	return errors.Join(errs...)
}

// OpenRemote builds the document store named by cfg.RemoteDriver.
// It returns nil without error for "none".
func OpenRemote(ctx context.Context, cfg *config.Config) (remote.DocumentStore, error) {
	switch driver := strings.ToLower(cfg.RemoteDriver); driver {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(), nil
	case "redis":
		redisCfg := redis.DefaultConfig()
		if cfg.RemoteURL != "" {
			redisCfg.URL = cfg.RemoteURL
		}
		redisCfg.DialTimeout = cfg.ProbeTimeout
		store, err := redis.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		return store, nil
	case "s3":
		store, err := s3.New(ctx, s3.Config{
			Region:          cfg.RemoteS3Region,
			Bucket:          cfg.RemoteS3Bucket,
			Prefix:          cfg.RemoteS3Prefix,
			Endpoint:        cfg.RemoteS3Endpoint,
			PathStyle:       cfg.RemoteS3PathStyle,
			AccessKeyID:     cfg.RemoteS3AccessKey,
			SecretAccessKey: cfg.RemoteS3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		return store, nil
	case "postgres", "postgresql", "mysql", "sqlite", "sqlite3":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("remote driver %s requires PUZZLEPALS_REMOTE_URL", driver)
		}
		store, err := sqldoc.Open(driver, cfg.RemoteURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported remote driver: %s", cfg.RemoteDriver)
	}
}
