// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/magazine-api/internal/auth"
	"github.com/olegiv/magazine-api/internal/cache"
	"github.com/olegiv/magazine-api/internal/config"
	"github.com/olegiv/magazine-api/internal/geoip"
	"github.com/olegiv/magazine-api/internal/handler/api"
	"github.com/olegiv/magazine-api/internal/logging"
	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/scheduler"
	"github.com/olegiv/magazine-api/internal/service"
	"github.com/olegiv/magazine-api/internal/store"
	"github.com/olegiv/magazine-api/internal/version"
	"github.com/olegiv/magazine-api/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

type options struct {
	seedFile    string
	createAdmin string
	disableUser string
	enableUser  string
}

func (o options) provisioning() bool {
	return o.seedFile != "" || o.createAdmin != "" || o.disableUser != "" || o.enableUser != ""
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	var opts options
	flag.StringVar(&opts.seedFile, "seed", "", "Apply a YAML seed file (categories and users) and exit")
	flag.StringVar(&opts.createAdmin, "create-admin", "", "Create an admin `email:name` and exit (password from "+adminPasswordEnv+")")
	flag.StringVar(&opts.disableUser, "disable-user", "", "Disable the account with this `email` and exit")
	flag.StringVar(&opts.enableUser, "enable-user", "", "Re-enable the account with this `email` and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Magazine API - headless content API for the magazine frontend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_JWT_SECRET         Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_DB_PATH            SQLite database path (default: ./data/magazine.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_FRONTEND_URL       Frontend base URL for revalidation (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_CORS_ORIGINS       Allowed browser origins, comma separated\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_UPLOADS_DIR        Upload directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_REDIS_URL          Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MAG_GEOIP_DB_PATH      GeoLite2 country database (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s     Password for -create-admin\n", adminPasswordEnv)
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(opts, versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(opts options, versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(logging.NewRequestHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	})))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	schemaVersion, err := store.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	slog.Info("database ready", "schema_version", schemaVersion)

	ctx := context.Background()
	if opts.provisioning() {
		if opts.seedFile != "" {
			if err := seedFromFile(ctx, db, opts.seedFile, logger); err != nil {
				return err
			}
		}
		if opts.createAdmin != "" {
			if err := createAdmin(ctx, db, opts.createAdmin, os.Getenv(adminPasswordEnv), logger); err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
		}
		if opts.disableUser != "" {
			if err := setUserActive(ctx, db, opts.disableUser, false, logger); err != nil {
				return fmt.Errorf("disabling user: %w", err)
			}
		}
		if opts.enableUser != "" {
			if err := setUserActive(ctx, db, opts.enableUser, true, logger); err != nil {
				return fmt.Errorf("enabling user: %w", err)
			}
		}
		return nil
	}

	c := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTL,
	}, logger)
	defer func() { _ = c.Close() }()

	notifier := webhook.NewNotifier(webhook.Config{
		FrontendURL: cfg.FrontendURL,
		Secret:      cfg.RevalidateSecret,
		Timeout:     cfg.RevalidateTimeout,
	}, logger)
	if !cfg.RevalidationEnabled() {
		slog.Info("frontend revalidation disabled")
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("GeoIP database unavailable, countries will not be resolved", "error", err)
	}
	defer func() { _ = geo.Close() }()

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parsing MAG_TRUSTED_PROXIES: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	analytics := service.NewAnalyticsService(db, geo, cfg.AnalyticsSalt, logger)
	services := api.Services{
		Articles:    service.NewArticleService(db, notifier, c, logger),
		Categories:  service.NewCategoryService(db, c, logger),
		Subscribers: service.NewSubscriberService(db, logger),
		Auth:        service.NewAuthService(db, tokens, logger),
		Analytics:   analytics,
		Media: service.NewMediaService(service.MediaConfig{
			UploadDir:  cfg.UploadsDir,
			PublicURL:  cfg.PublicURL,
			Extensions: cfg.UploadExtensions,
			MaxSize:    cfg.UploadMaxSize,
		}, logger),
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), logger)
	defer loginProtection.Stop()

	sched := scheduler.New(logger)
	if err := sched.AddJob("analytics_rollup", "5 * * * *", analytics.RollupRecent); err != nil {
		return fmt.Errorf("registering rollup job: %w", err)
	}
	if err := sched.AddJob("analytics_backfill", "30 3 * * *", analytics.Backfill); err != nil {
		return fmt.Errorf("registering backfill job: %w", err)
	}
	// Catch up on hours missed while the server was down.
	if err := sched.RunNow("analytics_backfill"); err != nil {
		return fmt.Errorf("running backfill: %w", err)
	}
	if cfg.GeoIPEnabled() {
		if err := sched.AddJob("geoip_reload", "@hourly", func(context.Context) error {
			return geo.Reload()
		}); err != nil {
			return fmt.Errorf("registering geoip job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	csrfKey := sha256.Sum256([]byte("csrf:" + cfg.JWTSecret))
	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(services, loginProtection, !cfg.IsDevelopment(), logger),
		Health:         api.NewHealthHandler(db, cfg.UploadsDir, versionInfo.Version).WithCache(c).WithJobs(sched),
		UploadsDir:     cfg.UploadsDir,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: trustedProxies,
		IsDevelopment:  cfg.IsDevelopment(),
		RateLimit:      cfg.APIRateLimit,
		RateBurst:      cfg.APIRateBurst,
		CSRFKey:        csrfKey[:],
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
