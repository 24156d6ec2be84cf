// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/neongallery/internal/auth"
	"github.com/olegiv/neongallery/internal/cache"
	"github.com/olegiv/neongallery/internal/config"
	"github.com/olegiv/neongallery/internal/gallery"
	"github.com/olegiv/neongallery/internal/geoip"
	"github.com/olegiv/neongallery/internal/handler"
	"github.com/olegiv/neongallery/internal/handler/api"
	"github.com/olegiv/neongallery/internal/i18n"
	"github.com/olegiv/neongallery/internal/imaging"
	"github.com/olegiv/neongallery/internal/logging"
	"github.com/olegiv/neongallery/internal/metrics"
	"github.com/olegiv/neongallery/internal/middleware"
	"github.com/olegiv/neongallery/internal/scheduler"
	"github.com/olegiv/neongallery/internal/service"
	"github.com/olegiv/neongallery/internal/session"
	"github.com/olegiv/neongallery/internal/store"
	"github.com/olegiv/neongallery/internal/version"
	"github.com/olegiv/neongallery/internal/webhook"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = ""
	appBuildTime = ""
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	envFile := flag.String("env-file", ".env", "Environment file loaded before the process environment")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "neongallery - themed image gallery server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_ROOT             Theme directories (default: ./gallery)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_PUBLIC_DIR       Frontend pages and assets (default: ./public)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_DB_PATH          SQLite database path (default: ./data/gallery.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_SERVER_PORT      Server port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_ENV              development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_ADMIN_PHONES     Comma separated phones granted admin on login\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_REDIS_URL        Redis URL for codes and thumbnails (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_SITE_URL         Public base URL for sitemap.xml (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  GALLERY_WEBHOOK_URLS     Comma separated webhook endpoints (optional)\n")
	}
	flag.Parse()

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Printf("neongallery %s\n", info)
		os.Exit(0)
	}

	if err := run(*envFile, info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func run(envFile string, info version.Info) error {
	// Missing .env is fine outside development.
	_ = godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger, cfg.DefaultLang); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// WARN and ERROR records also go to the event log.
	logger = slog.New(logging.NewEventLogHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}), db))
	slog.SetDefault(logger)

	c, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.ThumbLifetime(),
		MaxSize:         10000,
		CleanupInterval: 0, // swept by the scheduler
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info(handler.LogCacheInit, "redis", cfg.UseRedisCache())

	repo, err := gallery.NewFSRepository(gallery.Options{
		Root:                cfg.Root,
		Reserved:            cfg.ReservedNames,
		CreateMissingThemes: cfg.CreateMissingThemes,
		MaxImageSize:        cfg.MaxImageSize,
		MaxFiles:            cfg.MaxFiles,
	})
	if err != nil {
		return fmt.Errorf("opening gallery: %w", err)
	}
	backgrounds, err := gallery.NewBackgrounds(cfg.BackgroundsDir, cfg.MaxBackgroundSize, nil)
	if err != nil {
		return fmt.Errorf("opening backgrounds: %w", err)
	}

	admins, err := auth.ParseAdminPhones(cfg.AdminPhones, cfg.PhoneRegion)
	if err != nil {
		return fmt.Errorf("parsing admin phones: %w", err)
	}

	countries, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip disabled", "error", err)
	}
	defer func() { _ = countries.Close() }()
	auditor := logging.NewAuditor(db)
	auditor.SetCountries(countries)

	isDev := cfg.IsDevelopment()
	sessionManager := session.New(db, isDev)
	queries := store.New(db)
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	sendCodeLimiter := middleware.NewRateLimiter("send-code", 0.2, 3)
	apiLimiter := middleware.NewRateLimiter("api", 20, 50)

	dispatcher, err := webhook.NewDispatcher(webhook.Config{
		URLs:    cfg.WebhookURLs,
		Secret:  cfg.WebhookSecret,
		Events:  cfg.WebhookEvents,
		Workers: cfg.WebhookWorkers,
	}, logger)
	if err != nil {
		return fmt.Errorf("configuring webhooks: %w", err)
	}
	var notifier api.Notifier
	if dispatcher.Enabled() {
		dispatcher.Start(context.Background())
		defer dispatcher.Stop()
		notifier = dispatcher
	}

	sched := scheduler.New(logger)
	maintenance := scheduler.Maintenance{
		Limiters:   []scheduler.Sweeper{sendCodeLimiter, apiLimiter},
		Protection: loginProtection,
		Events:     queries,
		Retention:  cfg.EventRetention(),
		Staging:    repo,
		Logger:     logger,
	}
	if cfg.GeoIPDBPath != "" {
		maintenance.GeoIP = countries
	}
	if ec, ok := c.(scheduler.ExpiringCache); ok {
		maintenance.Cache = ec
	}
	if err := maintenance.Register(sched); err != nil {
		return fmt.Errorf("registering maintenance jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	apiHandler := api.NewHandler(api.Deps{
		Repo:        repo,
		Backgrounds: backgrounds,
		Thumbnails:  imaging.NewThumbnails(c, cfg.ThumbLifetime()),
		Codes:       auth.NewCodeStore(c, auth.CodeStoreOptions{TTL: cfg.CodeLifetime()}),
		Sender:      auth.LogSender{},
		Accounts:    service.NewAccounts(db, admins),
		Protection:  loginProtection,
		Auditor:     auditor,
		Sessions:    sessionManager,
		Events:      queries,
		Notifier:    notifier,
		Jobs:        sched,
	}, api.Config{
		PhoneRegion:       cfg.PhoneRegion,
		MaxFiles:          cfg.MaxFiles,
		MaxImageSize:      cfg.MaxImageSize,
		MaxBackgroundSize: cfg.MaxBackgroundSize,
		ExposeCodes:       cfg.CodesExposed(),
		WeChatMock:        cfg.WeChatMockEnabled(),
	})
	if cfg.CodesExposed() {
		slog.Warn("verification codes are returned in API responses")
	}

	healthHandler := handler.NewHealthHandler(db, c, cfg.Root, info.String())
	healthHandler.SetJobs(sched)
	pagesHandler := handler.NewPagesHandler(cfg.PublicDir)
	seoHandler := handler.NewSEOHandler(repo, cfg.SiteURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5, "application/json", "text/html", "text/css", "application/javascript"))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(isDev)))
	r.Use(middleware.RequestPath)
	r.Use(middleware.Metrics)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadUser(sessionManager, queries))

	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)
	r.Get(handler.RouteRobots, seoHandler.Robots)
	r.Get(handler.RouteSitemap, seoHandler.Sitemap)
	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, handler.RouteMetrics, metrics.Handler())
	}

	r.Route(handler.RouteAPI, func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(apiLimiter.Middleware())
		r.Use(middleware.SkipCSRF(handler.RouteAPI + "/auth/wechat/callback"))
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), isDev)))
		apiHandler.Register(r, middleware.SessionAuthorizer{}, sendCodeLimiter.Middleware())
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.StaticCache(middleware.ImageMaxAge))
		r.Get(handler.RouteImages, apiHandler.ServeImage)
		r.Get(handler.RouteThumbs, apiHandler.ServeThumbnail)
		r.Get(handler.RouteBackgrounds, apiHandler.ServeBackground)
	})

	r.Get(handler.RouteRoot, pagesHandler.Home)
	r.Get(handler.RouteTheme, pagesHandler.Theme)
	r.Get(handler.RouteAdmin, pagesHandler.Admin)
	r.Get(handler.RouteLogin, pagesHandler.Login)
	r.NotFound(pagesHandler.NotFound)
	r.MethodNotAllowed(pagesHandler.MethodNotAllowed)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeout+5) * time.Second, // uploads can be slow
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-quit:
	}

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
