package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joegen/opalvoip-opal/internal/audit"
	"github.com/joegen/opalvoip-opal/internal/auth"
	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/config"
	"github.com/joegen/opalvoip-opal/internal/dispatch"
	"github.com/joegen/opalvoip-opal/internal/endpoint"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/httpapi"
	"github.com/joegen/opalvoip-opal/internal/reporting"
	"github.com/joegen/opalvoip-opal/internal/routing"
	"github.com/joegen/opalvoip-opal/internal/telephony"
	"github.com/joegen/opalvoip-opal/pkg/logger"
	"github.com/joegen/opalvoip-opal/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const activeCallsKey = "opal:active_calls"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var profile config.Profile
	if cfg.Opal.Profile != "" {
		profile, err = config.LoadProfile(cfg.Opal.Profile)
		if err != nil {
			log.Error("endpoint profile load failed", "path", cfg.Opal.Profile, "err", err)
			os.Exit(1)
		}
	}

	// Storage: Postgres when configured, in-process otherwise.
	var (
		db      *sql.DB
		records calls.RecordRepository = calls.NewMemoryRecordRepo()
		auditDB audit.Repository       = audit.NewMemoryRepo()
	)
	if cfg.UsePostgres() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := utils.EnsureSchema(rootCtx, db, calls.Schema, calls.SchemaIndex, audit.Schema); err != nil {
			log.Error("postgres schema failed", "err", err)
			os.Exit(1)
		}
		records = calls.NewPostgresRecordRepo(db)
		auditDB = audit.NewPostgresRepo(db)
	}
	auditSvc := audit.NewService(auditDB)

	var rdb *redis.Client
	if cfg.UseRedis() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	hub := events.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	mirrors := []events.Mirror{hub}
	var redisMirror *events.RedisMirror
	if rdb != nil {
		redisMirror = events.NewRedisMirror(rdb, cfg.Redis.Channel, log)
		mirrors = append(mirrors, redisMirror)
	}

	var limiter dispatch.Limiter
	if cfg.Opal.MaxCalls > 0 {
		if rdb != nil {
			limiter = dispatch.NewRedisLimiter(rdb, activeCallsKey, cfg.Opal.MaxCalls, cfg.Opal.CallCapTTL)
		} else {
			limiter = dispatch.NewMemoryLimiter(cfg.Opal.MaxCalls)
		}
	}

	engine := telephony.NewLoopback(telephony.Behavior{AutoAlert: true}, log)

	// Incoming-call policy: only when the profile has a routing table.
	var (
		router    routing.Engine
		overrides *routing.MemoryOverrideStore
	)
	if re := profile.Router(); re != nil {
		overrides = routing.NewMemoryOverrideStore()
		re.Overrides = routing.NewAdminOverrideEngine(overrides, routing.AuditAdapter{Audit: auditSvc})
		re.ActiveCalls = engine.ActiveCalls
		router = re
	}

	version := cfg.Opal.APIVersion
	if version == 0 {
		version = endpoint.APIVersion
	}
	ep, err := endpoint.Initialise(rootCtx, endpoint.Options{
		Version:         version,
		Capabilities:    cfg.Opal.Capabilities,
		Manager:         engine,
		Logger:          log,
		Records:         records,
		Audit:           auditSvc,
		Limiter:         limiter,
		Router:          router,
		Mirrors:         mirrors,
		RefreshInterval: cfg.Opal.RegistrationRefresh,
		Setup:           profile.Commands(),
	})
	if err != nil {
		log.Error("endpoint init failed", "err", err)
		os.Exit(1)
	}
	log.Info("endpoint ready", "version", ep.Version(), "capabilities", ep.Capabilities().String(), "engine", engine.Name())

	h := httpapi.Handlers{
		Auth:            authManager,
		BootstrapSecret: cfg.Auth.BootstrapSecret,
		Endpoint:        ep,
		Hub:             hub,
		Reports:         reporting.NewService(records),
		Overrides:       overrides,
		Audit:           auditSvc,
		PollMax:         cfg.Opal.EventPollMax,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, telephony.SimulatorHandler{Engine: engine}, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Event polls may hold the response for up to EventPollMax.
		WriteTimeout: cfg.Opal.EventPollMax + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Endpoint first: pending event polls return 503 instead of holding
	// the HTTP server open.
	if err := ep.Shutdown(shutdownCtx); err != nil {
		log.Error("endpoint shutdown failed", "err", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if redisMirror != nil {
		if err := redisMirror.Close(shutdownCtx); err != nil {
			log.Error("event mirror close failed", "err", err)
		}
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
