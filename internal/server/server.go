/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/weekplanner/internal/api"
	"github.com/friendsincode/weekplanner/internal/audit"
	"github.com/friendsincode/weekplanner/internal/cache"
	"github.com/friendsincode/weekplanner/internal/config"
	"github.com/friendsincode/weekplanner/internal/db"
	"github.com/friendsincode/weekplanner/internal/eventbus"
	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/logging"
	"github.com/friendsincode/weekplanner/internal/planner"
	"github.com/friendsincode/weekplanner/internal/replan"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/storage"
	"github.com/friendsincode/weekplanner/internal/store"
	"github.com/friendsincode/weekplanner/internal/telemetry"
	"github.com/friendsincode/weekplanner/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	store    *store.Store
	cache    *cache.Cache
	bus      events.Broker
	planner  *planner.Service
	api      *api.API
	auditSvc *audit.Service
	replan   *replan.Runner

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(telemetry.TracingMiddleware("weekplanner-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for the websocket event stream
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(cfg.RequestTimeout)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout stays 0 for the event stream; the middleware timeout covers other routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows browser clients from origins. "*" allows any origin.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Expose-Headers", "X-Cache, X-Plan-Run, X-Request-Id")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) initDependencies() error {
	tp, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "weekplanner",
		ServiceVersion: version.String(),
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
		Enabled:        s.cfg.TracingEnabled,
		SampleRate:     s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	s.DeferClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})

	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.store = store.New(database)

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		nb := eventbus.NewNATSBus(natsCfg, s.logger)
		s.DeferClose(nb.Close)
		s.bus = nb
	} else {
		s.bus = events.NewBus()
	}

	engine := scheduling.NewEngine(s.logger, scheduling.WithSelfCheck(logging.IsDevelopment(s.cfg.Environment)))
	s.planner = planner.NewService(engine, s.store, s.bus, s.logger)

	// Preview cache and replan lock share one Redis.
	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.PreviewTTL = s.cfg.CacheTTL
		s.cache = cache.New(cacheCfg, s.logger)
		s.DeferClose(s.cache.Close)
		s.planner.SetCache(s.cache)
	}

	archiver, err := s.newArchiver()
	if err != nil {
		return err
	}
	if archiver != nil {
		s.planner.SetArchiver(archiver)
	}

	s.auditSvc = audit.NewService(s.store, s.bus, s.logger)

	if s.cfg.ReplanCron != "" {
		runner, err := replan.New(s.cfg.ReplanCron, func(ctx context.Context) error {
			_, err := s.planner.Replan(ctx)
			if errors.Is(err, planner.ErrNothingToReplan) {
				return nil
			}
			return err
		}, s.logger)
		if err != nil {
			return err
		}
		if s.cache != nil {
			if client := s.cache.Client(); client != nil {
				host, _ := os.Hostname()
				runner.SetLocker(replan.NewRedisLocker(client, host))
			}
		}
		s.replan = runner
	}

	exports := schedule.NewExportService(s.store, s.logger)
	s.api = api.New(s.planner, s.store, exports, s.bus, []byte(s.cfg.JWTSigningKey), s.logger)
	s.api.SetRateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)

	if !s.cfg.AuthEnabled() {
		s.logger.Warn().Msg("WEEKPLANNER_JWT_SIGNING_KEY not set, mutating endpoints are open")
	}
	return nil
}

// newArchiver picks S3 when a bucket is configured, else a local directory,
// else no archive.
func (s *Server) newArchiver() (*storage.Archiver, error) {
	switch {
	case s.cfg.S3Bucket != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		objects, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          s.cfg.S3Bucket,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		return storage.NewArchiver(objects, s.cfg.S3Prefix, s.logger), nil
	case s.cfg.SnapshotDir != "":
		if err := os.MkdirAll(s.cfg.SnapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", s.cfg.SnapshotDir, err)
		}
		s.logger.Info().Str("path", s.cfg.SnapshotDir).Msg("snapshot directory ready")
		return storage.NewArchiver(storage.NewFilesystemStore(s.cfg.SnapshotDir, s.logger), "", s.logger), nil
	}
	return nil, nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.auditSvc != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.auditSvc.Start(ctx)
		}()
	}

	if s.replan != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.replan.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("replan runner exited")
			}
		}()
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + version.String() + `"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
