package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/hilayankonsky/movemix/internal/api"
	"github.com/hilayankonsky/movemix/internal/config"
	"github.com/hilayankonsky/movemix/internal/middleware"
	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/storage"
	"github.com/hilayankonsky/movemix/internal/store"
	"github.com/hilayankonsky/movemix/internal/telemetry/metrics"
	"github.com/hilayankonsky/movemix/internal/telemetry/tracing"
	"github.com/hilayankonsky/movemix/pkg"
)

const maxRequestBodyBytes = 5 << 20 // imports carry the whole history

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config   *config.Config
	location *time.Location
	backend  *storage.Backend
	store    *store.Store
	engine   *stats.Engine

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config           *config.Config
	VersionInfo      string
	RedisPassword    string
	PostgresUser     string
	PostgresPassword string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(cfg.TracingEnabled, "movemix")
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, storage.OpenParams{
		Config:           cfg,
		RedisPassword:    params.RedisPassword,
		PostgresUser:     params.PostgresUser,
		PostgresPassword: params.PostgresPassword,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var collectors []prometheus.Collector
	if backend.DB != nil {
		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			backend.DB,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}
	promRegistry := metrics.NewRegistry(collectors...)
	metricsManager := metrics.NewManager("movemix", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)
	if backend.Cache != nil {
		metricsManager.RegisterCacheHitRate(backend.Cache.HitRate)
	}

	st := store.New(backend.Persistence, store.WithKey(cfg.StorageKey))
	engine := stats.NewEngine(st, time.Now, loc)

	doc, err := st.Read(ctx)
	if err != nil {
		log.Errorf("initial document read: %s", err)
	} else {
		metricsManager.GaugeStoredSessions.Set(float64(len(doc.Sessions)))
		log.Infof("document [%s] holds %d sessions", cfg.StorageKey, len(doc.Sessions))
	}

	return &Server{
		config:      cfg,
		location:    loc,
		versionInfo: params.VersionInfo,
		backend:     backend,
		store:       st,
		engine:      engine,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("movemix-router"))

	var rateLimiter middleware.RequestRateLimiter
	if s.backend.Redis != nil {
		rateLimiter = redis_rate.NewLimiter(s.backend.Redis)
	} else {
		log.Debugln("redis not available, mutating routes are not rate limited")
	}

	apiHandler := api.NewHandler(s.store, s.engine, s.metricsManager, time.Now, s.location)
	apiHandler.SetupRoutes(r, rateLimiter, s.config.RateLimitPerMinute)

	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.LimitRequestBody(maxRequestBodyBytes))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	version := s.versionInfo
	if version == "" {
		version = "dev"
	}
	pkg.WriteTextResponseOK(w, version)
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", metrics.Handler(s.promRegistry))
	metricsAddr := net.JoinHostPort(s.config.MetricsHost, s.config.MetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	if s.config.MetricsPort != "" {
		go func() {
			log.Debugf(" > metrics listening on: [%s]", metricsAddr)
			err := s.metricsHttpServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("metrics service, listen and serve: %s", err)
			}
		}()
	} else {
		s.metricsHttpServer = nil
		log.Debugln("metrics port not set, metrics server disabled")
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if err := s.backend.Close(); err != nil {
		log.Errorf("failed to close storage backend: %s", err)
	}
	log.Debugln("storage backend closed")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeOpenConnections.Inc()
	case http.StateClosed, http.StateHijacked:
		s.metricsManager.GaugeOpenConnections.Dec()
	default:
		// do nothing
	}
}
