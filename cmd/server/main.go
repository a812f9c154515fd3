package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "kycflow/internal/jwt_token"
	"kycflow/internal/kyc/documents"
	kychandler "kycflow/internal/kyc/handler"
	kycmetrics "kycflow/internal/kyc/metrics"
	kycservice "kycflow/internal/kyc/service"
	"kycflow/internal/platform/config"
	"kycflow/internal/platform/httpserver"
	"kycflow/internal/platform/logger"
	platformmetrics "kycflow/internal/platform/metrics"
	"kycflow/internal/platform/middleware"
	"kycflow/pkg/platform/httputil"
)

const requestTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pm := platformmetrics.New(prometheus.DefaultRegisterer)

	st, db, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sched, err := buildScheduler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sched.close()
	platformmetrics.RegisterGauge(prometheus.DefaultRegisterer,
		"kycflow_approvals_pending", "Approvals scheduled but not yet fired", sched.pending)

	publisher, err := buildAuditPublisher(ctx, cfg, db, log, pm)
	if err != nil {
		return err
	}
	defer publisher.close()

	tracker := documents.NewTracker(documents.Limits{
		MaxProofBytes: cfg.KYC.MaxProofBytes,
		MaxPhotoBytes: cfg.KYC.MaxPhotoBytes,
	})
	svc := kycservice.New(st, tracker, sched.Scheduler,
		kycservice.WithLogger(log),
		kycservice.WithAuditPublisher(publisher),
		kycservice.WithMetrics(kycmetrics.New()),
		kycservice.WithApprovalDelay(cfg.KYC.ApprovalDelay),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	router := newRouter(log, jwttoken.NewJWTServiceAdapter(jwtService), kychandler.New(svc, log))
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting kycflow", "addr", cfg.Addr, "store", cfg.Store.Driver, "scheduler", sched.name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sched.Run(gctx, svc.Approve)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(log *slog.Logger, validator middleware.JWTValidator, h *kychandler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, log))
		h.Register(r)
	})
	return r
}
