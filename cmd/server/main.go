package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	attendancehandler "fichaje/internal/attendance/handler"
	attendancemetrics "fichaje/internal/attendance/metrics"
	attendanceservice "fichaje/internal/attendance/service"
	recordstore "fichaje/internal/attendance/store/record"
	incidenthandler "fichaje/internal/incident/handler"
	incidentmetrics "fichaje/internal/incident/metrics"
	incidentservice "fichaje/internal/incident/service"
	incidentstore "fichaje/internal/incident/store/incident"
	"fichaje/internal/jwttoken"
	"fichaje/internal/platform/config"
	"fichaje/internal/platform/httpserver"
	"fichaje/internal/platform/logger"
	"fichaje/internal/platform/postgres"
	"fichaje/internal/platform/redis"
	schedulehandler "fichaje/internal/schedule/handler"
	schedulemetrics "fichaje/internal/schedule/metrics"
	scheduleservice "fichaje/internal/schedule/service"
	exceptionstore "fichaje/internal/schedule/store/exception"
	schedulestore "fichaje/internal/schedule/store/schedule"
	shiftstore "fichaje/internal/schedule/store/shift"
	"fichaje/internal/sweep"
	sweepmetrics "fichaje/internal/sweep/metrics"
	membershipstore "fichaje/internal/tenant/store/membership"
	tenantservice "fichaje/internal/tenant/service"
	transporthttp "fichaje/internal/transport/http"
	"fichaje/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		memberships tenantservice.MembershipStore
		schedules   scheduleservice.ScheduleStore
		shifts      scheduleservice.ShiftStore
		exceptions  scheduleservice.ExceptionStore
		records     attendanceservice.RecordStore
		incidents   incidentservice.IncidentStore
		runner      tx.Runner = tx.NopRunner{}
		health      func() error
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		memberships = membershipstore.NewPostgresStore(db)
		schedules = schedulestore.NewPostgresStore(db)
		shifts = shiftstore.NewPostgresStore(db)
		exceptions = exceptionstore.NewPostgresStore(db)
		records = recordstore.NewPostgresStore(db)
		incidents = incidentstore.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		health = db.Ping
		log.Info("using postgres stores")
	} else {
		memberships = membershipstore.NewInMemory()
		schedules = schedulestore.NewInMemory()
		shifts = shiftstore.NewInMemory()
		exceptions = exceptionstore.NewInMemory()
		records = recordstore.NewInMemory()
		incidents = incidentstore.NewInMemory()
		log.Warn("no POSTGRES_DSN configured, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tenantSvc := tenantservice.New(memberships, tenantservice.WithLogger(log))
	scheduleSvc := scheduleservice.New(schedules, shifts, exceptions, runner,
		scheduleservice.WithLogger(log),
		scheduleservice.WithMetrics(schedulemetrics.New(registry)),
	)
	incidentSvc := incidentservice.New(incidents, records, runner,
		incidentservice.WithLogger(log),
		incidentservice.WithMetrics(incidentmetrics.New(registry)),
	)
	attendanceSvc := attendanceservice.New(records, scheduleSvc, tenantSvc, incidentSvc, runner,
		attendanceservice.WithLogger(log),
		attendanceservice.WithMetrics(attendancemetrics.New(registry)),
	)

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "fichaje")

	router := transporthttp.NewRouter(transporthttp.Deps{
		Logger:     log,
		JWT:        jwtSvc,
		Registry:   registry,
		Schedules:  schedulehandler.New(scheduleSvc, tenantSvc, log),
		Attendance: attendancehandler.New(attendanceSvc, log),
		Incidents:  incidenthandler.New(incidentSvc, tenantSvc, log),
		Health:     health,
	})

	sweepRunner := sweep.NewRunner(cfg.SweepInterval, []sweep.Job{
		sweep.NewForgotInJob(scheduleSvc, records, memberships, incidentSvc, log),
		sweep.NewNoShowJob(scheduleSvc, records, memberships, incidentSvc, log),
		sweep.NewOutLateJob(scheduleSvc, records, memberships, incidentSvc, log),
		sweep.NewForgotOutJob(scheduleSvc, records, memberships, incidentSvc, log),
	},
		sweep.WithLogger(log),
		sweep.WithMetrics(sweepmetrics.New(registry)),
		sweep.WithLocks(redisClient),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpserver.New(cfg.Addr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Addr)
		serverErr <- server.ListenAndServe()
	}()
	go func() {
		if err := sweepRunner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweep runner stopped", "error", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
