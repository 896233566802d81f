package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"

	"github.com/kidbank/backend/internal/auth"
	"github.com/kidbank/backend/internal/config"
	"github.com/kidbank/backend/internal/handlers"
	"github.com/kidbank/backend/internal/ledger"
	"github.com/kidbank/backend/internal/middleware"
	"github.com/kidbank/backend/internal/notify"
	"github.com/kidbank/backend/internal/questions"
	"github.com/kidbank/backend/internal/repository"
	"github.com/kidbank/backend/internal/reward"
	"github.com/kidbank/backend/internal/router"
	"github.com/kidbank/backend/internal/scheduler"
	"github.com/kidbank/backend/internal/units"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running and DATABASE_URL is correct", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	ledgerRepo := ledger.NewRepository(pool)
	userRepo := repository.NewUserRepo(pool)
	unitRepo := repository.NewUnitRepo(pool)
	recurringRepo := repository.NewRecurringRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)
	achievementRepo := repository.NewAchievementRepo(pool)

	// Services
	sink := notify.NewSink(notificationRepo, logger)
	ledgerSvc := ledger.NewService(pool, ledgerRepo, sink)
	policy := reward.Policy{
		AutoQuizUnitCents: cfg.AutoQuizUnitCents,
		AutoQuizCapCents:  cfg.AutoQuizCapCents,
		CorrectPerUnit:    cfg.AutoQuizPerUnit,
		AchievementCents:  cfg.AchievementCents,
	}
	bank := questions.NewStaticBank(time.Now().UnixNano())
	mathGen := questions.NewMathGenerator(time.Now().UnixNano())
	unitsSvc := units.NewService(pool, unitRepo, ledgerSvc, achievementRepo, userRepo,
		bank, mathGen, sink, policy, logger)
	schedulerSvc := scheduler.NewService(pool, recurringRepo, unitRepo, unitsSvc,
		ledgerSvc, userRepo, sink, time.Duration(cfg.StaleUnitTTLHours)*time.Hour, logger)
	authSvc := auth.NewService(pool, userRepo, ledgerRepo, cfg.JWTSecret)

	// River workers and periodic schedules
	workers := river.NewWorkers()
	river.AddWorker(workers, scheduler.NewDailyTickWorker(schedulerSvc))
	river.AddWorker(workers, scheduler.NewCleanupWorker(schedulerSvc))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				dailyAt{hour: cfg.SchedulerTickHour, min: cfg.SchedulerTickMin},
				func() (river.JobArgs, *river.InsertOpts) {
					return scheduler.DailyTickArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return scheduler.CleanupArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := auth.NewHandler(authSvc, logger)
	ledgerHandler := &handlers.LedgerHandler{
		Ledger:        ledgerSvc,
		Transactions:  ledgerRepo,
		Notifications: notificationRepo,
		Achievements:  achievementRepo,
		Users:         userRepo,
		Logger:        logger,
	}
	unitsHandler := &handlers.UnitsHandler{Units: unitsSvc, Lister: unitRepo, Logger: logger}
	recurringHandler := &handlers.RecurringHandler{Rules: recurringRepo, Users: userRepo, Logger: logger}

	apiRouter := router.New(authHandler, ledgerHandler, unitsHandler, recurringHandler,
		middleware.JWTAuth(authSvc), middleware.RequireParent(), middleware.RequireChild())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

// dailyAt fires once per day at a fixed wall-clock time.
type dailyAt struct {
	hour, min int
}

func (d dailyAt) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.min, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
