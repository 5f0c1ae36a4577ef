package main

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stylebook/backend/internal/auth"
	"github.com/stylebook/backend/internal/codes"
	"github.com/stylebook/backend/internal/config"
	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/events"
	"github.com/stylebook/backend/internal/handlers"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/lock"
	"github.com/stylebook/backend/internal/repository"
	"github.com/stylebook/backend/internal/router"
	"github.com/stylebook/backend/internal/services"
)

// buildAPI wires repositories, the settlement engine and the HTTP handlers.
func buildAPI(cfg *config.Config, pool *pgxpool.Pool, publisher events.Publisher, notifier services.Notifier, logger *slog.Logger) (http.Handler, error) {
	rate, err := cfg.Rate()
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	pouchRepo := repository.NewPouchRepo(pool)
	appointmentRepo := repository.NewAppointmentRepo(pool)
	disputeRepo := repository.NewDisputeRepo(pool)

	settingsRate := &services.SettingsRate{
		Settings: repository.NewSettingsRepo(pool),
		Default:  rate,
		Logger:   logger,
	}

	engine := &services.Engine{
		UoW:      database.NewUnitOfWork(pool, cfg.DBLockTimeout, logger),
		Locks:    lock.NewKeyed(cfg.LockTimeout),
		Ledger:   ledger.New(userRepo, txRepo, pouchRepo),
		Users:    userRepo,
		Rates:    settingsRate,
		Events:   publisher,
		Notifier: notifier,
		BaseURL:  cfg.AppBaseURL,
		Logger:   logger,
	}

	appointments := services.NewAppointmentService(engine, appointmentRepo, disputeRepo, codes.NewGenerator())
	disputes := services.NewDisputeService(engine, appointmentRepo, disputeRepo)
	payouts := services.NewPayoutService(engine, repository.NewWithdrawalRepo(pool), repository.NewDepositRepo(pool), txRepo)

	schemas, err := handlers.LoadSchemas()
	if err != nil {
		return nil, err
	}

	return router.New(router.Deps{
		Tokens:       auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Appointments: &handlers.AppointmentHandler{Service: appointments, Schemas: schemas, Logger: logger},
		Disputes:     &handlers.DisputeHandler{Service: disputes, Schemas: schemas, Logger: logger},
		Payouts:      &handlers.PayoutHandler{Service: payouts, Schemas: schemas, Logger: logger},
		Settings:     &handlers.SettingsHandler{Settings: settingsRate, Schemas: schemas, Logger: logger},
		Logger:       logger,
	}), nil
}
