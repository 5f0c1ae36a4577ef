package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/events"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/lock"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
)

// UserRepo is the read side of users the services need.
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier enqueues notifications. Implemented by notify.Queue.
type Notifier interface {
	Notify(ctx context.Context, args notify.NotifyArgs) error
	SendEmail(ctx context.Context, args notify.EmailArgs) error
}

// Actor is the authenticated caller of an action.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Engine holds what every settlement service shares.
type Engine struct {
	UoW      *database.UnitOfWork
	Locks    *lock.Keyed
	Ledger   *ledger.Ledger
	Users    UserRepo
	Rates    RateProvider
	Events   events.Publisher
	Notifier Notifier
	BaseURL  string
	Logger   *slog.Logger
	Now      func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failure.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return reason(ErrValidation, "%s is invalid (%s).", f.Field(), f.Tag())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// withLock runs fn while holding the in-process lock for key.
func (e *Engine) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := e.Locks.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return reason(ErrBusy, "Another request is updating this record. Please retry.")
		}
		return err
	}
	defer release()
	return fn()
}

func appointmentKey(id uuid.UUID) string { return "appointment:" + id.String() }
func disputeKey(id uuid.UUID) string     { return "dispute:" + id.String() }
func withdrawalKey(id uuid.UUID) string  { return "withdrawal:" + id.String() }
func depositKey(id uuid.UUID) string     { return "deposit:" + id.String() }

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) link(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + path
}

func appointmentLink(id uuid.UUID) string { return "/appointments/" + id.String() }

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// ---------------------------------------------------------------------------
// After-commit side effects
// ---------------------------------------------------------------------------

func (e *Engine) statusChanged(w *database.Work, a *models.Appointment, previous string) {
	ev := events.AppointmentStatusChanged{
		AppointmentID:  a.ID,
		BookingCode:    a.BookingCode,
		CustomerID:     a.CustomerID,
		StylistID:      a.StylistID,
		Status:         a.Status,
		PreviousStatus: previous,
		OccurredAt:     e.now(),
	}
	w.AfterCommit("status_changed", func(ctx context.Context) error {
		return e.Events.PublishStatusChanged(ctx, ev)
	})
}

func (e *Engine) notifyUser(w *database.Work, userID uuid.UUID, path, title, body, priority string) {
	args := notify.NotifyArgs{UserID: userID, Link: e.link(path), Title: title, Body: body, Priority: priority}
	w.AfterCommit("notify", func(ctx context.Context) error {
		return e.Notifier.Notify(ctx, args)
	})
}

// emailUser looks the recipient up after commit so the transaction never
// waits on it.
func (e *Engine) emailUser(w *database.Work, userID uuid.UUID, template string, data map[string]string) {
	w.AfterCommit("email:"+template, func(ctx context.Context) error {
		u, err := e.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load recipient %s: %w", userID, err)
		}
		ctxData := map[string]string{"name": u.Name}
		for k, v := range data {
			ctxData[k] = v
		}
		return e.Notifier.SendEmail(ctx, notify.EmailArgs{Template: template, Recipient: u.Email, Context: ctxData})
	})
}
