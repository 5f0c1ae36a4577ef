package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stylebook/backend/internal/codes"
	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/events"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/lock"
	"github.com/stylebook/backend/internal/memstore"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
	"github.com/stylebook/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu     sync.Mutex
	notes  []notify.NotifyArgs
	emails []notify.EmailArgs
}

func (n *recordingNotifier) Notify(_ context.Context, args notify.NotifyArgs) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, args)
	return nil
}

func (n *recordingNotifier) SendEmail(_ context.Context, args notify.EmailArgs) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, args)
	return nil
}

func (n *recordingNotifier) notesFor(user uuid.UUID) []notify.NotifyArgs {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.NotifyArgs
	for _, a := range n.notes {
		if a.UserID == user {
			out = append(out, a)
		}
	}
	return out
}

func (n *recordingNotifier) emailTemplates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.emails {
		out = append(out, e.Template)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AppointmentStatusChanged
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e events.AppointmentStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Status)
	}
	return out
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	store     *memstore.Store
	notifier  *recordingNotifier
	publisher *recordingPublisher

	appointments *services.AppointmentService
	disputes     *services.DisputeService
	payouts      *services.PayoutService

	customer services.Actor
	stylist  services.Actor
	admin    services.Actor
	stranger services.Actor
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ctx() context.Context { return context.Background() }

// newFixture builds the engine over memstore with a 10% commission rate and
// a customer wallet holding customerBalance.
func newFixture(t *testing.T, customerBalance string) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:     store,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		customer:  services.Actor{ID: uuid.New(), Role: models.RoleCustomer},
		stylist:   services.Actor{ID: uuid.New(), Role: models.RoleStylist},
		admin:     services.Actor{ID: uuid.New(), Role: models.RoleAdmin},
		stranger:  services.Actor{ID: uuid.New(), Role: models.RoleCustomer},
	}
	users := []*models.User{
		{ID: models.SystemPlatformUserID, Name: "Platform", Role: models.RolePlatform, Balance: decimal.Zero},
		{ID: f.customer.ID, Name: "Cara", Email: "cara@example.com", Role: models.RoleCustomer, Balance: dec(customerBalance)},
		{ID: f.stylist.ID, Name: "Sol", Email: "sol@example.com", Role: models.RoleStylist, Balance: decimal.Zero},
		{ID: f.admin.ID, Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin, Balance: decimal.Zero},
		{ID: f.stranger.ID, Name: "Sam", Email: "sam@example.com", Role: models.RoleCustomer, Balance: decimal.Zero},
	}
	for _, u := range users {
		require.NoError(t, store.Users.Create(ctx(), u))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := &services.Engine{
		UoW:      database.NewUnitOfWork(store, 0, logger),
		Locks:    lock.NewKeyed(5 * time.Second),
		Ledger:   ledger.New(store.Users, store.Transactions, store.Pouches),
		Users:    store.Users,
		Rates:    services.FixedRate{Rate: dec("10")},
		Events:   f.publisher,
		Notifier: f.notifier,
		BaseURL:  "https://stylebook.test",
		Logger:   logger,
	}
	gen := &codes.Generator{Cost: bcrypt.MinCost}
	f.appointments = services.NewAppointmentService(engine, store.Appointments, store.Disputes, gen)
	f.disputes = services.NewDisputeService(engine, store.Appointments, store.Disputes)
	f.payouts = services.NewPayoutService(engine, store.Withdrawals, store.Deposits, store.Transactions)
	return f
}

func (f *fixture) balance(id uuid.UUID) string {
	return f.store.Users.Balance(id).StringFixed(2)
}

// book creates a wallet-funded booking of amount.
func (f *fixture) book(t *testing.T, amount, funding string) *services.Booking {
	t.Helper()
	res, err := f.appointments.Book(ctx(), f.customer, services.BookInput{
		CustomerID:      f.customer.ID,
		StylistID:       f.stylist.ID,
		Amount:          dec(amount),
		FundingSource:   funding,
		ScheduledDate:   time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "14:30",
		DurationMinutes: 90,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	return res.Data
}

func (f *fixture) approved(t *testing.T, amount string) *services.Booking {
	t.Helper()
	b := f.book(t, amount, models.FundingWallet)
	_, err := f.appointments.Approve(ctx(), f.stylist, b.Appointment.ID, "")
	require.NoError(t, err)
	return b
}

func (f *fixture) escalated(t *testing.T, amount string) (*services.Booking, *models.AppointmentDispute) {
	t.Helper()
	b := f.approved(t, amount)
	res, err := f.appointments.FileDispute(ctx(), f.customer, b.Appointment.ID, services.DisputeInput{Comment: "Stylist never showed up"})
	require.NoError(t, err)
	return b, res.Data
}

func (f *fixture) status(t *testing.T, id uuid.UUID) string {
	t.Helper()
	a, err := f.store.Appointments.GetByID(ctx(), id)
	require.NoError(t, err)
	return a.Status
}

func (f *fixture) statement(t *testing.T, id uuid.UUID) *services.Statement {
	t.Helper()
	st, err := f.appointments.Statement(ctx(), f.admin, id)
	require.NoError(t, err)
	return st
}

func (f *fixture) transaction(t *testing.T, ref string) *models.Transaction {
	t.Helper()
	for _, tx := range f.store.Transactions.All() {
		if tx.Reference == ref {
			return tx
		}
	}
	t.Fatalf("no transaction with reference %q", ref)
	return nil
}
