package router

import (
	"log/slog"
	"net/http"

	"github.com/stylebook/backend/internal/handlers"
	"github.com/stylebook/backend/internal/middleware"
	"github.com/stylebook/backend/internal/models"
)

// maxBody caps every request body.
const maxBody = 1 << 20

type Deps struct {
	Tokens       middleware.TokenValidator
	Appointments *handlers.AppointmentHandler
	Disputes     *handlers.DisputeHandler
	Payouts      *handlers.PayoutHandler
	Settings     *handlers.SettingsHandler
	Logger       *slog.Logger
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.LimitBody(maxBody)(middleware.ActorAuth(d.Tokens, d.Logger)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(models.RoleAdmin)(h).ServeHTTP)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	a := d.Appointments
	mux.Handle("POST "+base+"/appointments", authed(a.Book))
	mux.Handle("GET "+base+"/appointments", authed(a.List))
	mux.Handle("GET "+base+"/appointments/{id}", authed(a.Get))
	mux.Handle("DELETE "+base+"/appointments/{id}", admin(a.Delete))
	mux.Handle("GET "+base+"/appointments/{id}/ledger", authed(a.Ledger))
	mux.Handle("POST "+base+"/appointments/{id}/verify-payment", admin(a.VerifyPayment))
	mux.Handle("POST "+base+"/appointments/{id}/approve", authed(a.Approve))
	mux.Handle("POST "+base+"/appointments/{id}/reject", authed(a.Reject))
	mux.Handle("POST "+base+"/appointments/{id}/cancel", authed(a.Cancel))
	mux.Handle("POST "+base+"/appointments/{id}/reschedule", authed(a.Reschedule))
	mux.Handle("POST "+base+"/appointments/{id}/accept-reschedule", authed(a.AcceptReschedule))
	mux.Handle("POST "+base+"/appointments/{id}/confirm", authed(a.Confirm))
	mux.Handle("POST "+base+"/appointments/{id}/complete", authed(a.Complete))
	mux.Handle("POST "+base+"/appointments/{id}/disputes", authed(a.FileDispute))
	mux.Handle("GET "+base+"/appointments/{id}/disputes", authed(d.Disputes.ListByAppointment))

	mux.Handle("GET "+base+"/disputes/{id}", authed(d.Disputes.Get))
	mux.Handle("POST "+base+"/disputes/{id}/review", admin(d.Disputes.StartReview))
	mux.Handle("POST "+base+"/disputes/{id}/resolve", admin(d.Disputes.Resolve))
	mux.Handle("POST "+base+"/disputes/{id}/close", admin(d.Disputes.Close))

	p := d.Payouts
	mux.Handle("GET "+base+"/wallet", authed(p.Wallet))
	mux.Handle("POST "+base+"/withdrawals", authed(p.RequestWithdrawal))
	mux.Handle("GET "+base+"/withdrawals", authed(p.ListWithdrawals))
	mux.Handle("POST "+base+"/withdrawals/{id}/approve", admin(p.ApproveWithdrawal))
	mux.Handle("POST "+base+"/withdrawals/{id}/reject", admin(p.RejectWithdrawal))
	mux.Handle("POST "+base+"/deposits", authed(p.RequestDeposit))
	mux.Handle("GET "+base+"/deposits", authed(p.ListDeposits))
	mux.Handle("POST "+base+"/deposits/{id}/approve", admin(p.ApproveDeposit))
	mux.Handle("POST "+base+"/deposits/{id}/reject", admin(p.RejectDeposit))

	mux.Handle("GET "+base+"/admin/settings/commission-rate", admin(d.Settings.GetCommissionRate))
	mux.Handle("PUT "+base+"/admin/settings/commission-rate", admin(d.Settings.SetCommissionRate))

	return mux
}
