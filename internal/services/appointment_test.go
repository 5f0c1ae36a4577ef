package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
	"github.com/stylebook/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Booking
// ---------------------------------------------------------------------------

func TestBook_WalletDebitsCustomerAndStartsPending(t *testing.T) {
	f := newFixture(t, "150")
	b := f.book(t, "100", models.FundingWallet)

	assert.Equal(t, models.AppointmentPending, b.Appointment.Status)
	assert.Regexp(t, `^BK-[23456789ABCDEFGHJKLMNPQRSTUVWXYZ]{8}$`, b.Appointment.BookingCode)
	assert.Len(t, b.AppointmentCode, 6)
	assert.Len(t, b.CompletionCode, 6)
	assert.NotEqual(t, b.AppointmentCode, b.Appointment.AppointmentCodeHash)
	assert.Equal(t, "50.00", f.balance(f.customer.ID))

	payment := f.transaction(t, ledger.Reference(models.TransactionPayment, b.Appointment.ID))
	assert.Equal(t, models.TransactionPending, payment.Status)
	assert.True(t, payment.Amount.Equal(dec("100")))
	assert.Len(t, f.notifier.notesFor(f.stylist.ID), 1)
}

func TestBook_GatewayRecordsPaymentOnly(t *testing.T) {
	f := newFixture(t, "0")
	b := f.book(t, "80", models.FundingGateway)

	assert.Equal(t, models.AppointmentProcessing, b.Appointment.Status)
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	assert.Equal(t, models.TransactionPending, f.transaction(t, ledger.Reference(models.TransactionPayment, b.Appointment.ID)).Status)
	assert.Empty(t, f.notifier.notesFor(f.stylist.ID))

	res, err := f.appointments.VerifyPayment(ctx(), f.admin, b.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentPending, res.Data.Status)
	assert.Len(t, f.notifier.notesFor(f.stylist.ID), 1)

	_, err = f.appointments.VerifyPayment(ctx(), f.admin, b.Appointment.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
}

func TestBook_InsufficientWalletLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, "20")
	_, err := f.appointments.Book(ctx(), f.customer, services.BookInput{
		CustomerID:    f.customer.ID,
		StylistID:     f.stylist.ID,
		Amount:        dec("100"),
		FundingSource: models.FundingWallet,
		ScheduledDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime: "09:00",
	})
	assert.ErrorIs(t, err, services.ErrInsufficientBalance)
	assert.NotEmpty(t, services.Reason(err))
	assert.Equal(t, "20.00", f.balance(f.customer.ID))
	assert.Empty(t, f.store.Transactions.All())

	list, err := f.appointments.List(ctx(), f.customer)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t, "100")
	base := services.BookInput{
		CustomerID:    f.customer.ID,
		StylistID:     f.stylist.ID,
		Amount:        dec("10"),
		FundingSource: models.FundingWallet,
		ScheduledDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime: "09:00",
	}
	cases := map[string]func(in *services.BookInput){
		"zero amount":    func(in *services.BookInput) { in.Amount = dec("0") },
		"negative":       func(in *services.BookInput) { in.Amount = dec("-3") },
		"bad funding":    func(in *services.BookInput) { in.FundingSource = "cash" },
		"bad time":       func(in *services.BookInput) { in.ScheduledTime = "25:99" },
		"self booking":   func(in *services.BookInput) { in.StylistID = f.customer.ID },
		"not a stylist":  func(in *services.BookInput) { in.StylistID = f.stranger.ID },
		"missing date":   func(in *services.BookInput) { in.ScheduledDate = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.appointments.Book(ctx(), f.customer, in)
			assert.ErrorIs(t, err, services.ErrValidation)
		})
	}

	_, err := f.appointments.Book(ctx(), f.stranger, base)
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Equal(t, "100.00", f.balance(f.customer.ID))
}

// ---------------------------------------------------------------------------
// Approval
// ---------------------------------------------------------------------------

func TestApprove_EscrowsStylistShareAndBooksCommission(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	id := b.Appointment.ID

	assert.Equal(t, models.AppointmentApproved, f.status(t, id))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))

	st := f.statement(t, id)
	require.Len(t, st.Pouches, 1)
	assert.Equal(t, models.PouchKindApproval, st.Pouches[0].Kind)
	assert.Equal(t, models.PouchHolding, st.Pouches[0].Status)
	assert.True(t, st.Pouches[0].Amount.Equal(dec("90")))
	assert.Equal(t, models.TransactionCompleted, f.transaction(t, ledger.Reference(ledger.KindCommission, id)).Status)
	assert.Contains(t, f.publisher.statuses(), models.AppointmentApproved)
}

func TestApprove_OnlyTheStylist(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)

	for _, actor := range []services.Actor{f.customer, f.stranger, f.admin} {
		_, err := f.appointments.Approve(ctx(), actor, b.Appointment.ID, "")
		assert.ErrorIs(t, err, services.ErrForbidden)
	}
	assert.Equal(t, models.AppointmentPending, f.status(t, b.Appointment.ID))
	assert.Equal(t, "0.00", f.balance(models.SystemPlatformUserID))
}

func TestApprove_ReplayIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")

	_, err := f.appointments.Approve(ctx(), f.stylist, b.Appointment.ID, "")
	require.ErrorIs(t, err, services.ErrAlreadyProcessed)
	assert.Equal(t, "This appointment is already approved.", services.Reason(err))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.Len(t, f.statement(t, b.Appointment.ID).Pouches, 1)
}

func TestApprove_ConcurrentCallsSettleOnce(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.appointments.Approve(ctx(), f.stylist, b.Appointment.ID, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.Len(t, f.statement(t, b.Appointment.ID).Pouches, 1)
}

func TestReject_RefundsInFull(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)

	res, err := f.appointments.Reject(ctx(), f.stylist, b.Appointment.ID, "Fully booked that day")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCanceled, res.Data.Status)
	assert.Equal(t, "Fully booked that day", res.Data.StylistNote)
	assert.Equal(t, "100.00", f.balance(f.customer.ID))

	st := f.statement(t, b.Appointment.ID)
	assert.True(t, st.Summary.Balanced(dec("100")))
	assert.Equal(t, models.TransactionCompleted, f.transaction(t, ledger.Reference(models.TransactionPayment, b.Appointment.ID)).Status)
}

// ---------------------------------------------------------------------------
// Cancel
// ---------------------------------------------------------------------------

func TestCancel_AfterApprovalUnwindsEverything(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")

	_, err := f.appointments.Cancel(ctx(), f.customer, b.Appointment.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "100.00", f.balance(f.customer.ID))
	assert.Equal(t, "0.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))
	assert.Equal(t, models.TransactionReversed, f.transaction(t, ledger.Reference(ledger.KindCommission, b.Appointment.ID)).Status)

	st := f.statement(t, b.Appointment.ID)
	require.Len(t, st.Pouches, 1)
	assert.Equal(t, models.PouchRefunded, st.Pouches[0].Status)
	assert.True(t, st.Summary.Balanced(dec("100")))
	assert.Contains(t, f.notifier.emailTemplates(), notify.TemplateAppointmentCanceled)
}

func TestCancel_UnpaidGatewayBookingFailsPayment(t *testing.T) {
	f := newFixture(t, "0")
	b := f.book(t, "60", models.FundingGateway)

	_, err := f.appointments.Cancel(ctx(), f.customer, b.Appointment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	assert.Equal(t, models.TransactionFailed, f.transaction(t, ledger.Reference(models.TransactionPayment, b.Appointment.ID)).Status)
}

func TestCancel_NotAllowedOnceConfirmed(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	_, err := f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, b.AppointmentCode)
	require.NoError(t, err)

	_, err = f.appointments.Cancel(ctx(), f.customer, b.Appointment.ID, "")
	assert.ErrorIs(t, err, services.ErrInvalidStateTransition)
	assert.Equal(t, "This appointment can no longer be canceled.", services.Reason(err))

	_, err = f.appointments.Cancel(ctx(), f.stranger, b.Appointment.ID, "")
	assert.ErrorIs(t, err, services.ErrForbidden)
}

// ---------------------------------------------------------------------------
// Reschedule
// ---------------------------------------------------------------------------

func TestReschedule_RoundTrip(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)
	when := time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC)

	_, err := f.appointments.Reschedule(ctx(), f.stylist, b.Appointment.ID, services.RescheduleInput{ScheduledDate: when, ScheduledTime: "10:00"})
	assert.ErrorIs(t, err, services.ErrForbidden)

	res, err := f.appointments.Reschedule(ctx(), f.customer, b.Appointment.ID, services.RescheduleInput{ScheduledDate: when, ScheduledTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentRescheduled, res.Data.Status)
	assert.Equal(t, "10:00", res.Data.ScheduledTime)
	assert.Equal(t, 90, res.Data.DurationMinutes)

	_, err = f.appointments.Approve(ctx(), f.stylist, b.Appointment.ID, "")
	assert.ErrorIs(t, err, services.ErrInvalidStateTransition)

	res, err = f.appointments.AcceptReschedule(ctx(), f.stylist, b.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentPending, res.Data.Status)
	assert.True(t, res.Data.ScheduledDate.Equal(when))
}

// ---------------------------------------------------------------------------
// Confirm / Complete
// ---------------------------------------------------------------------------

func TestConfirm_WrongCodeChangesNothing(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	before := len(f.publisher.statuses())

	wrong := "000000"
	if b.AppointmentCode == wrong {
		wrong = "111111"
	}
	_, err := f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, wrong)
	require.ErrorIs(t, err, services.ErrInvalidCode)
	assert.Equal(t, models.AppointmentApproved, f.status(t, b.Appointment.ID))
	assert.Len(t, f.publisher.statuses(), before)

	_, err = f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, b.CompletionCode)
	assert.ErrorIs(t, err, services.ErrInvalidCode, "the completion code must not confirm")

	_, err = f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, "")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestComplete_ReleasesEscrowToStylist(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	id := b.Appointment.ID

	_, err := f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	assert.ErrorIs(t, err, services.ErrInvalidStateTransition, "must confirm first")

	_, err = f.appointments.Confirm(ctx(), f.stylist, id, b.AppointmentCode)
	require.NoError(t, err)
	_, err = f.appointments.Complete(ctx(), f.stylist, id, b.AppointmentCode)
	require.ErrorIs(t, err, services.ErrInvalidCode)
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))

	res, err := f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, res.Data.Status)
	assert.NotNil(t, res.Data.CompletedAt)

	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, models.TransactionCompleted, f.transaction(t, ledger.Reference(models.TransactionPayment, id)).Status)

	st := f.statement(t, id)
	assert.True(t, st.Summary.Balanced(dec("100")))
	assert.True(t, st.Summary.Earnings.Equal(dec("90")))
	assert.True(t, st.Summary.Commission.Equal(dec("10")))

	_, err = f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
	assert.Equal(t, []string{
		models.AppointmentApproved, models.AppointmentConfirmed, models.AppointmentCompleted,
	}, f.publisher.statuses())
}

func TestComplete_RoundsCommissionHalfUp(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "33.35")
	_, err := f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, b.AppointmentCode)
	require.NoError(t, err)
	_, err = f.appointments.Complete(ctx(), f.stylist, b.Appointment.ID, b.CompletionCode)
	require.NoError(t, err)

	assert.Equal(t, "3.34", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, "30.01", f.balance(f.stylist.ID))
	assert.True(t, f.statement(t, b.Appointment.ID).Summary.Balanced(dec("33.35")))
}

// ---------------------------------------------------------------------------
// Ledger faults and locking
// ---------------------------------------------------------------------------

func TestApprove_LedgerFaultLeavesPending(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)
	id := b.Appointment.ID

	f.store.FailNextAddBalance(errors.New("connection reset"))
	_, err := f.appointments.Approve(ctx(), f.stylist, id, "")
	require.ErrorIs(t, err, ledger.ErrConsistency)

	assert.Equal(t, models.AppointmentPending, f.status(t, id))
	assert.Empty(t, f.statement(t, id).Pouches)
	assert.Equal(t, "0.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	_, err = f.store.Transactions.GetByReferenceTx(ctx(), nil, ledger.Reference(ledger.KindCommission, id))
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The rollback leaves the booking approvable.
	_, err = f.appointments.Approve(ctx(), f.stylist, id, "")
	require.NoError(t, err)
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
}

func TestComplete_LedgerFaultLeavesConfirmed(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	id := b.Appointment.ID
	_, err := f.appointments.Confirm(ctx(), f.stylist, id, b.AppointmentCode)
	require.NoError(t, err)

	f.store.FailNextAddBalance(errors.New("connection reset"))
	_, err = f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	require.ErrorIs(t, err, ledger.ErrConsistency)

	assert.Equal(t, models.AppointmentConfirmed, f.status(t, id))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	st := f.statement(t, id)
	require.Len(t, st.Pouches, 1)
	assert.Equal(t, models.PouchHolding, st.Pouches[0].Status)
	assert.Equal(t, models.TransactionPending, f.transaction(t, ledger.Reference(models.TransactionPayment, id)).Status)

	_, err = f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	require.NoError(t, err)
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
}

func TestComplete_DoesNotLockPlatformRow(t *testing.T) {
	f := newFixture(t, "100")
	b := f.approved(t, "100")
	id := b.Appointment.ID
	_, err := f.appointments.Confirm(ctx(), f.stylist, id, b.AppointmentCode)
	require.NoError(t, err)

	platform := f.store.Users.Locks(models.SystemPlatformUserID)
	stylist := f.store.Users.Locks(f.stylist.ID)
	_, err = f.appointments.Complete(ctx(), f.stylist, id, b.CompletionCode)
	require.NoError(t, err)

	assert.Equal(t, platform, f.store.Users.Locks(models.SystemPlatformUserID), "releasing escrow moves no platform money")
	assert.Greater(t, f.store.Users.Locks(f.stylist.ID), stylist)
}

func TestApprove_LocksPlatformRowForCommission(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)

	before := f.store.Users.Locks(models.SystemPlatformUserID)
	_, err := f.appointments.Approve(ctx(), f.stylist, b.Appointment.ID, "")
	require.NoError(t, err)
	assert.Greater(t, f.store.Users.Locks(models.SystemPlatformUserID), before)
}

// ---------------------------------------------------------------------------
// Disputes, delete and reads
// ---------------------------------------------------------------------------

func TestFileDispute(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	assert.Equal(t, models.DisputeOpen, d.Status)
	assert.Equal(t, models.OriginatorCustomer, d.Originator)
	assert.Equal(t, models.PriorityMedium, d.Priority)

	a, err := f.appointments.Get(ctx(), f.stylist, b.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentEscalated, a.Status)
	assert.Equal(t, models.AppointmentApproved, a.PreviousStatus)
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID), "filing moves no money")

	_, err = f.appointments.FileDispute(ctx(), f.stylist, b.Appointment.ID, services.DisputeInput{Comment: "again"})
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)
	assert.Contains(t, f.notifier.emailTemplates(), notify.TemplateDisputeFiled)
}

func TestFileDispute_Rules(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "50", models.FundingWallet)

	_, err := f.appointments.FileDispute(ctx(), f.admin, b.Appointment.ID, services.DisputeInput{Comment: "x"})
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.appointments.FileDispute(ctx(), f.customer, b.Appointment.ID, services.DisputeInput{})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.appointments.Cancel(ctx(), f.customer, b.Appointment.ID, "")
	require.NoError(t, err)
	_, err = f.appointments.FileDispute(ctx(), f.customer, b.Appointment.ID, services.DisputeInput{Comment: "too late"})
	assert.ErrorIs(t, err, services.ErrInvalidStateTransition)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, "100")
	live := f.approved(t, "40")
	done := f.book(t, "40", models.FundingWallet)
	_, err := f.appointments.Cancel(ctx(), f.customer, done.Appointment.ID, "")
	require.NoError(t, err)

	_, err = f.appointments.Delete(ctx(), f.customer, done.Appointment.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.appointments.Delete(ctx(), f.admin, live.Appointment.ID)
	assert.ErrorIs(t, err, services.ErrInvalidStateTransition)

	_, err = f.appointments.Delete(ctx(), f.admin, done.Appointment.ID)
	require.NoError(t, err)
	_, err = f.appointments.Get(ctx(), f.customer, done.Appointment.ID)
	assert.True(t, errors.Is(err, services.ErrNotFound))

	list, err := f.appointments.List(ctx(), f.customer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, live.Appointment.ID, list[0].ID)
}

func TestReads_RequireParticipant(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "10", models.FundingWallet)

	_, err := f.appointments.Get(ctx(), f.stranger, b.Appointment.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.appointments.Statement(ctx(), f.stranger, b.Appointment.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	st, err := f.appointments.Statement(ctx(), f.customer, b.Appointment.ID)
	require.NoError(t, err)
	assert.True(t, st.Summary.Paid.Equal(dec("10")))
	assert.False(t, st.Summary.Balanced(dec("10")))
}
