package services_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
	"github.com/stylebook/backend/internal/notify"
	"github.com/stylebook/backend/internal/services"
)

func amount(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolve_RefundCustomerInFull(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer, Comment: "No show"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCanceled, res.Data.Appointment.Status)
	assert.Equal(t, models.DisputeResolved, res.Data.Dispute.Status)
	assert.Equal(t, f.admin.ID, *res.Data.Dispute.ResolvedBy)
	require.NotNil(t, res.Data.Dispute.ResolutionAmount, "the applied refund is recorded")
	assert.True(t, res.Data.Dispute.ResolutionAmount.Equal(dec("100")))
	assert.Nil(t, res.Data.Dispute.StylistAmount)
	stored, err := f.store.Disputes.GetByID(ctx(), d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResolutionAmount)
	assert.True(t, stored.ResolutionAmount.Equal(dec("100")))

	assert.Equal(t, "100.00", f.balance(f.customer.ID))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))
	assert.Equal(t, "0.00", f.balance(models.SystemPlatformUserID))
	assert.True(t, f.statement(t, b.Appointment.ID).Summary.Balanced(dec("100")))
	assert.Contains(t, f.notifier.emailTemplates(), notify.TemplateDisputeResolved)
}

func TestResolve_PartialRefundRetainsRemainder(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer, RefundAmount: amount("70")})
	require.NoError(t, err)

	assert.Equal(t, "70.00", f.balance(f.customer.ID))
	assert.Equal(t, "30.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))

	st := f.statement(t, b.Appointment.ID)
	assert.True(t, st.Summary.Retained.Equal(dec("30")))
	assert.True(t, st.Summary.Commission.IsZero())
	assert.True(t, st.Summary.Balanced(dec("100")))
}

func TestResolve_RefundAboveAmountRejected(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer, RefundAmount: amount("100.01")})
	require.ErrorIs(t, err, services.ErrRefundExceedsAmount)
	assert.Equal(t, models.AppointmentEscalated, f.status(t, b.Appointment.ID))
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
}

func TestResolve_RefundAboveAmountRejectedForEveryType(t *testing.T) {
	for _, kind := range []string{models.ResolutionNoAction, models.ResolutionCompleteForStylist} {
		t.Run(kind, func(t *testing.T) {
			f := newFixture(t, "100")
			b, d := f.escalated(t, "100")

			_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: kind, RefundAmount: amount("1000")})
			require.ErrorIs(t, err, services.ErrRefundExceedsAmount)
			assert.Equal(t, models.AppointmentEscalated, f.status(t, b.Appointment.ID))
			assert.Equal(t, "0.00", f.balance(f.stylist.ID))
			assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))

			stored, err := f.store.Disputes.GetByID(ctx(), d.ID)
			require.NoError(t, err)
			assert.True(t, stored.Unresolved())
			assert.Nil(t, stored.ResolutionAmount)
		})
	}
}

func TestResolve_InRangeAmountIgnoredWhenNothingIsRefunded(t *testing.T) {
	f := newFixture(t, "100")
	_, d := f.escalated(t, "100")

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{
		Type: models.ResolutionCompleteForStylist, RefundAmount: amount("50"), StylistAmount: amount("20"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Data.Dispute.ResolutionAmount)
	assert.Nil(t, res.Data.Dispute.StylistAmount)
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
}

func TestResolve_LedgerFaultLeavesDisputeOpen(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	f.store.FailNextAddBalance(errors.New("connection reset"))
	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer})
	require.ErrorIs(t, err, ledger.ErrConsistency)

	assert.Equal(t, models.AppointmentEscalated, f.status(t, b.Appointment.ID))
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.Equal(t, models.TransactionCompleted, f.transaction(t, ledger.Reference(ledger.KindCommission, b.Appointment.ID)).Status)
	stored, err := f.store.Disputes.GetByID(ctx(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeOpen, stored.Status)

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCanceled, res.Data.Appointment.Status)
	assert.Equal(t, "100.00", f.balance(f.customer.ID))
}

func TestResolve_SplitRefund(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{
		Type:          models.ResolutionSplitRefund,
		RefundAmount:  amount("60"),
		StylistAmount: amount("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, res.Data.Appointment.Status)
	assert.True(t, res.Data.Dispute.StylistAmount.Equal(dec("40")))

	assert.Equal(t, "60.00", f.balance(f.customer.ID))
	assert.Equal(t, "36.00", f.balance(f.stylist.ID))
	assert.Equal(t, "4.00", f.balance(models.SystemPlatformUserID))

	id := b.Appointment.ID
	assert.Equal(t, models.TransactionReversed, f.transaction(t, ledger.Reference(ledger.KindCommission, id)).Status)
	assert.True(t, f.transaction(t, ledger.Reference(ledger.KindCommission, id, "settlement")).Amount.Equal(dec("4")))

	st := f.statement(t, id)
	require.Len(t, st.Pouches, 2)
	kinds := map[string]string{}
	for _, p := range st.Pouches {
		kinds[p.Kind] = p.Status
	}
	assert.Equal(t, models.PouchRefunded, kinds[models.PouchKindApproval])
	assert.Equal(t, models.PouchReleased, kinds[models.PouchKindSettlement])
	assert.True(t, st.Summary.Balanced(dec("100")))
}

func TestResolve_SplitRefundValidation(t *testing.T) {
	f := newFixture(t, "100")
	_, d := f.escalated(t, "100")

	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionSplitRefund, RefundAmount: amount("60")})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{
		Type: models.ResolutionSplitRefund, RefundAmount: amount("60"), StylistAmount: amount("-1"),
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{
		Type: models.ResolutionSplitRefund, RefundAmount: amount("60"), StylistAmount: amount("41"),
	})
	assert.ErrorIs(t, err, services.ErrRefundExceedsAmount)

	_, err = f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: "coin_toss"})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
}

func TestResolve_SplitWithRemainder(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{
		Type: models.ResolutionSplitRefund, RefundAmount: amount("50"), StylistAmount: amount("30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", f.balance(f.customer.ID))
	assert.Equal(t, "27.00", f.balance(f.stylist.ID))
	assert.Equal(t, "23.00", f.balance(models.SystemPlatformUserID))
	assert.True(t, f.statement(t, b.Appointment.ID).Summary.Balanced(dec("100")))
}

func TestResolve_CompleteForStylist(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionCompleteForStylist})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, res.Data.Appointment.Status)
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.True(t, f.statement(t, b.Appointment.ID).Summary.Balanced(dec("100")))
}

func TestResolve_CompleteForStylistBeforeApproval(t *testing.T) {
	f := newFixture(t, "100")
	b := f.book(t, "100", models.FundingWallet)
	fd, err := f.appointments.FileDispute(ctx(), f.stylist, b.Appointment.ID, services.DisputeInput{Comment: "Customer insists", Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, models.OriginatorStylist, fd.Data.Originator)

	_, err = f.disputes.Resolve(ctx(), f.admin, fd.Data.ID, services.ResolveInput{Type: models.ResolutionCompleteForStylist})
	require.NoError(t, err)
	assert.Equal(t, "90.00", f.balance(f.stylist.ID))
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))
	assert.True(t, f.statement(t, b.Appointment.ID).Summary.Balanced(dec("100")))
}

func TestResolve_NoActionRestoresPreviousStatus(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	res, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionNoAction})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentApproved, res.Data.Appointment.Status)
	assert.Empty(t, res.Data.Appointment.PreviousStatus)
	assert.Equal(t, "10.00", f.balance(models.SystemPlatformUserID))

	// The booking carries on normally.
	_, err = f.appointments.Confirm(ctx(), f.stylist, b.Appointment.ID, b.AppointmentCode)
	require.NoError(t, err)
}

func TestResolve_ReplayIsRejected(t *testing.T) {
	f := newFixture(t, "100")
	_, d := f.escalated(t, "100")

	_, err := f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer})
	require.NoError(t, err)
	count := len(f.store.Transactions.All())

	_, err = f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionCompleteForStylist})
	require.ErrorIs(t, err, services.ErrAlreadyResolved)
	assert.Equal(t, "This dispute is already resolved.", services.Reason(err))
	assert.Len(t, f.store.Transactions.All(), count)
	assert.Equal(t, "100.00", f.balance(f.customer.ID))
	assert.Equal(t, "0.00", f.balance(f.stylist.ID))
}

func TestResolve_AdminOnly(t *testing.T) {
	f := newFixture(t, "100")
	_, d := f.escalated(t, "100")

	for _, actor := range []services.Actor{f.customer, f.stylist} {
		_, err := f.disputes.Resolve(ctx(), actor, d.ID, services.ResolveInput{Type: models.ResolutionRefundCustomer})
		assert.ErrorIs(t, err, services.ErrForbidden)
	}
	assert.Equal(t, "0.00", f.balance(f.customer.ID))
}

// ---------------------------------------------------------------------------
// Review lifecycle
// ---------------------------------------------------------------------------

func TestDisputeLifecycle(t *testing.T) {
	f := newFixture(t, "100")
	b, d := f.escalated(t, "100")

	_, err := f.disputes.Close(ctx(), f.admin, d.ID)
	require.ErrorIs(t, err, services.ErrInvalidStateTransition)
	assert.Equal(t, "Resolve the dispute before closing it.", services.Reason(err))

	_, err = f.disputes.StartReview(ctx(), f.customer, d.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	res, err := f.disputes.StartReview(ctx(), f.admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeInProgress, res.Data.Status)
	_, err = f.disputes.StartReview(ctx(), f.admin, d.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)

	_, err = f.disputes.Resolve(ctx(), f.admin, d.ID, services.ResolveInput{Type: models.ResolutionNoAction})
	require.NoError(t, err)
	_, err = f.disputes.StartReview(ctx(), f.admin, d.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyResolved)

	res, err = f.disputes.Close(ctx(), f.admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeClosed, res.Data.Status)
	_, err = f.disputes.Close(ctx(), f.admin, d.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessed)

	got, err := f.disputes.Get(ctx(), f.stylist, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionNoAction, *got.ResolutionType)
	_, err = f.disputes.Get(ctx(), f.stranger, d.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	list, err := f.disputes.ListByAppointment(ctx(), f.customer, b.Appointment.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
