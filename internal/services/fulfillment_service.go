// Package services – FulfillmentService
//
// This file implements the payment reconciliation core: it takes an
// asynchronous, at-least-once, possibly-duplicated payment confirmation and
// deterministically produces exactly one consistent booking state, exactly
// one ledger entry, and correct slot occupancy.
//
// The whole body of ReconcileIntent runs as a single database transaction.
// Any typed domain error rolls the transaction back completely: no booking,
// ledger, audit, or activity row is ever partially persisted. Replays of an
// already-applied event complete successfully without new side effects; the
// unique ledger key per payment intent is the idempotency anchor.
//
// Observability: the public method is OpenTelemetry-instrumented; spans
// carry the payment intent id and the reconciliation outcome.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
	"github.com/courtside/booking-fulfillment/internal/repo"
	"github.com/courtside/booking-fulfillment/internal/stripe"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome reports how ReconcileIntent disposed of an event.
type Outcome int

const (
	// OutcomeNotApplicable means the event carries no booking marker; an
	// upstream dispatcher should offer it to other domain handlers.
	OutcomeNotApplicable Outcome = iota
	// OutcomeApplied means this core claimed and fully processed the event
	// (including the no-op replay of an already-applied event).
	OutcomeApplied
)

// String returns a label suitable for logs and metrics.
func (o Outcome) String() string {
	if o == OutcomeApplied {
		return "applied"
	}
	return "not_applicable"
}

// ChargeRetriever fetches a charge with its balance transaction expanded.
// *stripe.Client satisfies it; tests substitute fakes.
type ChargeRetriever interface {
	GetCharge(ctx context.Context, chargeID string) (*stripe.Charge, error)
}

// FulfillmentService reconciles payment confirmations against bookings.
//
// Concurrency: the only concurrency-control primitive is the database
// transaction wrapping each call. SQLite serializes write transactions, so
// two events racing for the last seat of a slot cannot both pass the
// capacity check. Calls for different payment intents on different slots do
// not block each other beyond what the store imposes.
type FulfillmentService struct {
	DB *gorm.DB

	// Charges resolves the authoritative processor fee. Optional; when nil
	// (or when lookup fails) the fee is estimated from the platform fee
	// schedule instead. Lookup failure never aborts reconciliation.
	Charges ChargeRetriever

	// DefaultFeeBps and DefaultFeeFixedCents are used by the estimator when
	// no platform fee schedule row is configured.
	DefaultFeeBps        int64
	DefaultFeeFixedCents int64
}

// ledgerMeta is the JSON document stored on ledger, activity, and audit rows
// to tie them back to the booking that produced them.
type ledgerMeta struct {
	BookingID      int64  `json:"bookingId"`
	ServiceID      int64  `json:"serviceId"`
	AvailabilityID int64  `json:"availabilityId"`
	OrganizationID int64  `json:"organizationId,omitempty"`
	PolicyID       int64  `json:"policyId,omitempty"`
	PaymentIntent  string `json:"paymentIntentId,omitempty"`
}

// ReconcileIntent classifies and, when applicable, fully reconciles a
// payment confirmation.
//
// Steps (all inside one transaction once the event is claimed):
//  1. Load the booking by metadata bookingId, or the availability slot when
//     only availabilityId is present.
//  2. No booking but complete synthesis metadata: validate the slot (service
//     match, not cancelled, capacity), then create the booking directly as
//     CONFIRMED: the recovery path for holds that expired or were never
//     persisted.
//  3. Existing booking: PENDING transitions to CONFIRMED with the intent id
//     stamped; CANCELLED is never reactivated; CONFIRMED is a replay.
//  4. Resolve and assign a cancellation policy if the booking has none.
//  5. Write the single ledger row for this payment intent (skip if present).
//  6. Append activity/audit records on a genuine first confirmation, or the
//     payment-after-cancel audit record on the cancelled path.
//  7. Recompute the slot status defensively (FULL iff active >= capacity).
//
// Errors: ErrServiceMismatch, ErrSlotCancelled, ErrCapacityExceeded,
// ErrBookingNotFound. Each rolls back everything. The processor fee lookup
// is resolved before the transaction and can only degrade, never fail it.
func (s *FulfillmentService) ReconcileIntent(ctx context.Context, intent stripe.PaymentIntent) (Outcome, error) {
	tr := otel.Tracer("services/FulfillmentService")
	ctx, span := tr.Start(ctx, "ReconcileIntent",
		trace.WithAttributes(attribute.String("payment_intent.id", intent.ID)),
	)
	defer span.End()

	ev, ok := ClassifyIntent(intent)
	if !ok {
		span.SetAttributes(attribute.String("reconcile.outcome", OutcomeNotApplicable.String()))
		return OutcomeNotApplicable, nil
	}

	// Fee resolution happens outside the transaction: it may hit the Stripe
	// API and must never stall or abort the reconciliation.
	chargeID, stripeFeeCents := s.resolveProcessorFee(ctx, ev)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, slot, synthesized, err := s.resolveBooking(ctx, tx, ev)
		if err != nil {
			return err
		}

		cancelled := booking.Status == domain.BookingCancelled
		confirmedNow := synthesized
		if !synthesized {
			switch {
			case !cancelled && booking.Status != domain.BookingConfirmed:
				if err := repo.ConfirmBooking(ctx, tx, booking.ID, ev.PaymentIntentID); err != nil {
					return err
				}
				booking.Status = domain.BookingConfirmed
				confirmedNow = true
			case booking.PaymentIntentID == nil:
				if err := repo.StampBookingPaymentIntent(ctx, tx, booking.ID, ev.PaymentIntentID); err != nil {
					return err
				}
			}
		}

		organizationID := ev.OrganizationID
		if organizationID == 0 {
			organizationID = booking.OrganizationID
		}
		userID := ev.UserID
		if userID == "" {
			userID = booking.UserID
		}

		if err := s.resolvePolicy(ctx, tx, booking, ev.PolicyID, organizationID); err != nil {
			return err
		}

		meta := ledgerMeta{
			BookingID:      booking.ID,
			ServiceID:      booking.ServiceID,
			AvailabilityID: booking.AvailabilityID,
		}

		if err := s.writeLedger(ctx, tx, ev, organizationID, userID, chargeID, stripeFeeCents, meta); err != nil {
			return err
		}

		if confirmedNow {
			meta.OrganizationID = organizationID
			activityJSON := mustJSON(meta)
			if err := repo.CreateUserActivity(ctx, tx, userID, domain.ActivityBookingCreated, activityJSON); err != nil {
				return err
			}
			meta.OrganizationID = 0
			meta.PolicyID = ev.PolicyID
			if err := repo.CreateOrganizationAudit(ctx, tx, organizationID, userID, domain.AuditBookingCreated, mustJSON(meta)); err != nil {
				return err
			}
		} else if cancelled {
			meta.PaymentIntent = ev.PaymentIntentID
			if err := repo.CreateOrganizationAudit(ctx, tx, organizationID, userID, domain.AuditPaymentAfterCancel, mustJSON(meta)); err != nil {
				return err
			}
		}

		return s.recomputeSlotStatus(ctx, tx, slot)
	})
	if err != nil {
		span.RecordError(err)
		return OutcomeNotApplicable, err
	}

	span.SetAttributes(attribute.String("reconcile.outcome", OutcomeApplied.String()))
	return OutcomeApplied, nil
}

// resolveBooking implements the two-case booking resolution: found by id, or
// synthesized from availability metadata. It returns the booking, its slot,
// and whether the booking was created here.
func (s *FulfillmentService) resolveBooking(ctx context.Context, tx *gorm.DB, ev BookingEvent) (*domain.Booking, *domain.AvailabilitySlot, bool, error) {
	var booking *domain.Booking
	if ev.BookingID != 0 {
		b, err := repo.GetBooking(ctx, tx, ev.BookingID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, nil, false, err
		}
		booking = b
	}

	if booking != nil {
		slot := booking.Availability
		if slot.ID == 0 {
			return nil, nil, false, ErrBookingNotFound
		}
		return booking, &slot, false, nil
	}

	// Synthesis path: a seat was paid for but the hold never materialized
	// (expired or lost). Requires the full identity set from metadata.
	if !ev.CanSynthesize() {
		return nil, nil, false, ErrBookingNotFound
	}

	slot, err := repo.GetSlot(ctx, tx, ev.AvailabilityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, false, ErrBookingNotFound
		}
		return nil, nil, false, err
	}
	if slot.ServiceID != ev.ServiceID {
		return nil, nil, false, ErrServiceMismatch
	}
	if slot.Status == domain.SlotCancelled {
		return nil, nil, false, ErrSlotCancelled
	}

	// Capacity guard: check-then-insert under the same transaction. The
	// store serializes competing writers, so two events cannot both claim
	// the last seat.
	active, err := repo.CountActiveBookings(ctx, tx, slot.ID)
	if err != nil {
		return nil, nil, false, err
	}
	if active >= int64(slot.Capacity) {
		return nil, nil, false, ErrCapacityExceeded
	}

	intentID := ev.PaymentIntentID
	b := &domain.Booking{
		ServiceID:       ev.ServiceID,
		OrganizationID:  ev.OrganizationID,
		UserID:          ev.UserID,
		AvailabilityID:  slot.ID,
		StartsAt:        slot.StartsAt,
		DurationMinutes: slot.DurationMinutes,
		PriceCents:      slot.Service.UnitPriceCents,
		Currency:        slot.Service.Currency,
		Status:          domain.BookingConfirmed,
		PaymentIntentID: &intentID,
	}
	if err := repo.CreateBooking(ctx, tx, b); err != nil {
		return nil, nil, false, err
	}
	return b, slot, true, nil
}

// resolvePolicy attaches a cancellation policy to a booking that has none,
// using the fallback chain: explicit metadata policy id scoped to the
// organizer, the organizer's MODERATE policy, the organizer's oldest policy,
// or nothing. First match wins; an existing assignment is never replaced.
func (s *FulfillmentService) resolvePolicy(ctx context.Context, tx *gorm.DB, booking *domain.Booking, policyID, organizationID int64) error {
	_, err := repo.GetPolicyRef(ctx, tx, booking.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	policy := s.lookupPolicy(ctx, tx, policyID, organizationID)
	if policy == nil {
		return nil
	}
	return repo.CreatePolicyRef(ctx, tx, booking.ID, policy.ID)
}

func (s *FulfillmentService) lookupPolicy(ctx context.Context, tx *gorm.DB, policyID, organizationID int64) *domain.OrganizationPolicy {
	if policyID != 0 {
		if p, err := repo.FindOrganizationPolicy(ctx, tx, policyID, organizationID); err == nil {
			return p
		}
	}
	if p, err := repo.FindPolicyByType(ctx, tx, organizationID, domain.PolicyModerate); err == nil {
		return p
	}
	if p, err := repo.FindEarliestPolicy(ctx, tx, organizationID); err == nil {
		return p
	}
	return nil
}

// writeLedger appends the single financial record for this payment intent.
// An existing row means the event is a replay and the write is skipped; a
// unique-constraint race with a concurrent replay is likewise treated as
// already written.
func (s *FulfillmentService) writeLedger(ctx context.Context, tx *gorm.DB, ev BookingEvent, organizationID int64, userID string, chargeID *string, stripeFeeCents int64, meta ledgerMeta) error {
	_, err := repo.GetLedgerByIntent(ctx, tx, ev.PaymentIntentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	lt := &domain.LedgerTransaction{
		OrganizationID:        organizationID,
		UserID:                userID,
		AmountCents:           ev.AmountCents,
		Currency:              ev.Currency,
		StripeChargeID:        chargeID,
		StripePaymentIntentID: ev.PaymentIntentID,
		PlatformFeeCents:      ev.PlatformFeeCents,
		StripeFeeCents:        stripeFeeCents,
		PayoutStatus:          domain.PayoutPending,
		Metadata:              mustJSON(meta),
	}
	if err := repo.CreateLedgerTransaction(ctx, tx, lt); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil
		}
		return err
	}
	return nil
}

// recomputeSlotStatus re-derives the slot's OPEN/FULL status from its actual
// occupancy and persists it when it drifted. Self-healing: it runs even when
// the event added no new active booking, and it reopens a slot wrongly
// marked FULL. Cancelled slots are left untouched.
func (s *FulfillmentService) recomputeSlotStatus(ctx context.Context, tx *gorm.DB, slot *domain.AvailabilitySlot) error {
	if slot.Status == domain.SlotCancelled {
		return nil
	}
	active, err := repo.CountActiveBookings(ctx, tx, slot.ID)
	if err != nil {
		return err
	}
	desired := domain.SlotOpen
	if active >= int64(slot.Capacity) {
		desired = domain.SlotFull
	}
	if desired == slot.Status {
		return nil
	}
	slot.Status = desired
	return repo.UpdateSlotStatus(ctx, tx, slot.ID, desired)
}

// resolveProcessorFee returns the charge id (when resolvable) and the fee in
// cents: the authoritative balance-transaction fee when available, otherwise
// an estimate from the platform fee schedule. Failures only log.
func (s *FulfillmentService) resolveProcessorFee(ctx context.Context, ev BookingEvent) (*string, int64) {
	var chargeID *string

	if s.Charges != nil && ev.ChargeRef != "" {
		ch, err := s.Charges.GetCharge(ctx, ev.ChargeRef)
		if err != nil {
			log.Warn().Err(err).
				Str("payment_intent_id", ev.PaymentIntentID).
				Str("charge_ref", ev.ChargeRef).
				Msg("charge lookup failed; estimating processor fee")
		} else {
			if ch.ID != "" {
				id := ch.ID
				chargeID = &id
			}
			if ch.BalanceTransaction != nil {
				return chargeID, ch.BalanceTransaction.Fee
			}
		}
	}

	return chargeID, s.estimateFee(ctx, ev.AmountCents)
}

func (s *FulfillmentService) estimateFee(ctx context.Context, amountCents int64) int64 {
	est := FeeEstimator{Bps: s.DefaultFeeBps, FixedCents: s.DefaultFeeFixedCents}
	fs, err := repo.GetFeeSchedule(ctx, s.DB)
	if err != nil {
		log.Warn().Err(err).Msg("fee schedule lookup failed; using defaults")
	} else if fs != nil {
		est = FeeEstimator{Bps: fs.FeeBps, FixedCents: fs.FeeFixedCents}
	}
	return est.Estimate(amountCents)
}

// mustJSON serializes metadata documents whose fields are plain ints and
// strings; marshal cannot fail for these.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
