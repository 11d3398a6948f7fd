// Package services – event classification.
//
// This file decides, once and at the boundary, whether a generic payment
// confirmation belongs to booking fulfillment. Other domains (store orders,
// ticket purchases) share the same payment rail and the same metadata map;
// the classifier turns the loosely-typed marker fields into a typed
// BookingEvent or declines without side effects so an upstream dispatcher
// can try the next handler.
package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/courtside/booking-fulfillment/internal/stripe"
)

// BookingEvent is a payment confirmation claimed by the booking domain, with
// all metadata fields parsed into their proper types. Numeric ids are 0 when
// absent or malformed; an id of 0 is never a valid reference.
type BookingEvent struct {
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	ChargeRef       string

	BookingID        int64
	ServiceID        int64
	AvailabilityID   int64
	OrganizationID   int64
	PolicyID         int64
	UserID           string
	PlatformFeeCents int64
}

// CanSynthesize reports whether the event carries enough metadata to create
// a booking when none exists: the availability, service, organizer, and user
// must all be identified.
func (e BookingEvent) CanSynthesize() bool {
	return e.AvailabilityID != 0 && e.ServiceID != 0 && e.OrganizationID != 0 && e.UserID != ""
}

// ClassifyIntent inspects a payment intent's metadata and returns the typed
// booking event when the intent belongs to this domain. The second return is
// false when the event is not applicable; in that case nothing has been
// read beyond the metadata map and no side effects occurred.
//
// An intent is claimed when the serviceBooking marker is set ("1" or
// "true"), or when a bookingId or serviceId key is present.
func ClassifyIntent(intent stripe.PaymentIntent) (BookingEvent, bool) {
	meta := intent.Metadata
	if meta == nil {
		return BookingEvent{}, false
	}

	marker := meta["serviceBooking"]
	if marker != "1" && marker != "true" &&
		strings.TrimSpace(meta["bookingId"]) == "" &&
		strings.TrimSpace(meta["serviceId"]) == "" {
		return BookingEvent{}, false
	}

	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}

	currency := strings.ToUpper(intent.Currency)
	if currency == "" {
		currency = "EUR"
	}

	return BookingEvent{
		PaymentIntentID:  intent.ID,
		AmountCents:      amount,
		Currency:         currency,
		ChargeRef:        intent.LatestCharge,
		BookingID:        parseID(meta["bookingId"]),
		ServiceID:        parseID(meta["serviceId"]),
		AvailabilityID:   parseID(meta["availabilityId"]),
		OrganizationID:   parseID(meta["organizationId"]),
		PolicyID:         parseID(meta["policyId"]),
		UserID:           strings.TrimSpace(meta["userId"]),
		PlatformFeeCents: parseAmount(meta["platformFeeCents"]),
	}, true
}

// parseID parses a numeric identifier leniently: fractional values are
// truncated, anything non-numeric is treated as absent (0), never as zero-
// the-value.
func parseID(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return int64(math.Trunc(f))
}

// parseAmount parses an integer cent amount, treating malformed input as 0.
func parseAmount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
