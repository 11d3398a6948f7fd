package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/booking-fulfillment/internal/stripe"
)

func TestClassifyIntent_Match(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want bool
	}{
		{"marker one", map[string]string{"serviceBooking": "1"}, true},
		{"marker true", map[string]string{"serviceBooking": "true"}, true},
		{"marker other value", map[string]string{"serviceBooking": "yes"}, false},
		{"booking id only", map[string]string{"bookingId": "12"}, true},
		{"service id only", map[string]string{"serviceId": "3"}, true},
		{"blank booking id", map[string]string{"bookingId": "   "}, false},
		{"unrelated metadata", map[string]string{"orderId": "42"}, false},
		{"empty metadata", map[string]string{}, false},
		{"nil metadata", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ClassifyIntent(stripe.PaymentIntent{ID: "pi_x", Metadata: tt.meta})
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClassifyIntent_Fields(t *testing.T) {
	ev, ok := ClassifyIntent(stripe.PaymentIntent{
		ID:             "pi_1",
		Amount:         6000,
		AmountReceived: 5000,
		Currency:       "eur",
		LatestCharge:   "ch_1",
		Metadata: map[string]string{
			"serviceBooking":   "1",
			"bookingId":        "12",
			"serviceId":        "3",
			"availabilityId":   "44",
			"organizationId":   "7",
			"policyId":         "2",
			"userId":           "  u1  ",
			"platformFeeCents": "500",
		},
	})
	require.True(t, ok)

	assert.Equal(t, "pi_1", ev.PaymentIntentID)
	assert.Equal(t, int64(5000), ev.AmountCents, "received amount wins over authorized")
	assert.Equal(t, "EUR", ev.Currency)
	assert.Equal(t, "ch_1", ev.ChargeRef)
	assert.Equal(t, int64(12), ev.BookingID)
	assert.Equal(t, int64(3), ev.ServiceID)
	assert.Equal(t, int64(44), ev.AvailabilityID)
	assert.Equal(t, int64(7), ev.OrganizationID)
	assert.Equal(t, int64(2), ev.PolicyID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, int64(500), ev.PlatformFeeCents)
}

func TestClassifyIntent_AmountFallsBackToAuthorized(t *testing.T) {
	ev, ok := ClassifyIntent(stripe.PaymentIntent{
		ID:       "pi_2",
		Amount:   6000,
		Metadata: map[string]string{"serviceBooking": "1"},
	})
	require.True(t, ok)
	assert.Equal(t, int64(6000), ev.AmountCents)
	assert.Equal(t, "EUR", ev.Currency, "missing currency defaults")
}

func TestParseIDLeniency(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12", 12},
		{" 12 ", 12},
		{"12.9", 12},
		{"-3.7", -3},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseID(tt.in), "parseID(%q)", tt.in)
	}
}

func TestCanSynthesize(t *testing.T) {
	full := BookingEvent{AvailabilityID: 1, ServiceID: 2, OrganizationID: 3, UserID: "u"}
	assert.True(t, full.CanSynthesize())

	for name, mutate := range map[string]func(*BookingEvent){
		"no availability": func(e *BookingEvent) { e.AvailabilityID = 0 },
		"no service":      func(e *BookingEvent) { e.ServiceID = 0 },
		"no organization": func(e *BookingEvent) { e.OrganizationID = 0 },
		"no user":         func(e *BookingEvent) { e.UserID = "" },
	} {
		ev := full
		mutate(&ev)
		assert.False(t, ev.CanSynthesize(), name)
	}
}
