package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

func seedSlot(t *testing.T, db *gorm.DB, capacity int) *domain.AvailabilitySlot {
	t.Helper()
	svc := &domain.Service{OrganizationID: 7, Name: "Court rental", UnitPriceCents: 5000, Currency: "EUR", Active: true}
	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	slot := &domain.AvailabilitySlot{
		ServiceID:       svc.ID,
		StartsAt:        time.Now().UTC().Add(24 * time.Hour),
		DurationMinutes: 60,
		Capacity:        capacity,
		Status:          domain.SlotOpen,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func seedBooking(t *testing.T, db *gorm.DB, slot *domain.AvailabilitySlot, userID, status string) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ServiceID:       slot.ServiceID,
		OrganizationID:  7,
		UserID:          userID,
		AvailabilityID:  slot.ID,
		StartsAt:        slot.StartsAt,
		DurationMinutes: slot.DurationMinutes,
		PriceCents:      5000,
		Currency:        "EUR",
		Status:          status,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestGetBooking_PreloadsSlot(t *testing.T) {
	db := newTestDB(t)
	slot := seedSlot(t, db, 2)
	b := seedBooking(t, db, slot, "u1", domain.BookingPending)

	got, err := GetBooking(context.Background(), db, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Availability.ID != slot.ID {
		t.Fatalf("expected slot %d preloaded, got %d", slot.ID, got.Availability.ID)
	}
	if got.Availability.Capacity != 2 {
		t.Fatalf("expected capacity 2, got %d", got.Availability.Capacity)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetBooking(context.Background(), db, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfirmBooking(t *testing.T) {
	db := newTestDB(t)
	slot := seedSlot(t, db, 2)
	b := seedBooking(t, db, slot, "u1", domain.BookingPending)
	ctx := context.Background()

	if err := ConfirmBooking(ctx, db, b.ID, "pi_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, err := GetBooking(ctx, db, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != domain.BookingConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", got.Status)
	}
	if got.PaymentIntentID == nil || *got.PaymentIntentID != "pi_1" {
		t.Fatalf("intent not stamped: %v", got.PaymentIntentID)
	}
}

func TestConfirmBooking_MissingID(t *testing.T) {
	db := newTestDB(t)

	err := ConfirmBooking(context.Background(), db, 12345, "pi_1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountActiveBookings_IgnoresCancelled(t *testing.T) {
	db := newTestDB(t)
	slot := seedSlot(t, db, 5)
	seedBooking(t, db, slot, "u1", domain.BookingConfirmed)
	seedBooking(t, db, slot, "u2", domain.BookingPending)
	seedBooking(t, db, slot, "u3", domain.BookingCancelled)

	n, err := CountActiveBookings(context.Background(), db, slot.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// PENDING holds occupy a seat; CANCELLED does not.
	if n != 2 {
		t.Fatalf("expected 2 active bookings, got %d", n)
	}
}
