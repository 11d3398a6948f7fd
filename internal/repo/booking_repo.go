// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides repository functions for the
// Booking model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a booking is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetBooking fetches a booking by id with its availability slot preloaded.
// Returns ErrNotFound if the record does not exist.
func GetBooking(ctx context.Context, db *gorm.DB, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := db.WithContext(ctx).
		Preload("Availability").
		First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking inserts a new booking row. Used by the synthesis path which
// creates bookings directly as CONFIRMED.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return db.WithContext(ctx).Create(b).Error
}

// ConfirmBooking transitions a booking to CONFIRMED and stamps the payment
// intent id in one update. Returns ErrNotFound when no row was touched.
func ConfirmBooking(ctx context.Context, db *gorm.DB, id int64, paymentIntentID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            domain.BookingConfirmed,
			"payment_intent_id": paymentIntentID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// StampBookingPaymentIntent records the payment intent id on a booking
// without changing its status. Used when a booking is already CONFIRMED (or
// CANCELLED) but the intent reference is missing.
func StampBookingPaymentIntent(ctx context.Context, db *gorm.DB, id int64, paymentIntentID string) error {
	return db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Update("payment_intent_id", paymentIntentID).Error
}

// CountActiveBookings returns the number of non-cancelled bookings on an
// availability slot. This is the occupancy figure the capacity guard and the
// slot status recompute both operate on, and it must be evaluated inside the
// same transaction as any booking insert it gates.
func CountActiveBookings(ctx context.Context, db *gorm.DB, availabilityID int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("availability_id = ? AND status <> ?", availabilityID, domain.BookingCancelled).
		Count(&n).Error
	return n, err
}
