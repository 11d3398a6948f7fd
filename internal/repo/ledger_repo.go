// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides repository helpers for the
// LedgerTransaction model, the idempotency anchor of the reconciliation.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// ErrDuplicate indicates that a row keyed by a unique column already exists.
var ErrDuplicate = errors.New("duplicate")

// GetLedgerByIntent returns the ledger transaction for a payment intent id,
// or ErrNotFound when none exists.
func GetLedgerByIntent(ctx context.Context, db *gorm.DB, paymentIntentID string) (*domain.LedgerTransaction, error) {
	var lt domain.LedgerTransaction
	err := db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&lt).Error
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

// CreateLedgerTransaction inserts a ledger row and maps a unique-constraint
// violation on the payment intent id to ErrDuplicate. The service performs
// an existence check first; the constraint is the backstop against two
// transactions racing past that check on a server database.
func CreateLedgerTransaction(ctx context.Context, db *gorm.DB, lt *domain.LedgerTransaction) error {
	if lt.CreatedAt.IsZero() {
		lt.CreatedAt = time.Now().UTC()
	}
	if lt.PayoutStatus == "" {
		lt.PayoutStatus = domain.PayoutPending
	}
	if err := db.WithContext(ctx).Create(lt).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountLedgerByIntent returns how many ledger rows exist for a payment
// intent id. Exists for tests and invariants; the answer is 0 or 1.
func CountLedgerByIntent(ctx context.Context, db *gorm.DB, paymentIntentID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.LedgerTransaction{}).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		Count(&n).Error
	return n, err
}
