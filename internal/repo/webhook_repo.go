// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides the processed-webhook record
// used to short-circuit replayed Stripe event ids.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// WebhookEventSeen reports whether a Stripe event id has already been
// processed.
func WebhookEventSeen(ctx context.Context, db *gorm.DB, eventID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.StripeWebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n > 0, err
}

// RecordWebhookEvent marks a Stripe event id as processed. A concurrent
// delivery of the same event id maps the unique violation to ErrDuplicate,
// which callers treat as success.
func RecordWebhookEvent(ctx context.Context, db *gorm.DB, eventID, eventType string) error {
	rec := &domain.StripeWebhookEvent{
		EventID:    eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
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
