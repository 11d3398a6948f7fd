// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides repository functions for the
// AvailabilitySlot model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// GetSlot fetches an availability slot by id with its service preloaded.
// Returns ErrNotFound if the record does not exist.
func GetSlot(ctx context.Context, db *gorm.DB, id int64) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	err := db.WithContext(ctx).
		Preload("Service").
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSlotStatus persists a recomputed slot status. Returns ErrNotFound
// when the slot does not exist.
func UpdateSlotStatus(ctx context.Context, db *gorm.DB, id int64, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.AvailabilitySlot{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
