// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file reads the platform fee schedule used by
// the fee estimator fallback.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// GetFeeSchedule returns the platform fee schedule row. When no row has been
// configured it returns (nil, nil) so the caller can apply its defaults; only
// genuine DB failures surface as errors.
func GetFeeSchedule(ctx context.Context, db *gorm.DB) (*domain.PlatformFeeSchedule, error) {
	var fs domain.PlatformFeeSchedule
	err := db.WithContext(ctx).
		Order("id asc").
		First(&fs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fs, nil
}
