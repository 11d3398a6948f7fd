// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides repository functions for
// organization cancellation policies and their booking assignments.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// GetPolicyRef returns the policy assignment for a booking, or ErrNotFound
// when the booking has none yet.
func GetPolicyRef(ctx context.Context, db *gorm.DB, bookingID int64) (*domain.BookingPolicyRef, error) {
	var ref domain.BookingPolicyRef
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreatePolicyRef assigns a policy to a booking. The unique index on
// booking_id enforces the at-most-once invariant.
func CreatePolicyRef(ctx context.Context, db *gorm.DB, bookingID, policyID int64) error {
	ref := &domain.BookingPolicyRef{
		BookingID: bookingID,
		PolicyID:  policyID,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(ref).Error
}

// FindOrganizationPolicy returns the policy with the given id if it belongs
// to the organization, or ErrNotFound. The scoping prevents a metadata-
// supplied policy id from attaching another organizer's policy.
func FindOrganizationPolicy(ctx context.Context, db *gorm.DB, policyID, organizationID int64) (*domain.OrganizationPolicy, error) {
	var p domain.OrganizationPolicy
	err := db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", policyID, organizationID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPolicyByType returns one of the organization's policies of the given
// type, or ErrNotFound.
func FindPolicyByType(ctx context.Context, db *gorm.DB, organizationID int64, policyType string) (*domain.OrganizationPolicy, error) {
	var p domain.OrganizationPolicy
	err := db.WithContext(ctx).
		Where("organization_id = ? AND policy_type = ?", organizationID, policyType).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindEarliestPolicy returns the organization's oldest policy by creation
// time, or ErrNotFound when the organization has none.
func FindEarliestPolicy(ctx context.Context, db *gorm.DB, organizationID int64) (*domain.OrganizationPolicy, error) {
	var p domain.OrganizationPolicy
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at asc").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}
