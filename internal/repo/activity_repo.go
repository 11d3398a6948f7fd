// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file provides append-only writers for the
// user activity feed and the organization audit trail.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// CreateUserActivity appends a private activity feed entry for a user.
// The metadata argument is a pre-serialized JSON document.
func CreateUserActivity(ctx context.Context, db *gorm.DB, userID, activityType, metadata string) error {
	rec := &domain.UserActivity{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       activityType,
		Visibility: domain.VisibilityPrivate,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(rec).Error
}

// CreateOrganizationAudit appends a compliance audit record for an
// organization. The metadata argument is a pre-serialized JSON document.
func CreateOrganizationAudit(ctx context.Context, db *gorm.DB, organizationID int64, actorUserID, action, metadata string) error {
	rec := &domain.OrganizationAudit{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		ActorUserID:    actorUserID,
		Action:         action,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(rec).Error
}
