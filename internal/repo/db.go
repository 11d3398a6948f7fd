// Package repo implements the data persistence layer for the fulfillment
// domain, backed by GORM. This file contains database bootstrapping helpers
// for SQLite (pure Go driver) and schema migrations.
//
// Concurrency note: the reconciliation transaction relies on the store
// serializing concurrent check-then-insert sequences on the same
// availability slot. SQLite does this inherently (single writer; competing
// write transactions queue on busy_timeout). A server database deployment
// must pair the capacity recount with SELECT ... FOR UPDATE on the slot row.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist instead of the
	// opaque sqlite "out of memory (14)" error.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the fulfillment schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Service{},
		&domain.AvailabilitySlot{},
		&domain.Booking{},
		&domain.OrganizationPolicy{},
		&domain.BookingPolicyRef{},
		&domain.LedgerTransaction{},
		&domain.UserActivity{},
		&domain.OrganizationAudit{},
		&domain.PlatformFeeSchedule{},
		&domain.StripeWebhookEvent{},
	)
}
