package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtside/booking-fulfillment/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func ledgerRow(intentID string) *domain.LedgerTransaction {
	return &domain.LedgerTransaction{
		OrganizationID:        7,
		UserID:                "u1",
		AmountCents:           5000,
		Currency:              "EUR",
		StripePaymentIntentID: intentID,
		StripeFeeCents:        170,
	}
}

func TestCreateLedgerTransaction_DuplicateIntent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := CreateLedgerTransaction(ctx, db, ledgerRow("pi_1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := CreateLedgerTransaction(ctx, db, ledgerRow("pi_1"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	n, err := CountLedgerByIntent(ctx, db, "pi_1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestCreateLedgerTransaction_Defaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := CreateLedgerTransaction(ctx, db, ledgerRow("pi_2")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	lt, err := GetLedgerByIntent(ctx, db, "pi_2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lt.PayoutStatus != domain.PayoutPending {
		t.Fatalf("expected payout PENDING, got %q", lt.PayoutStatus)
	}
	if lt.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestGetLedgerByIntent_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetLedgerByIntent(context.Background(), db, "pi_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
