// Package domain defines the persistence models for the booking fulfillment
// core: services, availability slots, bookings, cancellation policies, the
// financial ledger, and the append-only activity/audit records. These types
// are mapped with GORM and are shared across the repository and service
// layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// AvailabilitySlot status values. A slot is FULL exactly when the number of
// active (non-cancelled) bookings reaches its capacity; the fulfillment
// service recomputes this after every reconciliation.
const (
	SlotOpen      = "OPEN"
	SlotFull      = "FULL"
	SlotCancelled = "CANCELLED"
)

// Booking status values. The fulfillment core only ever moves a booking
// PENDING -> CONFIRMED; it never reverts CONFIRMED and never resurrects
// CANCELLED.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Cancellation policy types, ordered from most to least permissive.
const (
	PolicyFlexible = "FLEXIBLE"
	PolicyModerate = "MODERATE"
	PolicyStrict   = "STRICT"
)

// Ledger payout status. Rows are created PENDING; payout settlement is owned
// by a separate process and never touched here.
const PayoutPending = "PENDING"

// Audit actions recorded by the fulfillment service.
const (
	AuditBookingCreated     = "BOOKING_CREATED"
	AuditPaymentAfterCancel = "BOOKING_PAYMENT_AFTER_CANCEL"
)

// Activity types and visibility for user feed entries.
const (
	ActivityBookingCreated = "BOOKING_CREATED"
	VisibilityPrivate      = "PRIVATE"
)

// Service is a bookable offering published by an organization. Created and
// managed by an out-of-scope catalog workflow; read-only here.
type Service struct {
	ID             int64          `json:"id"               gorm:"primaryKey;autoIncrement"`
	OrganizationID int64          `json:"organization_id"  gorm:"not null;index"`
	Name           string         `json:"name"             gorm:"type:varchar(255);not null"`
	UnitPriceCents int64          `json:"unit_price_cents" gorm:"not null"`
	Currency       string         `json:"currency"         gorm:"type:varchar(3);not null;default:'EUR'"`
	Active         bool           `json:"active"           gorm:"not null;default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// AvailabilitySlot is a finite-capacity bookable time window for one service.
// Slots are created by an out-of-scope scheduling workflow; the fulfillment
// core only mutates Status (OPEN <-> FULL) and never deletes rows.
type AvailabilitySlot struct {
	ID              int64          `json:"id"               gorm:"primaryKey;autoIncrement"`
	ServiceID       int64          `json:"service_id"       gorm:"not null;index"`
	StartsAt        time.Time      `json:"starts_at"        gorm:"not null;index"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	Capacity        int            `json:"capacity"         gorm:"not null;check:capacity > 0"`
	Status          string         `json:"status"           gorm:"type:varchar(16);not null;default:'OPEN';check:status IN ('OPEN','FULL','CANCELLED')"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`

	// Service is the offering this slot belongs to.
	Service Service `json:"-" gorm:"foreignKey:ServiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AvailabilitySlot.
func (AvailabilitySlot) TableName() string { return "availability_slots" }

// Booking is a reservation of one seat on an availability slot. Bookings are
// normally created PENDING by the out-of-scope hold workflow; the fulfillment
// service may also synthesize one directly as CONFIRMED when a payment event
// arrives for a hold that expired or was never persisted.
type Booking struct {
	ID              int64          `json:"id"               gorm:"primaryKey;autoIncrement"`
	ServiceID       int64          `json:"service_id"       gorm:"not null;index"`
	OrganizationID  int64          `json:"organization_id"  gorm:"not null;index"`
	UserID          string         `json:"user_id"          gorm:"type:varchar(64);not null;index"`
	AvailabilityID  int64          `json:"availability_id"  gorm:"not null;index"`
	StartsAt        time.Time      `json:"starts_at"        gorm:"not null"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	PriceCents      int64          `json:"price_cents"      gorm:"not null"`
	Currency        string         `json:"currency"         gorm:"type:varchar(3);not null"`
	Status          string         `json:"status"           gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','CONFIRMED','CANCELLED')"`
	PaymentIntentID *string        `json:"payment_intent_id,omitempty" gorm:"type:varchar(255);index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`

	// Availability is the slot the seat is taken on.
	Availability AvailabilitySlot `json:"-" gorm:"foreignKey:AvailabilityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Active reports whether the booking occupies a seat for capacity purposes.
func (b *Booking) Active() bool { return b.Status != BookingCancelled }

// OrganizationPolicy is a cancellation policy owned by an organization.
// Policies are configured elsewhere; the fulfillment service only reads them
// when resolving which policy applies to a confirmed booking.
type OrganizationPolicy struct {
	ID             int64     `json:"id"              gorm:"primaryKey;autoIncrement"`
	OrganizationID int64     `json:"organization_id" gorm:"not null;index"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	PolicyType     string    `json:"policy_type"     gorm:"type:varchar(16);not null;check:policy_type IN ('FLEXIBLE','MODERATE','STRICT')"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for OrganizationPolicy.
func (OrganizationPolicy) TableName() string { return "organization_policies" }

// BookingPolicyRef links a booking to the cancellation policy resolved for
// it. A booking is assigned at most one policy; the first successful
// resolution wins and is never reassigned.
type BookingPolicyRef struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	BookingID int64     `json:"booking_id" gorm:"not null;uniqueIndex:ux_booking_policy"`
	PolicyID  int64     `json:"policy_id"  gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	Booking Booking            `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Policy  OrganizationPolicy `json:"-" gorm:"foreignKey:PolicyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for BookingPolicyRef.
func (BookingPolicyRef) TableName() string { return "booking_policy_refs" }

// LedgerTransaction is the single financial record produced per payment
// intent. The unique index on StripePaymentIntentID is the idempotency
// anchor for the whole reconciliation: no matter how many times the same
// payment event is delivered, at most one row exists. Rows are immutable
// here; payout settlement mutates PayoutStatus elsewhere.
type LedgerTransaction struct {
	ID                    int64     `json:"id"                       gorm:"primaryKey;autoIncrement"`
	OrganizationID        int64     `json:"organization_id"          gorm:"not null;index"`
	UserID                string    `json:"user_id"                  gorm:"type:varchar(64);not null;index"`
	AmountCents           int64     `json:"amount_cents"             gorm:"not null"`
	Currency              string    `json:"currency"                 gorm:"type:varchar(3);not null"`
	StripeChargeID        *string   `json:"stripe_charge_id,omitempty" gorm:"type:varchar(255)"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_ledger_intent"`
	PlatformFeeCents      int64     `json:"platform_fee_cents"       gorm:"not null;default:0"`
	StripeFeeCents        int64     `json:"stripe_fee_cents"         gorm:"not null;default:0"`
	PayoutStatus          string    `json:"payout_status"            gorm:"type:varchar(16);not null;default:'PENDING'"`
	Metadata              string    `json:"metadata,omitempty"       gorm:"type:text"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName returns the database table name for LedgerTransaction.
func (LedgerTransaction) TableName() string { return "ledger_transactions" }

// UserActivity is an append-only entry in a user's private activity feed.
// Written once per genuine booking confirmation, never on replays.
type UserActivity struct {
	ID         string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Type       string    `json:"type"       gorm:"type:varchar(64);not null"`
	Visibility string    `json:"visibility" gorm:"type:varchar(16);not null;default:'PRIVATE'"`
	Metadata   string    `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for UserActivity.
func (UserActivity) TableName() string { return "user_activities" }

// OrganizationAudit is an append-only compliance record scoped to an
// organization. The fulfillment service writes BOOKING_CREATED on a genuine
// confirmation and BOOKING_PAYMENT_AFTER_CANCEL when a payment lands on an
// already-cancelled booking.
type OrganizationAudit struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	OrganizationID int64     `json:"organization_id" gorm:"not null;index"`
	ActorUserID    string    `json:"actor_user_id"   gorm:"type:varchar(64);not null"`
	Action         string    `json:"action"          gorm:"type:varchar(64);not null;index"`
	Metadata       string    `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index"`
}

// TableName returns the database table name for OrganizationAudit.
func (OrganizationAudit) TableName() string { return "organization_audits" }

// PlatformFeeSchedule holds the processor base fees used by the estimator
// when the authoritative balance-transaction fee is unavailable. The row is
// maintained by platform configuration tooling; read-only here.
type PlatformFeeSchedule struct {
	ID            int64     `json:"id"              gorm:"primaryKey;autoIncrement"`
	FeeBps        int64     `json:"fee_bps"         gorm:"not null;default:0"`
	FeeFixedCents int64     `json:"fee_fixed_cents" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for PlatformFeeSchedule.
func (PlatformFeeSchedule) TableName() string { return "platform_fee_schedules" }

// StripeWebhookEvent records a processed webhook delivery so replays of the
// same Stripe event id can be acknowledged without re-running the
// reconciliation. This is observational only: the ledger unique index
// remains the authoritative idempotency gate.
type StripeWebhookEvent struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	EventID    string    `json:"event_id"    gorm:"type:varchar(255);not null;uniqueIndex:ux_webhook_event"`
	Type       string    `json:"type"        gorm:"type:varchar(64);not null"`
	ReceivedAt time.Time `json:"received_at" gorm:"not null"`
}

// TableName returns the database table name for StripeWebhookEvent.
func (StripeWebhookEvent) TableName() string { return "stripe_webhook_events" }
