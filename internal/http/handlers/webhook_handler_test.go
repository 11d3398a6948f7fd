package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/courtside/booking-fulfillment/internal/domain"
	"github.com/courtside/booking-fulfillment/internal/repo"
	"github.com/courtside/booking-fulfillment/internal/services"
	"github.com/courtside/booking-fulfillment/internal/stripe"
)

const testSecret = "whsec_test"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:webhookh_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &WebhookHandler{
		DB: db,
		Fulfillment: &services.FulfillmentService{
			DB:                   db,
			DefaultFeeBps:        290,
			DefaultFeeFixedCents: 25,
		},
		Secret: testSecret,
	}
	r.POST("/webhooks/stripe", h.HandleStripeEvent)
	return r
}

func seedPendingBooking(t *testing.T, db *gorm.DB) *domain.Booking {
	t.Helper()
	svc := &domain.Service{OrganizationID: 7, Name: "Court rental", UnitPriceCents: 5000, Currency: "EUR", Active: true}
	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	slot := &domain.AvailabilitySlot{
		ServiceID:       svc.ID,
		StartsAt:        time.Now().UTC().Add(24 * time.Hour),
		DurationMinutes: 60,
		Capacity:        2,
		Status:          domain.SlotOpen,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	b := &domain.Booking{
		ServiceID:       svc.ID,
		OrganizationID:  7,
		UserID:          "u1",
		AvailabilityID:  slot.ID,
		StartsAt:        slot.StartsAt,
		DurationMinutes: 60,
		PriceCents:      5000,
		Currency:        "EUR",
		Status:          domain.BookingPending,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

// eventBody builds a signed payment_intent.succeeded delivery.
func eventBody(t *testing.T, eventID, intentID string, meta map[string]string) ([]byte, string) {
	t.Helper()
	obj, err := json.Marshal(map[string]any{
		"id":              intentID,
		"amount":          5000,
		"amount_received": 5000,
		"currency":        "eur",
		"metadata":        meta,
	})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": "payment_intent.succeeded",
		"data": map[string]any{"object": json.RawMessage(obj)},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body, stripe.SignPayload(body, testSecret, time.Now())
}

func postWebhook(r *gin.Engine, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleStripeEvent_AppliesBookingEvent(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)
	b := seedPendingBooking(t, db)

	body, sig := eventBody(t, "evt_apply", "pi_apply", map[string]string{
		"serviceBooking": "1",
		"bookingId":      fmt.Sprint(b.ID),
	})
	w := postWebhook(r, body, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["outcome"] != "applied" {
		t.Fatalf("expected outcome applied, got %v", resp["outcome"])
	}

	var got domain.Booking
	if err := db.First(&got, b.ID).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	if got.Status != domain.BookingConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", got.Status)
	}
}

func TestHandleStripeEvent_InvalidSignature(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)

	body, _ := eventBody(t, "evt_bad", "pi_bad", map[string]string{"serviceBooking": "1"})
	w := postWebhook(r, body, stripe.SignPayload(body, "whsec_wrong", time.Now()))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = postWebhook(r, body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing header, got %d", w.Code)
	}
}

func TestHandleStripeEvent_ReplayedEventID(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)
	b := seedPendingBooking(t, db)

	body, sig := eventBody(t, "evt_once", "pi_once", map[string]string{
		"serviceBooking": "1",
		"bookingId":      fmt.Sprint(b.ID),
	})

	if w := postWebhook(r, body, sig); w.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", w.Code)
	}
	w := postWebhook(r, body, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["replayed"] != true {
		t.Fatalf("expected replayed ack, got %s", w.Body.String())
	}

	var n int64
	if err := db.Model(&domain.LedgerTransaction{}).Where("stripe_payment_intent_id = ?", "pi_once").Count(&n).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 ledger row after replay, got %d", n)
	}
}

func TestHandleStripeEvent_IgnoresOtherEventTypes(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)

	body, err := json.Marshal(map[string]any{
		"id":   "evt_refund",
		"type": "charge.refunded",
		"data": map[string]any{"object": map[string]any{"id": "ch_1"}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	w := postWebhook(r, body, stripe.SignPayload(body, testSecret, time.Now()))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored type, got %d", w.Code)
	}
}

func TestHandleStripeEvent_NotApplicableIntent(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)

	body, sig := eventBody(t, "evt_store", "pi_store", map[string]string{"orderId": "42"})
	w := postWebhook(r, body, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["outcome"] != "not_applicable" {
		t.Fatalf("expected outcome not_applicable, got %v", resp["outcome"])
	}
}

func TestHandleStripeEvent_DomainErrorIsUnprocessable(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db)

	// Booking id that does not exist and no synthesis metadata.
	body, sig := eventBody(t, "evt_nf", "pi_nf", map[string]string{
		"serviceBooking": "1",
		"bookingId":      "424242",
	})
	w := postWebhook(r, body, sig)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	// Rejected deliveries must not be marked processed: a corrected retry
	// (after data repair) still has to run.
	seen, err := repo.WebhookEventSeen(context.Background(), db, "evt_nf")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatal("rejected event must not be recorded as processed")
	}
}
