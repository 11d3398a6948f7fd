// Stripe webhook HTTP handler.
//
// This file exposes the single inbound endpoint of the service:
//   - POST /webhooks/stripe
//
// The handler is transport-thin: it verifies the payload signature, guards
// against replayed event ids, and delegates payment_intent.succeeded events
// to the FulfillmentService. Status codes are chosen for the processor's
// retry loop:
//   - 400: signature missing/invalid/expired (misconfiguration, retry useless)
//   - 200: applied, not applicable, replayed, or an ignored event type
//   - 422: a typed domain error (data mismatch or capacity conflict;
//     redelivery cannot succeed, a human has to look)
//   - 500: unexpected failure (the processor should redeliver)
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/courtside/booking-fulfillment/internal/http/middleware"
	"github.com/courtside/booking-fulfillment/internal/repo"
	"github.com/courtside/booking-fulfillment/internal/services"
	"github.com/courtside/booking-fulfillment/internal/stripe"
)

// eventPaymentIntentSucceeded is the only event type this service acts on.
const eventPaymentIntentSucceeded = "payment_intent.succeeded"

// webhookEvents counts webhook deliveries by event type and disposition.
// Dispositions: applied, not_applicable, replayed, ignored, rejected, failed.
var webhookEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_reconciliations_total",
		Help: "Webhook deliveries by event type and reconciliation disposition.",
	},
	[]string{"type", "disposition"},
)

func init() {
	prometheus.MustRegister(webhookEvents)
}

// WebhookHandler handles Stripe webhook deliveries.
type WebhookHandler struct {
	DB          *gorm.DB
	Fulfillment *services.FulfillmentService

	// Secret is the webhook endpoint signing secret.
	Secret string
	// Tolerance bounds the accepted age of a signed payload; zero falls back
	// to stripe.DefaultTolerance.
	Tolerance time.Duration
}

// HandleStripeEvent is the POST /webhooks/stripe handler.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable payload")
		return
	}

	tolerance := h.Tolerance
	if tolerance == 0 {
		tolerance = stripe.DefaultTolerance
	}
	event, err := stripe.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.Secret, tolerance)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("webhook signature rejected")
		fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "invalid signature")
		return
	}

	lg := middleware.LoggerFrom(c).With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Logger()

	ctx := c.Request.Context()

	// Replay guard on the Stripe event id. Observational only: the ledger
	// unique key already makes re-running the coordinator harmless.
	if event.ID != "" {
		seen, err := repo.WebhookEventSeen(ctx, h.DB, event.ID)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "event lookup failed")
			return
		}
		if seen {
			lg.Info().Msg("webhook event replayed; already processed")
			webhookEvents.WithLabelValues(event.Type, "replayed").Inc()
			c.JSON(http.StatusOK, gin.H{"received": true, "replayed": true})
			return
		}
	}

	if event.Type != eventPaymentIntentSucceeded {
		lg.Debug().Msg("webhook event type ignored")
		webhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed payment intent payload")
		return
	}

	outcome, err := h.Fulfillment.ReconcileIntent(ctx, intent)
	if err != nil {
		if services.IsFatalReconcileError(err) {
			lg.Error().Err(err).
				Str("payment_intent_id", intent.ID).
				Msg("reconciliation rejected; manual follow-up required")
			webhookEvents.WithLabelValues(event.Type, "rejected").Inc()
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, err.Error())
			return
		}
		lg.Error().Err(err).
			Str("payment_intent_id", intent.ID).
			Msg("reconciliation failed")
		webhookEvents.WithLabelValues(event.Type, "failed").Inc()
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "reconciliation failed")
		return
	}

	if event.ID != "" {
		if err := repo.RecordWebhookEvent(ctx, h.DB, event.ID, event.Type); err != nil && err != repo.ErrDuplicate {
			// The reconciliation committed; a failed replay-guard write only
			// costs an extra no-op pass on redelivery.
			lg.Warn().Err(err).Msg("failed to record processed webhook event")
		}
	}

	lg.Info().
		Str("payment_intent_id", intent.ID).
		Str("outcome", outcome.String()).
		Msg("webhook event processed")
	webhookEvents.WithLabelValues(event.Type, outcome.String()).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome.String()})
}
