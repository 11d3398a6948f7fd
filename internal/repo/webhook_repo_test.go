package repo

import (
	"context"
	"errors"
	"testing"
)

func TestWebhookEventDedup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seen, err := WebhookEventSeen(ctx, db, "evt_1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatal("expected evt_1 unseen")
	}

	if err := RecordWebhookEvent(ctx, db, "evt_1", "payment_intent.succeeded"); err != nil {
		t.Fatalf("record: %v", err)
	}

	seen, err = WebhookEventSeen(ctx, db, "evt_1")
	if err != nil {
		t.Fatalf("seen after record: %v", err)
	}
	if !seen {
		t.Fatal("expected evt_1 seen after record")
	}

	err = RecordWebhookEvent(ctx, db, "evt_1", "payment_intent.succeeded")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on replayed record, got %v", err)
	}
}
