// Package stripe implements the minimal Stripe surface this service needs:
// webhook event envelopes, signature verification, and a thin HTTP client
// for charge retrieval. It intentionally models only the fields the
// fulfillment flow reads; everything else in the payload is ignored.
package stripe

import "encoding/json"

// Event is the webhook envelope Stripe POSTs to us. Data.Object carries the
// event-type-specific payload and is decoded lazily by the caller.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// PaymentIntent is the payment_intent.succeeded payload. Amounts are integer
// cents. Metadata is the loosely-typed key/value map set at intent creation
// by the checkout flows; the classifier turns it into a typed event.
type PaymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	LatestCharge   string            `json:"latest_charge"`
	Metadata       map[string]string `json:"metadata"`
}

// Charge is the subset of a Stripe charge used for authoritative fee lookup.
// BalanceTransaction is only populated when the charge is fetched with
// expand[]=balance_transaction and the transaction has settled.
type Charge struct {
	ID                 string              `json:"id"`
	BalanceTransaction *BalanceTransaction `json:"balance_transaction"`
}

// UnmarshalJSON tolerates the unexpanded form of balance_transaction, where
// Stripe sends a bare transaction id string instead of the object. In that
// case no fee is available and BalanceTransaction stays nil, which sends the
// caller down the estimator path.
func (c *Charge) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID                 string          `json:"id"`
		BalanceTransaction json.RawMessage `json:"balance_transaction"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.BalanceTransaction = nil
	if len(raw.BalanceTransaction) > 0 && raw.BalanceTransaction[0] == '{' {
		var bt BalanceTransaction
		if err := json.Unmarshal(raw.BalanceTransaction, &bt); err != nil {
			return err
		}
		c.BalanceTransaction = &bt
	}
	return nil
}

// BalanceTransaction carries the actual processor fee in cents.
type BalanceTransaction struct {
	ID  string `json:"id"`
	Fee int64  `json:"fee"`
}
