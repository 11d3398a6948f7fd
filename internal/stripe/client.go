package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPIBase is the production Stripe API endpoint. Tests point BaseURL
// at an httptest server instead.
const DefaultAPIBase = "https://api.stripe.com"

// Client is a minimal Stripe API client. It only implements charge
// retrieval, which the fulfillment service uses to read the authoritative
// processor fee from the expanded balance transaction.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client with a sane request timeout. The timeout is
// deliberately short: a slow fee lookup must degrade to the estimator, not
// stall webhook processing.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultAPIBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetCharge fetches a charge with its balance transaction expanded.
// Any transport error, non-2xx status, or undecodable body is returned as an
// error; the caller treats all failures uniformly by falling back to the
// fee estimator.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if chargeID == "" {
		return nil, fmt.Errorf("stripe: empty charge id")
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultAPIBase
	}
	u := fmt.Sprintf("%s/v1/charges/%s?%s", base, url.PathEscape(chargeID),
		url.Values{"expand[]": {"balance_transaction"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe: get charge %s: status %d", chargeID, resp.StatusCode)
	}

	var ch Charge
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, fmt.Errorf("stripe: decode charge: %w", err)
	}
	return &ch, nil
}
