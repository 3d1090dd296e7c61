// Package payments verifies payment confirmations against the card provider
// before the ledger applies them. The provider owns the charge lifecycle;
// this package only asks "did this reference really succeed for this amount".
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	dErrors "reliefhub/pkg/domain-errors"
)

// Verifier confirms that a payment reference reports a succeeded charge for
// the stated amount in minor currency units.
type Verifier interface {
	Verify(ctx context.Context, paymentRef string, amount int64) error
}

// Noop accepts every confirmation. Used in development and in deployments
// that trust the client callback; the ledger's idempotency still holds.
type Noop struct{}

func (Noop) Verify(context.Context, string, int64) error { return nil }

// HTTPVerifier checks confirmations against the provider's intent-status
// endpoint.
type HTTPVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPVerifier(baseURL, apiKey string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type intentStatus struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// Verify fetches the intent and rejects anything that is not a succeeded
// charge for exactly the stated amount. Provider outages surface as
// unavailable so the client retries with the same reference.
func (v *HTTPVerifier) Verify(ctx context.Context, paymentRef string, amount int64) error {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", v.baseURL, url.PathEscape(paymentRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build provider request")
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return dErrors.New(dErrors.CodeBadRequest, "unknown payment reference")
	case resp.StatusCode >= 500:
		return dErrors.New(dErrors.CodeUnavailable, "payment provider unavailable")
	case resp.StatusCode != http.StatusOK:
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("payment provider rejected the reference (status %d)", resp.StatusCode))
	}

	var intent intentStatus
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed provider response")
	}
	if intent.Status != "succeeded" {
		return dErrors.New(dErrors.CodeBadRequest, "payment has not succeeded")
	}
	if intent.Amount != amount {
		return dErrors.New(dErrors.CodeBadRequest, "payment amount does not match the confirmation")
	}
	return nil
}
