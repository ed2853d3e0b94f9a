package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/infra"
	"staybook/internal/pkg/config"
	"staybook/internal/usecase/commands"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const createSessionPath = "/v1/checkout/sessions"

// Client talks to the external payment gateway over HTTP. Session creation
// is the synchronous half of the contract; settlement arrives later as a
// signed webhook.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type createSessionRequest struct {
	BookingID   string `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type createSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateSession asks the gateway for a hosted checkout session. A transient
// failure is retried once; a second retry could duplicate a session the
// gateway already created for a request whose response was lost. A 4xx
// answer is final and never retried.
func (c *Client) CreateSession(ctx context.Context, bookingID uuid.UUID, amount booking.Money) (*commands.GatewaySession, error) {
	payload, err := json.Marshal(createSessionRequest{
		BookingID:   bookingID.String(),
		AmountCents: amount.Cents(),
		Currency:    "USD",
	})
	if err != nil {
		return nil, infra.WrapRepoErr("failed to encode session request", err, infra.KindGatewayDown)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newRetryPolicy(), 1), ctx)

	var session *commands.GatewaySession
	operation := func() error {
		result, err := c.createSessionOnce(ctx, payload)
		if err != nil {
			if infra.IsKind(err, infra.KindGatewayRejected) {
				return backoff.Permanent(err)
			}
			return err
		}
		session = result
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Client) createSessionOnce(ctx context.Context, payload []byte) (*commands.GatewaySession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createSessionPath, bytes.NewReader(payload))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build session request", err, infra.KindGatewayDown)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, infra.WrapRepoErr("gateway unreachable", err, infra.KindGatewayDown)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// fall through to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, infra.WrapRepoErr(
			fmt.Sprintf("gateway rejected session: status %d: %s", resp.StatusCode, string(body)),
			nil, infra.KindGatewayRejected)
	default:
		return nil, infra.WrapRepoErr(
			fmt.Sprintf("gateway error: status %d", resp.StatusCode),
			nil, infra.KindGatewayDown)
	}

	var decoded createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, infra.WrapRepoErr("failed to decode session response", err, infra.KindGatewayDown)
	}
	if decoded.ID == "" || decoded.URL == "" {
		return nil, infra.WrapRepoErr("gateway returned incomplete session", nil, infra.KindGatewayDown)
	}

	return &commands.GatewaySession{ID: decoded.ID, URL: decoded.URL}, nil
}

func newRetryPolicy() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second
	return policy
}
