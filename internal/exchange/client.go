package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the exchange partner that settles trades. The policy
// engine only gates requests; everything past the gate is this client's
// partner API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func New(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type OrderRequest struct {
	UserID    string  `json:"user_id"`
	Currency  string  `json:"currency"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Rate      float64 `json:"rate"`
	Reference string  `json:"reference"`
}

type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CreateInstantOrder places an instant buy/sell order with the partner and
// confirms it in one call.
func (c *Client) CreateInstantOrder(ctx context.Context, order *OrderRequest) (*OrderResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/instant_orders", c.baseURL, order.UserID)

	result, err := c.post(ctx, endpoint, order)
	if err != nil {
		return nil, err
	}

	confirmEndpoint := fmt.Sprintf("%s/api/v1/users/%s/instant_orders/%s/confirm", c.baseURL, order.UserID, result.OrderID)
	if _, err := c.post(ctx, confirmEndpoint, nil); err != nil {
		return nil, fmt.Errorf("confirm order %s: %w", result.OrderID, err)
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (*OrderResult, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("exchange returned status %d", res.StatusCode)
	}

	var envelope struct {
		Status string      `json:"status"`
		Data   OrderResult `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	return &envelope.Data, nil
}
